package notifier

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Host:    "smtp.example.com",
		Port:    587,
		From:    "Ayushya <otp@app.goayu.life>",
		Retries: 3,
		Backoff: 500 * time.Millisecond,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.Host = ""
	assert.ErrorContains(t, cfg.Validate(), "SMTP_HOST")

	cfg = testConfig()
	cfg.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "SMTP_PORT")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&Config{}, zerolog.Nop())
	require.Error(t, err)
}

func TestRenderBody(t *testing.T) {
	n, err := New(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	body, err := n.renderBody("482915")
	require.NoError(t, err)

	assert.Contains(t, body, "482915")
	assert.Contains(t, body, "Ayushya")
	assert.Contains(t, body, "expires in 10 minutes")
}

func TestRenderText(t *testing.T) {
	text := renderText("482915")
	assert.Contains(t, text, "482915")
	assert.Contains(t, text, "expires in 10 minutes")
}
