package config

import "time"

// Persistence satisfies the go-persistence-bun config interface.
type Persistence struct {
	Debug       bool          `env:"DB_DEBUG" envDefault:"false"`
	Driver      string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN         string        `env:"DATABASE_DSN" envDefault:"file:ayushya.db?cache=shared&_pragma=foreign_keys(1)"`
	PingTimeout time.Duration `env:"DB_PING_TIMEOUT" envDefault:"5s"`
}

func (p Persistence) GetDebug() bool                { return p.Debug }
func (p Persistence) GetDriver() string             { return p.Driver }
func (p Persistence) GetDSN() string                { return p.DSN }
func (p Persistence) GetPingTimeout() time.Duration { return p.PingTimeout }

// GetPersistence returns the database settings.
func (c *App) GetPersistence() Persistence {
	return Persistence{
		Debug:       c.DBDebug,
		Driver:      "sqlite",
		DSN:         c.DatabaseDSN,
		PingTimeout: c.DBPingTimeout,
	}
}
