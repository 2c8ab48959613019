package dosha_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goayu/ayushya/dosha"
)

func allVata() dosha.QuestionnaireResponse {
	return dosha.QuestionnaireResponse{
		BodyFrame:                 dosha.BodyFrameSmallThin,
		SkinType:                  dosha.SkinUsuallyDry,
		HairType:                  dosha.HairThinDry,
		TemperatureRegulation:     dosha.TemperatureColdExtremities,
		AppetiteDigestion:         dosha.AppetiteUnpredictable,
		SleepPatterns:             dosha.SleepDifficulty,
		MentalEmotionalTendencies: dosha.MentalAnxious,
		DigestiveHealth:           dosha.DigestionGasBloating,
		StressResponse:            dosha.StressAnxiousOverwhelmed,
	}
}

func TestScorePureVata(t *testing.T) {
	result := dosha.Score(allVata())

	assert.Equal(t, 100.0, result.VataScore)
	assert.Equal(t, 0.0, result.PittaScore)
	assert.Equal(t, 0.0, result.KaphaScore)
	assert.Equal(t, dosha.Vata, result.DominantDosha)
	assert.Empty(t, result.SecondaryDosha)
	assert.Equal(t, dosha.Vata, result.PrakrutiType)
	assert.Contains(t, result.AnalysisSummary, "Prakruti) is Vata")
	assert.Contains(t, result.AnalysisSummary, "light, quick, and creative")
}

func TestScoreKaphaDominant(t *testing.T) {
	// Oily skin and balanced temperature split points, so kapha tops out
	// at 14 of 16 here rather than a clean sweep.
	result := dosha.Score(dosha.QuestionnaireResponse{
		BodyFrame:                 dosha.BodyFrameLargeHeavyset,
		SkinType:                  dosha.SkinUsuallyOily,
		HairType:                  dosha.HairThickOily,
		TemperatureRegulation:     dosha.TemperatureBalanced,
		AppetiteDigestion:         dosha.AppetiteModerateSteady,
		SleepPatterns:             dosha.SleepDeepRefreshed,
		MentalEmotionalTendencies: dosha.MentalCalmComposed,
		DigestiveHealth:           dosha.DigestionSlow,
		StressResponse:            dosha.StressWithdrawCalm,
	})

	assert.Equal(t, 87.5, result.KaphaScore)
	assert.Equal(t, 12.5, result.PittaScore)
	assert.Equal(t, 0.0, result.VataScore)
	assert.Equal(t, dosha.Kapha, result.DominantDosha)
	assert.Empty(t, result.SecondaryDosha, "12.5%% is below the secondary threshold")
	assert.Equal(t, dosha.Kapha, result.PrakrutiType)
}

func TestScoreDualPrakruti(t *testing.T) {
	// Five vata answers against four pitta answers: 55.56 vs 44.44, within
	// the 15 point gap that makes a combined type.
	result := dosha.Score(dosha.QuestionnaireResponse{
		BodyFrame:                 dosha.BodyFrameSmallThin,
		SkinType:                  dosha.SkinUsuallyDry,
		HairType:                  dosha.HairThinDry,
		TemperatureRegulation:     dosha.TemperatureColdExtremities,
		AppetiteDigestion:         dosha.AppetiteUnpredictable,
		SleepPatterns:             dosha.SleepWell,
		MentalEmotionalTendencies: dosha.MentalIrritable,
		DigestiveHealth:           dosha.DigestionStrong,
		StressResponse:            dosha.StressAngryFrustrated,
	})

	assert.Equal(t, dosha.Vata, result.DominantDosha)
	assert.Equal(t, dosha.Pitta, result.SecondaryDosha)
	assert.Equal(t, "Vata-Pitta", result.PrakrutiType)
	assert.InDelta(t, 55.56, result.VataScore, 0.01)
	assert.InDelta(t, 44.44, result.PittaScore, 0.01)
	assert.Contains(t, result.AnalysisSummary, "light, quick, and creative")
	assert.Contains(t, result.AnalysisSummary, "sharp, focused, and intense")
}

func TestScoreWideGapStaysSingleType(t *testing.T) {
	// Six vata answers to three pitta: the secondary registers (33%) but
	// the 33 point spread keeps the prakruti type single.
	result := dosha.Score(dosha.QuestionnaireResponse{
		BodyFrame:                 dosha.BodyFrameSmallThin,
		SkinType:                  dosha.SkinUsuallyDry,
		HairType:                  dosha.HairThinDry,
		TemperatureRegulation:     dosha.TemperatureColdExtremities,
		AppetiteDigestion:         dosha.AppetiteUnpredictable,
		SleepPatterns:             dosha.SleepDifficulty,
		MentalEmotionalTendencies: dosha.MentalIrritable,
		DigestiveHealth:           dosha.DigestionStrong,
		StressResponse:            dosha.StressAngryFrustrated,
	})

	assert.Equal(t, dosha.Vata, result.DominantDosha)
	assert.Equal(t, dosha.Pitta, result.SecondaryDosha)
	assert.Equal(t, dosha.Vata, result.PrakrutiType)
	assert.InDelta(t, 66.67, result.VataScore, 0.01)
	assert.InDelta(t, 33.33, result.PittaScore, 0.01)
}

func TestScoreTieBreaksTowardVata(t *testing.T) {
	// Four vata answers, four pitta answers, one kapha: an exact vata/pitta
	// tie resolves with vata as dominant.
	result := dosha.Score(dosha.QuestionnaireResponse{
		BodyFrame:                 dosha.BodyFrameSmallThin,
		SkinType:                  dosha.SkinUsuallyDry,
		HairType:                  dosha.HairThinDry,
		TemperatureRegulation:     dosha.TemperatureColdExtremities,
		AppetiteDigestion:         dosha.AppetiteStrongConsistent,
		SleepPatterns:             dosha.SleepWell,
		MentalEmotionalTendencies: dosha.MentalIrritable,
		DigestiveHealth:           dosha.DigestionStrong,
		StressResponse:            dosha.StressWithdrawCalm,
	})

	assert.Equal(t, result.VataScore, result.PittaScore)
	assert.Equal(t, dosha.Vata, result.DominantDosha)
	assert.Equal(t, dosha.Pitta, result.SecondaryDosha)
	assert.Equal(t, "Vata-Pitta", result.PrakrutiType)
}

func TestQuestionnaireValidation(t *testing.T) {
	valid := allVata()
	valid.Age = 34
	valid.Gender = "female"
	require.NoError(t, valid.Validate())

	missing := allVata()
	missing.SleepPatterns = ""
	err := missing.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sleep_patterns") || strings.Contains(err.Error(), "SleepPatterns"))

	unknown := allVata()
	unknown.BodyFrame = "athletic"
	require.Error(t, unknown.Validate())

	tooOld := allVata()
	tooOld.Age = 200
	require.Error(t, tooOld.Validate())

	negative := allVata()
	negative.Age = -1
	require.Error(t, negative.Validate())
}
