// Package dosha implements Ayurvedic constitutional (prakruti) analysis
// from a fixed nine-question intake.
package dosha

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Answer values for the fixed constitutional questions.
const (
	BodyFrameSmallThin     = "small_thin"
	BodyFrameMediumBuild   = "medium_build"
	BodyFrameLargeHeavyset = "large_heavyset"

	SkinUsuallyDry   = "usually_dry"
	SkinUsuallyOily  = "usually_oily"
	SkinBalanced     = "balanced"

	HairThinDry   = "thin_dry"
	HairThickOily = "thick_oily"
	HairBalanced  = "balanced"

	TemperatureColdExtremities = "cold_extremities"
	TemperatureWarmSweaty      = "warm_sweaty"
	TemperatureBalanced        = "balanced"

	AppetiteUnpredictable    = "unpredictable"
	AppetiteStrongConsistent = "strong_consistent"
	AppetiteModerateSteady   = "moderate_steady"

	SleepDifficulty    = "difficulty_sleeping"
	SleepWell          = "sleep_well"
	SleepDeepRefreshed = "deep_sleep_refreshed"

	MentalAnxious      = "anxious"
	MentalIrritable    = "irritable"
	MentalCalmComposed = "calm_composed"

	DigestionGasBloating = "gas_bloating"
	DigestionStrong      = "strong_digestion"
	DigestionSlow        = "slow_digestion"

	StressAnxiousOverwhelmed = "anxious_overwhelmed"
	StressAngryFrustrated    = "angry_frustrated"
	StressWithdrawCalm       = "withdraw_calm"
)

// Dosha names as they appear in the analysis output.
const (
	Vata  = "Vata"
	Pitta = "Pitta"
	Kapha = "Kapha"
)

// QuestionnaireResponse carries the intake answers. The first nine fields
// form the fixed constitutional profile and drive the scoring; the rest is
// free-form context passed through to consultations.
type QuestionnaireResponse struct {
	BodyFrame                 string `json:"body_frame"`
	SkinType                  string `json:"skin_type"`
	HairType                  string `json:"hair_type"`
	TemperatureRegulation     string `json:"temperature_regulation"`
	AppetiteDigestion         string `json:"appetite_digestion"`
	SleepPatterns             string `json:"sleep_patterns"`
	MentalEmotionalTendencies string `json:"mental_emotional_tendencies"`
	DigestiveHealth           string `json:"digestive_health"`
	StressResponse            string `json:"stress_response"`

	CurrentHealthConditions string `json:"current_health_conditions,omitempty"`
	LifestyleNotes          string `json:"lifestyle_notes,omitempty"`
	DietaryPreferences      string `json:"dietary_preferences,omitempty"`
	ExerciseRoutine         string `json:"exercise_routine,omitempty"`

	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// Validate will run validation rules
func (r QuestionnaireResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BodyFrame, validation.Required,
			validation.In(BodyFrameSmallThin, BodyFrameMediumBuild, BodyFrameLargeHeavyset)),
		validation.Field(&r.SkinType, validation.Required,
			validation.In(SkinUsuallyDry, SkinUsuallyOily, SkinBalanced)),
		validation.Field(&r.HairType, validation.Required,
			validation.In(HairThinDry, HairThickOily, HairBalanced)),
		validation.Field(&r.TemperatureRegulation, validation.Required,
			validation.In(TemperatureColdExtremities, TemperatureWarmSweaty, TemperatureBalanced)),
		validation.Field(&r.AppetiteDigestion, validation.Required,
			validation.In(AppetiteUnpredictable, AppetiteStrongConsistent, AppetiteModerateSteady)),
		validation.Field(&r.SleepPatterns, validation.Required,
			validation.In(SleepDifficulty, SleepWell, SleepDeepRefreshed)),
		validation.Field(&r.MentalEmotionalTendencies, validation.Required,
			validation.In(MentalAnxious, MentalIrritable, MentalCalmComposed)),
		validation.Field(&r.DigestiveHealth, validation.Required,
			validation.In(DigestionGasBloating, DigestionStrong, DigestionSlow)),
		validation.Field(&r.StressResponse, validation.Required,
			validation.In(StressAnxiousOverwhelmed, StressAngryFrustrated, StressWithdrawCalm)),
		validation.Field(&r.Age, validation.Min(0), validation.Max(150)),
	)
}

// ConstitutionalAnalysis is the outcome of scoring a questionnaire.
// Scores are percentages of the total, rounded to two decimals.
type ConstitutionalAnalysis struct {
	VataScore       float64 `json:"vata_score"`
	PittaScore      float64 `json:"pitta_score"`
	KaphaScore      float64 `json:"kapha_score"`
	DominantDosha   string  `json:"dominant_dosha"`
	SecondaryDosha  string  `json:"secondary_dosha,omitempty"`
	PrakrutiType    string  `json:"prakruti_type"`
	AnalysisSummary string  `json:"analysis_summary"`
}

// Score calculates the vata/pitta/kapha distribution for a response.
//
// Each answer contributes two points, to one dosha or split across two.
// The secondary dosha only registers above 25% of the total, and a dual
// prakruti type ("Vata-Pitta") applies when the top two are within 15
// points of each other.
func Score(r QuestionnaireResponse) ConstitutionalAnalysis {
	var vata, pitta, kapha float64

	switch r.BodyFrame {
	case BodyFrameSmallThin:
		vata += 2
	case BodyFrameMediumBuild:
		pitta += 2
	case BodyFrameLargeHeavyset:
		kapha += 2
	}

	switch r.SkinType {
	case SkinUsuallyDry:
		vata += 2
	case SkinUsuallyOily:
		pitta++
		kapha++
	case SkinBalanced:
		pitta++
	}

	switch r.HairType {
	case HairThinDry:
		vata += 2
	case HairThickOily:
		kapha += 2
	case HairBalanced:
		pitta += 2
	}

	switch r.TemperatureRegulation {
	case TemperatureColdExtremities:
		vata += 2
	case TemperatureWarmSweaty:
		pitta += 2
	case TemperatureBalanced:
		kapha++
		pitta++
	}

	switch r.AppetiteDigestion {
	case AppetiteUnpredictable:
		vata += 2
	case AppetiteStrongConsistent:
		pitta += 2
	case AppetiteModerateSteady:
		kapha += 2
	}

	switch r.SleepPatterns {
	case SleepDifficulty:
		vata += 2
	case SleepWell:
		pitta += 2
	case SleepDeepRefreshed:
		kapha += 2
	}

	switch r.MentalEmotionalTendencies {
	case MentalAnxious:
		vata += 2
	case MentalIrritable:
		pitta += 2
	case MentalCalmComposed:
		kapha += 2
	}

	switch r.DigestiveHealth {
	case DigestionGasBloating:
		vata += 2
	case DigestionStrong:
		pitta += 2
	case DigestionSlow:
		kapha += 2
	}

	switch r.StressResponse {
	case StressAnxiousOverwhelmed:
		vata += 2
	case StressAngryFrustrated:
		pitta += 2
	case StressWithdrawCalm:
		kapha += 2
	}

	total := vata + pitta + kapha
	if total == 0 {
		total = 1
	}

	vataPct := vata / total * 100
	pittaPct := pitta / total * 100
	kaphaPct := kapha / total * 100

	type entry struct {
		name string
		pct  float64
	}
	ranked := []entry{
		{Vata, vataPct},
		{Pitta, pittaPct},
		{Kapha, kaphaPct},
	}
	// Stable so ties keep Vata > Pitta > Kapha priority.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].pct > ranked[j].pct
	})

	dominant := ranked[0].name

	secondary := ""
	if ranked[1].pct > 25 {
		secondary = ranked[1].name
	}

	prakruti := dominant
	if secondary != "" && ranked[0].pct-ranked[1].pct < 15 {
		prakruti = dominant + "-" + secondary
	}

	return ConstitutionalAnalysis{
		VataScore:       round2(vataPct),
		PittaScore:      round2(pittaPct),
		KaphaScore:      round2(kaphaPct),
		DominantDosha:   dominant,
		SecondaryDosha:  secondary,
		PrakrutiType:    prakruti,
		AnalysisSummary: summarize(prakruti, vataPct, pittaPct, kaphaPct),
	}
}

func summarize(prakruti string, vata, pitta, kapha float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your constitutional type (Prakruti) is %s. ", prakruti)
	fmt.Fprintf(&b, "Dosha distribution: Vata %.1f%%, Pitta %.1f%%, Kapha %.1f%%. ", vata, pitta, kapha)

	if strings.Contains(prakruti, Vata) {
		b.WriteString("Vata dominance indicates a light, quick, and creative nature. You may be prone to dryness, coldness, and irregularity. ")
	}
	if strings.Contains(prakruti, Pitta) {
		b.WriteString("Pitta dominance indicates a sharp, focused, and intense nature. You may be prone to heat, inflammation, and intensity. ")
	}
	if strings.Contains(prakruti, Kapha) {
		b.WriteString("Kapha dominance indicates a stable, grounded, and nurturing nature. You may be prone to heaviness, congestion, and slowness. ")
	}

	return strings.TrimSpace(b.String())
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
