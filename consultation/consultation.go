// Package consultation generates personalized Ayurvedic guidance from a
// constitutional analysis and reported symptoms, using a pluggable text
// generation backend.
package consultation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goayu/ayushya/dosha"
)

// AdviceClient abstracts the text generation backend.
type AdviceClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// AdviceClientFunc adapts a function to the AdviceClient interface.
type AdviceClientFunc func(ctx context.Context, prompt string) (string, error)

func (f AdviceClientFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Remedy is a single home remedy recommendation.
type Remedy struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	PreparationMethod string   `json:"preparation_method"`
	Dosage            string   `json:"dosage"`
	Timing            string   `json:"timing"`
	Duration          string   `json:"duration"`
	Precautions       string   `json:"precautions"`
	Ingredients       []string `json:"ingredients"`
}

// ScriptureReference cites a classical text backing a recommendation.
type ScriptureReference struct {
	TextName string `json:"text_name"`
	Chapter  string `json:"chapter"`
	Verse    string `json:"verse"`
	Content  string `json:"content"`
}

// Response is a structured consultation.
type Response struct {
	DoshaAnalysis            string               `json:"dosha_analysis"`
	Remedies                 []Remedy             `json:"remedies"`
	ScriptureReferences      []ScriptureReference `json:"scripture_references"`
	LifestyleRecommendations []string             `json:"lifestyle_recommendations"`
	DietaryRecommendations   []string             `json:"dietary_recommendations"`
	GeneralAdvice            string               `json:"general_advice"`
}

// DailyTip is a short daily wellness suggestion.
type DailyTip struct {
	Category     string `json:"category"`
	Title        string `json:"title"`
	Tip          string `json:"tip"`
	Benefit      string `json:"benefit"`
	SanskritTerm string `json:"sanskrit_term,omitempty"`
	BestTime     string `json:"best_time,omitempty"`
	GeneratedAt  string `json:"generated_at"`
	DayOfYear    int    `json:"day_of_year"`
	IsFallback   bool   `json:"is_fallback,omitempty"`
}

// Service orchestrates prompt building, generation, and response parsing.
type Service struct {
	client AdviceClient
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(client AdviceClient, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		logger: logger.With().Str("component", "consultation").Logger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Generate produces a consultation for the given symptoms and constitution.
// A malformed backend response degrades to a fallback structure rather
// than an error, so callers always get something renderable.
func (s *Service) Generate(ctx context.Context, symptoms string, analysis dosha.ConstitutionalAnalysis, additionalNotes string) (*Response, error) {
	prompt := BuildConsultationPrompt(symptoms, analysis, additionalNotes)

	started := s.now()
	text, err := s.client.GenerateText(ctx, prompt)
	elapsed := s.now().Sub(started)

	if err != nil {
		s.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("consultation generation failed")
		return nil, fmt.Errorf("failed to generate consultation: %w", err)
	}

	s.logger.Info().Dur("elapsed", elapsed).Int("response_chars", len(text)).Msg("consultation generated")

	return parseConsultation(s.logger, text), nil
}

// DailyTipCategories are rotated through by the tip prompt.
var DailyTipCategories = []string{
	"Morning routine (Dinacharya)",
	"Diet and nutrition (Ahara)",
	"Exercise and yoga (Vyayama)",
	"Sleep hygiene (Nidra)",
	"Mental wellness (Manas)",
	"Seasonal living (Ritucharya)",
	"Self-care practices (Svasthavritta)",
	"Digestive health (Agni)",
	"Detox and cleansing (Shodhana)",
	"Herbal remedies (Aushadhi)",
}

// GenerateDailyTip produces a wellness tip for today, optionally tailored to
// a dominant dosha. Failures fall back to a canned tip.
func (s *Service) GenerateDailyTip(ctx context.Context, userDosha string) *DailyTip {
	today := s.now().UTC()
	dayOfYear := today.YearDay()

	prompt := buildDailyTipPrompt(today, userDosha)

	text, err := s.client.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("daily tip generation failed")
		return fallbackTip(today, dayOfYear)
	}

	tip := &DailyTip{}
	if err := json.Unmarshal([]byte(stripCodeFences(text)), tip); err != nil {
		s.logger.Error().Err(err).Msg("daily tip parse failed")
		return fallbackTip(today, dayOfYear)
	}

	tip.GeneratedAt = today.Format(time.RFC3339)
	tip.DayOfYear = dayOfYear

	return tip
}

// BuildConsultationPrompt renders the practitioner prompt for a consultation.
func BuildConsultationPrompt(symptoms string, analysis dosha.ConstitutionalAnalysis, additionalNotes string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an expert Ayurvedic practitioner with deep knowledge of classical Ayurvedic texts including Charaka Samhita, Sushruta Samhita, Ashtanga Hridaya, and other authoritative scriptures.

PATIENT CONSTITUTIONAL PROFILE (Prakruti):
- Constitutional Type: %s
- Dominant Dosha: %s
- Dosha Distribution: Vata %g%%, Pitta %g%%, Kapha %g%%
- Analysis: %s

CURRENT SYMPTOMS (Vikriti):
%s

`,
		analysis.PrakrutiType,
		analysis.DominantDosha,
		analysis.VataScore,
		analysis.PittaScore,
		analysis.KaphaScore,
		analysis.AnalysisSummary,
		symptoms,
	)

	if additionalNotes != "" {
		fmt.Fprintf(&b, "ADDITIONAL NOTES:\n%s\n\n", additionalNotes)
	}

	fmt.Fprintf(&b, `TASK:
Provide a comprehensive Ayurvedic consultation with personalized home remedies based on the patient's unique constitution and current symptoms. Your response must be in the following JSON format:

{
  "dosha_analysis": "Detailed analysis of current dosha imbalance based on symptoms and constitution",
  "remedies": [
    {
      "name": "Remedy name",
      "description": "Brief description of the remedy and its benefits",
      "preparation_method": "Step-by-step preparation instructions",
      "dosage": "Exact dosage information",
      "timing": "When to take (morning/evening/with meals, etc.)",
      "duration": "How long to continue the remedy",
      "precautions": "Any precautions or contraindications",
      "ingredients": ["ingredient1", "ingredient2", "ingredient3"]
    }
  ],
  "scripture_references": [
    {
      "text_name": "Name of Ayurvedic text",
      "chapter": "Chapter name or number",
      "verse": "Verse number or range",
      "content": "Brief explanation of what the scripture says about this condition"
    }
  ],
  "lifestyle_recommendations": [
    "Specific lifestyle recommendation 1",
    "Specific lifestyle recommendation 2",
    "Specific lifestyle recommendation 3"
  ],
  "dietary_recommendations": [
    "Specific dietary recommendation 1",
    "Specific dietary recommendation 2",
    "Specific dietary recommendation 3"
  ],
  "general_advice": "Overall wellness advice and what to expect from the treatment"
}

IMPORTANT GUIDELINES:
1. Tailor ALL remedies specifically to the patient's %s constitution
2. Provide 3-5 practical home remedies using commonly available ingredients
3. Reference authentic Ayurvedic texts (Charaka Samhita, Sushruta Samhita, Ashtanga Hridaya, etc.)
4. Consider the dominant dosha (%s) in all recommendations
5. Provide clear, actionable instructions that can be followed at home
6. Include both immediate relief measures and long-term constitutional balancing
7. Ensure all recommendations are safe and based on classical Ayurvedic principles
8. Return ONLY valid JSON, no additional text before or after

Generate the consultation now:`,
		analysis.PrakrutiType,
		analysis.DominantDosha,
	)

	return b.String()
}

func buildDailyTipPrompt(today time.Time, userDosha string) string {
	var b strings.Builder

	doshaContext := ""
	if userDosha != "" {
		doshaContext = fmt.Sprintf("\nThe user has a %s dominant constitution. Tailor the tip to be especially beneficial for %s types.", userDosha, userDosha)
	}

	fmt.Fprintf(&b, `You are an expert Ayurvedic wellness advisor. Generate a unique, practical daily wellness tip based on Ayurvedic principles.

Context:
- Today is %s, day %d of the year
- Current month: %s
- Season consideration: Adjust advice based on typical seasonal patterns%s

Generate a fresh, actionable wellness tip that covers ONE of these categories (rotate based on the day):
`,
		today.Weekday(),
		today.YearDay(),
		today.Month(),
		doshaContext,
	)

	for _, category := range DailyTipCategories {
		fmt.Fprintf(&b, "- %s\n", category)
	}

	b.WriteString(`
Return ONLY valid JSON in this exact format:
{
  "category": "Category name",
  "title": "Short catchy title (3-5 words)",
  "tip": "The main tip content (2-3 sentences, practical and actionable)",
  "benefit": "Brief explanation of the benefit (1 sentence)",
  "sanskrit_term": "Relevant Sanskrit term if applicable",
  "best_time": "Best time to practice this (e.g., morning, evening, before meals)"
}

Make the tip unique, specific, and immediately actionable. Avoid generic advice.`)

	return b.String()
}

// parseConsultation extracts the structured payload, tolerating markdown
// fences and missing fields. Unparseable output degrades to a fallback.
func parseConsultation(logger zerolog.Logger, text string) *Response {
	cleaned := stripCodeFences(text)

	out := &Response{}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		logger.Error().Err(err).Str("head", head(text, 500)).Msg("failed to parse consultation response")

		return &Response{
			DoshaAnalysis:            "Unable to parse AI response. Please try again.",
			Remedies:                 []Remedy{},
			ScriptureReferences:      []ScriptureReference{},
			LifestyleRecommendations: []string{},
			DietaryRecommendations:   []string{},
			GeneralAdvice:            head(text, 500),
		}
	}

	if out.Remedies == nil {
		out.Remedies = []Remedy{}
	}
	if out.ScriptureReferences == nil {
		out.ScriptureReferences = []ScriptureReference{}
	}
	if out.LifestyleRecommendations == nil {
		out.LifestyleRecommendations = []string{}
	}
	if out.DietaryRecommendations == nil {
		out.DietaryRecommendations = []string{}
	}

	return out
}

func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fallbackTip(today time.Time, dayOfYear int) *DailyTip {
	return &DailyTip{
		Category:     "General Wellness",
		Title:        "Stay Hydrated",
		Tip:          "Start your day with a glass of warm water to stimulate digestion and flush toxins. Add a squeeze of lemon for extra cleansing benefits.",
		Benefit:      "Improves digestion and helps maintain dosha balance throughout the day.",
		SanskritTerm: "Ushnodaka",
		BestTime:     "First thing in the morning",
		GeneratedAt:  today.Format(time.RFC3339),
		DayOfYear:    dayOfYear,
		IsFallback:   true,
	}
}
