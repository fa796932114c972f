package advisor

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// DefaultConfidence is used when the response carries no confidence score.
const DefaultConfidence = 70

// ErrNoRecommendation means the advisor's reply named no provider.
var ErrNoRecommendation = errors.New("advisor response contains no recommendation")

var (
	providerPattern     = regexp.MustCompile(`(?im)^[\s*#>-]*recommended provider[\s*]*:[\s*]*([A-Za-z0-9_.\-]+)`)
	reasoningPattern    = regexp.MustCompile(`(?is)reasoning[\s*]*:[\s*]*(.+?)(?:\n\s*\n|\n[\s*#>-]*alternatives?[\s*]*:|\n[\s*#>-]*confidence|\z)`)
	alternativesPattern = regexp.MustCompile(`(?im)^[\s*#>-]*alternatives?[\s*]*:[\s*]*(.*)$`)
	confidencePattern   = regexp.MustCompile(`(?i)confidence(?:\s+score)?[\s*]*:[\s*]*(\d{1,3})\s*%`)
)

// ParseRecommendation extracts a structured recommendation from free text.
// Only the provider line is required.
func ParseRecommendation(text string) (*Recommendation, error) {
	m := providerPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoRecommendation
	}

	rec := &Recommendation{
		Provider:   strings.Trim(m[1], ".-"),
		Confidence: DefaultConfidence,
	}
	if rec.Provider == "" {
		return nil, ErrNoRecommendation
	}

	if m := reasoningPattern.FindStringSubmatch(text); m != nil {
		rec.Reasoning = strings.TrimSpace(m[1])
	}

	if m := alternativesPattern.FindStringSubmatch(text); m != nil {
		for _, alt := range strings.Split(m[1], ",") {
			alt = strings.Trim(strings.TrimSpace(alt), "*.")
			if alt == "" || strings.EqualFold(alt, "none") {
				continue
			}
			rec.Alternatives = append(rec.Alternatives, alt)
		}
	}

	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			rec.Confidence = min(max(n, 0), 100)
		}
	}

	return rec, nil
}
