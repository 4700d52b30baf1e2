// ABOUTME: Tunable weights and thresholds for candidate scoring and resolution
// ABOUTME: Values were hand-tuned on personal and work contacts and are exposed as configuration
package resolver

// Config holds the scoring knobs. Scores are additive points; a plain exact
// name match is worth 100 at the default name weight.
type Config struct {
	NameWeight           float64
	ContextBoost         float64
	RecencyBoost         float64
	RecencyThresholdDays int
	MinMatchScore        float64
	DisambiguationGap    float64
	RelationshipWeight   float64
	RelationshipCap      float64
	// FirstNameOnlyMultiplier scales the relationship boost for bare first-name
	// mentions, on the assumption that close contacts are called by first name.
	FirstNameOnlyMultiplier float64
	// DefaultRegion is used for phone numbers without a country code.
	DefaultRegion string
}

func DefaultConfig() Config {
	return Config{
		NameWeight:              1.0,
		ContextBoost:            30,
		RecencyBoost:            10,
		RecencyThresholdDays:    30,
		MinMatchScore:           60,
		DisambiguationGap:       10,
		RelationshipWeight:      0.1,
		RelationshipCap:         10,
		FirstNameOnlyMultiplier: 2.0,
		DefaultRegion:           "US",
	}
}

// Fixed confidences for decisions that do not come from a candidate score.
const (
	confidenceExact          = 1.0
	confidenceNewEntity      = 0.5
	confidenceEmailNew       = 0.6
	confidenceDisambiguated  = 0.7
	ambiguousPenalty         = 0.7
	confidenceLinkedInDomain = 0.85
	confidenceLinkedInNew    = 0.8

	// linkedInDomainNameThreshold is the name similarity a same-company email
	// match needs before it is trusted.
	linkedInDomainNameThreshold = 80.0
)
