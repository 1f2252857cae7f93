package registry

import "strings"

// Family identifies the backend family serving a model. It is resolved
// once when a role table snapshot is turned into candidates, so the hot
// path never re-inspects model strings.
type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyOpenAI    Family = "openai"
	FamilyGoogle    Family = "google"
	FamilyLocal     Family = "local"
)

// DetectFamily classifies a model identifier by prefix. Operators swap
// which backend serves a role by changing the model name; this is the one
// place that mapping lives.
func DetectFamily(model string) Family {
	switch {
	case strings.HasPrefix(model, "claude"):
		return FamilyAnthropic
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return FamilyOpenAI
	case strings.HasPrefix(model, "gemini"):
		return FamilyGoogle
	default:
		return FamilyLocal
	}
}
