package extract

import (
	"github.com/goccy/go-json"
)

// CVMetadata is the structured record for CV/resume extraction.
type CVMetadata struct {
	Name       string   `json:"name"`
	Position   string   `json:"position"`
	Skills     []string `json:"skills"`
	Experience string   `json:"experience"`
	Education  string   `json:"education"`
}

// FallbackCVMetadata is the fixed record used when no payload can be parsed.
func FallbackCVMetadata() CVMetadata {
	return CVMetadata{
		Name:       "Unknown",
		Position:   "Unknown",
		Skills:     []string{},
		Experience: "Unknown",
		Education:  "Unknown",
	}
}

// ParseCVMetadata recovers CV metadata from raw model output, falling back to
// the fixed record when no parseable payload is found. Partially-parsed data
// is never returned.
func ParseCVMetadata(raw string) CVMetadata {
	payload, ok := jsonPayload(raw)
	if !ok {
		return FallbackCVMetadata()
	}
	var out CVMetadata
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return FallbackCVMetadata()
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	return out
}

// DraftReply is the structured record for email draft generation.
type DraftReply struct {
	Subject    string `json:"subject"`
	DraftReply string `json:"draft_reply"`
}

// FallbackDraftReply builds the deterministic draft record from the original
// subject. An empty subject keeps the fixed placeholder.
func FallbackDraftReply(origSubject string) DraftReply {
	subject := "Re: [Subject]"
	if origSubject != "" {
		subject = "Re: " + origSubject
	}
	return DraftReply{
		Subject:    subject,
		DraftReply: "Unable to generate reply. Please try again.",
	}
}

// ParseDraftReply recovers a draft reply from raw model output.
func ParseDraftReply(raw, origSubject string) DraftReply {
	payload, ok := jsonPayload(raw)
	if !ok {
		return FallbackDraftReply(origSubject)
	}
	var out DraftReply
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return FallbackDraftReply(origSubject)
	}
	return out
}

// The closed category set for email classification. Anything the model
// produces outside this set is replaced with the neutral default.
const (
	CategoryUrgent   = "Urgent & Action Required"
	CategoryFollowUp = "Normal Follow-up"
	CategoryFYI      = "FYI / Low Priority"
	CategorySpam     = "Spam"
)

// DefaultCategory is the neutral classification.
const DefaultCategory = CategoryFYI

var validCategories = map[string]bool{
	CategoryUrgent:   true,
	CategoryFollowUp: true,
	CategoryFYI:      true,
	CategorySpam:     true,
}

// Classification is the structured record for email classification.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// FallbackClassification is the fixed record used when no payload can be
// parsed.
func FallbackClassification() Classification {
	return Classification{Category: DefaultCategory, Confidence: 0.5}
}

// ParseClassification recovers a classification from raw model output. After
// a successful parse the category is validated against the closed set and the
// confidence clamped into [0, 1]; out-of-range values are clamped, not
// grounds for discarding the record.
func ParseClassification(raw string) Classification {
	payload, ok := jsonPayload(raw)
	if !ok {
		return FallbackClassification()
	}

	parsed := struct {
		Category   *string  `json:"category"`
		Confidence *float64 `json:"confidence"`
	}{}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return FallbackClassification()
	}

	out := FallbackClassification()
	if parsed.Category != nil {
		out.Category = *parsed.Category
	}
	if parsed.Confidence != nil {
		out.Confidence = *parsed.Confidence
	}

	if !validCategories[out.Category] {
		out.Category = DefaultCategory
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return out
}
