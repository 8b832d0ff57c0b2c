// Package extract recovers structured results from free-form model output.
// Extraction never fails: every function returns either a genuinely parsed
// record or a deterministic fallback built from the request's own fields,
// never from the model's text.
package extract

import "strings"

const (
	// personaMinLength is the threshold above which a line is considered a
	// full persona sentence.
	personaMinLength = 50
	// personaMinUsable is the floor below which even the best candidate is
	// discarded in favor of the fallback.
	personaMinUsable = 20
)

// PersonaFallback carries the request fields a fallback persona is built
// from.
type PersonaFallback struct {
	Name       string
	Position   string
	Department string
	Language   string
}

// String renders the deterministic fallback persona sentence.
func (f PersonaFallback) String() string {
	return f.Name + " (" + f.Position + ", " + f.Department +
		"). Preferred language: " + f.Language +
		". Professional tone inferred from writing samples. Direct communication style."
}

// Persona scans the raw output line by line for a persona sentence. A line
// starting with the subject's name and longer than 50 characters wins
// immediately; otherwise the last line longer than 50 characters containing
// both an opening and a closing parenthesis is kept as the best candidate.
// When nothing qualifies, or the candidate is shorter than 20 characters, the
// fallback built from the request fields is returned instead.
func Persona(raw, name string, fb PersonaFallback) string {
	best := scanPersonaLines(raw, name)
	if len(best) < personaMinUsable {
		return fb.String()
	}
	return best
}

// scanPersonaLines is a pure fold over the candidate lines: first full match
// wins, otherwise the last-seen qualifying candidate.
func scanPersonaLines(raw, name string) string {
	var best string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(line, " \n\r\t\"")

		// Skip blanks, bare code fences and prompt echoes.
		if line == "" || line == "```" || strings.Contains(line, "Persona:") {
			continue
		}

		if strings.HasPrefix(line, name) && len(line) > personaMinLength {
			return line
		}

		if len(line) > personaMinLength &&
			strings.Contains(line, "(") && strings.Contains(line, ")") {
			best = line
		}
	}
	return best
}
