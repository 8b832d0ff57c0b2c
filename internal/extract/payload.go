package extract

import "strings"

const fenceOpener = "```json"

// nbsp is the UTF-8 non-breaking space; generated text carries it often and
// strict parsers reject it inside what should be plain whitespace.
const nbsp = "\xc2\xa0"

// jsonPayload slices the most plausible JSON object span out of raw model
// output. The start is the first fenced opener (skipping the fence and any
// whitespace after it) or, failing that, the first opening brace. The end is
// the last closing brace in the text: models routinely append prose or extra
// braces after the payload, so matching runs from the end backward. The slice
// is cleaned of trailing fence characters and has non-breaking spaces
// normalized before parsing.
func jsonPayload(raw string) (string, bool) {
	start := strings.Index(raw, fenceOpener)
	if start < 0 {
		start = strings.Index(raw, "{")
	} else {
		start += len(fenceOpener)
		for start < len(raw) && (raw[start] == '\n' || raw[start] == '\r' || raw[start] == ' ') {
			start++
		}
	}

	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || end <= start {
		return "", false
	}

	payload := raw[start : end+1]
	payload = strings.TrimRight(payload, "`\n\r ")
	payload = strings.ReplaceAll(payload, nbsp, " ")
	if payload == "" {
		return "", false
	}
	return payload, true
}
