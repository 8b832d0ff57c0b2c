package extract

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestParseCVMetadataFencedPayload(t *testing.T) {
	t.Parallel()

	raw := "Here is the extracted data:\n```json\n{\n  \"name\": \"Jane Roe\",\n  \"position\": \"Data Engineer\",\n  \"skills\": [\"Go\", \"SQL\"],\n  \"experience\": \"6 years\",\n  \"education\": \"MSc\"\n}\n```\nLet me know if you need more."
	got := ParseCVMetadata(raw)
	want := CVMetadata{
		Name:       "Jane Roe",
		Position:   "Data Engineer",
		Skills:     []string{"Go", "SQL"},
		Experience: "6 years",
		Education:  "MSc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseCVMetadataBareBraces(t *testing.T) {
	t.Parallel()

	raw := `Sure! {"name":"Jane Roe","position":"Dev","skills":[],"experience":"2 years","education":"BSc"} hope that helps`
	got := ParseCVMetadata(raw)
	if got.Name != "Jane Roe" || got.Position != "Dev" {
		t.Fatalf("bare-brace payload not recovered: %+v", got)
	}
}

func TestParseCVMetadataNoBracesYieldsFallback(t *testing.T) {
	t.Parallel()

	got := ParseCVMetadata("the model rambled and produced no JSON at all")
	want := CVMetadata{
		Name:       "Unknown",
		Position:   "Unknown",
		Skills:     []string{},
		Experience: "Unknown",
		Education:  "Unknown",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want fixed fallback %+v", got, want)
	}
}

func TestParseCVMetadataMalformedYieldsFallback(t *testing.T) {
	t.Parallel()

	got := ParseCVMetadata(`{"name": "Jane", "position": `)
	if !reflect.DeepEqual(got, FallbackCVMetadata()) {
		t.Fatalf("malformed payload must yield full fallback, got %+v", got)
	}
}

func TestParseCVMetadataNormalizesNonBreakingSpace(t *testing.T) {
	t.Parallel()

	raw := "{\"name\":\"Jane\xc2\xa0Roe\",\"position\":\"Dev\",\"skills\":[],\"experience\":\"1 year\",\"education\":\"BSc\"}"
	got := ParseCVMetadata(raw)
	if got.Name != "Jane Roe" {
		t.Fatalf("non-breaking space not normalized: %q", got.Name)
	}
}

func TestParseDraftReply(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"subject\": \"Re: Budget\", \"draft_reply\": \"Thanks, approved.\"}\n```"
	got := ParseDraftReply(raw, "Budget")
	if got.Subject != "Re: Budget" || got.DraftReply != "Thanks, approved." {
		t.Fatalf("got %+v", got)
	}
}

func TestParseDraftReplyFallbackUsesRequestSubject(t *testing.T) {
	t.Parallel()

	got := ParseDraftReply("no json here", "Quarterly numbers")
	if got.Subject != "Re: Quarterly numbers" {
		t.Fatalf("fallback subject = %q", got.Subject)
	}
	if got.DraftReply != "Unable to generate reply. Please try again." {
		t.Fatalf("fallback body = %q", got.DraftReply)
	}

	got = ParseDraftReply("still no json", "")
	if got.Subject != "Re: [Subject]" {
		t.Fatalf("empty-subject fallback = %q", got.Subject)
	}
}

func TestParseClassificationClampsConfidence(t *testing.T) {
	t.Parallel()

	raw := "blah blah ```json\n{\"category\": \"Spam\", \"confidence\": 1.7}\n``` trailing"
	got := ParseClassification(raw)
	if got.Category != CategorySpam {
		t.Fatalf("category = %q, want Spam", got.Category)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want clamped 1.0", got.Confidence)
	}

	got = ParseClassification(`{"category": "Spam", "confidence": -0.4}`)
	if got.Confidence != 0 {
		t.Fatalf("confidence = %v, want clamped 0", got.Confidence)
	}
}

func TestParseClassificationClosedSet(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{CategoryUrgent, CategoryUrgent},
		{CategoryFollowUp, CategoryFollowUp},
		{CategoryFYI, CategoryFYI},
		{CategorySpam, CategorySpam},
		{"Very Important", DefaultCategory},
		{"spam", DefaultCategory}, // case matters: exact literals only
		{"", DefaultCategory},
	}

	for _, tc := range cases {
		payload, _ := json.Marshal(map[string]any{"category": tc.in, "confidence": 0.8})
		got := ParseClassification(string(payload))
		if got.Category != tc.want {
			t.Errorf("category %q -> %q, want %q", tc.in, got.Category, tc.want)
		}
		if got.Confidence != 0.8 {
			t.Errorf("category %q: confidence %v, want 0.8 preserved", tc.in, got.Confidence)
		}
	}
}

func TestParseClassificationMissingFields(t *testing.T) {
	t.Parallel()

	got := ParseClassification(`{"note": "no category here"}`)
	if got.Category != DefaultCategory || got.Confidence != 0.5 {
		t.Fatalf("missing fields must take defaults, got %+v", got)
	}
}

// TestClassificationIdempotentOnFallback re-runs the extractor on the JSON
// rendering of its own fallback and expects the identical record back.
func TestClassificationIdempotentOnFallback(t *testing.T) {
	t.Parallel()

	fb := FallbackClassification()
	encoded, err := json.Marshal(fb)
	if err != nil {
		t.Fatal(err)
	}
	again := ParseClassification(string(encoded))
	if again != fb {
		t.Fatalf("fallback drifted: %+v -> %+v", fb, again)
	}

	// And once more, for good measure: the fixpoint must hold.
	encoded2, _ := json.Marshal(again)
	if third := ParseClassification(string(encoded2)); third != again {
		t.Fatalf("second round drifted: %+v -> %+v", again, third)
	}
}

func TestJSONPayloadSpanSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "fence start last brace end",
			raw:  "```json\n{\"a\":1} extra {\"b\":2}\ntail",
			want: `{"a":1} extra {"b":2}`,
			ok:   true,
		},
		{
			name: "strips trailing fence",
			raw:  "{\"a\":1}\n```",
			want: `{"a":1}`,
			ok:   true,
		},
		{
			name: "no braces",
			raw:  "nothing here",
			ok:   false,
		},
		{
			name: "end before start",
			raw:  "} oops ```json\n no close",
			ok:   false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := jsonPayload(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("payload = %q, want %q", got, tc.want)
			}
		})
	}
}
