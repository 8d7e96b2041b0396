package parse

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var predictedAt = time.Date(2025, 6, 12, 15, 4, 0, 0, time.UTC)

func TestFixMojibake(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"double encoded accent", "cafÃ©", "café"},
		{"double encoded emoji", "ð\u009f\u0098\u0080 hi", "\U0001F600 hi"},
		{"ascii unchanged", "plain text", "plain text"},
		{"clean latin1 unchanged", "café", "café"},
		{"clean emoji unchanged", "\U0001F600 hi", "\U0001F600 hi"},
		{"mixed scripts unchanged", "привет Ã©", "привет Ã©"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FixMojibake(tc.in))
		})
	}
}

func TestFixMojibake_IdempotentOnCleanText(t *testing.T) {
	for _, s := range []string{"hello", "naïve résumé", "日本語", "¿qué tal?"} {
		assert.Equal(t, s, FixMojibake(s))
		assert.Equal(t, s, FixMojibake(FixMojibake(s)))
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat(`[{"role":"user","content":"hi"}]`))
	assert.Equal(t, FormatJSON, DetectFormat("```json\n{\"messages\":[]}\n```"))
	assert.Equal(t, FormatJSON, DetectFormat(`[]`))
	assert.Equal(t, FormatText, DetectFormat(`{"foo":1}`))
	assert.Equal(t, FormatText, DetectFormat(`{broken`))
	assert.Equal(t, FormatText, DetectFormat("Alex: hi"))
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "2025-06-12, 3:04 p.m. - Sam: hello", FormatHeader(predictedAt, "Sam", "hello"))

	midnight := time.Date(2025, 1, 2, 0, 7, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-02, 12:07 a.m. - Sam: x", FormatHeader(midnight, "Sam", " x "))
}

func TestAppendMessage_TextRoundTrip(t *testing.T) {
	doc := "[12/06/2025, 11:20:00 AM] Robin: on my way\nSam: ok\n"

	out := AppendMessage(doc, "Robin", "almost there", predictedAt)

	assert.True(t, strings.HasSuffix(out, "\n2025-06-12, 3:04 p.m. - Robin: almost there"))
	res := Parse(out)
	require.Len(t, res.Messages, 3)
	last := res.Messages[2]
	assert.Equal(t, "Robin", last.Sender)
	assert.Equal(t, "almost there", last.Content)
	assert.Equal(t, "2025-06-12", last.Date)
	assert.Equal(t, "3:04 p.m.", last.Time)
}

func TestAppendMessage_EmptyDocument(t *testing.T) {
	out := AppendMessage("", "Sam", "first", predictedAt)
	assert.Equal(t, "2025-06-12, 3:04 p.m. - Sam: first", out)
}

func TestAppendMessage_JSONArray(t *testing.T) {
	doc := `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello","extra":true}]`

	out := AppendMessage(doc, "User", "how are you?", predictedAt)

	var elems []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &elems))
	require.Len(t, elems, 3)
	assert.Equal(t, "user", elems[2]["role"])
	assert.Equal(t, "how are you?", elems[2]["content"])
	assert.Equal(t, true, elems[1]["extra"])

	res := Parse(out)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "User", res.Messages[2].Sender)
}

func TestAppendMessage_JSONObjectFenced(t *testing.T) {
	doc := "```json\n{\"title\":\"demo\",\"messages\":[{\"role\":\"user\",\"content\":\"hi\"}]}\n```"

	out := AppendMessage(doc, "Model", "hey", predictedAt)

	require.True(t, strings.HasPrefix(out, "```json\n"))
	require.True(t, strings.HasSuffix(out, "\n```"))
	res := Parse(out)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "Model", res.Messages[1].Sender)
	assert.Equal(t, []string{"User", "Model"}, res.Participants)
	assert.Equal(t, "```json\n{\"title\":\"demo\",\"messages\":[{\"role\":\"user\",\"content\":\"hi\"},{\"role\":\"model\",\"content\":\"hey\"}]}\n```", out)
}

func TestAppendMessage_UsesCurrentDocumentFormat(t *testing.T) {
	// A document that was JSON when parsed but has since been edited into
	// prose is appended to as text.
	doc := `[{"role":"user","content":"hi"}] edited`

	out := AppendMessage(doc, "User", "next", predictedAt)
	assert.Equal(t, doc+"\n2025-06-12, 3:04 p.m. - User: next", out)
}

func TestAppendMessage_UnknownJSONShapeAppendsText(t *testing.T) {
	out := AppendMessage(`{"foo":1}`, "Sam", "hi", predictedAt)
	assert.Equal(t, "{\"foo\":1}\n2025-06-12, 3:04 p.m. - Sam: hi", out)
}

func TestAppendMessage_MultilineContentStaysOneMessage(t *testing.T) {
	out := AppendMessage("Alex: hi\nSam: hey", "Alex", "sure thing\nNote: bring snacks", predictedAt)

	res := Parse(out)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, []string{"Alex", "Sam"}, res.Participants)
	assert.Equal(t, "Alex", res.Messages[2].Sender)
	assert.Equal(t, "sure thing Note: bring snacks", res.Messages[2].Content)
}

func TestAppendMessage_KeepsSafeContinuationLines(t *testing.T) {
	content := "first line\n\n  second line is long enough to be prose  \nstill fine Sam: hey\n[1/2/2025, 9:00] Kim: x"

	out := AppendMessage("Alex: hi", "Sam", content, predictedAt)

	res := Parse(out)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, []string{"Alex", "Sam"}, res.Participants)
	assert.Equal(t, "first line\nsecond line is long enough to be prose still fine Sam: hey [1/2/2025, 9:00] Kim: x", res.Messages[1].Content)
}

func TestFormatHeader_SanitizesSender(t *testing.T) {
	assert.Equal(t, "2025-06-12, 3:04 p.m. - Dr Who: hi", FormatHeader(predictedAt, "Dr: Who", "hi"))
	assert.Equal(t, "2025-06-12, 3:04 p.m. - Unknown: hi", FormatHeader(predictedAt, " : ", "hi"))

	res := Parse(AppendMessage("", "Dr: Who", "hi", predictedAt))
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Dr Who", res.Messages[0].Sender)
}

func TestAppendMessage_JSONObjectKeepsLayout(t *testing.T) {
	doc := `{"z":1,"messages":[{"role":"user","content":"<a&b>"}],"a":2}`

	out := AppendMessage(doc, "Model", "ok & done", predictedAt)

	assert.Equal(t, `{"z":1,"messages":[{"role":"user","content":"<a&b>"},{"role":"model","content":"ok & done"}],"a":2}`, out)
}

func TestAppendMessage_JSONIndentedArray(t *testing.T) {
	doc := "[\n  {\n    \"role\": \"user\",\n    \"content\": \"hi\"\n  }\n]"

	out := AppendMessage(doc, "User", "more", predictedAt)

	want := "[\n  {\n    \"role\": \"user\",\n    \"content\": \"hi\"\n  },\n  {\n    \"role\": \"user\",\n    \"content\": \"more\"\n  }\n]"
	assert.Equal(t, want, out)
}

func TestAppendMessage_JSONEmptyArray(t *testing.T) {
	out := AppendMessage("[]", "Sam", "hi", predictedAt)
	assert.Equal(t, `[{"role":"sam","content":"hi"}]`, out)
}
