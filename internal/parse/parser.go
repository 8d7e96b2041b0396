package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// headerPattern recognises the first line of a message in a plain-text export.
// Dated patterns capture (date, time, sender, content); undated ones (sender, content).
type headerPattern struct {
	name  string
	re    *regexp.Regexp
	dated bool
}

// headerPatterns are ordered most specific first; the first match wins.
var headerPatterns = []headerPattern{
	{
		// 2025-06-12, 11:20 a.m. - Sam: hello
		name:  "android_iso",
		re:    regexp.MustCompile(`(?i)^(\d{4}-\d{2}-\d{2}),\s(\d{1,2}:\d{2}\s?[ap]\.?\s?m\.?)\s-\s([^:]+):\s(.+)$`),
		dated: true,
	},
	{
		// [12/06/2025, 11:20:00 AM] Robin: on my way
		name:  "ios_brackets",
		re:    regexp.MustCompile(`(?i)^\[(\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4})(?:,\s?|\s|T)(\d{1,2}:\d{2}(?::\d{2})?(?:\s?[ap]\.?\s?m\.?)?)\]\s?([^:]+):\s(.+)$`),
		dated: true,
	},
	{
		// 12/06/25, 9:05 pm - Kim: hi
		name:  "android_short",
		re:    regexp.MustCompile(`(?i)^(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}),\s(\d{1,2}:\d{2}\s?[ap]\.?\s?m\.?)\s-\s([^:]+):\s(.+)$`),
		dated: true,
	},
	{
		// Sender names longer than 31 characters are treated as prose, not headers.
		name: "generic",
		re:   regexp.MustCompile(`^([^\s:][^:]{0,30}):\s(.+)$`),
	},
}

var (
	fenceOpenRe  = regexp.MustCompile("(?i)^```(?:json)?")
	fenceCloseRe = regexp.MustCompile("```$")
)

var spaceReplacer = strings.NewReplacer("\u202f", " ", "\u00a0", " ")

// Parse turns a pasted chat export into messages and participants. It never
// fails: JSON that does not decode falls back to line parsing, and lines that
// match no header become continuations of the previous message.
func Parse(raw string) *ParseResult {
	if res := parseStructured(raw); res != nil {
		return res
	}
	return parseLines(raw)
}

// unfence trims the input and strips a surrounding markdown code fence.
func unfence(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	fenced := fenceOpenRe.MatchString(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s), fenced
}

// messageArray picks the message list out of a decoded document: the
// top-level array, or the "messages" array of an object.
func messageArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		if arr, ok := t["messages"].([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

func parseStructured(raw string) *ParseResult {
	body, _ := unfence(raw)
	if !strings.HasPrefix(body, "{") && !strings.HasPrefix(body, "[") {
		return nil
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil
	}
	elems, _ := messageArray(doc)

	res := newResult(FormatJSON)
	var people participants
	for i, el := range elems {
		role, content, ok := roleContent(el)
		if !ok {
			continue
		}
		sender := capitalize(role)
		res.Messages = append(res.Messages, Message{
			ID:      fmt.Sprintf("json-%d-%s", i, uuid.NewString()),
			Sender:  sender,
			Content: FixMojibake(content),
		})
		people.add(sender)
	}
	if len(res.Messages) == 0 {
		return nil
	}
	res.Participants = people.list()
	return res
}

func roleContent(el any) (string, string, bool) {
	m, ok := el.(map[string]any)
	if !ok {
		return "", "", false
	}
	role, _ := m["role"].(string)
	content, _ := m["content"].(string)
	if role == "" || content == "" {
		return "", "", false
	}
	return role, content, true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func parseLines(raw string) *ParseResult {
	f := lineFolder{res: newResult(FormatText)}
	for i, line := range strings.Split(raw, "\n") {
		f.feed(i+1, line)
	}
	return f.finish()
}

// lineFolder accumulates one pending message and flushes it when the next
// header arrives or the input ends.
type lineFolder struct {
	res     *ParseResult
	pending *Message
	people  participants
}

func (f *lineFolder) feed(lineNum int, line string) {
	clean := strings.TrimSpace(spaceReplacer.Replace(line))
	if clean == "" {
		return
	}

	if m, ok := matchHeader(clean); ok {
		f.flush()
		m.ID = uuid.NewString()
		m.Line = lineNum
		f.pending = &m
		f.people.add(m.Sender)
		return
	}

	if f.pending != nil {
		f.pending.Content += "\n" + clean
	}
}

func (f *lineFolder) flush() {
	if f.pending != nil {
		f.res.Messages = append(f.res.Messages, *f.pending)
		f.pending = nil
	}
}

func (f *lineFolder) finish() *ParseResult {
	f.flush()
	f.res.Participants = f.people.list()
	return f.res
}

func matchHeader(line string) (Message, bool) {
	for _, p := range headerPatterns {
		g := p.re.FindStringSubmatch(line)
		if g == nil {
			continue
		}
		var m Message
		if p.dated {
			m = Message{Date: g[1], Time: g[2], Sender: g[3], Content: g[4]}
		} else {
			m = Message{Sender: g[1], Content: g[2]}
		}
		m.Sender = strings.TrimSpace(m.Sender)
		m.Content = strings.TrimSpace(m.Content)
		m.Date = strings.TrimSpace(m.Date)
		m.Time = strings.TrimSpace(m.Time)
		if m.Date == "" {
			m.Date = UnknownDate
		}
		return m, true
	}
	return Message{}, false
}

func newResult(format Format) *ParseResult {
	return &ParseResult{
		Format:       format,
		Messages:     []Message{},
		Participants: []string{},
	}
}

// participants is an insertion-ordered set of sender names.
type participants struct {
	seen  map[string]struct{}
	order []string
}

func (p *participants) add(name string) {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, ok := p.seen[name]; ok {
		return
	}
	p.seen[name] = struct{}{}
	p.order = append(p.order, name)
}

func (p *participants) list() []string {
	if p.order == nil {
		return []string{}
	}
	return p.order
}
