package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DetectFormat classifies the document as it is now. JSON is reported only
// for an array, or an object holding a "messages" array.
func DetectFormat(raw string) Format {
	body, _ := unfence(raw)
	if !strings.HasPrefix(body, "{") && !strings.HasPrefix(body, "[") {
		return FormatText
	}
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return FormatText
	}
	if _, ok := messageArray(doc); ok {
		return FormatJSON
	}
	return FormatText
}

// AppendMessage adds a message to the end of doc, written in whatever format
// doc currently has: a new {role, content} element for JSON documents, an
// android_iso header line otherwise.
func AppendMessage(doc, sender, content string, at time.Time) string {
	if DetectFormat(doc) == FormatJSON {
		if out, err := appendJSON(doc, sender, content); err == nil {
			return out
		}
	}
	return appendText(doc, sender, content, at)
}

func appendText(doc, sender, content string, at time.Time) string {
	line := FormatHeader(at, sender, content)
	doc = strings.TrimRight(doc, "\r\n\t ")
	if doc == "" {
		return line
	}
	return doc + "\n" + line
}

// FormatHeader renders a message as an android_iso line, e.g.
// "2025-06-12, 3:04 p.m. - Sam: hello". Colons are dropped from the sender
// and continuation lines that would read back as headers are folded onto the
// line before, so Parse sees exactly one message.
func FormatHeader(at time.Time, sender, content string) string {
	meridiem := "a.m."
	if at.Hour() >= 12 {
		meridiem = "p.m."
	}
	hour := at.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%s, %d:%02d %s - %s: %s",
		at.Format("2006-01-02"), hour, at.Minute(), meridiem, headerSender(sender), textBody(content))
}

func headerSender(sender string) string {
	name := strings.Join(strings.Fields(strings.ReplaceAll(sender, ":", " ")), " ")
	if name == "" {
		return "Unknown"
	}
	return name
}

// textBody normalises content the way parseLines reads it back: trimmed,
// blank lines dropped, and no continuation line that matchHeader accepts.
func textBody(content string) string {
	var lines []string
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(spaceReplacer.Replace(l))
		if l == "" {
			continue
		}
		lines = append(lines, l)
		for n := len(lines); n > 1; n = len(lines) {
			if _, ok := matchHeader(lines[n-1]); !ok {
				break
			}
			lines[n-2] += " " + lines[n-1]
			lines = lines[:n-1]
		}
	}
	return strings.Join(lines, "\n")
}

type jsonMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// appendJSON splices the new element in after the last one, leaving the rest
// of the document byte for byte as it was.
func appendJSON(doc, sender, content string) (string, error) {
	body, fenced := unfence(doc)
	b := []byte(body)
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	switch tok {
	case json.Delim('['):
	case json.Delim('{'):
		if err := seekMessages(dec); err != nil {
			return "", err
		}
	default:
		return "", errors.New("not a message array")
	}

	out, err := spliceElement(b, dec, sender, content)
	if err != nil {
		return "", err
	}
	if fenced {
		return "```json\n" + string(out) + "\n```", nil
	}
	return string(out), nil
}

// seekMessages advances dec past the opening bracket of the "messages" array.
func seekMessages(dec *json.Decoder) error {
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return err
		}
		if key == "messages" {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			if tok != json.Delim('[') {
				return errors.New("messages is not an array")
			}
			return nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	return errors.New("no messages array")
}

// spliceElement reads the array dec is positioned in and inserts a new
// element after its last one, reusing the separator and indentation found
// before that element.
func spliceElement(b []byte, dec *json.Decoder, sender, content string) ([]byte, error) {
	var (
		elems []json.RawMessage
		end   = int(dec.InputOffset())
		sep   string
	)
	for dec.More() {
		var el json.RawMessage
		if err := dec.Decode(&el); err != nil {
			return nil, err
		}
		next := int(dec.InputOffset())
		lead := b[end : next-len(el)]
		if i := bytes.LastIndexByte(lead, ','); i >= 0 {
			lead = lead[i+1:]
		}
		sep = string(lead)
		elems = append(elems, el)
		end = next
	}

	indent := ""
	if n := len(elems); n > 0 && bytes.ContainsRune(elems[n-1], '\n') {
		indent = sep[strings.LastIndexByte(sep, '\n')+1:]
	}
	el, err := encodeMessage(jsonMessage{Role: roleFor(elems, sender), Content: content}, indent, indent != "")
	if err != nil {
		return nil, err
	}

	insert := el
	if len(elems) > 0 {
		insert = append([]byte(","+sep), el...)
	}
	out := make([]byte, 0, len(b)+len(insert))
	out = append(out, b[:end]...)
	out = append(out, insert...)
	return append(out, b[end:]...), nil
}

func encodeMessage(m jsonMessage, prefix string, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent(prefix, "  ")
	}
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// roleFor reuses the role spelling of an existing element whose derived
// sender matches, so "User" maps back to "user" rather than a new role.
func roleFor(elems []json.RawMessage, sender string) string {
	for _, raw := range elems {
		var m jsonMessage
		if json.Unmarshal(raw, &m) != nil || m.Role == "" {
			continue
		}
		if capitalize(m.Role) == sender {
			return m.Role
		}
	}
	r, size := utf8.DecodeRuneInString(sender)
	if r == utf8.RuneError {
		return sender
	}
	return string(unicode.ToLower(r)) + sender[size:]
}
