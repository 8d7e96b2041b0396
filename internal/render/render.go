package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

const (
	colorReset   = "\033[0m"
	colorLeft    = "\033[1;34m" // bold blue
	colorRight   = "\033[1;32m" // bold green
	colorOther   = "\033[1;35m" // bold magenta
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // keyword highlights
)

// rightIndent is used for right-side messages when no width is set.
const rightIndent = 20

type Options struct {
	Sides   sides.Assignment
	HitID   string // message to mark and centre the window on
	Context int    // messages before/after the hit; < 0 renders all, 0 means all in RenderChat and 10 in RenderConversation
	Width   int    // wrap width, 0 = no wrap
	Query   string // terms to highlight
	Plain   bool   // no ANSI colors
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red.
func highlightKeywords(text, query string) string {
	for _, term := range strings.Fields(query) {
		term = strings.Trim(term, `"*`)
		if term == "" || fts5Operators[term] {
			continue
		}
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			end := pos + len(term)
			if end > len(text) {
				break
			}
			replacement := colorBoldRed + text[pos:end] + colorReset
			text = text[:pos] + replacement + text[end:]
			i = pos + len(replacement)
		}
	}
	return text
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var (
		result []string
		cur    strings.Builder
		visW   int
	)
	for i := 0; i < len(line); {
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)
		if visW+rw > maxWidth && visW > 0 {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}
		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}

var ansiRe = regexp.MustCompile("\033\\[[0-9;]*m")

// StripANSI removes color escapes, for writing renders to files or tests.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

type chatWriter struct {
	b     strings.Builder
	lines int
	plain bool
}

func (w *chatWriter) color(c, s string) string {
	if w.plain || c == "" {
		return s
	}
	return c + s + colorReset
}

func (w *chatWriter) line(s string) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
	w.lines++
}

// RenderChat renders messages as a two-sided conversation. It returns the
// text and the 0-based line of the hit message header, or -1.
func RenderChat(msgs []parse.Message, opts Options) (string, int) {
	hit := -1
	for i, m := range msgs {
		if opts.HitID != "" && m.ID == opts.HitID {
			hit = i
			break
		}
	}

	start, end := 0, len(msgs)
	if hit >= 0 && opts.Context > 0 {
		start = max(hit-opts.Context, 0)
		end = min(hit+opts.Context+1, len(msgs))
	}

	w := &chatWriter{plain: opts.Plain}
	hitLine := renderWindow(w, msgs[start:end], hit-start, start, len(msgs)-end, opts)
	return w.b.String(), hitLine
}

func renderWindow(w *chatWriter, msgs []parse.Message, hitIdx, before, after int, opts Options) int {
	if before > 0 {
		w.line(w.color(colorDim, fmt.Sprintf("... (%d messages before) ...", before)))
	}

	hitLine := -1
	for i, m := range msgs {
		if i > 0 {
			w.line("")
		}
		if i == hitIdx {
			hitLine = w.lines
		}
		renderMessage(w, m, i == hitIdx, opts)
	}

	if after > 0 {
		w.line(w.color(colorDim, fmt.Sprintf("... (%d messages after) ...", after)))
	}
	return hitLine
}

func renderMessage(w *chatWriter, m parse.Message, isHit bool, opts Options) {
	side := opts.Sides.SideOf(m.Sender)
	name := opts.Sides.Name(m.Sender)

	var stamp []string
	for _, s := range []string{m.Date, m.Time} {
		if s != "" && s != parse.UnknownDate {
			stamp = append(stamp, s)
		}
	}
	when := strings.Join(stamp, " ")

	colW := opts.Width
	if opts.Width > 0 && side != sides.Other {
		colW = max(opts.Width*2/3, 1)
	}

	var body []string
	for _, l := range strings.Split(m.Content, "\n") {
		body = append(body, wrapLine(l, colW)...)
	}

	header := name
	if when != "" {
		header += "  " + when
	}

	indent := "  "
	headerIndent := ""
	if side == sides.Right {
		widest := runewidth.StringWidth(header)
		for _, l := range body {
			widest = max(widest, runewidth.StringWidth(l)+2)
		}
		pad := rightIndent
		if opts.Width > 0 {
			pad = max(opts.Width-widest, opts.Width-colW-2, 0)
		}
		headerIndent = strings.Repeat(" ", pad)
		indent = headerIndent + "  "
	}

	switch {
	case isHit:
		w.line(headerIndent + w.color(colorHit, ">> "+header+" <<"))
	default:
		c := colorOther
		switch side {
		case sides.Left:
			c = colorLeft
		case sides.Right:
			c = colorRight
		}
		line := w.color(c, name)
		if when != "" {
			line += "  " + w.color(colorDim, when)
		}
		w.line(headerIndent + line)
	}

	for _, l := range body {
		if !opts.Plain {
			l = highlightKeywords(l, opts.Query)
		}
		w.line(indent + l)
	}
}

// RenderConversation renders an indexed chat around opts.HitID. Sides that
// name people absent from the chat are dropped; unset sides go to the first
// two participants.
func RenderConversation(db *index.DB, chatKey string, opts Options) (string, int, error) {
	if opts.Context == 0 {
		opts.Context = 10
	}

	chat, err := db.GetChat(chatKey)
	if err != nil {
		return "", -1, fmt.Errorf("get chat: %w", err)
	}
	if chat == nil {
		return "", -1, fmt.Errorf("chat not found: %s", chatKey)
	}
	if opts.Sides.Validate(chat.Participants) != nil {
		opts.Sides.Left, opts.Sides.Right = "", ""
	}
	opts.Sides = opts.Sides.Resolve(chat.Participants)

	hitSeq := -1
	if opts.HitID != "" {
		if hitSeq, err = db.MessageSeq(chatKey, opts.HitID); err != nil {
			return "", -1, fmt.Errorf("find message: %w", err)
		}
	}
	if opts.Context < 0 {
		hitSeq = -1
	}

	rows, hitIdx, startPos, total, err := db.GetMessagesWindow(chatKey, hitSeq, opts.Context)
	if err != nil {
		return "", -1, fmt.Errorf("get messages: %w", err)
	}
	if total == 0 {
		return "(empty chat)", -1, nil
	}

	msgs := make([]parse.Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.Message()
	}
	if opts.Context < 0 && opts.HitID != "" {
		for i, m := range msgs {
			if m.ID == opts.HitID {
				hitIdx = i
			}
		}
	}

	w := &chatWriter{plain: opts.Plain}
	title := fmt.Sprintf("--- %s [%s] %s ---", chatKey, chat.Format, strings.Join(chat.Participants, ", "))
	for _, l := range wrapLine(title, opts.Width) {
		w.line(w.color(colorDim, l))
	}
	hitLine := renderWindow(w, msgs, hitIdx, startPos, total-startPos-len(msgs), opts)
	return w.b.String(), hitLine, nil
}
