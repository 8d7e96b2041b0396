package search

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/parse"
)

type Result struct {
	ChatKey    string
	Seq        int // -1 when the result is a whole chat
	MsgID      string
	Format     parse.Format
	FilePath   string
	Summary    string
	Sender     string
	Date       string
	Time       string
	LineNumber int
	Snippet    string
	Mtime      int64
	Rank       float64
}

type Options struct {
	Query  string
	Format parse.Format // "" = all
	Sender string       // "" = all
	Since  time.Time    // zero = no filter; compared to the export's mtime
	Limit  int
}

// needsLike reports whether the query holds scripts the unicode61 tokenizer
// cannot split into words.
func needsLike(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul, unicode.Thai) {
			return true
		}
	}
	return false
}

// ftsQuery quotes every term so punctuation in chat text cannot break the
// MATCH syntax. A trailing * keeps its prefix meaning.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		prefix := strings.HasSuffix(f, "*") && len(f) > 1
		f = strings.TrimSuffix(f, "*")
		f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		if prefix {
			f += "*"
		}
		fields[i] = f
	}
	return strings.Join(fields, " ")
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	qRunes := []rune(strings.ToLower(query))

	pos := -1
	if len(lower) == len(runes) {
		pos = runeIndex(lower, qRunes)
	}
	if pos < 0 {
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}

	start := max(pos-contextChars, 0)
	end := min(pos+len(qRunes)+contextChars, len(runes))
	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	return prefix + string(runes[start:pos]) +
		">>>" + string(runes[pos:pos+len(qRunes)]) + "<<<" +
		string(runes[pos+len(qRunes):end]) + suffix
}

func runeIndex(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// Search returns the best matching message per chat, best first.
func Search(db *index.DB, opts Options) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// fetch more rows so enough chats survive the per-chat dedup
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var (
		results []Result
		err     error
	)
	if needsLike(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.ChatKey] {
			continue
		}
		seen[r.ChatKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

func filters(opts Options) ([]string, []any) {
	var (
		conditions []string
		args       []any
	)
	if opts.Format != "" {
		conditions = append(conditions, "c.format = ?")
		args = append(args, string(opts.Format))
	}
	if opts.Sender != "" {
		conditions = append(conditions, "m.sender = ?")
		args = append(args, opts.Sender)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "c.mtime >= ?")
		args = append(args, opts.Since.Unix())
	}
	return conditions, args
}

const resultColumns = `
	m.chat_key, m.seq, m.msg_id, c.format, c.file_path, c.summary,
	m.sender, m.date, m.time, m.line_number, c.mtime`

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	conditions = append([]string{"messages_fts MATCH ?"}, conditions...)
	args = append([]any{ftsQuery(opts.Query)}, args...)

	query := fmt.Sprintf(`
		SELECT %s,
			snippet(messages_fts, 0, '>>>', '<<<', '...', 24) AS snip,
			bm25(messages_fts) AS rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		JOIN chats c ON m.chat_key = c.chat_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, resultColumns, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := scanResult(rows, &r, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		r.Snippet = strings.ReplaceAll(r.Snippet, "\n", " ")
		results = append(results, r)
	}
	return results, rows.Err()
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	conditions, args := filters(opts)
	conditions = append([]string{"m.content LIKE ?"}, conditions...)
	args = append([]any{"%" + opts.Query + "%"}, args...)

	query := fmt.Sprintf(`
		SELECT %s, m.content
		FROM messages m
		JOIN chats c ON m.chat_key = c.chat_key
		WHERE %s
		ORDER BY c.mtime DESC, m.seq
		LIMIT ?
	`, resultColumns, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r       Result
			content string
		)
		if err := scanResult(rows, &r, &content); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(content, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResult(rows *sql.Rows, r *Result, extra ...any) error {
	var format string
	dest := []any{
		&r.ChatKey, &r.Seq, &r.MsgID, &format, &r.FilePath, &r.Summary,
		&r.Sender, &r.Date, &r.Time, &r.LineNumber, &r.Mtime,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	r.Format = parse.Format(format)
	return nil
}

// ListAll returns indexed chats newest first. A non-empty Query keeps chats
// whose summary or path contains it; Sender keeps chats that include that
// participant.
func ListAll(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	var (
		conditions []string
		args       []any
	)
	if q := strings.TrimSpace(opts.Query); q != "" {
		conditions = append(conditions, "(summary LIKE ? OR file_path LIKE ?)")
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if opts.Format != "" {
		conditions = append(conditions, "format = ?")
		args = append(args, string(opts.Format))
	}
	if opts.Sender != "" {
		conditions = append(conditions, "participants LIKE ?")
		args = append(args, `%"`+opts.Sender+`"%`)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "mtime >= ?")
		args = append(args, opts.Since.Unix())
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT chat_key, format, file_path, summary, mtime
		FROM chats
		%s
		ORDER BY mtime DESC, chat_key
		LIMIT ?
	`, where)
	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r      = Result{Seq: -1}
			format string
		)
		if err := rows.Scan(&r.ChatKey, &format, &r.FilePath, &r.Summary, &r.Mtime); err != nil {
			return nil, err
		}
		r.Format = parse.Format(format)
		r.Snippet = r.Summary
		results = append(results, r)
	}
	return results, rows.Err()
}
