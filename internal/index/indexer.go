package index

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/scan"
)

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Empty   int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d empty=%d pruned=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Empty, s.Pruned, s.Errors)
}

// Indexer keeps the database in step with an exports folder.
type Indexer struct {
	db     *DB
	logger *slog.Logger
	warn   io.Writer
}

func NewIndexer(db *DB, logger *slog.Logger, warn io.Writer) *Indexer {
	if warn == nil {
		warn = io.Discard
	}
	return &Indexer{db: db, logger: logger, warn: warn}
}

// IndexAll indexes root with a discarding logger.
func IndexAll(db *DB, root string) (Stats, error) {
	return NewIndexer(db, slog.New(slog.NewTextHandler(io.Discard, nil)), nil).Run(root)
}

// Run parses exports whose mtime or size changed since the last run and
// prunes chats whose files are gone. Files without any message are not indexed.
func (ix *Indexer) Run(root string) (Stats, error) {
	var stats Stats

	files, err := scan.ScanRoot(root)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	seenKeys := make(map[string]struct{})

	for _, fi := range files {
		state, err := ix.db.FileState(fi.Path)
		if err != nil {
			stats.Errors++
			continue
		}
		if state != nil && state.Mtime == fi.Mtime && state.Size == fi.Size {
			seenKeys[state.ChatKey] = struct{}{}
			stats.Skipped++
			continue
		}

		exp, err := parse.ParseFile(fi.Path, root)
		if err != nil {
			stats.Errors++
			fmt.Fprintf(ix.warn, "  WARN: parse %s: %v\n", fi.Path, err)
			ix.logger.Warn("parse export", "path", fi.Path, "error", err)
			continue
		}
		if len(exp.Result.Messages) == 0 {
			stats.Empty++
			continue
		}
		seenKeys[exp.Meta.ChatKey] = struct{}{}
		if state != nil && state.ChatKey != exp.Meta.ChatKey {
			// format changed, so the key did too
			if err := ix.db.DeleteChat(state.ChatKey); err != nil {
				stats.Errors++
				continue
			}
		}

		if err := ix.db.indexChat(exp); err != nil {
			stats.Errors++
			fmt.Fprintf(ix.warn, "  WARN: index %s: %v\n", fi.Path, err)
			ix.logger.Warn("index export", "path", fi.Path, "error", err)
			continue
		}
		ix.logger.Debug("indexed chat", "chat", exp.Meta.ChatKey, "messages", len(exp.Result.Messages))
		stats.Updated++
	}

	pruned, err := ix.db.pruneChats(seenKeys)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	ix.logger.Info("index run", "root", root, "stats", stats.String())
	return stats, nil
}

func (d *DB) indexChat(exp *parse.Export) error {
	res := exp.Result
	people, err := json.Marshal(res.Participants)
	if err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteChatTx(tx, exp.Meta.ChatKey); err != nil {
		return err
	}

	first, last := dateSpan(res.Messages)
	_, err = tx.Exec(
		`INSERT INTO chats (chat_key, format, file_path, participants, summary, first_date, last_date, message_count, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.Meta.ChatKey,
		string(exp.Meta.Format),
		exp.Meta.FilePath,
		string(people),
		exp.Meta.Summary,
		first,
		last,
		len(res.Messages),
		exp.Meta.Mtime.Unix(),
		exp.Meta.Size,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (chat_key, seq, msg_id, date, time, sender, content, line_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range res.Messages {
		if _, err := stmt.Exec(exp.Meta.ChatKey, i, m.ID, m.Date, m.Time, m.Sender, m.Content, m.Line); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// dateSpan returns the first and last known message dates as captured.
func dateSpan(msgs []parse.Message) (first, last string) {
	for _, m := range msgs {
		if m.Date == "" || m.Date == parse.UnknownDate {
			continue
		}
		if first == "" {
			first = m.Date
		}
		last = m.Date
	}
	return first, last
}

func (d *DB) pruneChats(seenKeys map[string]struct{}) (int, error) {
	allKeys, err := d.AllChatKeys()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for key := range allKeys {
		if _, ok := seenKeys[key]; !ok {
			if err := d.DeleteChat(key); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}
