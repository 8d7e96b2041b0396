package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/chatlens/internal/parse"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS chats (
    chat_key      TEXT PRIMARY KEY,
    format        TEXT NOT NULL,
    file_path     TEXT NOT NULL,
    participants  TEXT NOT NULL DEFAULT '[]',
    summary       TEXT NOT NULL DEFAULT '',
    first_date    TEXT NOT NULL DEFAULT '',
    last_date     TEXT NOT NULL DEFAULT '',
    message_count INTEGER NOT NULL DEFAULT 0,
    mtime         INTEGER NOT NULL DEFAULT 0,
    size          INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS chats_file_path ON chats(file_path);

CREATE TABLE IF NOT EXISTS messages (
    chat_key    TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    msg_id      TEXT NOT NULL,
    date        TEXT NOT NULL DEFAULT '',
    time        TEXT NOT NULL DEFAULT '',
    sender      TEXT NOT NULL,
    content     TEXT NOT NULL,
    line_number INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (chat_key, seq)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    content=messages,
    content_rowid=rowid,
    tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
    INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// :memory: databases exist per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrateSchemaVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// schemaVersion should be bumped whenever header parsing changes so that
// every export is parsed again on the next index run.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() error {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err == nil && ver == schemaVersion {
		return nil
	}
	if _, err := d.db.Exec("UPDATE chats SET mtime = 0, size = 0"); err != nil {
		return err
	}
	_, err = d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

type FileState struct {
	ChatKey string
	Mtime   int64
	Size    int64
}

// FileState returns what the index last saw for filePath, or nil.
func (d *DB) FileState(filePath string) (*FileState, error) {
	var st FileState
	err := d.db.QueryRow(
		"SELECT chat_key, mtime, size FROM chats WHERE file_path = ?",
		filePath,
	).Scan(&st.ChatKey, &st.Mtime, &st.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (d *DB) AllChatKeys() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT chat_key FROM chats")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (d *DB) DeleteChat(chatKey string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteChatTx(tx, chatKey); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteChatTx(tx *sql.Tx, chatKey string) error {
	if _, err := tx.Exec("DELETE FROM messages WHERE chat_key = ?", chatKey); err != nil {
		return err
	}
	_, err := tx.Exec("DELETE FROM chats WHERE chat_key = ?", chatKey)
	return err
}

func (d *DB) ChatCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&n)
	return n, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

type ChatRow struct {
	ChatKey      string
	Format       parse.Format
	FilePath     string
	Participants []string
	Summary      string
	FirstDate    string
	LastDate     string
	MessageCount int
	Mtime        int64
}

const chatColumns = "chat_key, format, file_path, participants, summary, first_date, last_date, message_count, mtime"

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(s scanner) (*ChatRow, error) {
	var (
		c      ChatRow
		format string
		people string
	)
	if err := s.Scan(&c.ChatKey, &format, &c.FilePath, &people, &c.Summary, &c.FirstDate, &c.LastDate, &c.MessageCount, &c.Mtime); err != nil {
		return nil, err
	}
	c.Format = parse.Format(format)
	if err := json.Unmarshal([]byte(people), &c.Participants); err != nil {
		return nil, fmt.Errorf("participants of %s: %w", c.ChatKey, err)
	}
	return &c, nil
}

func (d *DB) GetChat(chatKey string) (*ChatRow, error) {
	c, err := scanChat(d.db.QueryRow("SELECT "+chatColumns+" FROM chats WHERE chat_key = ?", chatKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListChats returns chats most recently modified first.
func (d *DB) ListChats() ([]ChatRow, error) {
	rows, err := d.db.Query("SELECT " + chatColumns + " FROM chats ORDER BY mtime DESC, chat_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []ChatRow
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

type MessageRow struct {
	ChatKey    string
	Seq        int
	MsgID      string
	Date       string
	Time       string
	Sender     string
	Content    string
	LineNumber int
}

func (m MessageRow) Message() parse.Message {
	return parse.Message{
		ID:      m.MsgID,
		Date:    m.Date,
		Time:    m.Time,
		Sender:  m.Sender,
		Content: m.Content,
		Line:    m.LineNumber,
	}
}

const messageColumns = "chat_key, seq, msg_id, date, time, sender, content, line_number"

func scanMessages(rows *sql.Rows) ([]MessageRow, error) {
	defer rows.Close()
	var msgs []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ChatKey, &m.Seq, &m.MsgID, &m.Date, &m.Time, &m.Sender, &m.Content, &m.LineNumber); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (d *DB) GetMessages(chatKey string) ([]MessageRow, error) {
	rows, err := d.db.Query("SELECT "+messageColumns+" FROM messages WHERE chat_key = ? ORDER BY seq", chatKey)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// GetMessagesWindow loads up to context messages either side of hitSeq.
// A negative hitSeq loads the whole chat. startPos is the number of
// messages before the window and hitIdx the hit's index inside it.
func (d *DB) GetMessagesWindow(chatKey string, hitSeq, context int) (msgs []MessageRow, hitIdx, startPos, total int, err error) {
	err = d.db.QueryRow("SELECT COUNT(*) FROM messages WHERE chat_key = ?", chatKey).Scan(&total)
	if err != nil {
		return nil, -1, 0, 0, err
	}

	limit := total
	if hitSeq >= 0 && hitSeq < total {
		startPos = max(hitSeq-context, 0)
		limit = min(hitSeq+context+1, total) - startPos
	}

	rows, err := d.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE chat_key = ? ORDER BY seq LIMIT ? OFFSET ?",
		chatKey, limit, startPos,
	)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	msgs, err = scanMessages(rows)
	if err != nil {
		return nil, -1, 0, 0, err
	}

	hitIdx = -1
	for i, m := range msgs {
		if m.Seq == hitSeq {
			hitIdx = i
			break
		}
	}
	return msgs, hitIdx, startPos, total, nil
}

// MessageSeq returns the position of msgID within the chat, or -1.
func (d *DB) MessageSeq(chatKey, msgID string) (int, error) {
	var seq int
	err := d.db.QueryRow(
		"SELECT seq FROM messages WHERE chat_key = ? AND msg_id = ?",
		chatKey, msgID,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return seq, nil
}

func (d *DB) GetMessage(chatKey, msgID string) (*MessageRow, error) {
	rows, err := d.db.Query("SELECT "+messageColumns+" FROM messages WHERE chat_key = ? AND msg_id = ?", chatKey, msgID)
	if err != nil {
		return nil, err
	}
	msgs, err := scanMessages(rows)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}
