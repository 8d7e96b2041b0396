package parse

import "time"

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// UnknownDate is stored when a header line carried no date.
const UnknownDate = "Unknown"

type Message struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Line    int    `json:"line,omitempty"` // 1-based header line in the source, 0 for JSON input
}

type ParseResult struct {
	Format       Format    `json:"format"`
	Messages     []Message `json:"messages"`
	Participants []string  `json:"participants"`
}

type ExportMeta struct {
	ChatKey  string
	FilePath string
	Format   Format
	Summary  string
	Mtime    time.Time
	Size     int64
}

type Export struct {
	Meta   ExportMeta
	Result *ParseResult
}
