package parse

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxExportSize = 32 * 1024 * 1024 // 32MB
const maxSummarySize = 200

// ParseFile reads a chat export from disk. root is the exports folder the
// chat key is made relative to; an empty root keys by the base name.
func ParseFile(filePath, root string) (*Export, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxExportSize {
		return nil, fmt.Errorf("%s: export larger than %d bytes", filePath, maxExportSize)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	res := Parse(string(data))

	rel := filepath.Base(filePath)
	if root != "" {
		if r, err := filepath.Rel(root, filePath); err == nil {
			rel = r
		}
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	exp := &Export{
		Meta: ExportMeta{
			ChatKey:  string(res.Format) + ":" + rel,
			FilePath: filePath,
			Format:   res.Format,
			Mtime:    info.ModTime(),
			Size:     info.Size(),
		},
		Result: res,
	}
	if len(res.Messages) > 0 {
		s := res.Messages[0].Content
		if len(s) > maxSummarySize {
			cut := maxSummarySize
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			s = s[:cut]
		}
		exp.Meta.Summary = strings.ReplaceAll(s, "\n", " ")
	}
	return exp, nil
}
