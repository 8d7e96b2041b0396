package open

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/chatlens/internal/index"
)

// OpenChat opens the export behind chatKey in $EDITOR (less by default),
// positioned on the header line of msgID when it has one.
func OpenChat(db *index.DB, chatKey, msgID string) error {
	chat, err := db.GetChat(chatKey)
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}
	if chat == nil {
		return fmt.Errorf("chat not found: %s", chatKey)
	}
	if _, err := os.Stat(chat.FilePath); err != nil {
		return fmt.Errorf("file not found: %s", chat.FilePath)
	}

	line := 1
	if msgID != "" {
		msgs, err := db.GetMessages(chatKey)
		if err != nil {
			return fmt.Errorf("get messages: %w", err)
		}
		for _, m := range msgs {
			if m.MsgID == msgID && m.LineNumber > 0 {
				line = m.LineNumber
				break
			}
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}
	args := editorArgs(editor, chat.FilePath, line)

	cmd := exec.Command(editor, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// editorArgs builds the jump-to-line arguments for editors that take one.
func editorArgs(editor, filePath string, line int) []string {
	switch base := filepath.Base(editor); {
	case strings.Contains(base, "vim"), base == "vi", base == "nano", base == "less", base == "emacs", base == "micro":
		return []string{"+" + strconv.Itoa(line), filePath}
	case strings.HasPrefix(base, "code"), base == "cursor":
		return []string{"--goto", filePath + ":" + strconv.Itoa(line)}
	case base == "subl", base == "hx", base == "zed":
		return []string{filePath + ":" + strconv.Itoa(line)}
	default:
		return []string{filePath}
	}
}
