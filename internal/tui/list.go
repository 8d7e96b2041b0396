package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/search"
)

// linesPerItem is the number of terminal lines each result occupies.
const linesPerItem = 2

func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No chats")
	}

	var lines []string
	for i := m.listOffset; i < len(m.results); i++ {
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatResultLine(m.results[i], width, i == m.cursor)...)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// chatName drops the format prefix from a chat key.
func chatName(chatKey string) string {
	if _, name, ok := strings.Cut(chatKey, ":"); ok {
		return name
	}
	return chatKey
}

// formatResultLine lays a result out as:
//
//	> txt  06-12  family/group-chat
//	    Sam: ...snippet...
func formatResultLine(r search.Result, width int, selected bool) []string {
	badge := styleFormatText.Render("txt ")
	if r.Format == parse.FormatJSON {
		badge = styleFormatJSON.Render("json")
	}

	date := "     "
	if r.Mtime > 0 {
		date = time.Unix(r.Mtime, 0).Format("01-02")
	}

	name := chatName(r.ChatKey)
	if maxW := max(width-2-4-1-5-1, 0); runewidth.StringWidth(name) > maxW {
		name = runewidth.Truncate(name, maxW, "…")
	}

	prefix := "  "
	if selected {
		prefix = styleListSelected.Render("> ")
	}
	line1 := fmt.Sprintf("%s%s %s %s", prefix, badge, date, name)

	snippet := strings.NewReplacer("\n", " ", "\t", " ", ">>>", "", "<<<", "").Replace(r.Snippet)
	sender := ""
	if r.Sender != "" {
		sender = r.Sender + ": "
	}
	if maxW := max(width-4, 0); runewidth.StringWidth(sender+snippet) > maxW {
		if runewidth.StringWidth(sender) >= maxW {
			sender = ""
		}
		snippet = runewidth.Truncate(snippet, maxW-runewidth.StringWidth(sender), "…")
	}
	line2 := "    "
	if sender != "" {
		line2 += styleSender.Render(sender)
	}
	line2 += lipgloss.NewStyle().Foreground(colorDim).Render(snippet)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visible := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visible {
		m.listOffset = m.cursor - visible + 1
	}
}
