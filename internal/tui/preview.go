package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/render"
	"github.com/Zuo-Peng/chatlens/internal/search"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key     string
	content string
	hitLine int
	err     error
}

func previewCacheKey(r search.Result) string {
	return r.ChatKey + "#" + r.MsgID
}

// loadPreviewCmd renders the whole chat, marking the hit, off the UI goroutine.
func loadPreviewCmd(db *index.DB, r search.Result, query string, width int, a sides.Assignment) tea.Cmd {
	return func() tea.Msg {
		content, hitLine, err := render.RenderConversation(db, r.ChatKey, render.Options{
			Sides:   a,
			HitID:   r.MsgID,
			Context: -1,
			Width:   width,
			Query:   query,
		})
		return previewRenderedMsg{
			key:     previewCacheKey(r),
			content: content,
			hitLine: hitLine,
			err:     err,
		}
	}
}

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
