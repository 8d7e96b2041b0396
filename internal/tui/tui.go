package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/open"
	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/search"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

const debounceDelay = 200 * time.Millisecond

type tuiMode int

const (
	modeSearch tuiMode = iota
	modeList
)

type action int

const (
	actionNone action = iota
	actionCopy
	actionOpen
)

type searchResultMsg struct {
	query   string
	format  parse.Format
	results []search.Result
	err     error
}

type debounceTickMsg struct {
	query string
}

type model struct {
	db          *index.DB
	searchOpts  search.Options
	sides       sides.Assignment
	mode        tuiMode
	query       string
	results     []search.Result
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string
	width       int
	height      int
	ready       bool
	quitting    bool
	action      action
	selected    *search.Result
}

func newModel(db *index.DB, mode tuiMode, query string, opts search.Options, a sides.Assignment) model {
	ti := textinput.New()
	ti.Placeholder = "Search messages..."
	if mode == modeList {
		ti.Placeholder = "Filter chats..."
	}
	ti.Focus()
	ti.SetValue(query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	return model{
		db:          db,
		searchOpts:  opts,
		sides:       a,
		mode:        mode,
		query:       query,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Run starts the search browser and blocks until it exits.
func Run(db *index.DB, query string, opts search.Options, a sides.Assignment, out io.Writer) error {
	return run(newModel(db, modeSearch, query, opts, a), out)
}

// RunList starts the browser on all chats, newest first.
func RunList(db *index.DB, opts search.Options, a sides.Assignment, out io.Writer) error {
	return run(newModel(db, modeList, "", opts, a), out)
}

func run(m model, out io.Writer) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.selected == nil {
		return nil
	}
	switch fm.action {
	case actionCopy:
		return copySelection(fm.db, *fm.selected, out)
	case actionOpen:
		return open.OpenChat(fm.db, fm.selected.ChatKey, fm.selected.MsgID)
	}
	return nil
}

// selectionText is the message text for a hit, or the export path for a
// whole-chat result.
func selectionText(db *index.DB, r search.Result) (string, error) {
	if r.MsgID == "" {
		return r.FilePath, nil
	}
	msg, err := db.GetMessage(r.ChatKey, r.MsgID)
	if err != nil {
		return "", fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("message not found: %s", r.MsgID)
	}
	return msg.Content, nil
}

func copySelection(db *index.DB, r search.Result, out io.Writer) error {
	text, err := selectionText(db, r)
	if err != nil {
		return err
	}
	if err := clipboard.WriteAll(text); err != nil {
		fmt.Fprintln(out, text)
		return nil
	}
	fmt.Fprintf(out, "Copied to clipboard: %s\n", firstLine(text))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.mode == modeList || m.query != "" {
		cmds = append(cmds, m.doQuery(m.query))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		return m, m.loadCurrentPreview()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Copy), key.Matches(msg, keys.Open):
			if m.cursor < len(m.results) {
				r := m.results[m.cursor]
				m.selected = &r
				m.action = actionCopy
				if key.Matches(msg, keys.Open) {
					m.action = actionOpen
				}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, keys.Format):
			m.searchOpts.Format = nextFormat(m.searchOpts.Format)
			return m, m.doQuery(m.query)

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.results)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		if q := m.filterInput.Value(); q != m.query {
			m.query = q
			cmds = append(cmds, scheduleDebounced(q))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case debounceTickMsg:
		if msg.query != m.query {
			return m, nil
		}
		return m, m.doQuery(msg.query)

	case searchResultMsg:
		if msg.query != m.query || msg.format != m.searchOpts.Format {
			return m, nil // stale
		}
		m.cursor = 0
		m.listOffset = 0
		m.previewKey = ""
		if msg.err != nil {
			m.results = nil
			m.preview.SetContent("Error: " + msg.err.Error())
			return m, nil
		}
		m.results = msg.results
		if len(m.results) == 0 {
			m.preview.SetContent("")
			return m, nil
		}
		return m, m.loadCurrentPreview()

	case previewRenderedMsg:
		if m.cursor >= len(m.results) || msg.key != previewCacheKey(m.results[m.cursor]) {
			return m, nil
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = msg.key
		return m, nil
	}

	return m, nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.ready || len(m.results) == 0 {
		return m, nil
	}

	region, itemIdx := m.hitTest(msg.X, msg.Y)
	switch {
	case region == regionList && msg.Button == tea.MouseButtonWheelUp:
		if m.listOffset > 0 {
			m.listOffset--
		}

	case region == regionList && msg.Button == tea.MouseButtonWheelDown:
		maxOffset := max(len(m.results)-m.panelHeight()/linesPerItem, 0)
		if m.listOffset < maxOffset {
			m.listOffset++
		}

	case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		if itemIdx >= 0 && itemIdx < len(m.results) && m.cursor != itemIdx {
			m.cursor = itemIdx
			m.adjustListScroll(m.panelHeight())
			return m, m.loadCurrentPreview()
		}

	case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, m.filterInput.View(), panels, m.statusBar())
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	return max(m.width*40/100-4, 20)
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(m.width*60/100-4, 20)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row, status bar and two borders each side
	return max(m.height-6, 5)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	const contentYStart = 2 // input row + top border
	if y < contentYStart || y > contentYStart+m.panelHeight()-1 {
		return regionNone, -1
	}

	lw := m.listWidth()
	switch {
	case x >= 1 && x <= lw:
		return regionList, m.listOffset + (y-contentYStart)/linesPerItem
	case x > lw+2:
		return regionPreview, -1
	}
	return regionNone, -1
}

func formatLabel(f parse.Format) string {
	if f == "" {
		return "all"
	}
	return string(f)
}

func nextFormat(f parse.Format) parse.Format {
	switch f {
	case "":
		return parse.FormatText
	case parse.FormatText:
		return parse.FormatJSON
	default:
		return ""
	}
}

func (m model) statusBar() string {
	noun := "hits"
	if m.mode == modeList && m.query == "" {
		noun = "chats"
	}
	parts := []string{
		fmt.Sprintf("%d %s", len(m.results), noun),
		"format: " + styleFlash.Render(formatLabel(m.searchOpts.Format)) + " (tab)",
		"Enter copy",
		"C-o open",
		"Esc quit",
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

// doQuery searches message text; in list mode an empty query lists chats.
func (m model) doQuery(query string) tea.Cmd {
	db := m.db
	opts := m.searchOpts
	opts.Query = query
	mode := m.mode
	return func() tea.Msg {
		msg := searchResultMsg{query: query, format: opts.Format}
		switch {
		case mode == modeList && strings.TrimSpace(query) == "":
			msg.results, msg.err = search.ListAll(db, opts)
		case strings.TrimSpace(query) != "":
			msg.results, msg.err = search.Search(db, opts)
		}
		return msg
	}
}

func scheduleDebounced(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) loadCurrentPreview() tea.Cmd {
	if !m.ready || m.cursor >= len(m.results) {
		return nil
	}
	r := m.results[m.cursor]
	if previewCacheKey(r) == m.previewKey {
		return nil
	}
	return loadPreviewCmd(m.db, r, m.query, m.previewWidth(), m.sides)
}
