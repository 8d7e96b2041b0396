package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatlens/internal/index"
	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

const chat = "2024-01-05, 9:15 a.m. - Alex: morning!\n" +
	"2024-01-05, 9:16 a.m. - Sam: hey you\n" +
	"2024-01-05, 9:20 a.m. - Alex: coffee later?\n" +
	"Kim: can I come"

var alexSam = sides.Assignment{Left: "Alex", Right: "Sam"}

func TestRenderChat_Sides(t *testing.T) {
	res := parse.Parse(chat)
	out, hit := RenderChat(res.Messages, Options{Sides: alexSam, Plain: true})
	assert.Equal(t, -1, hit)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Alex  2024-01-05 9:15 a.m.", lines[0])
	assert.Equal(t, "  morning!", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, strings.Repeat(" ", rightIndent)+"Sam  2024-01-05 9:16 a.m.", lines[3])
	assert.Equal(t, strings.Repeat(" ", rightIndent+2)+"hey you", lines[4])
	assert.Contains(t, out, "\nKim\n  can I come\n")
}

func TestRenderChat_Aliases(t *testing.T) {
	res := parse.Parse(chat)
	a := alexSam
	a.Aliases = map[string]string{"Sam": "Me"}
	out, _ := RenderChat(res.Messages, Options{Sides: a, Plain: true})
	assert.Contains(t, out, "Me  2024-01-05 9:16 a.m.")
	assert.NotContains(t, out, "Sam")
}

func TestRenderChat_HitWindow(t *testing.T) {
	res := parse.Parse(chat)
	out, hit := RenderChat(res.Messages, Options{
		Sides:   alexSam,
		HitID:   res.Messages[2].ID,
		Context: 1,
		Plain:   true,
	})

	lines := strings.Split(out, "\n")
	assert.Equal(t, "... (1 messages before) ...", lines[0])
	require.Equal(t, 4, hit)
	assert.Equal(t, ">> Alex  2024-01-05 9:20 a.m. <<", lines[hit])
	assert.Contains(t, out, "can I come")
	assert.NotContains(t, out, "morning!")
}

func TestRenderChat_WidthKeepsLinesInside(t *testing.T) {
	msgs := []parse.Message{
		{ID: "1", Sender: "Sam", Content: "a fairly long reply that has to wrap several times"},
		{ID: "2", Sender: "Alex", Content: "short"},
	}
	out, _ := RenderChat(msgs, Options{Sides: alexSam, Width: 24})
	for _, l := range strings.Split(StripANSI(out), "\n") {
		assert.LessOrEqual(t, runewidth.StringWidth(l), 24, l)
	}
	assert.Contains(t, StripANSI(out), "Alex")
}

func TestRenderChat_HighlightsQuery(t *testing.T) {
	msgs := []parse.Message{{ID: "1", Sender: "Alex", Content: "Coffee later?"}}
	out, _ := RenderChat(msgs, Options{Sides: alexSam, Query: "coffee OR tea"})
	assert.Contains(t, out, colorBoldRed+"Coffee"+colorReset)
	assert.Contains(t, out, colorLeft+"Alex"+colorReset)
}

func TestWrapLine(t *testing.T) {
	assert.Equal(t, []string{"abc", "def", "g"}, wrapLine("abcdefg", 3))
	assert.Equal(t, []string{"日本", "語"}, wrapLine("日本語", 4))
	assert.Equal(t, []string{""}, wrapLine("", 5))
	assert.Equal(t, []string{"\033[1mab", "c\033[0m"}, wrapLine("\033[1mabc\033[0m", 2))
}

func TestRenderConversation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cafe.txt"), []byte(chat), 0o644))

	db, err := index.OpenDB(filepath.Join(t.TempDir(), "r.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = index.IndexAll(db, root)
	require.NoError(t, err)

	rows, err := db.GetMessages("text:cafe")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	out, hit, err := RenderConversation(db, "text:cafe", Options{HitID: rows[1].MsgID, Plain: true})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "--- text:cafe [text] Alex, Sam, Kim ---", lines[0])
	assert.Equal(t, strings.Repeat(" ", rightIndent)+">> Sam  2024-01-05 9:16 a.m. <<", lines[hit])

	_, _, err = RenderConversation(db, "text:missing", Options{})
	assert.ErrorContains(t, err, "chat not found")
}
