package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/chatlens/internal/genai"
	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/render"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

const chatText = "2024-01-05, 9:15 a.m. - Alex: morning!\n2024-01-05, 9:16 a.m. - Sam: hey you"

// isolate points config at an empty home so no real settings leak in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CHATLENS_MODEL", "")
	t.Setenv("CHATLENS_LOG_LEVEL", "")
	t.Setenv("CHATLENS_PORT", "")
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	a.close()
	return out.String(), err
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	path := filepath.Join(t.TempDir(), "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))
	got, err = readInput(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSideFlagsLayerOverConfig(t *testing.T) {
	people := []string{"Alex", "Sam", "Kim"}
	base := sides.Assignment{Left: "Alex", Aliases: map[string]string{"Alex": "Me"}}
	f := sideFlags{right: "Kim", aliases: []string{"Kim = Kimmy"}}

	got, err := f.resolve(base, people)
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.Left)
	assert.Equal(t, "Kim", got.Right)
	assert.Equal(t, map[string]string{"Alex": "Me", "Kim": "Kimmy"}, got.Aliases)
	assert.Len(t, base.Aliases, 1)

	f = sideFlags{aliases: []string{"no-equals"}}
	_, err = f.resolve(base, people)
	assert.ErrorContains(t, err, "Name=Alias")
}

func TestSideFlags_ConfiguredSidesFallBack(t *testing.T) {
	people := []string{"Alex", "Sam"}

	got, err := (&sideFlags{}).resolve(sides.Assignment{Left: "Mom", Right: "Sam"}, people)
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.Left)
	assert.Equal(t, "Sam", got.Right)

	// a flag taking the configured participant moves it off the other side
	got, err = (&sideFlags{right: "Alex"}).resolve(sides.Assignment{Left: "Alex"}, people)
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.Left)
	assert.Equal(t, "Alex", got.Right)

	_, err = (&sideFlags{left: "Mom"}).resolve(sides.Assignment{}, people)
	assert.ErrorIs(t, err, sides.ErrUnknownParticipant)

	_, err = (&sideFlags{left: "Sam", right: "Sam"}).resolve(sides.Assignment{}, people)
	assert.ErrorIs(t, err, sides.ErrSameParticipant)
}

func TestFilterFlags(t *testing.T) {
	f := filterFlags{format: "json", since: "2024-03-01", limit: 5}
	opts, err := f.options()
	require.NoError(t, err)
	assert.Equal(t, parse.FormatJSON, opts.Format)
	assert.Equal(t, 2024, opts.Since.Year())
	assert.Equal(t, 5, opts.Limit)

	_, err = (&filterFlags{format: "xml"}).options()
	assert.Error(t, err)

	_, err = (&filterFlags{since: "March"}).options()
	assert.ErrorContains(t, err, "--since")
}

func TestWriteChat(t *testing.T) {
	var buf bytes.Buffer
	res := parse.Parse(chatText)
	require.NoError(t, writeChat(&buf, res, &sideFlags{}, sides.Assignment{}, render.Options{Plain: true}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Alex"))
	assert.Contains(t, out, "  morning!")
	assert.Contains(t, out, strings.Repeat(" ", 20)+"Sam")

	buf.Reset()
	err := writeChat(&buf, res, &sideFlags{left: "Kim"}, sides.Assignment{}, render.Options{Plain: true})
	assert.ErrorIs(t, err, sides.ErrUnknownParticipant)

	buf.Reset()
	require.NoError(t, writeChat(&buf, parse.Parse(""), &sideFlags{}, sides.Assignment{}, render.Options{}))
	assert.Equal(t, "(empty chat)\n", buf.String())
}

func TestWriteChat_ConfiguredSideAbsentFromChat(t *testing.T) {
	var buf bytes.Buffer
	res := parse.Parse("Alex: hi\nSam: hey")

	err := writeChat(&buf, res, &sideFlags{}, sides.Assignment{Left: "Mom"}, render.Options{Plain: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "Alex"))
	assert.Contains(t, buf.String(), strings.Repeat(" ", 20)+"Sam")
}

func TestViewCommand_ConfiguredSides(t *testing.T) {
	home := isolate(t)
	cfgDir := filepath.Join(home, ".config", "chatlens")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte("[sides]\nleft = \"Mom\"\n"), 0o644))

	out, err := execute(t, chatText, "view", "-", "--plain")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Alex"), out)

	_, err = execute(t, chatText, "view", "-", "--left", "Mom")
	assert.ErrorIs(t, err, sides.ErrUnknownParticipant)
}

func TestParseCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, chatText, "parse", "-", "--compact")
	require.NoError(t, err)

	var res parse.ParseResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, parse.FormatText, res.Format)
	assert.Equal(t, []string{"Alex", "Sam"}, res.Participants)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestViewCommand(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(chatText), 0o644))

	out, err := execute(t, "", "view", path, "--left", "Sam", "--alias", "Alex=Me", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, strings.Repeat(" ", 20)+"Me")
	assert.Contains(t, out, "\nSam")

	_, err = execute(t, "", "view", "-", "--watch")
	assert.ErrorContains(t, err, "--watch")
}

func TestGenerativeCommandsNeedKey(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{
		{"insights", "-"},
		{"predict", "-"},
		{"translate", "hello"},
		{"lookup", "hola"},
	} {
		_, err := execute(t, chatText, args...)
		assert.True(t, errors.Is(err, genai.ErrNoAPIKey), "%v: %v", args, err)
	}
}

func TestPredictWrite(t *testing.T) {
	home := isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{"text": "Alex: see you at noon"}}},
			}},
		})
	}))
	defer srv.Close()

	cfgDir := filepath.Join(home, ".config", "chatlens")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.toml"),
		[]byte("gemini_base_url = \""+srv.URL+"\"\nrequests_per_minute = 0\n"), 0o644))
	t.Setenv("GEMINI_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "chat.txt")
	require.NoError(t, os.WriteFile(path, []byte(chatText), 0o600))

	out, err := execute(t, "", "predict", path, "--write")
	require.NoError(t, err)
	assert.Equal(t, "Alex: see you at noon\n", out)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	res := parse.Parse(string(b))
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "Alex", res.Messages[2].Sender)
	assert.Equal(t, "see you at noon", res.Messages[2].Content)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
