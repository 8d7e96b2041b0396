package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

const (
	maxTranscriptMessages = 200
	maxTranscriptBytes    = 24 * 1024
	maxParallelRequests   = 4
)

var (
	ErrNoMessages      = errors.New("chat has no messages")
	ErrEmptyPrediction = errors.New("model returned an empty prediction")
	ErrEmptyText       = errors.New("nothing to translate")
	ErrNoTargets       = errors.New("no target languages")
)

// Generator is the text-completion backend, e.g. *genai.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Assistant struct {
	llm    Generator
	logger *slog.Logger
}

func New(llm Generator, logger *slog.Logger) *Assistant {
	return &Assistant{llm: llm, logger: logger}
}

type Translation struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// Insights asks for a Markdown report on the conversation between the two
// participants of the assignment. Unset sides are filled from the chat.
func (a *Assistant) Insights(ctx context.Context, res *parse.ParseResult, side sides.Assignment) (string, error) {
	if len(res.Messages) == 0 {
		return "", ErrNoMessages
	}
	side = side.Resolve(res.Participants)

	var others []string
	for _, p := range res.Participants {
		if p != side.Left && p != side.Right {
			others = append(others, side.Name(p))
		}
	}
	group := ""
	if len(others) > 0 {
		group = " (a group chat that also includes " + strings.Join(others, ", ") + ")"
	}

	prompt := fmt.Sprintf(insightsPrompt, side.Name(side.Left), side.Name(side.Right), group, transcript(res.Messages, side.Name))

	a.logger.Info("requesting insights",
		"messages", len(res.Messages),
		"left", side.Left,
		"right", side.Right,
	)

	out, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("insights: %w", err)
	}
	return strings.TrimSpace(stripFence(out)), nil
}

// PredictNext predicts the next message from sender. An empty sender means
// whoever did not write the last message.
func (a *Assistant) PredictNext(ctx context.Context, res *parse.ParseResult, sender string) (string, error) {
	if len(res.Messages) == 0 {
		return "", ErrNoMessages
	}
	if sender == "" {
		sender = NextSender(res)
	}

	prompt := fmt.Sprintf(predictPrompt, sender, transcript(res.Messages, nil), sender)

	a.logger.Info("predicting next message", "sender", sender, "messages", len(res.Messages))

	out, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("predict: %w", err)
	}
	msg := cleanPrediction(out, sender)
	if msg == "" {
		return "", ErrEmptyPrediction
	}
	return msg, nil
}

// NextSender returns the first participant other than the author of the
// last message, or that author when the chat has only one participant.
func NextSender(res *parse.ParseResult) string {
	if len(res.Messages) == 0 {
		return ""
	}
	last := res.Messages[len(res.Messages)-1].Sender
	for _, p := range res.Participants {
		if p != last {
			return p
		}
	}
	return last
}

// Translate translates text into every target language concurrently.
// Results keep the order of targets.
func (a *Assistant) Translate(ctx context.Context, text, source string, targets []string) ([]Translation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if source == "" {
		source = "its original language"
	}

	out := make([]Translation, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRequests)
	for i, lang := range targets {
		g.Go(func() error {
			got, err := a.llm.Generate(gctx, fmt.Sprintf(translatePrompt, source, lang, text))
			if err != nil {
				return fmt.Errorf("translate to %s: %w", lang, err)
			}
			out[i] = Translation{Language: lang, Text: strings.TrimSpace(stripFence(got))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Info("translated", "targets", len(targets), "chars", len(text))
	return out, nil
}

// Lookup explains a selected term in the context of its sentence.
func (a *Assistant) Lookup(ctx context.Context, term, sentence, target string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", ErrEmptyText
	}
	if sentence == "" {
		sentence = term
	}
	if target == "" {
		target = "English"
	}
	out, err := a.llm.Generate(ctx, fmt.Sprintf(lookupPrompt, term, sentence, target))
	if err != nil {
		return "", fmt.Errorf("lookup %q: %w", term, err)
	}
	return strings.TrimSpace(out), nil
}

// transcript renders the tail of the chat as "Name: text" lines, keeping at
// most maxTranscriptMessages messages and maxTranscriptBytes bytes.
func transcript(msgs []parse.Message, name func(string) string) string {
	if len(msgs) > maxTranscriptMessages {
		msgs = msgs[len(msgs)-maxTranscriptMessages:]
	}
	lines := make([]string, len(msgs))
	size := 0
	for i, m := range msgs {
		sender := m.Sender
		if name != nil {
			sender = name(sender)
		}
		lines[i] = sender + ": " + m.Content
		size += len(lines[i]) + 1
	}
	start := 0
	for size > maxTranscriptBytes && start < len(lines)-1 {
		size -= len(lines[start]) + 1
		start++
	}
	out := strings.Join(lines[start:], "\n")
	if start > 0 {
		out = "(earlier messages omitted)\n" + out
	}
	return out
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

var quotePairs = [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}}

func cleanPrediction(s, sender string) string {
	s = strings.TrimSpace(stripFence(s))
	if sender != "" && len(s) > len(sender) && strings.EqualFold(s[:len(sender)], sender) && s[len(sender)] == ':' {
		s = strings.TrimSpace(s[len(sender)+1:])
	}
	for _, q := range quotePairs {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			s = strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
			break
		}
	}
	return s
}
