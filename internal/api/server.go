package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Zuo-Peng/chatlens/internal/assist"
	"github.com/Zuo-Peng/chatlens/internal/parse"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

const maxBodySize = 32 << 20

// Assistant is the generative side of the API; *assist.Assistant satisfies it.
type Assistant interface {
	Insights(ctx context.Context, res *parse.ParseResult, a sides.Assignment) (string, error)
	PredictNext(ctx context.Context, res *parse.ParseResult, sender string) (string, error)
	Translate(ctx context.Context, text, source string, targets []string) ([]assist.Translation, error)
	Lookup(ctx context.Context, term, sentence, target string) (string, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	assistant Assistant
	targets   []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer builds the router. A nil assistant leaves /parse working and
// answers the generative routes with 503. targets is the default language
// list for translate requests that name none.
func NewServer(port int, a Assistant, targets []string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		assistant: a,
		targets:   targets,
		logger:    logger,
		now:       time.Now,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/parse", s.parse)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAssistant)
			r.Post("/insights", s.insights)
			r.Post("/predict", s.predict)
			r.Post("/translate", s.translate)
			r.Post("/lookup", s.lookup)
		})
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// fail maps assistant errors: input problems are 400, the rest came from
// the model and are 502.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, assist.ErrNoMessages),
		errors.Is(err, assist.ErrEmptyText),
		errors.Is(err, assist.ErrNoTargets):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusBadGateway, op+" failed: "+err.Error())
	}
}

func (s *Server) requireAssistant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.assistant == nil {
			writeError(w, http.StatusServiceUnavailable, "generative features are not configured (set GEMINI_API_KEY)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, parse.Parse(req.Text))
}

type insightsRequest struct {
	Text    string            `json:"text"`
	Left    string            `json:"left"`
	Right   string            `json:"right"`
	Aliases map[string]string `json:"aliases"`
}

func (s *Server) insights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if !decode(w, r, &req) {
		return
	}

	res := parse.Parse(req.Text)
	a := sides.Assignment{Left: req.Left, Right: req.Right, Aliases: req.Aliases}
	if err := a.Validate(res.Participants); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.assistant.Insights(r.Context(), res, a)
	if err != nil {
		s.fail(w, r, "insights", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"insights": out})
}

type predictRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type predictResponse struct {
	Sender   string `json:"sender"`
	Content  string `json:"content"`
	Document string `json:"document"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !decode(w, r, &req) {
		return
	}

	res := parse.Parse(req.Text)
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		sender = assist.NextSender(res)
	}

	content, err := s.assistant.PredictNext(r.Context(), res, sender)
	if err != nil {
		s.fail(w, r, "predict", err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{
		Sender:   sender,
		Content:  content,
		Document: parse.AppendMessage(req.Text, sender, content, s.now()),
	})
}

type translateRequest struct {
	Text    string   `json:"text"`
	Source  string   `json:"source"`
	Targets []string `json:"targets"`
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decode(w, r, &req) {
		return
	}
	targets := req.Targets
	if len(targets) == 0 {
		targets = s.targets
	}

	out, err := s.assistant.Translate(r.Context(), req.Text, req.Source, targets)
	if err != nil {
		s.fail(w, r, "translate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"translations": out})
}

type lookupRequest struct {
	Term     string `json:"term"`
	Sentence string `json:"sentence"`
	Target   string `json:"target"`
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := s.assistant.Lookup(r.Context(), req.Term, req.Sentence, req.Target)
	if err != nil {
		s.fail(w, r, "lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"definition": out})
}
