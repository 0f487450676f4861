// Package api exposes the REST/JSON HTTP surface of spec.md §6: a
// chat endpoint backed by pkg/orchestrator and deck CRUD backed by
// pkg/deckstore. It is built on stdlib net/http + http.ServeMux,
// matching pkg/api/health.go's own construction in cmd/warren — that
// package never reaches for a third-party router for its HTTP surface
// either, and spec.md's REST/JSON-only mandate gives gRPC nothing to
// serve here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/deckstore"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/log"
	"github.com/swstevens/agentic-cag-system/pkg/metrics"
	"github.com/swstevens/agentic-cag-system/pkg/orchestrator"
)

// Server wires the orchestrator and deck store behind the HTTP surface.
type Server struct {
	orch  *orchestrator.Orchestrator
	decks *deckstore.Store
	mux   *http.ServeMux
}

// NewServer builds a Server and registers every route.
func NewServer(orch *orchestrator.Orchestrator, decks *deckstore.Store) *Server {
	s := &Server{orch: orch, decks: decks, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/chat", s.withMiddleware("chat", s.handleChat))
	s.mux.HandleFunc("/api/decks", s.withMiddleware("decks_collection", s.handleDecksCollection))
	s.mux.HandleFunc("/api/decks/", s.withMiddleware("decks_item", s.handleDecksItem))
	s.mux.HandleFunc("/health", metrics.HealthHandler())
	s.mux.HandleFunc("/ready", metrics.ReadyHandler())
	s.mux.HandleFunc("/live", metrics.LivenessHandler())
	s.mux.Handle("/metrics", metrics.Handler())
	return s
}

// Handler returns the composed mux for http.Server/httptest wiring.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs an http.Server on addr with the same timeout profile as
// pkg/api/health.go's ReadTimeout/WriteTimeout/IdleTimeout in cmd/warren.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) withMiddleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		metrics.APIRequestDuration.WithLabelValues(route).Observe(timer.Duration().Seconds())
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// envelope is the success/error response shape of spec.md §6.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps an error to the three-way HTTP contract of spec.md
// §6: 200 on controlled failures, 404 on unknown id, 500 on internal
// faults. Invalid-input failures are still controlled failures, so
// they stay 200 with success:false in the envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusOK
	kind := errs.KindInternal
	if e, ok := err.(*errs.Error); ok {
		kind = e.Kind
	}
	switch kind {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindInternal:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, envelope{Success: false, Error: string(kind), Message: err.Error()})
}

type chatRequestBody struct {
	Message      string         `json:"message"`
	Context      map[string]any `json:"context,omitempty"`
	ExistingDeck *card.Deck     `json:"existing_deck,omitempty"`
}

type chatResponseBody struct {
	RequestID  string                 `json:"request_id"`
	Message    string                 `json:"message"`
	Deck       *card.Deck             `json:"deck,omitempty"`
	Iterations int                    `json:"iterations,omitempty"`
	History    []card.IterationRecord `json:"history,omitempty"`
}

// handleChat implements POST /api/chat, delegating to the orchestrator's
// single entry point per spec.md §4.10/§4.11.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, errs.New(errs.KindInvalidInput, "POST required"))
		return
	}
	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.KindInvalidInput, "malformed request body", err))
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, errs.New(errs.KindInvalidInput, "message is required"))
		return
	}

	resp := s.orch.HandleChat(r.Context(), orchestrator.ChatRequest{
		Message:      body.Message,
		Context:      body.Context,
		ExistingDeck: body.ExistingDeck,
	})
	if resp.Error != nil {
		log.WithRequestID(resp.RequestID).Error().Err(resp.Error).Msg("chat request failed")
		writeError(w, resp.Error)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: chatResponseBody{
		RequestID:  resp.RequestID,
		Message:    resp.Message,
		Deck:       resp.Deck,
		Iterations: resp.Iterations,
		History:    resp.History,
	}})
}

// handleDecksCollection implements POST /api/decks and GET /api/decks.
func (s *Server) handleDecksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createDeck(w, r)
	case http.MethodGet:
		s.listDecks(w, r)
	default:
		writeError(w, errs.New(errs.KindInvalidInput, "GET or POST required"))
	}
}

type createDeckBody struct {
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Deck             card.Deck `json:"deck"`
	QualityScore     float64   `json:"quality_score,omitempty"`
	ImprovementNotes string    `json:"improvement_notes,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
}

func (s *Server) createDeck(w http.ResponseWriter, r *http.Request) {
	var body createDeckBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.Wrap(errs.KindInvalidInput, "malformed request body", err))
		return
	}
	if body.Name == "" {
		writeError(w, errs.New(errs.KindInvalidInput, "name is required"))
		return
	}
	body.Deck.RecomputeTotal()

	id, err := s.decks.Save(deckstore.Record{
		Name:             body.Name,
		Description:      body.Description,
		Format:           body.Deck.Format,
		Archetype:        string(body.Deck.Archetype),
		Colors:           body.Deck.Colors,
		Deck:             body.Deck,
		QualityScore:     body.QualityScore,
		ImprovementNotes: body.ImprovementNotes,
		TotalCards:       body.Deck.TotalCards,
		UserID:           body.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"id": id}})
}

// listDecks implements GET /api/decks with format/archetype/limit/offset
// query parameters, per spec.md §6.
func (s *Server) listDecks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clampLimit(q.Get("limit"))
	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}

	records, err := s.decks.List(deckstore.Filters{
		Format:    q.Get("format"),
		Archetype: q.Get("archetype"),
		UserID:    q.Get("user_id"),
	}, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: records})
}

func clampLimit(raw string) int {
	limit := 100
	if v, err := strconv.Atoi(raw); err == nil {
		limit = v
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}

// handleDecksItem implements GET/PUT/DELETE /api/decks/{id}.
func (s *Server) handleDecksItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/decks/")
	if id == "" {
		writeError(w, errs.New(errs.KindInvalidInput, "deck id is required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.decks.GetByID(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec})

	case http.MethodPut:
		var body createDeckBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, errs.Wrap(errs.KindInvalidInput, "malformed request body", err))
			return
		}
		body.Deck.RecomputeTotal()
		rec, err := s.decks.Update(id, func(r *deckstore.Record) {
			if body.Name != "" {
				r.Name = body.Name
			}
			r.Description = body.Description
			r.Format = body.Deck.Format
			r.Archetype = string(body.Deck.Archetype)
			r.Colors = body.Deck.Colors
			r.Deck = body.Deck
			r.QualityScore = body.QualityScore
			r.ImprovementNotes = body.ImprovementNotes
			r.TotalCards = body.Deck.TotalCards
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec})

	case http.MethodDelete:
		if _, err := s.decks.GetByID(id); err != nil {
			writeError(w, err)
			return
		}
		if err := s.decks.Delete(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true})

	default:
		writeError(w, errs.New(errs.KindInvalidInput, "GET, PUT, or DELETE required"))
	}
}
