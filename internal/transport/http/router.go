package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"couplegame-service/internal/app"
	"couplegame-service/internal/domain"
	"couplegame-service/internal/logging"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

// API serves the session operations over REST.
type API struct {
	service *app.GameService
}

func NewAPI(service *app.GameService) *API {
	return &API{service: service}
}

// NewRouter mounts the REST API and the websocket feed behind auth. metrics may be nil.
func NewRouter(service *app.GameService, auth *Authenticator, logger zerolog.Logger, metrics http.Handler) http.Handler {
	api := NewAPI(service)
	ws := NewWSHandler(service)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/game-types", api.gameTypes)
	protected.HandleFunc("POST /v1/sessions", api.createSession)
	protected.HandleFunc("GET /v1/sessions/active", api.listActive)
	protected.HandleFunc("GET /v1/sessions/history", api.listHistory)
	protected.HandleFunc("GET /v1/sessions/{id}", api.getSession)
	protected.HandleFunc("GET /v1/sessions/{id}/pending-verdicts", api.pendingVerdicts)
	protected.HandleFunc("POST /v1/sessions/{id}/answers", api.submitAnswer)
	protected.HandleFunc("POST /v1/sessions/{id}/verdicts", api.submitVerdict)
	protected.HandleFunc("POST /v1/sessions/{id}/abandon", api.abandon)
	protected.HandleFunc("GET /ws", ws.ServeWS)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.Handle("/", auth.Middleware(protected))
	return requestLogger(logger, mux)
}

// createSessionRequest carries no partner: the creator's partner always comes from the directory.
type createSessionRequest struct {
	GameType string `json:"gameType"`
}

type answerRequest struct {
	Slot   *int   `json:"slot"`
	Answer string `json:"answer"`
}

type verdictRequest struct {
	Slot    *int  `json:"slot"`
	Correct *bool `json:"correct"`
}

func (a *API) gameTypes(w http.ResponseWriter, r *http.Request) {
	types, err := a.service.GameTypes(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gameTypes": types})
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := a.service.CreateSession(r.Context(), req.GameType, requester(r), "")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.GetSession(r.Context(), r.PathValue("id"), requester(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) listActive(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.service.ListActive(r.Context(), requester(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.service.ListHistory(r.Context(), requester(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *API) pendingVerdicts(w http.ResponseWriter, r *http.Request) {
	slots, err := a.service.PendingVerdicts(r.Context(), r.PathValue("id"), requester(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Slot == nil {
		a.fail(w, r, domain.ErrInvalidSlot)
		return
	}
	session, err := a.service.SubmitAnswer(r.Context(), r.PathValue("id"), requester(r), *req.Slot, req.Answer)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) submitVerdict(w http.ResponseWriter, r *http.Request) {
	var req verdictRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Slot == nil {
		a.fail(w, r, domain.ErrInvalidSlot)
		return
	}
	if req.Correct == nil {
		writeErrorBody(w, http.StatusBadRequest, "invalid_request", "correct is required")
		return
	}
	session, err := a.service.SubmitVerdict(r.Context(), r.PathValue("id"), requester(r), *req.Slot, *req.Correct)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) abandon(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.Abandon(r.Context(), r.PathValue("id"), requester(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		logger := logging.FromContext(r.Context(), zerolog.Nop())
		logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func requester(r *http.Request) string {
	id, _ := UserIDFrom(r.Context())
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
			return false
		}
		writeErrorBody(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// requestLogger injects a request-scoped logger and logs one line per request.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

		reqLogger.Info().Int("status", rec.status).Dur("took", time.Since(start)).Msg("request")
	})
}
