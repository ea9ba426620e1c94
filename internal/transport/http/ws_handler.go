package http

import (
	"encoding/json"
	"net/http"

	"couplegame-service/internal/app"
	"couplegame-service/internal/domain"
	"couplegame-service/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS streams snapshots of one session to a participant and accepts answer, verdict and abandon
// messages on the same connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeErrorBody(w, http.StatusBadRequest, "invalid_request", "missing sessionId")
		return
	}
	userID := requester(r)
	logger := logging.FromContext(r.Context(), zerolog.Nop()).With().Str("session_id", sessionID).Logger()

	snapshot, updates, cancel, err := h.service.Subscribe(r.Context(), sessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer touches the connection for writes. It also drops snapshots older than the last one
	// sent, since feed updates and direct replies race each other.
	go func() {
		defer close(writerDone)
		var lastVersion int64
		for msg := range send {
			if s, ok := msg.Payload.(domain.Session); ok {
				if s.Version <= lastVersion {
					continue
				}
				lastVersion = s.Version
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- sessionMessage(update):
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	deliver := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	deliver(sessionMessage(snapshot))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		session, err := h.handle(r, sessionID, userID, inbound)
		if err != nil {
			status, body := errorResponse(err)
			if status == http.StatusInternalServerError {
				logger.Error().Err(err).Str("type", inbound.Type).Msg("ws message failed")
			}
			if !deliver(outboundMessage[any]{Type: "error", Payload: body}) {
				break
			}
			continue
		}
		if !deliver(sessionMessage(session)) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

type wsAnswer struct {
	Slot   *int   `json:"slot"`
	Answer string `json:"answer"`
}

type wsVerdict struct {
	Slot    *int  `json:"slot"`
	Correct *bool `json:"correct"`
}

func (h *WSHandler) handle(r *http.Request, sessionID, userID string, inbound inboundMessage) (domain.Session, error) {
	switch inbound.Type {
	case "answer":
		var payload wsAnswer
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.Session{}, errMalformedPayload
		}
		if payload.Slot == nil {
			return domain.Session{}, domain.ErrInvalidSlot
		}
		return h.service.SubmitAnswer(r.Context(), sessionID, userID, *payload.Slot, payload.Answer)
	case "verdict":
		var payload wsVerdict
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Correct == nil {
			return domain.Session{}, errMalformedPayload
		}
		if payload.Slot == nil {
			return domain.Session{}, domain.ErrInvalidSlot
		}
		return h.service.SubmitVerdict(r.Context(), sessionID, userID, *payload.Slot, *payload.Correct)
	case "abandon":
		return h.service.Abandon(r.Context(), sessionID, userID)
	default:
		return domain.Session{}, errUnsupportedMessage
	}
}

func sessionMessage(s domain.Session) outboundMessage[any] {
	return outboundMessage[any]{Type: "session", Payload: s}
}
