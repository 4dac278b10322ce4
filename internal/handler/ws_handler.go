package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/middleware"
	"github.com/stemsi/pemetaan-keswa/internal/questionnaire"
	"github.com/stemsi/pemetaan-keswa/internal/response"
	"github.com/stemsi/pemetaan-keswa/internal/service"
	ws "github.com/stemsi/pemetaan-keswa/internal/websocket"
)

const (
	lockRefreshInterval = 30 * time.Second
	actionTimeout       = 10 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs the survey wizard over a WebSocket, one connection per
// response.
type WSHandler struct {
	surveyService *service.SurveyService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(surveyService *service.SurveyService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		surveyService: surveyService,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(event ws.Event, data interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = ws.WriteJSON(w.conn, event, data)
}

func (w *wsConn) sendError(err error) {
	_, code := classify(err)
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = ws.WriteError(w.conn, string(code), response.GetMessage(code))
}

// SurveyWebSocketStream godoc
// WS /ws/v1/surveys/:id/stream?token=
// Opens a DRAFT response for live editing. The response stays locked to this
// connection until it closes.
func (h *WSHandler) SurveyWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	responseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	sess, err := h.surveyService.OpenSession(ctx, claims.UserID, responseID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer sess.Close(context.Background())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	out := &wsConn{conn: conn}
	wsLog := h.log.With().
		Int("surveyor_id", claims.UserID).
		Str("response_id", responseID.String()).
		Logger()
	wsLog.Info().Msg("Surveyor connected")

	go h.keepLock(ctx, sess, out, wsLog)

	out.send(ws.EventState, ws.BuildState(responseID, sess.Wizard, nil))

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		actx, acancel := context.WithTimeout(ctx, actionTimeout)
		h.dispatch(actx, sess, out, wsLog, &msg)
		acancel()
	}
}

// keepLock refreshes the device lock and drops the connection once another
// device holds it.
func (h *WSHandler) keepLock(ctx context.Context, sess *service.SurveySession, out *wsConn, log zerolog.Logger) {
	ticker := time.NewTicker(lockRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := sess.Touch(ctx)
			if err == nil {
				continue
			}
			if errors.Is(err, service.ErrSurveyOpenElsewhere) {
				log.Warn().Msg("Survey lock lost, closing connection")
				out.sendError(err)
				out.conn.Close()
				return
			}
			log.Warn().Err(err).Msg("Survey lock refresh failed")
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sess *service.SurveySession, out *wsConn, log zerolog.Logger, msg *ws.RequestPayload) {
	id := sess.ID()
	w := sess.Wizard

	switch msg.Action {
	case ws.ActionSetAnswer:
		if msg.Code == "" {
			out.send(ws.EventError, ws.ErrorPayload{Code: string(response.ErrInvalidPayload), Message: "code wajib diisi"})
			return
		}
		value, err := msg.DecodeValue()
		if err != nil {
			out.send(ws.EventError, ws.ErrorPayload{Code: string(response.ErrInvalidPayload), Message: response.GetMessage(response.ErrInvalidPayload)})
			return
		}
		if value == nil {
			err = sess.ClearAnswer(ctx, msg.Code)
		} else {
			err = sess.SetAnswer(ctx, msg.Code, value)
		}
		if err != nil {
			h.sendFailure(out, log, err)
			return
		}
		out.send(ws.EventState, ws.BuildState(id, w, nil))

	case ws.ActionClearAnswer:
		if err := sess.ClearAnswer(ctx, msg.Code); err != nil {
			h.sendFailure(out, log, err)
			return
		}
		out.send(ws.EventState, ws.BuildState(id, w, nil))

	case ws.ActionAdvance:
		section := ""
		if cur, ok := w.Current(); ok {
			section = cur.Code
		}
		errs, err := w.Advance()
		if errors.Is(err, questionnaire.ErrValidationFailed) {
			localized := response.LocalizeFields(errs)
			out.send(ws.EventValidationFailed, ws.ValidationPayload{Section: section, Errors: localized})
			out.send(ws.EventState, ws.BuildState(id, w, localized))
			return
		}
		if err != nil {
			h.sendFailure(out, log, err)
			return
		}
		out.send(ws.EventState, ws.BuildState(id, w, nil))

	case ws.ActionRetreat:
		if err := w.Retreat(); err != nil {
			h.sendFailure(out, log, err)
			return
		}
		out.send(ws.EventState, ws.BuildState(id, w, nil))

	case ws.ActionSaveDraft:
		receipt, err := w.SaveDraft(ctx)
		if err != nil {
			h.sendFailure(out, log, err)
			return
		}
		out.send(ws.EventSaved, ws.SavedPayload{Receipt: receipt})

	case ws.ActionFinalize:
		receipt, err := w.Finalize(ctx)
		var finalizeErr *questionnaire.FinalizeError
		if errors.As(err, &finalizeErr) {
			out.send(ws.EventValidationFailed, ws.ValidationPayload{Sections: localizeSections(finalizeErr.Sections)})
			return
		}
		if err != nil {
			h.sendFailure(out, log, err)
			return
		}
		log.Info().Msg("Survey submitted over WebSocket")
		out.send(ws.EventSubmitted, ws.SavedPayload{Receipt: receipt})
		out.send(ws.EventState, ws.BuildState(id, w, nil))

	case ws.ActionState:
		out.send(ws.EventState, ws.BuildState(id, w, nil))

	case ws.ActionPing:
		out.send(ws.EventPong, nil)

	default:
		log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		out.send(ws.EventError, ws.ErrorPayload{Code: string(response.ErrInvalidPayload), Message: "unknown action: " + string(msg.Action)})
	}
}

func (h *WSHandler) sendFailure(out *wsConn, log zerolog.Logger, err error) {
	if errors.Is(err, questionnaire.ErrUnknownQuestion) {
		out.send(ws.EventError, ws.ErrorPayload{Code: string(response.ErrUnknownQuestion), Message: response.GetMessage(response.ErrUnknownQuestion)})
		return
	}
	if status, _ := classify(err); status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("WebSocket action failed")
	}
	out.sendError(err)
}
