package api

import (
	"log/slog"
	"net/http"
	"time"

	"carsales/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = (wsPongWait * 9) / 10
	wsMaxMessageKB = 64
)

// streamMessage is one server frame: either a chart or an error.
type streamMessage struct {
	Type  string        `json:"type"`
	Chart *models.Chart `json:"chart,omitempty"`
	Error *APIError     `json:"error,omitempty"`
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Stream upgrades to a websocket. Each text frame is a ChartRequest and is
// answered with exactly one streamMessage, in order.
func (h *Handler) Stream(c echo.Context) error {
	if _, err := h.ready(); err != nil {
		return err
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	logger := h.logger.With(slog.String("remote_addr", c.RealIP()))
	logger.InfoContext(ctx, "websocket client connected")

	conn.SetReadLimit(wsMaxMessageKB * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(frames)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- msg:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case msg, ok := <-frames:
			if !ok {
				err := <-readErr
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket read failed", slog.String("error", err.Error()))
				}
				logger.InfoContext(ctx, "websocket client disconnected")
				return nil
			}
			if err := h.writeFrame(conn, h.answer(c, msg)); err != nil {
				logger.Warn("websocket write failed", slog.String("error", err.Error()))
				return nil
			}
		}
	}
}

func (h *Handler) answer(c echo.Context, msg []byte) streamMessage {
	d, err := h.ready()
	if err != nil {
		return streamMessage{Type: "error", Error: toAPIError(err)}
	}
	var req models.ChartRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return streamMessage{Type: "error", Error: newAPIError(http.StatusBadRequest, "INVALID_JSON", "frame is not a valid chart request")}
	}
	if err := c.Validate(&req); err != nil {
		return streamMessage{Type: "error", Error: toAPIError(err)}
	}
	chart, err := h.compute(c.Request().Context(), d, req.Tab, req.Filters)
	if err != nil {
		return streamMessage{Type: "error", Error: toAPIError(err)}
	}
	return streamMessage{Type: "chart", Chart: &chart}
}

func (h *Handler) writeFrame(conn *websocket.Conn, m streamMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
