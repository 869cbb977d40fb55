// README: Websocket feed of active bookings for drivers.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"toda/internal/http/middleware"
	"toda/internal/modules/booking"
	"toda/internal/modules/dispatch"
	"toda/internal/observability"
	"toda/internal/types"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingEvery    = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamMessage carries the full booking only when the driver may see it:
// pending offers and the driver's own trips. Anything else is reported by id
// and status so clients can drop it.
type streamMessage struct {
	ID      types.ID         `json:"id"`
	Status  booking.Status   `json:"status"`
	Booking *booking.Booking `json:"booking,omitempty"`
}

type StreamHandler struct {
	dispatch *dispatch.Service
	log      *slog.Logger
}

func NewStreamHandler(svc *dispatch.Service, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{dispatch: svc, log: logger.With("handler", "booking_stream")}
}

func (h *StreamHandler) Stream(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	feed, err := h.dispatch.SubscribeActive(ctx)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	observability.ActiveStreams.Inc()
	defer observability.ActiveStreams.Dec()

	uid := middleware.CallerUID(c)
	h.log.Info("stream opened", "uid", uid)

	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case b, ok := <-feed:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(newStreamMessage(b, uid)); err != nil {
				h.log.Info("stream closed", "uid", uid, "err", err)
				return
			}
		}
	}
}

func newStreamMessage(b booking.Booking, uid string) streamMessage {
	msg := streamMessage{ID: b.ID, Status: b.Status}
	if b.Status == booking.StatusPending || string(b.DriverID) == uid {
		v := bookingView(&b, uid)
		msg.Booking = &v
	}
	return msg
}
