package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"
)

var errRequestInFlight = errors.New("request already in flight")

// Frame types sent to WebSocket clients.
const (
	frameChunk = "chunk"
	frameDone  = "done"
	frameError = "error"
)

// wsFrame is one server-to-client WebSocket message.
type wsFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsSession pairs a socket with its in-flight flag.
type wsSession struct {
	conn     *websocket.Conn
	requests chan []byte
	busy     atomic.Bool
}

// HandleWebSocket handles GET /api/chat/ws.
//
// Each text frame carries a {"messages": [...]} request. Replies stream back
// as chunk frames followed by a done or error frame. A connection serves one
// request at a time; closing it cancels the upstream stream.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(h.maxBodySize)

	sess := &wsSession{
		conn:     ws,
		requests: make(chan []byte, 1),
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return h.readLoop(ctx, sess) })
	g.Go(func() error { return h.streamLoop(ctx, sess) })

	err = g.Wait()
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		slog.Debug("WebSocket chat closed by client")
	default:
		if errors.Is(err, context.Canceled) {
			slog.Debug("WebSocket chat cancelled")
			return
		}
		slog.Warn("WebSocket chat ended", "error", err)
	}
}

// readLoop accepts request frames and hands them to streamLoop, rejecting
// frames that arrive while a reply is still streaming.
func (h *Handler) readLoop(ctx context.Context, sess *wsSession) error {
	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			return err
		}
		if !sess.busy.CompareAndSwap(false, true) {
			if err := writeFrame(ctx, sess.conn, wsFrame{Type: frameError, Error: errRequestInFlight.Error()}); err != nil {
				return err
			}
			continue
		}
		sess.requests <- data
	}
}

func (h *Handler) streamLoop(ctx context.Context, sess *wsSession) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-sess.requests:
			if err := h.streamReply(ctx, sess, data); err != nil {
				return err
			}
		}
	}
}

// streamReply relays one reply. The busy flag is cleared before the final
// frame so a client may send its next request as soon as it sees done.
func (h *Handler) streamReply(ctx context.Context, sess *wsSession, data []byte) error {
	streamID := newStreamID()
	log := slog.With("stream_id", streamID, "transport", "websocket")

	finish := func(frame wsFrame) error {
		sess.busy.Store(false)
		return writeFrame(ctx, sess.conn, frame)
	}

	turns, err := DecodeTurns(data)
	if err != nil {
		log.Warn("Rejected chat request", "error", err)
		return finish(wsFrame{Type: frameError, Error: err.Error()})
	}

	stream, err := h.svc.Reply(ctx, turns)
	if err != nil {
		log.Error("Error in chat route", "error", err)
		return finish(wsFrame{Type: frameError, Error: err.Error()})
	}

	log.Info("Chat request", "turns", len(turns))
	fragments := 0
	for text, err := range stream {
		if err != nil {
			log.Error("Error in chat route", "error", err, "fragments", fragments)
			return finish(wsFrame{Type: frameError, Error: err.Error()})
		}
		if text == "" {
			continue
		}
		fragments++
		if err := writeFrame(ctx, sess.conn, wsFrame{Type: frameChunk, Text: text}); err != nil {
			return err
		}
	}
	log.Info("Chat stream complete", "fragments", fragments)
	return finish(wsFrame{Type: frameDone})
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame wsFrame) error {
	return wsjson.Write(ctx, conn, frame)
}
