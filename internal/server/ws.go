package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/triplea-game/triplea-sub029/internal/odds"
)

// Message is the websocket envelope in both directions.
//
// Client: "calculate" with an odds.Request in Data, "cancel" with ID.
// Server: "accepted", "progress", "result" and "error", each with the ID of
// the calculation.
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	MsgCalculate = "calculate"
	MsgCancel    = "cancel"
	MsgAccepted  = "accepted"
	MsgProgress  = "progress"
	MsgResult    = "result"
	MsgError     = "error"
)

type wsSession struct {
	conn    *websocket.Conn
	log     *zap.Logger
	writeMu sync.Mutex

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func (ws *wsSession) send(typ, id string, v any) {
	var data json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			ws.log.Error("ws: encode", zap.String("type", typ), zap.Error(err))
			return
		}
		data = b
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	if err := ws.conn.WriteJSON(Message{Type: typ, ID: id, Data: data}); err != nil {
		ws.log.Debug("ws: write", zap.String("type", typ), zap.Error(err))
	}
}

func (ws *wsSession) cancel(id string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if stop, ok := ws.running[id]; ok {
		stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("ws: upgrade", zap.Error(err))
		return
	}
	ws := &wsSession{conn: conn, log: s.log, running: map[string]context.CancelFunc{}}
	ctx, stopAll := context.WithCancel(context.Background())
	defer func() {
		stopAll()
		ws.wg.Wait()
		_ = conn.Close()
		s.log.Debug("ws: closed", zap.String("remote", r.RemoteAddr))
	}()

	for {
		var in Message
		if err := conn.ReadJSON(&in); err != nil {
			s.log.Debug("ws: read", zap.Error(err))
			return
		}
		switch in.Type {
		case MsgCalculate:
			var req odds.Request
			if err := json.Unmarshal(in.Data, &req); err != nil {
				ws.send(MsgError, in.ID, map[string]string{"error": err.Error()})
				continue
			}
			id := in.ID
			if id == "" {
				id = uuid.NewString()
			}
			s.startCalculation(ctx, ws, id, req)
		case MsgCancel:
			ws.cancel(in.ID)
		default:
			ws.send(MsgError, in.ID, map[string]string{"error": "unknown message type " + in.Type})
		}
	}
}

func (s *Server) startCalculation(parent context.Context, ws *wsSession, id string, req odds.Request) {
	ws.mu.Lock()
	if _, busy := ws.running[id]; busy {
		ws.mu.Unlock()
		ws.send(MsgError, id, map[string]string{"error": "calculation " + id + " already running"})
		return
	}
	ctx, stop := context.WithCancel(parent)
	ws.running[id] = stop
	ws.mu.Unlock()
	ws.send(MsgAccepted, id, nil)

	every := s.progressEvery
	req.OnRun = func(p odds.Progress) {
		if p.Done%every == 0 && p.Done < p.Total {
			ws.send(MsgProgress, id, p)
		}
	}
	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		defer func() {
			ws.mu.Lock()
			delete(ws.running, id)
			ws.mu.Unlock()
			stop()
		}()
		res, err := s.calc.Calculate(ctx, req)
		if err != nil {
			ws.send(MsgError, id, map[string]string{"error": err.Error()})
			return
		}
		ws.send(MsgResult, id, res.Summary())
	}()
}
