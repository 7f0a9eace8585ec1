// Package hub fans sync and import progress out to TCP and WebSocket
// listeners as line-delimited JSON.
package hub

import (
	"bufio"
	"encoding/json"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/octacordshop/PrimeStream/internal/importer"
)

const writeTimeout = 2 * time.Second

type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]struct{}
	sent      int

	Logger *log.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
	Sent       int `json:"events_sent"`
}

func New() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]struct{}),
		Logger:    log.Default(),
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.wsClients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish sends ev to every listener. Clients that cannot keep up are
// dropped.
func (h *Hub) Publish(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.logf("[hub] marshal %s: %v", ev.Type, err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent++

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

// ImportObserver adapts the hub to importer progress callbacks.
func (h *Hub) ImportObserver() importer.Observer {
	return func(p importer.Progress) { h.Publish(ImportEvent(p)) }
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
		Sent:       h.sent,
	}
}

// RunLister reports tracked import runs; *importer.Tracker satisfies it.
type RunLister interface {
	List() []importer.Progress
}

type welcome struct {
	Type          string `json:"type"`
	Transport     string `json:"transport"`
	Clients       int    `json:"clients"`
	ActiveImports int    `json:"active_imports"`
}

// greeting is what a new listener receives before live events: a welcome
// line, then the latest snapshot of every running import, oldest first.
func (h *Hub) greeting(transport string, runs RunLister) [][]byte {
	var active []importer.Progress
	if runs != nil {
		list := runs.List()
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].IsRunning {
				active = append(active, list[i])
			}
		}
	}

	st := h.Stats()
	clients := st.TCPClients
	if transport == "websocket" {
		clients = st.WSClients
	}

	lines := make([][]byte, 0, 1+len(active))
	b, err := json.Marshal(welcome{Type: "welcome", Transport: transport, Clients: clients, ActiveImports: len(active)})
	if err != nil {
		h.logf("[hub] marshal welcome: %v", err)
		return nil
	}
	lines = append(lines, append(b, '\n'))
	for _, p := range active {
		b, err := json.Marshal(ImportEvent(p))
		if err != nil {
			h.logf("[hub] marshal snapshot %s: %v", p.RunID, err)
			continue
		}
		lines = append(lines, append(b, '\n'))
	}
	return lines
}
