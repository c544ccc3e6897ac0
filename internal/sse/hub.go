package sse

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Client ist die ausgehende Nachrichten-Queue eines verbundenen SSE-Clients
type Client chan []byte

// Hub verwaltet die verbundenen Clients und verteilt Nachrichten an alle
type Hub struct {
	clients    map[Client]bool
	broadcast  chan []byte
	register   chan Client
	unregister chan Client
	done       chan struct{} // wird geschlossen, wenn Run endet
	mu         sync.Mutex
}

// NewHub erstellt eine neue Hub-Instanz. Run muss laufen, bevor sich Clients registrieren.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100),
		register:   make(chan Client),
		unregister: make(chan Client),
		done:       make(chan struct{}),
		clients:    make(map[Client]bool),
	}
}

// Run verarbeitet Registrierungen und Broadcasts, bis ctx beendet ist.
// Beim Beenden werden alle Client-Channels geschlossen.
func (h *Hub) Run(ctx context.Context) {
	log.Debug("SSE hub started")
	defer func() {
		close(h.done)
		h.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Infof("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client <- message:
				default:
					// Langsamer Client, entfernen statt blockieren
					log.Warn("SSE client channel full, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client)
	}
}

// Register fügt einen Client hinzu. Blockiert, bis der Hub ihn annimmt, ctx
// beendet ist oder der Hub gestoppt wurde.
func (h *Hub) Register(ctx context.Context, client Client) bool {
	select {
	case h.register <- client:
		return true
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	}
}

// Unregister entfernt einen Client. Nach dem Stoppen des Hubs kehrt es sofort zurück.
func (h *Hub) Unregister(ctx context.Context, client Client) {
	select {
	case h.unregister <- client:
	case <-ctx.Done():
	case <-h.done:
	}
}

// ClientCount gibt die Anzahl der verbundenen Clients zurück
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast reiht die Nachricht für alle Clients ein, ohne den Aufrufer zu blockieren
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastJSON serialisiert v als JSON und sendet es an alle Clients
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}
