package ws

import (
	"context"
	"sync"

	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/logger"
)

const broadcastBuffer = 256

type outgoing struct {
	topic  string
	event  dto.PaymentStatusEvent
	client *Client // set: deliver to this client only
}

// WebSocketManager fans payment status events out to the clients watching a
// reference. Topics are scoped by structure.
type WebSocketManager struct {
	topics     map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan outgoing
	done       chan struct{}
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		topics:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outgoing, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)

	for {
		select {
		case <-ctx.Done():
			manager.closeAll()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			clients, ok := manager.topics[client.Topic]
			if !ok {
				clients = make(map[*Client]struct{})
				manager.topics[client.Topic] = clients
			}
			clients[client] = struct{}{}
			manager.mu.Unlock()
			logger.Debug("WebSocket client registered", "topic", client.Topic, "clients", len(clients))

		case client := <-manager.unregister:
			manager.remove(client)

		case msg := <-manager.broadcast:
			manager.deliver(msg)
		}
	}
}

// Publish queues event for every client watching (structureID, reference).
// It never blocks: when the queue is full the event is dropped.
func (manager *WebSocketManager) Publish(structureID, reference string, event dto.PaymentStatusEvent) {
	select {
	case manager.broadcast <- outgoing{topic: Topic(structureID, reference), event: event}:
	default:
		logger.Warn("WebSocket broadcast queue full, event dropped",
			"reference", reference,
			"status", event.Status)
	}
}

// SendTo queues event for client alone. It goes through the same queue as
// Publish, so it is delivered after the client's registration.
func (manager *WebSocketManager) SendTo(client *Client, event dto.PaymentStatusEvent) {
	select {
	case manager.broadcast <- outgoing{topic: client.Topic, event: event, client: client}:
	default:
		logger.Warn("WebSocket broadcast queue full, snapshot dropped",
			"topic", client.Topic,
			"status", event.Status)
	}
}

// Register adds client unless the manager has stopped.
func (manager *WebSocketManager) Register(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

// Unregister removes client. Safe after the manager has stopped.
func (manager *WebSocketManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// GetClientCount возвращает количество подключенных клиентов
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	n := 0
	for _, clients := range manager.topics {
		n += len(clients)
	}
	return n
}

// Topic is the subscription key of a payment reference.
func Topic(structureID, reference string) string {
	return structureID + "/" + reference
}

func (manager *WebSocketManager) deliver(msg outgoing) {
	manager.mu.RLock()
	var slow []*Client
	for client := range manager.topics[msg.topic] {
		if msg.client != nil && msg.client != client {
			continue
		}
		select {
		case client.Send <- msg.event:
		default:
			slow = append(slow, client)
		}
	}
	manager.mu.RUnlock()

	for _, client := range slow {
		logger.Warn("WebSocket client too slow, disconnecting", "topic", client.Topic)
		manager.remove(client)
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	clients, ok := manager.topics[client.Topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	close(client.Send)
	delete(clients, client)
	if len(clients) == 0 {
		delete(manager.topics, client.Topic)
	}
	logger.Debug("WebSocket client unregistered", "topic", client.Topic)
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	for topic, clients := range manager.topics {
		for client := range clients {
			close(client.Send)
		}
		delete(manager.topics, topic)
	}
}
