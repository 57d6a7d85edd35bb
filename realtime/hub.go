package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gorilla/websocket"
)

// Event types
const (
	EventReportsChanged   = "rds_changed"
	EventEmployeesChanged = "employees_changed"
	EventProfilesChanged  = "profiles_changed"
)

// Watched tables
const (
	TableReports   = "rds"
	TableEmployees = "employees"
	TableProfiles  = "profiles"
)

const writeWait = 10 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ChangeNotice says that a row of Table changed. Receivers re-fetch; the
// record itself is never sent.
type ChangeNotice struct {
	Table    string `json:"table"`
	Action   string `json:"action"`
	RecordID string `json:"recordId,omitempty"`
}

// EventFor maps a table to its push event name.
func EventFor(table string) string {
	switch table {
	case TableEmployees:
		return EventEmployeesChanged
	case TableProfiles:
		return EventProfilesChanged
	}
	return EventReportsChanged
}

type client struct {
	userID string
	role   string
}

type subscription struct {
	table string
	fn    func(ChangeNotice)
}

// Hub fans change notices out to websocket clients and in-process
// subscribers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]client
	subs    map[uint64]subscription
	nextID  uint64
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]client),
		subs:    make(map[uint64]subscription),
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		conn.Close()
		return
	}
	h.clients[conn] = client{userID: userID, role: role}
}

func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Subscribe registers fn for notices on table, or on every table when table
// is empty. The returned func removes the subscription and is idempotent.
func (h *Hub) Subscribe(table string, fn func(ChangeNotice)) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = subscription{table: table, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// PublishChange delivers n to local subscribers and websocket clients.
func (h *Hub) PublishChange(n ChangeNotice) {
	h.mu.Lock()
	fns := make([]func(ChangeNotice), 0, len(h.subs))
	for _, s := range h.subs {
		if s.table == "" || s.table == n.Table {
			fns = append(fns, s.fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
	h.Broadcast(Message{Event: EventFor(n.Table), Data: n})
}

// Broadcast writes msg to every websocket client. Clients that fail the
// write are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, c := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.InfoLogger.Debugf("dropping client %s (%s): %v", c.userID, c.role, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}
