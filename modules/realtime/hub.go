package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"persona-studio-server/modules/common/auth"
)

// 이벤트 타입
const (
	EventContentCreated = "content_created"
	EventContentUpdated = "content_updated"
	EventContentDeleted = "content_deleted"
	EventVideoUpdated   = "video_updated"
)

// Event - 캘린더 화면으로 전달되는 변경 알림
type Event struct {
	Type           string    `json:"type"`
	Influencer     string    `json:"influencer"`
	ContentID      string    `json:"contentId"`
	Status         string    `json:"status,omitempty"`
	ApprovalStatus string    `json:"approvalStatus,omitempty"`
	VideoStatus    string    `json:"videoStatus,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher - 서비스가 변경 이벤트를 보내는 인터페이스
type Publisher interface {
	Publish(evt Event)
}

// NopPublisher - 아무것도 하지 않는 Publisher
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client - 연결된 캘린더 화면
type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// channel - 페르소나별 구독 채널
type channel struct {
	key          string
	clients      map[*client]struct{}
	mutex        sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
}

// Metrics - 허브 메트릭
type Metrics struct {
	TotalChannels    int       `json:"totalChannels"`
	ActiveChannels   int       `json:"activeChannels"`
	TotalConnections int       `json:"totalConnections"`
	EventsPublished  int       `json:"eventsPublished"`
	StartTime        time.Time `json:"startTime"`
}

// Hub - 페르소나 채널 관리자
type Hub struct {
	channels map[string]*channel
	mutex    sync.RWMutex
	metrics  Metrics
}

// NewHub - Hub 생성
func NewHub() *Hub {
	return &Hub{
		channels: map[string]*channel{},
		metrics:  Metrics{StartTime: time.Now()},
	}
}

// getOrCreateChannel - 채널 가져오기 또는 생성
func (h *Hub) getOrCreateChannel(key string) *channel {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ch, exists := h.channels[key]
	if !exists {
		now := time.Now()
		ch = &channel{
			key:          key,
			clients:      map[*client]struct{}{},
			createdAt:    now,
			lastActivity: now,
		}
		h.channels[key] = ch
		h.metrics.TotalChannels++
		h.metrics.ActiveChannels++
		log.Printf("✅ [Realtime] Created channel: %s (Active: %d)", key, h.metrics.ActiveChannels)
	}
	return ch
}

// Publish - 해당 페르소나 채널의 모든 클라이언트에게 이벤트 전송 (느린 클라이언트는 끊음)
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	h.mutex.Lock()
	h.metrics.EventsPublished++
	ch, exists := h.channels[strings.ToLower(evt.Influencer)]
	h.mutex.Unlock()
	if !exists {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("❌ [Realtime] Failed to marshal event: %v", err)
		return
	}

	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	ch.lastActivity = time.Now()
	for c := range ch.clients {
		select {
		case c.send <- payload:
		default:
			close(c.send)
			delete(ch.clients, c)
			log.Printf("⚠️ [Realtime] Dropped slow client %s from %s", c.userID, ch.key)
		}
	}
}

// ServeWS - GET /ws?influencer=<key>&access_token=<jwt> (auth.Middleware 뒤에서만 동작)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.FromContext(r.Context())
	if !ok || sess.UserID == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	influencer := strings.ToLower(sess.Influencer)
	if influencer == "" {
		http.Error(w, "influencer is required", http.StatusBadRequest)
		return
	}
	userID := sess.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Realtime] WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, userID: userID, send: make(chan []byte, 64)}
	ch := h.getOrCreateChannel(influencer)

	ch.mutex.Lock()
	ch.clients[c] = struct{}{}
	ch.lastActivity = time.Now()
	count := len(ch.clients)
	ch.mutex.Unlock()

	h.mutex.Lock()
	h.metrics.TotalConnections++
	h.mutex.Unlock()

	log.Printf("👤 [Realtime] %s subscribed to %s (Clients: %d)", userID, influencer, count)

	go c.writePump()
	go c.readPump(ch)
}

// readPump - 클라이언트 메시지는 무시, 연결 종료 감지용
func (c *client) readPump(ch *channel) {
	defer func() {
		ch.mutex.Lock()
		if _, ok := ch.clients[c]; ok {
			close(c.send)
			delete(ch.clients, c)
		}
		ch.lastActivity = time.Now()
		ch.mutex.Unlock()
		c.conn.Close()
		log.Printf("👋 [Realtime] %s left %s", c.userID, ch.key)
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ [Realtime] WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump - send 채널 → websocket
func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("⚠️ [Realtime] WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// CleanupIdle - 클라이언트가 없는 채널 정리
func (h *Hub) CleanupIdle() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cleaned := 0
	for key, ch := range h.channels {
		ch.mutex.Lock()
		empty := len(ch.clients) == 0
		ch.mutex.Unlock()

		if empty {
			delete(h.channels, key)
			h.metrics.ActiveChannels--
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Printf("🧹 [Realtime] Cleaned up %d idle channels (Active: %d)", cleaned, h.metrics.ActiveChannels)
	}
	return cleaned
}

// StartCleanupRoutine - 5분마다 빈 채널 정리
func (h *Hub) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.CleanupIdle()
			case <-stop:
				return
			}
		}
	}()
	log.Println("🔄 [Realtime] Started channel cleanup routine (5min)")
}

// Snapshot - 현재 메트릭과 채널별 구독자 수
func (h *Hub) Snapshot() (Metrics, map[string]int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	perChannel := make(map[string]int, len(h.channels))
	for key, ch := range h.channels {
		ch.mutex.Lock()
		perChannel[key] = len(ch.clients)
		ch.mutex.Unlock()
	}
	return h.metrics, perChannel
}

// MetricsHandler - GET /metrics
func (h *Hub) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics, perChannel := h.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":           time.Since(metrics.StartTime).String(),
			"startTime":        metrics.StartTime,
			"totalChannels":    metrics.TotalChannels,
			"activeChannels":   metrics.ActiveChannels,
			"totalConnections": metrics.TotalConnections,
			"eventsPublished":  metrics.EventsPublished,
		},
		"channels": perChannel,
	})
}
