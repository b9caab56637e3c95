package ws

import (
	"log"
	"net/http"
	"strings"

	"canvasServer/backend/internal/board"
	"canvasServer/backend/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 全局的WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == "null" {
			return true
		}
		allowedPrefixes := []string{
			"http://localhost",
			"http://127.0.0.1",
			"https://localhost",
			"https://127.0.0.1",
		}
		for _, p := range allowedPrefixes {
			if strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	},
}

type Manager struct {
	hub        *Hub
	store      *board.Store
	presence   cache.PresenceCache
	dispatcher *board.KafkaDispatcher
	// join 不带 roomId 时落到的房间
	defaultRoom string
}

func NewManager(hub *Hub, store *board.Store, presence cache.PresenceCache, dispatcher *board.KafkaDispatcher, defaultRoom string) *Manager {
	if defaultRoom == "" {
		defaultRoom = "lobby"
	}
	return &Manager{hub: hub, store: store, presence: presence, dispatcher: dispatcher, defaultRoom: defaultRoom}
}

// WebSocketConnect 把 HTTP 升级成参与者连接。身份以连接为粒度：
// 每个连接分配一个新 connID，作者归属、光标、presence 都挂在它上面。
func (m *Manager) WebSocketConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}

	connID := uuid.NewString()
	wsConn := NewConn(conn, m.hub, connID, m.store, m.presence, m.dispatcher, m.defaultRoom)

	// 先起写循环，保证 join 的 bootstrap 能及时发出去
	go wsConn.writeLoop()
	// 读循环阻塞到连接关闭，teardown 里做全部清理
	wsConn.readLoop(c.Request.Context())
}
