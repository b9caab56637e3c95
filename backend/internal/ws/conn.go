package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"canvasServer/backend/internal/board"
	"canvasServer/backend/internal/cache"

	"github.com/gorilla/websocket"
)

const (
	// 原系统 socket.io 配 pingInterval 25s / pingTimeout 20s，
	// 这里对应 gorilla 的 ping/pong：25s 发一次 ping，60s 收不到 pong 判死
	pingPeriod = 25 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second

	sendQueueSize = 256
	presenceTTL   = 60 * time.Second
	// Kafka 入队的最长等待，超了直接放弃这条事件
	dispatchWait = 50 * time.Millisecond
)

// Conn 是一个参与者连接。状态机：连上 -> join 后进房 ->（活跃）-> 断开清理。
// 没有会话恢复：断线重连就是一次全新 join，重新收全量 bootstrap。
type Conn struct {
	ws     *websocket.Conn
	hub    *Hub
	connID string
	name   string
	// 当前所在房间，空串表示还没 join
	roomID string

	store      *board.Store
	presence   cache.PresenceCache
	dispatcher *board.KafkaDispatcher

	defaultRoom string

	mu     sync.Mutex
	closed bool
	send   chan OutboundMessage
}

func NewConn(ws *websocket.Conn, hub *Hub, connID string, store *board.Store, presence cache.PresenceCache, dispatcher *board.KafkaDispatcher, defaultRoom string) *Conn {
	return &Conn{
		ws:          ws,
		hub:         hub,
		connID:      connID,
		store:       store,
		presence:    presence,
		dispatcher:  dispatcher,
		defaultRoom: defaultRoom,
		send:        make(chan OutboundMessage, sendQueueSize),
	}
}

// enqueue 投递有序消息（日志广播、bootstrap、presence）。
// 队列满说明这个消费端跟不上节奏：直接断开它，让它重连重引导，
// 绝不反压整个房间。
func (c *Conn) enqueue(msg OutboundMessage) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- msg:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		// roomID 归 readLoop 写，这里不读它
		log.Printf("send queue overflow, dropping conn=%s", c.connID)
		_ = c.ws.Close()
	}
}

// enqueueVolatile 投递易失消息（光标、延迟探测），满了静默丢弃。
func (c *Conn) enqueueVolatile(msg OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readLoop(ctx context.Context) {
	defer c.teardown(ctx)

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read error (conn=%s, room=%s): %v", c.connID, c.roomID, err)
			}
			return
		}

		switch msg.Type {
		case MsgJoin:
			c.handleJoin(ctx, msg)
		case MsgStrokeSubmit:
			c.handleStroke(ctx, msg)
		case MsgUndo:
			c.handleUndo(ctx, msg)
		case MsgRedo:
			c.handleRedo(ctx, msg)
		case MsgCursor:
			c.handleCursor(msg)
		case MsgLatencyProbe:
			// 纯连通性遥测：原样回显，走易失队列，绝不挡日志广播
			c.enqueueVolatile(LatencyProbeMessage{Type: MsgLatencyProbe, T: msg.T})
			if c.roomID != "" && c.presence != nil {
				// 顺带当心跳用，续 presence TTL
				_ = c.presence.AddMember(ctx, c.roomID, c.connID, c.name, presenceTTL)
			}
		default:
			// 未知类型忽略
		}
	}
}

// handleJoin 进房：先挂进 hub 再取快照，保证快照之后的事件一定能送达；
// 快照与事件的重叠窗口由客户端按 op id 去重吸收。
func (c *Conn) handleJoin(ctx context.Context, msg ClientMessage) {
	roomID := msg.RoomID
	if roomID == "" {
		roomID = c.defaultRoom
	}

	if c.roomID != "" && c.roomID != roomID {
		// 先退老房间
		c.leaveRoom(ctx)
	}

	room, _ := c.store.Get(roomID)
	c.hub.EnsurePump(room)
	c.hub.Join(roomID, c)

	// bootstrap 不在这里直发：Room.Join 持锁把它排进房间的有序事件队列，
	// 泵定向投递。若在这里直发，快照之后、入队之前被接受的操作会先于
	// bootstrap 到达，被客户端的全量装载覆盖掉
	bs := room.Join(c.connID, msg.Name)
	c.roomID = roomID
	c.name = bs.Self.Name

	if c.presence != nil {
		if err := c.presence.AddMember(ctx, roomID, c.connID, c.name, presenceTTL); err != nil {
			log.Printf("presence add error (conn=%s, room=%s): %v", c.connID, roomID, err)
		}
	}
}

// lookupRoom 解析动作指向的房间。join 之外的动作不创建房间：
// 引用未知房间（join 没完成、或竞态窗口里发来的消息）一律静默忽略。
func (c *Conn) lookupRoom(msg ClientMessage) *board.Room {
	roomID := msg.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	if roomID == "" {
		return nil
	}
	return c.store.Lookup(roomID)
}

func (c *Conn) handleStroke(ctx context.Context, msg ClientMessage) {
	room := c.lookupRoom(msg)
	if room == nil {
		return
	}
	// op 字段整个缺失也照单全收：当作空笔画清洗入库
	var in board.StrokeInput
	if msg.Op != nil {
		in = *msg.Op
	}
	op := room.AcceptStroke(c.connID, in)
	c.dispatch(ctx, board.AppendEvent(room.ID(), op))
}

func (c *Conn) handleUndo(ctx context.Context, msg ClientMessage) {
	room := c.lookupRoom(msg)
	if room == nil {
		return
	}
	// 没有可撤销的就是静默空操作，不广播也不报错
	if id, ok := room.Undo(); ok {
		c.dispatch(ctx, board.TombstoneEvent(room.ID(), id))
	}
}

func (c *Conn) handleRedo(ctx context.Context, msg ClientMessage) {
	room := c.lookupRoom(msg)
	if room == nil {
		return
	}
	if id, ok := room.Redo(); ok {
		c.dispatch(ctx, board.RestoreEvent(room.ID(), id))
	}
}

func (c *Conn) handleCursor(msg ClientMessage) {
	room := c.lookupRoom(msg)
	if room == nil {
		return
	}
	room.UpdateCursor(c.connID, msg.X, msg.Y)
}

func (c *Conn) dispatch(ctx context.Context, evt board.CanvasOpEvent) {
	if c.dispatcher == nil {
		return
	}
	dctx, cancel := context.WithTimeout(ctx, dispatchWait)
	defer cancel()
	_ = c.dispatcher.Enqueue(dctx, evt)
}

func (c *Conn) leaveRoom(ctx context.Context) {
	if c.roomID == "" {
		return
	}
	c.hub.Leave(c.roomID, c)
	if room := c.store.Lookup(c.roomID); room != nil {
		room.Leave(c.connID)
	}
	if c.presence != nil {
		_ = c.presence.RemoveMember(ctx, c.roomID, c.connID)
	}
	c.roomID = ""
}

// teardown 统一清理。主动离开和连接异常走同一条路径，不做区分。
func (c *Conn) teardown(ctx context.Context) {
	c.leaveRoom(ctx)
	c.mu.Lock()
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.ws.Close()
}
