package ws

import (
	"sync"

	"canvasServer/backend/internal/board"
)

// Hub 维护 roomID -> 连接集合，并为每个房间跑一个广播泵。
// 泵是房间事件队列的唯一消费者：board.Room 在持锁状态下按状态变更顺序
// 入队事件，这里单 goroutine 顺序取出、逐连接非阻塞投递，
// 因此所有成员看到的 op 顺序与 Sequence 分配顺序一致。
type Hub struct {
	mu sync.RWMutex
	// roomID -> set of connections
	// 房间里存连接而不是用户：同一用户可开多个标签页，广播要逐连接发
	rooms map[string]map[*Conn]struct{}
	// 已经起过泵的房间
	pumping map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Conn]struct{}),
		pumping: make(map[string]bool),
	}
}

func (h *Hub) Join(roomID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Conn]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

func (h *Hub) Leave(roomID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	// 注意：房间泵不停。房间状态是进程级的，连接清零不等于房间销毁。
}

// EnsurePump 给房间起广播泵，幂等。
func (h *Hub) EnsurePump(room *board.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pumping[room.ID()] {
		return
	}
	h.pumping[room.ID()] = true
	go h.pump(room)
}

func (h *Hub) pump(room *board.Room) {
	roomID := room.ID()
	for ev := range room.Events() {
		switch ev.Type {
		case board.EventBootstrap:
			// 定向投递给入房者本人。bootstrap 与 op-append 共用这条
			// 有序队列，快照之外的操作一定在它之后送达
			bs := ev.Bootstrap
			h.sendTo(roomID, ev.UserID, BootstrapMessage{
				Type:   MsgBootstrap,
				RoomID: bs.RoomID,
				Self:   bs.Self,
				Peers:  bs.Peers,
				Ops:    bs.Ops,
			})
		case board.EventOpAppend:
			// 发给全员，包括提交者
			h.broadcast(roomID, OpAppendMessage{Type: MsgOpAppend, Op: *ev.Op}, "", false)
		case board.EventOpTombstone:
			h.broadcast(roomID, OpTombstoneMessage{Type: MsgOpTombstone, ID: ev.OpID}, "", false)
		case board.EventOpRestore:
			h.broadcast(roomID, OpRestoreMessage{Type: MsgOpRestore, ID: ev.OpID}, "", false)
		case board.EventPeerJoined:
			h.broadcast(roomID, PeerJoinedMessage{Type: MsgPeerJoined, Peer: *ev.Peer}, ev.UserID, false)
		case board.EventPeerLeft:
			h.broadcast(roomID, PeerLeftMessage{Type: MsgPeerLeft, ConnID: ev.UserID}, ev.UserID, false)
		case board.EventCursor:
			// 发送者自己知道自己的光标在哪
			h.broadcast(roomID, CursorMessage{Type: MsgCursor, ConnID: ev.UserID, X: ev.Cursor.X, Y: ev.Cursor.Y}, ev.UserID, true)
		}
	}
}

// sendTo 只投递给房间里指定的那条连接（有序消息）。
func (h *Hub) sendTo(roomID, connID string, msg OutboundMessage) {
	h.mu.RLock()
	var target *Conn
	for c := range h.rooms[roomID] {
		if c.connID == connID {
			target = c
			break
		}
	}
	h.mu.RUnlock()
	if target != nil {
		target.enqueue(msg)
	}
}

// broadcast 把消息投进各连接的发送队列。except 非空时跳过该连接。
// volatile=true 的消息队列满了直接丢；有序消息队列满说明消费端太慢，
// 砍掉这条连接让它重连重引导，而不是反压拖慢整个房间。
func (h *Hub) broadcast(roomID string, msg OutboundMessage, except string, volatile bool) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if except != "" && c.connID == except {
			continue
		}
		if volatile {
			c.enqueueVolatile(msg)
		} else {
			c.enqueue(msg)
		}
	}
}
