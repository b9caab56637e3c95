package client

import (
	"log"
	"sync"
	"time"

	"canvasServer/backend/internal/board"
	"canvasServer/backend/internal/ws"

	"github.com/gorilla/websocket"
)

const (
	// 光标节流：丢的是过期位置，只有最新值有意义
	cursorThrottle = 50 * time.Millisecond
	probeInterval  = 2 * time.Second
)

// inbound 是服务端下行消息的联合形状，按 type 取字段。
type inbound struct {
	Type   string            `json:"type"`
	RoomID string            `json:"roomId,omitempty"`
	Self   board.Peer        `json:"self,omitempty"`
	Peers  []board.Peer      `json:"peers,omitempty"`
	Ops    []board.Operation `json:"ops,omitempty"`
	Peer   board.Peer        `json:"peer,omitempty"`
	ConnID string            `json:"connectionId,omitempty"`
	Op     *board.Operation  `json:"op,omitempty"`
	ID     string            `json:"id,omitempty"`
	X      float64           `json:"x,omitempty"`
	Y      float64           `json:"y,omitempty"`
	T      float64           `json:"t,omitempty"`
}

// Client 是一个画布参与者连接：连上后发 join，等 bootstrap 全量同步，
// 之后把增量消息喂给本地 Canvas。断线不做协议内恢复，
// 调用方重新 Dial 即是重引导。
type Client struct {
	conn   *websocket.Conn
	canvas *Canvas
	roomID string

	// gorilla 的写端不允许并发，所有出站写包一把锁
	writeMu sync.Mutex

	mu   sync.Mutex
	self board.Peer

	lastCursorAt time.Time
	done         chan struct{}
	closeOnce    sync.Once

	// 回调都是可选的
	OnBootstrap  func(self board.Peer, peers []board.Peer)
	OnPeerJoined func(peer board.Peer)
	OnPeerLeft   func(connID string)
	OnCursor     func(connID string, x, y float64)
	OnLatency    func(ms float64)
}

// Dial 连接服务端并加入房间。返回时 join 已发出，bootstrap 异步到达。
func Dial(url, roomID, name string, canvas *Canvas) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		canvas: canvas,
		roomID: roomID,
		done:   make(chan struct{}),
	}
	if err := c.write(ws.ClientMessage{Type: ws.MsgJoin, RoomID: roomID, Name: name}); err != nil {
		conn.Close()
		return nil, err
	}
	go c.readLoop()
	go c.probeLoop()
	return c, nil
}

func (c *Client) Canvas() *Canvas { return c.canvas }

// Self 返回服务端在 bootstrap 里指派的身份（之前为零值）。
func (c *Client) Self() board.Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// SubmitStroke 提交一个笔画批次。权威副本会随 op-append 广播回来。
func (c *Client) SubmitStroke(in board.StrokeInput) error {
	return c.write(ws.ClientMessage{Type: ws.MsgStrokeSubmit, RoomID: c.roomID, Op: &in})
}

// Undo 请求全局撤销。注意语义是房间级、不分作者的：
// 撤掉的可能是别人的最新一笔。
func (c *Client) Undo() error {
	return c.write(ws.ClientMessage{Type: ws.MsgUndo, RoomID: c.roomID})
}

func (c *Client) Redo() error {
	return c.write(ws.ClientMessage{Type: ws.MsgRedo, RoomID: c.roomID})
}

// SendCursor 上报光标位置，客户端侧节流。
func (c *Client) SendCursor(x, y float64) error {
	c.mu.Lock()
	if time.Since(c.lastCursorAt) < cursorThrottle {
		c.mu.Unlock()
		return nil
	}
	c.lastCursorAt = time.Now()
	c.mu.Unlock()
	return c.write(ws.ClientMessage{Type: ws.MsgCursor, RoomID: c.roomID, X: x, Y: y})
}

func (c *Client) write(msg ws.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("client read error (room=%s): %v", c.roomID, err)
			}
			return
		}

		switch msg.Type {
		case ws.MsgBootstrap:
			c.mu.Lock()
			c.self = msg.Self
			c.mu.Unlock()
			c.canvas.LoadOps(msg.Ops)
			if c.OnBootstrap != nil {
				c.OnBootstrap(msg.Self, msg.Peers)
			}
		case ws.MsgOpAppend:
			if msg.Op != nil {
				c.canvas.ApplyOp(*msg.Op)
			}
		case ws.MsgOpTombstone:
			c.canvas.Tombstone(msg.ID)
		case ws.MsgOpRestore:
			c.canvas.Restore(msg.ID)
		case ws.MsgPeerJoined:
			if c.OnPeerJoined != nil {
				c.OnPeerJoined(msg.Peer)
			}
		case ws.MsgPeerLeft:
			if c.OnPeerLeft != nil {
				c.OnPeerLeft(msg.ConnID)
			}
		case ws.MsgCursor:
			if c.OnCursor != nil {
				c.OnCursor(msg.ConnID, msg.X, msg.Y)
			}
		case ws.MsgLatencyProbe:
			if c.OnLatency != nil {
				c.OnLatency(nowMillis() - msg.T)
			}
		}
	}
}

// probeLoop 周期性发延迟探测。探测失败不影响日志同步，只停掉自己。
func (c *Client) probeLoop() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(ws.ClientMessage{Type: ws.MsgLatencyProbe, T: nowMillis()}); err != nil {
				return
			}
		}
	}
}

func nowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
