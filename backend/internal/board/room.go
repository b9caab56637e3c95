package board

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// 加入顺序取模分配的固定调色板；成员数超过调色板长度后颜色会复用（可接受的碰撞）
var peerPalette = []string{
	"#ff6b6b", "#6c5ce7", "#00b894", "#0984e3",
	"#e17055", "#fdcb6e", "#74b9ff", "#a29bfe",
	"#55efc4", "#ffa8a8",
}

type Peer struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	// 入场时分配一次，整个会话保持不变
	Color string `json:"color"`
}

type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bootstrap 是发给新成员的全量快照：自己、成员表、完整操作日志。
// 日志按 Sequence 排序、按 Alive 过滤回放即可确定性地重建画布。
type Bootstrap struct {
	RoomID string      `json:"roomId"`
	Self   Peer        `json:"self"`
	Peers  []Peer      `json:"peers"`
	Ops    []Operation `json:"ops"`
}

type EventType string

const (
	EventBootstrap   EventType = "bootstrap"
	EventOpAppend    EventType = "op-append"
	EventOpTombstone EventType = "op-tombstone"
	EventOpRestore   EventType = "op-restore"
	EventPeerJoined  EventType = "peer-joined"
	EventPeerLeft    EventType = "peer-left"
	EventCursor      EventType = "cursor"
)

// Event 是房间有序广播队列里的一条记录。
// 所有事件都在持有房间锁时入队，因此队列顺序与 Sequence 分配顺序一致；
// 广播侧只要单 goroutine 消费，就不会出现后发序号超车先发序号。
type Event struct {
	Type EventType
	Op   *Operation // op-append（深拷贝，消费方可安全读取）
	OpID string     // op-tombstone / op-restore
	Peer *Peer      // peer-joined
	// bootstrap：只定向投递给 UserID 指定的连接
	Bootstrap *Bootstrap
	// 事件来源连接：bootstrap 的收件人；peer-left 的主体；
	// cursor / peer-joined 广播时排除本人
	UserID string
	Cursor Cursor // cursor
}

// Room 持有一个房间的全部可变状态。所有变更（入库、撤销、重做、进出、光标）
// 都经 mu 串行化：Sequence 计数与日志追加必须相对并发提交原子。
// 跨房间互不相干，可以完全并行。
type Room struct {
	id string

	mu      sync.Mutex
	ops     []*Operation
	index   map[string]*Operation
	peers   map[string]*Peer
	cursors map[string]Cursor
	seq     uint64
	// 全局（房间级）撤销栈：被墓碑、等待重做的 op id，后进先出。
	// 任何新操作入库都会清空这份可重做历史
	undoStack []string

	events chan Event
}

func NewRoom(id string) *Room {
	return &Room{
		id:      id,
		index:   make(map[string]*Operation),
		peers:   make(map[string]*Peer),
		cursors: make(map[string]Cursor),
		events:  make(chan Event, 512),
	}
}

func (r *Room) ID() string { return r.id }

// Events 返回房间的有序事件队列，由 ws 层的泵 goroutine 独占消费。
func (r *Room) Events() <-chan Event { return r.events }

// publish 在持锁状态下阻塞入队，保证事件顺序即状态变更顺序。
// 消费方只做非阻塞的连接级入队，不碰网络，因此这里不会长时间卡住。
func (r *Room) publish(ev Event) {
	r.events <- ev
}

// publishVolatile 用于光标这类只关心最新值的事件：队列满了直接丢。
func (r *Room) publishVolatile(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// Join 注册成员并返回引导快照。颜色按当前成员数取模调色板分配。
// 同一连接重复 Join 视为刷新：保留原来的颜色。
// 快照同时作为 bootstrap 事件在持锁状态下入队：bootstrap 与 op-append
// 在同一条有序队列里全序，凡不在快照里的操作，其广播必然排在这条
// bootstrap 之后送达，迟到者不会漏任何操作。
func (r *Room) Join(connID, name string) Bootstrap {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		short := connID
		if len(short) > 4 {
			short = short[:4]
		}
		name = "User-" + short
	}

	peer, ok := r.peers[connID]
	if !ok {
		peer = &Peer{
			UserID: connID,
			Name:   name,
			Color:  peerPalette[len(r.peers)%len(peerPalette)],
		}
		r.peers[connID] = peer
		r.publish(Event{Type: EventPeerJoined, Peer: &Peer{UserID: peer.UserID, Name: peer.Name, Color: peer.Color}, UserID: connID})
	} else {
		peer.Name = name
	}

	bs := Bootstrap{
		RoomID: r.id,
		Self:   *peer,
		Peers:  r.peersLocked(),
		Ops:    r.opsLocked(),
	}
	r.publish(Event{Type: EventBootstrap, Bootstrap: &bs, UserID: connID})
	return bs
}

// Leave 移除成员与光标；历史操作不动，AuthorID 归属在作者离开后依然有效。
func (r *Room) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[connID]; !ok {
		return
	}
	delete(r.peers, connID)
	delete(r.cursors, connID)
	r.publish(Event{Type: EventPeerLeft, UserID: connID})
}

// UpdateCursor 覆盖式更新，只保留最新位置；广播是易失的，丢了无所谓。
func (r *Room) UpdateCursor(connID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[connID]; !ok {
		return
	}
	cur := Cursor{X: x, Y: y}
	r.cursors[connID] = cur
	r.publishVolatile(Event{Type: EventCursor, UserID: connID, Cursor: cur})
}

// AcceptStroke 清洗并盖章一条客户端笔画，追加进日志。
// 没有拒绝路径：畸形输入被矫正成合法形状入库。点数不足 2 的操作
// 也照常占一个 Sequence 槽位，渲染端自己跳过。
func (r *Room) AcceptStroke(connID string, in StrokeInput) Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, dup := r.index[id]; dup {
		// 客户端建议的 id 撞了已有日志条目，服务端重新生成
		id = uuid.NewString()
	}

	r.seq++
	op := &Operation{
		ID:     id,
		Kind:   OpKindStroke,
		Tool:   sanitizeTool(in.Tool),
		Color:  sanitizeColor(in.Color),
		Width:  sanitizeWidth(in.Width),
		Points: sanitizePoints(in.Points),
		// 作者身份以连接为准，客户端自报的一律不信
		AuthorID:  connID,
		Sequence:  r.seq,
		Alive:     true,
		CreatedAt: time.Now(),
	}
	r.ops = append(r.ops, op)
	r.index[op.ID] = op
	// 新操作作废此前的可重做历史
	r.undoStack = r.undoStack[:0]

	stamped := cloneOp(op)
	r.publish(Event{Type: EventOpAppend, Op: &stamped, UserID: connID})
	return stamped
}

// Undo 从最新往回找第一个存活操作打墓碑。不分作者：谁的撤销都能
// 拿掉任何人的最新一笔，这是共享白板语义，不是缺陷。
// 没有可撤销的操作时返回 ok=false，不产生事件。
func (r *Room) Undo() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.ops) - 1; i >= 0; i-- {
		if r.ops[i].Alive {
			r.ops[i].Alive = false
			r.undoStack = append(r.undoStack, r.ops[i].ID)
			r.publish(Event{Type: EventOpTombstone, OpID: r.ops[i].ID})
			return r.ops[i].ID, true
		}
	}
	return "", false
}

// Redo 弹出撤销栈栈顶并恢复。栈空、id 不存在、或该操作已经是存活状态
// （过期栈条目）都按无事发生处理：条目被消费掉，返回 ok=false，不广播。
func (r *Room) Redo() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.undoStack) == 0 {
		return "", false
	}
	id := r.undoStack[len(r.undoStack)-1]
	r.undoStack = r.undoStack[:len(r.undoStack)-1]

	op, ok := r.index[id]
	if !ok || op.Alive {
		return "", false
	}
	op.Alive = true
	r.publish(Event{Type: EventOpRestore, OpID: id})
	return id, true
}

// SnapshotOps 返回按 Sequence 顺序深拷贝的完整日志。
func (r *Room) SnapshotOps() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opsLocked()
}

// Peers 返回当前成员快照。
func (r *Room) Peers() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peersLocked()
}

func (r *Room) opsLocked() []Operation {
	out := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, cloneOp(op))
	}
	return out
}

func (r *Room) peersLocked() []Peer {
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	return out
}
