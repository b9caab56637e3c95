package ws

import (
	"canvasServer/backend/internal/board"
)

// 协议消息类型。join/bootstrap 走全量同步，op-* 走增量，
// cursor 与 latency-probe 是易失消息，丢了不影响日志一致性。
const (
	MsgJoin         = "join"
	MsgBootstrap    = "bootstrap"
	MsgPeerJoined   = "peer-joined"
	MsgPeerLeft     = "peer-left"
	MsgStrokeSubmit = "stroke-submit"
	MsgOpAppend     = "op-append"
	MsgUndo         = "undo"
	MsgRedo         = "redo"
	MsgOpTombstone  = "op-tombstone"
	MsgOpRestore    = "op-restore"
	MsgCursor       = "cursor"
	MsgLatencyProbe = "latency-probe"
)

// ClientMessage 是入站消息的统一形状，按 Type 取用对应字段。
type ClientMessage struct {
	Type   string             `json:"type"`
	RoomID string             `json:"roomId,omitempty"`
	Name   string             `json:"name,omitempty"`
	Op     *board.StrokeInput `json:"op,omitempty"`
	X      float64            `json:"x,omitempty"`
	Y      float64            `json:"y,omitempty"`
	// latency-probe 携带的客户端时间戳，服务端原样回显
	T float64 `json:"t,omitempty"`
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

type BootstrapMessage struct {
	Type   string            `json:"type"` // 固定 "bootstrap"
	RoomID string            `json:"roomId"`
	Self   board.Peer        `json:"self"`
	Peers  []board.Peer      `json:"peers"`
	Ops    []board.Operation `json:"ops"`
}

type PeerJoinedMessage struct {
	Type string     `json:"type"` // 固定 "peer-joined"
	Peer board.Peer `json:"peer"`
}

type PeerLeftMessage struct {
	Type   string `json:"type"` // 固定 "peer-left"
	ConnID string `json:"connectionId"`
}

// 权威追加广播：发给房间全员，包括提交者本人
// （提交者收到后用盖章副本取代本地预测渲染）
type OpAppendMessage struct {
	Type string          `json:"type"` // 固定 "op-append"
	Op   board.Operation `json:"op"`
}

type OpTombstoneMessage struct {
	Type string `json:"type"` // 固定 "op-tombstone"
	ID   string `json:"id"`
}

type OpRestoreMessage struct {
	Type string `json:"type"` // 固定 "op-restore"
	ID   string `json:"id"`
}

type CursorMessage struct {
	Type   string  `json:"type"` // 固定 "cursor"
	ConnID string  `json:"connectionId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type LatencyProbeMessage struct {
	Type string  `json:"type"` // 固定 "latency-probe"
	T    float64 `json:"t"`
}

func (m BootstrapMessage) MessageType() string    { return m.Type }
func (m PeerJoinedMessage) MessageType() string   { return m.Type }
func (m PeerLeftMessage) MessageType() string     { return m.Type }
func (m OpAppendMessage) MessageType() string     { return m.Type }
func (m OpTombstoneMessage) MessageType() string  { return m.Type }
func (m OpRestoreMessage) MessageType() string    { return m.Type }
func (m CursorMessage) MessageType() string       { return m.Type }
func (m LatencyProbeMessage) MessageType() string { return m.Type }
