package board

import "time"

// CanvasOpEvent 是对外发布到 Kafka 的画布操作事件（审计/集成用）。
// 这是旁路管道：房间内的权威广播不经过它，它丢消息不影响一致性。
type CanvasOpEvent struct {
	EventType string `json:"eventType"` // OP_APPEND / OP_TOMBSTONE / OP_RESTORE
	RoomID    string `json:"roomId"`
	OpID      string `json:"opId"`
	Sequence  uint64 `json:"sequence,omitempty"`
	AuthorID  string `json:"authorId,omitempty"`
	Tool      string `json:"tool,omitempty"`
	// 点数而不是点本身：事件流只做统计与追踪，不复制整条笔画
	PointCount int       `json:"pointCount,omitempty"`
	AppliedAt  time.Time `json:"appliedAt"`
}

const (
	EventTypeOpAppend    = "OP_APPEND"
	EventTypeOpTombstone = "OP_TOMBSTONE"
	EventTypeOpRestore   = "OP_RESTORE"
)

// AppendEvent 从一条已盖章操作构造追加事件。
func AppendEvent(roomID string, op Operation) CanvasOpEvent {
	return CanvasOpEvent{
		EventType:  EventTypeOpAppend,
		RoomID:     roomID,
		OpID:       op.ID,
		Sequence:   op.Sequence,
		AuthorID:   op.AuthorID,
		Tool:       op.Tool,
		PointCount: len(op.Points),
		AppliedAt:  op.CreatedAt,
	}
}

func TombstoneEvent(roomID, opID string) CanvasOpEvent {
	return CanvasOpEvent{EventType: EventTypeOpTombstone, RoomID: roomID, OpID: opID, AppliedAt: time.Now()}
}

func RestoreEvent(roomID, opID string) CanvasOpEvent {
	return CanvasOpEvent{EventType: EventTypeOpRestore, RoomID: roomID, OpID: opID, AppliedAt: time.Now()}
}
