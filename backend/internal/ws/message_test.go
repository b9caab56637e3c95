package ws

import (
	"encoding/json"
	"testing"

	"canvasServer/backend/internal/board"
)

func TestClientMessage_DecodeStrokeSubmit(t *testing.T) {
	raw := `{
		"type": "stroke-submit",
		"roomId": "lobby",
		"op": {
			"id": "s1",
			"tool": "eraser",
			"color": "#123456",
			"width": 8,
			"points": [{"x":1,"y":2,"t":3},{"x":4,"y":5,"t":6}]
		}
	}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if msg.Type != MsgStrokeSubmit || msg.RoomID != "lobby" {
		t.Fatalf("envelope = %+v", msg)
	}
	if msg.Op == nil || msg.Op.ID != "s1" || msg.Op.Tool != "eraser" {
		t.Fatalf("op = %+v", msg.Op)
	}
	if msg.Op.Width == nil || *msg.Op.Width != 8 {
		t.Fatalf("width = %v, want 8", msg.Op.Width)
	}
	if len(msg.Op.Points) != 2 || msg.Op.Points[1].Y != 5 {
		t.Fatalf("points = %+v", msg.Op.Points)
	}
}

// points 字段形状不对时容忍解析：整条消息不报错，点列为空。
func TestClientMessage_DecodeMalformedPoints(t *testing.T) {
	raw := `{"type":"stroke-submit","op":{"points":"garbage"}}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("malformed points must not fail the envelope: %v", err)
	}
	if msg.Op == nil || len(msg.Op.Points) != 0 {
		t.Fatalf("op = %+v, want empty point list", msg.Op)
	}
}

// width 缺失与 width:0 必须可区分（缺省补 2，零钳到 1）。
func TestClientMessage_WidthAbsentVsZero(t *testing.T) {
	var absent, zero ClientMessage
	if err := json.Unmarshal([]byte(`{"type":"stroke-submit","op":{}}`), &absent); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"type":"stroke-submit","op":{"width":0}}`), &zero); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if absent.Op.Width != nil {
		t.Fatalf("absent width decoded as %v, want nil", *absent.Op.Width)
	}
	if zero.Op.Width == nil || *zero.Op.Width != 0 {
		t.Fatalf("zero width decoded as %v, want 0", zero.Op.Width)
	}
}

func TestOutboundMessage_WireShape(t *testing.T) {
	msgs := []OutboundMessage{
		PeerLeftMessage{Type: MsgPeerLeft, ConnID: "c1"},
		OpAppendMessage{Type: MsgOpAppend, Op: board.Operation{ID: "op1"}},
		OpTombstoneMessage{Type: MsgOpTombstone, ID: "op1"},
		LatencyProbeMessage{Type: MsgLatencyProbe, T: 42},
	}
	wantTypes := []string{MsgPeerLeft, MsgOpAppend, MsgOpTombstone, MsgLatencyProbe}
	for i, m := range msgs {
		if m.MessageType() != wantTypes[i] {
			t.Fatalf("msg[%d].MessageType() = %q, want %q", i, m.MessageType(), wantTypes[i])
		}
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal msg[%d] failed: %v", i, err)
		}
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(b, &envelope); err != nil || envelope.Type != wantTypes[i] {
			t.Fatalf("msg[%d] wire type = %q, want %q", i, envelope.Type, wantTypes[i])
		}
	}

	// peer-left 在线上用 connectionId 字段
	b, _ := json.Marshal(PeerLeftMessage{Type: MsgPeerLeft, ConnID: "c1"})
	var m map[string]any
	json.Unmarshal(b, &m)
	if m["connectionId"] != "c1" {
		t.Fatalf("peer-left wire = %v, want connectionId=c1", m)
	}
}
