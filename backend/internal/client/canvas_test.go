package client

import (
	"testing"

	"canvasServer/backend/internal/board"
)

// 记录式渲染器：只数调用，校验重画语义
type recordingRenderer struct {
	clears int
	drawn  []string
}

func (r *recordingRenderer) Clear() { r.clears++; r.drawn = r.drawn[:0] }
func (r *recordingRenderer) DrawOp(op board.Operation) {
	r.drawn = append(r.drawn, op.ID)
}

func op(id string, seq uint64, alive bool) board.Operation {
	return board.Operation{
		ID:       id,
		Kind:     board.OpKindStroke,
		Tool:     board.ToolBrush,
		Sequence: seq,
		Alive:    alive,
		Points:   board.PointList{{X: 0}, {X: 1}},
	}
}

// bootstrap 日志乱序到达也要按 Sequence 回放；墓碑条目不画。
func TestCanvas_LoadOpsSortsAndFilters(t *testing.T) {
	r := &recordingRenderer{}
	c := NewCanvas(r)

	c.LoadOps([]board.Operation{
		op("c", 3, false),
		op("a", 1, true),
		op("e", 5, true),
		op("b", 2, true),
		op("d", 4, true),
	})

	want := []string{"a", "b", "d", "e"}
	if len(r.drawn) != len(want) {
		t.Fatalf("drawn = %v, want %v", r.drawn, want)
	}
	for i := range want {
		if r.drawn[i] != want[i] {
			t.Fatalf("drawn[%d] = %q, want %q (full: %v)", i, r.drawn[i], want[i], r.drawn)
		}
	}
	if got := len(c.AliveOps()); got != 4 {
		t.Fatalf("AliveOps() = %d, want 4", got)
	}
}

// join 窗口里 bootstrap 和广播可能重复送达同一条操作，按 id 去重。
func TestCanvas_ApplyOpDedup(t *testing.T) {
	r := &recordingRenderer{}
	c := NewCanvas(r)
	c.LoadOps([]board.Operation{op("a", 1, true)})

	c.ApplyOp(op("a", 1, true)) // bootstrap 里已经有了
	c.ApplyOp(op("b", 2, true))
	c.ApplyOp(op("b", 2, true))

	if got := len(c.AliveOps()); got != 2 {
		t.Fatalf("AliveOps() = %d, want 2", got)
	}
	// 重复的 apply 不产生额外绘制
	if len(r.drawn) != 2 {
		t.Fatalf("drawn = %v, want [a b]", r.drawn)
	}
}

// join 窗口里权威广播可能先于 bootstrap 到达：装载快照时必须保留
// 这些本地已知、快照里没有的操作，否则它们不会再次送达，永久丢失。
func TestCanvas_LoadOpsKeepsEarlyDeliveries(t *testing.T) {
	r := &recordingRenderer{}
	c := NewCanvas(r)

	// 快照之外的广播先到
	c.ApplyOp(op("early", 2, true))
	c.LoadOps([]board.Operation{op("a", 1, true)})

	alive := c.AliveOps()
	if len(alive) != 2 {
		t.Fatalf("AliveOps() = %d, want snapshot op plus the early delivery", len(alive))
	}
	if alive[0].ID != "a" || alive[1].ID != "early" {
		t.Fatalf("replay order = [%s %s], want [a early]", alive[0].ID, alive[1].ID)
	}
	if len(r.drawn) != 2 || r.drawn[1] != "early" {
		t.Fatalf("redraw after load = %v, want [a early]", r.drawn)
	}

	// 快照里已有的不会重复
	c.LoadOps([]board.Operation{op("a", 1, true), op("early", 2, true)})
	if got := len(c.AliveOps()); got != 2 {
		t.Fatalf("AliveOps() after reload = %d, want 2", got)
	}
}

func TestCanvas_ApplyOpSkipsUnrenderable(t *testing.T) {
	r := &recordingRenderer{}
	c := NewCanvas(r)

	short := op("short", 1, true)
	short.Points = board.PointList{{X: 0}}
	c.ApplyOp(short)

	if len(r.drawn) != 0 {
		t.Fatalf("1-point op was drawn: %v", r.drawn)
	}
	// 但它仍然在日志里，后续去重照常生效
	c.ApplyOp(op("short", 1, true))
	if got := len(c.AliveOps()); got != 1 {
		t.Fatalf("AliveOps() = %d, want 1", got)
	}
}

// 墓碑/恢复都全量重画，且幂等：重复同一动作不再触发 Clear。
func TestCanvas_TombstoneRestoreIdempotent(t *testing.T) {
	r := &recordingRenderer{}
	c := NewCanvas(r)
	c.LoadOps([]board.Operation{op("a", 1, true), op("b", 2, true)})
	clears := r.clears

	c.Tombstone("a")
	if r.clears != clears+1 {
		t.Fatalf("tombstone must trigger a full redraw")
	}
	if len(r.drawn) != 1 || r.drawn[0] != "b" {
		t.Fatalf("after tombstone drawn = %v, want [b]", r.drawn)
	}

	c.Tombstone("a")       // 已是墓碑
	c.Tombstone("unknown") // 未知 id
	if r.clears != clears+1 {
		t.Fatalf("repeat/unknown tombstone must be a no-op")
	}

	c.Restore("a")
	if len(r.drawn) != 2 {
		t.Fatalf("after restore drawn = %v, want both ops", r.drawn)
	}
	c.Restore("a")
	if r.clears != clears+2 {
		t.Fatalf("repeat restore must be a no-op")
	}
}

// 迟到者拿快照回放，与一直在线者的可见集必须一致。
func TestCanvas_LateJoinerConverges(t *testing.T) {
	ops := []board.Operation{
		op("a", 1, true),
		op("b", 2, true),
		op("c", 3, true),
		op("d", 4, true),
	}

	// 在线者：逐条 apply 后收到 c 的墓碑
	live := NewCanvas(&recordingRenderer{})
	for _, o := range ops {
		live.ApplyOp(o)
	}
	live.Tombstone("c")

	// 迟到者：bootstrap 快照里 c 已经是墓碑
	snapshot := make([]board.Operation, len(ops))
	copy(snapshot, ops)
	snapshot[2].Alive = false
	late := NewCanvas(&recordingRenderer{})
	late.LoadOps(snapshot)

	a, b := live.AliveOps(), late.AliveOps()
	if len(a) != len(b) || len(a) != 3 {
		t.Fatalf("visible sets diverge: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("visible[%d] = %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
}

func TestCanvas_NilRendererSafe(t *testing.T) {
	c := NewCanvas(nil)
	c.LoadOps([]board.Operation{op("a", 1, true)})
	c.ApplyOp(op("b", 2, true))
	c.Tombstone("a")
	c.Restore("a")
	c.Redraw()
	if got := len(c.AliveOps()); got != 2 {
		t.Fatalf("AliveOps() = %d, want 2", got)
	}
}
