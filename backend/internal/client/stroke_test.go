package client

import (
	"testing"
	"time"

	"canvasServer/backend/internal/board"
)

// 可控时钟 + 收集 emit 的 builder
func newTestBuilder(t *testing.T) (*StrokeBuilder, *[]board.StrokeInput, *time.Time) {
	t.Helper()
	var emitted []board.StrokeInput
	clock := time.Unix(0, 0)
	b := NewStrokeBuilder(func(in board.StrokeInput) { emitted = append(emitted, in) })
	b.now = func() time.Time { return clock }
	return b, &emitted, &clock
}

func TestStrokeBuilder_FlushOnEnd(t *testing.T) {
	b, emitted, _ := newTestBuilder(t)
	b.SetTool(board.ToolEraser)
	b.SetColor("#ff0000")
	b.SetWidth(10)

	b.Begin(0, 0, 0)
	b.Move(1, 1, 1)
	b.Move(2, 2, 2)
	if len(*emitted) != 0 {
		t.Fatalf("flushed before End with no cadence elapsed: %d batches", len(*emitted))
	}
	b.End()

	if len(*emitted) != 1 {
		t.Fatalf("batches = %d, want 1", len(*emitted))
	}
	in := (*emitted)[0]
	if in.ID == "" || in.ID == PendingOpID {
		t.Fatalf("batch id = %q, want a fresh uuid", in.ID)
	}
	if in.Tool != board.ToolEraser || in.Color != "#ff0000" || in.Width == nil || *in.Width != 10 {
		t.Fatalf("batch settings = %+v", in)
	}
	if len(in.Points) != 3 {
		t.Fatalf("batch points = %d, want 3", len(in.Points))
	}
}

// 按时间节奏分批：超过冲刷间隔且缓冲够长时发出一批，剩余的收笔时跟上。
func TestStrokeBuilder_CadenceFlush(t *testing.T) {
	b, emitted, clock := newTestBuilder(t)

	b.Begin(0, 0, 0)
	b.Move(1, 0, 1)
	b.Move(2, 0, 2)
	b.Move(3, 0, 3)

	*clock = clock.Add(FlushInterval + time.Millisecond)
	b.Move(4, 0, 4) // 节奏到了，这批 5 个点冲出去
	if len(*emitted) != 1 || len((*emitted)[0].Points) != 5 {
		t.Fatalf("cadence flush: batches = %v", *emitted)
	}

	b.Move(5, 0, 5)
	b.Move(6, 0, 6)
	b.End()
	if len(*emitted) != 2 || len((*emitted)[1].Points) != 2 {
		t.Fatalf("end flush: batches = %v", *emitted)
	}
	// 两批 id 不同，服务端各占一个日志条目
	if (*emitted)[0].ID == (*emitted)[1].ID {
		t.Fatalf("batches share an id: %q", (*emitted)[0].ID)
	}
}

// 不足 2 个点的批次直接丢弃，不发无意义消息。
func TestStrokeBuilder_DropsShortBatch(t *testing.T) {
	b, emitted, _ := newTestBuilder(t)
	b.Begin(0, 0, 0)
	b.End() // 只有落笔点
	if len(*emitted) != 0 {
		t.Fatalf("1-point batch was emitted: %v", *emitted)
	}
	// 没在画的时候 Move/End 都是空操作
	b.Move(1, 1, 1)
	b.End()
	if len(*emitted) != 0 {
		t.Fatalf("idle Move/End emitted: %v", *emitted)
	}
}

func TestStrokeBuilder_PendingTail(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	if _, ok := b.Pending(); ok {
		t.Fatalf("Pending() before Begin must be empty")
	}

	b.Begin(0, 0, 0)
	if _, ok := b.Pending(); ok {
		t.Fatalf("Pending() with a single point must be empty")
	}

	for i := 1; i <= 5; i++ {
		b.Move(float64(i), 0, float64(i))
	}
	op, ok := b.Pending()
	if !ok {
		t.Fatalf("Pending() mid-stroke must return the tail")
	}
	if op.ID != PendingOpID {
		t.Fatalf("pending op id = %q, want %q", op.ID, PendingOpID)
	}
	if op.Sequence != 0 {
		t.Fatalf("pending op must be unstamped, got sequence %d", op.Sequence)
	}
	// 只带最近几个点的尾巴
	if len(op.Points) != 3 || op.Points[len(op.Points)-1].X != 5 {
		t.Fatalf("pending tail = %+v", op.Points)
	}

	b.End()
	if _, ok := b.Pending(); ok {
		t.Fatalf("Pending() after End must be empty")
	}
}
