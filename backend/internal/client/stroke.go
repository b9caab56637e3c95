package client

import (
	"time"

	"canvasServer/backend/internal/board"

	"github.com/google/uuid"
)

// 批量发送节奏：按时间而不是按点数，快速移动时消息频率也有上限
const (
	FlushInterval = 40 * time.Millisecond
	// 预测渲染只画最近几个点的尾巴，权威广播到达后全量重画自然覆盖
	pendingTail = 3
)

// PendingOpID 是本地预测操作的占位 id，永远不会出现在权威日志里。
const PendingOpID = "__local__"

// StrokeBuilder 做本地预测：落笔过程中的点先本地缓冲、立即渲染，
// 按节奏打包发给服务端，收笔时无条件冲刷。服务端盖章的权威副本
// 回来后走普通 ApplyOp，预测渲染被下一次全量重画隐式取代；
// 不做逐点对账，收敛依赖权威操作最终到达。
type StrokeBuilder struct {
	tool  string
	color string
	width float64

	emit func(board.StrokeInput)
	// 可注入的时钟，测试用
	now func() time.Time

	drawing   bool
	points    []board.Point
	lastFlush time.Time
}

func NewStrokeBuilder(emit func(board.StrokeInput)) *StrokeBuilder {
	return &StrokeBuilder{
		tool:  board.ToolBrush,
		color: board.DefaultStrokeColor,
		width: board.DefaultStrokeWidth,
		emit:  emit,
		now:   time.Now,
	}
}

func (b *StrokeBuilder) SetTool(tool string)    { b.tool = tool }
func (b *StrokeBuilder) SetColor(color string)  { b.color = color }
func (b *StrokeBuilder) SetWidth(width float64) { b.width = width }

// Begin 开始一笔。
func (b *StrokeBuilder) Begin(x, y, t float64) {
	b.drawing = true
	b.points = b.points[:0]
	b.points = append(b.points, board.Point{X: x, Y: y, T: t})
	b.lastFlush = b.now()
}

// Move 追加一个采样点。到了冲刷节奏就把缓冲的点打包发出去。
func (b *StrokeBuilder) Move(x, y, t float64) {
	if !b.drawing {
		return
	}
	b.points = append(b.points, board.Point{X: x, Y: y, T: t})
	if b.now().Sub(b.lastFlush) > FlushInterval && len(b.points) > 3 {
		b.flush()
	}
}

// End 收笔，剩余的点无条件冲刷。
func (b *StrokeBuilder) End() {
	if !b.drawing {
		return
	}
	b.drawing = false
	b.flush()
}

// Pending 返回当前在途笔画的合成操作（未盖章，仅供预测渲染）。
// 只含最近几个点：预测只需要把正在画的尾巴即时显示出来。
func (b *StrokeBuilder) Pending() (board.Operation, bool) {
	if !b.drawing || len(b.points) < 2 {
		return board.Operation{}, false
	}
	tail := b.points
	if len(tail) > pendingTail {
		tail = tail[len(tail)-pendingTail:]
	}
	pts := make([]board.Point, len(tail))
	copy(pts, tail)
	return board.Operation{
		ID:     PendingOpID,
		Kind:   board.OpKindStroke,
		Tool:   b.tool,
		Color:  b.color,
		Width:  b.width,
		Points: pts,
		Alive:  true,
	}, true
}

// flush 把缓冲点打包成一条 StrokeInput 发出。不足 2 个点的批次
// 没有意义，直接丢弃（服务端同样不会为它画任何东西）。
func (b *StrokeBuilder) flush() {
	if len(b.points) < 2 {
		return
	}
	w := b.width
	in := board.StrokeInput{
		ID:     uuid.NewString(),
		Kind:   board.OpKindStroke,
		Tool:   b.tool,
		Color:  b.color,
		Width:  &w,
		Points: make(board.PointList, len(b.points)),
	}
	copy(in.Points, b.points)
	b.lastFlush = b.now()
	b.points = b.points[:0]
	if b.emit != nil {
		b.emit(in)
	}
}
