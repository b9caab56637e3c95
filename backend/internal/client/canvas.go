package client

import (
	"sort"
	"sync"

	"canvasServer/backend/internal/board"
)

// Renderer 是像素渲染侧的出口，本包只管日志语义不管画。
// DrawOp 必须无副作用且可重复调用：整个对账策略建立在
// “随时可以安全地全量重画”上。
type Renderer interface {
	Clear()
	DrawOp(op board.Operation)
}

// Canvas 在客户端镜像服务端的操作日志语义：
// 全量装载、增量追加、墓碑/恢复。追加走增量绘制，
// 墓碑/恢复改写了任意历史，直接全量重画。
type Canvas struct {
	mu       sync.Mutex
	ops      []board.Operation
	index    map[string]int // op id -> ops 下标
	renderer Renderer
}

func NewCanvas(r Renderer) *Canvas {
	return &Canvas{index: make(map[string]int), renderer: r}
}

// LoadOps 装载 bootstrap 日志，按 Sequence 排序后全量重画。
// 本地已知、快照里却没有的操作要保留：join 窗口内权威广播可能先于
// bootstrap 到达，只替换会把那几条永久丢掉。
func (c *Canvas) LoadOps(ops []board.Operation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := make([]board.Operation, len(ops))
	copy(sorted, ops)
	inSnapshot := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		inSnapshot[op.ID] = struct{}{}
	}
	for _, op := range c.ops {
		if _, ok := inSnapshot[op.ID]; !ok {
			sorted = append(sorted, op)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	c.ops = sorted
	c.index = make(map[string]int, len(sorted))
	for i, op := range sorted {
		c.index[op.ID] = i
	}
	c.redrawLocked()
}

// ApplyOp 追加一条权威操作并增量绘制。
// 已知 id 直接跳过：join 过程中 bootstrap 快照与广播流有重叠窗口，
// 同一条操作可能两边都到，按 id 去重即可收敛。
func (c *Canvas) ApplyOp(op board.Operation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[op.ID]; ok {
		return
	}
	c.ops = append(c.ops, op)
	c.index[op.ID] = len(c.ops) - 1
	if c.renderer != nil && op.Renderable() {
		c.renderer.DrawOp(op)
	}
}

// Tombstone 翻 alive 标记并全量重画；id 未知或已是墓碑则无事发生。
func (c *Canvas) Tombstone(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok || !c.ops[i].Alive {
		return
	}
	c.ops[i].Alive = false
	c.redrawLocked()
}

func (c *Canvas) Restore(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok || c.ops[i].Alive {
		return
	}
	c.ops[i].Alive = true
	c.redrawLocked()
}

// AliveOps 是标准回放：按 Sequence 排序、过滤存活。
// 两个客户端只要日志一致，这里返回的可见集必然一致。
func (c *Canvas) AliveOps() []board.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]board.Operation, 0, len(c.ops))
	for _, op := range c.ops {
		if op.Alive {
			out = append(out, op)
		}
	}
	return out
}

// Redraw 手动触发全量重画（窗口尺寸变化之类的外部原因）。幂等。
func (c *Canvas) Redraw() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redrawLocked()
}

func (c *Canvas) redrawLocked() {
	if c.renderer == nil {
		return
	}
	c.renderer.Clear()
	for _, op := range c.ops {
		if op.Renderable() {
			c.renderer.DrawOp(op)
		}
	}
}
