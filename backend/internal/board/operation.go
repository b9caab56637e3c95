package board

import (
	"encoding/json"
	"time"
)

// 操作（Operation）是画布历史的最小单元：只追加、可墓碑、按 Sequence 全序。
// 目前只有 stroke 一种，Kind 作为判别字段留给将来的图形/文本/图片操作。
const OpKindStroke = "stroke"

const (
	ToolBrush  = "brush"
	ToolEraser = "eraser"
)

// 入库约束：宽度夹在 [1,64]，点数最多 2048（超出部分直接截断，不做采样）。
const (
	MinStrokeWidth     = 1
	MaxStrokeWidth     = 64
	DefaultStrokeWidth = 2
	DefaultStrokeColor = "#000000"
	MaxStrokePoints    = 2048
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// 客户端采样时间，仅供回放插值参考，排序一律以 Sequence 为准
	T float64 `json:"t"`
}

// PointList 对畸形 payload 宽容：不是数组、或元素解析失败，一律当作空列表。
// 本系统偏向可用性：坏输入被矫正成合法形状，而不是报错拒绝。
type PointList []Point

func (pl *PointList) UnmarshalJSON(b []byte) error {
	var pts []Point
	if err := json.Unmarshal(b, &pts); err != nil {
		*pl = nil
		return nil
	}
	*pl = pts
	return nil
}

// StrokeInput 是客户端提交的原始笔画，所有字段都可缺省/可疑，
// 由 Room.AcceptStroke 统一清洗盖章。Width 用指针区分“没传”和“传了 0”。
type StrokeInput struct {
	ID     string    `json:"id,omitempty"`
	Kind   string    `json:"kind,omitempty"`
	Tool   string    `json:"tool,omitempty"`
	Color  string    `json:"color,omitempty"`
	Width  *float64  `json:"width,omitempty"`
	Points PointList `json:"points,omitempty"`
}

type Operation struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Tool     string  `json:"tool"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	Points   []Point `json:"points"`
	AuthorID string  `json:"authorId"`
	// 房间内单调递增的服务端序号，唯一的排序依据
	Sequence uint64 `json:"sequence"`
	// alive=false 即墓碑：撤销不删除日志条目，只翻这个标记
	Alive     bool      `json:"alive"`
	CreatedAt time.Time `json:"createdAt"`
}

func sanitizeTool(tool string) string {
	if tool == ToolEraser {
		return ToolEraser
	}
	return ToolBrush
}

func sanitizeColor(color string) string {
	if color == "" {
		return DefaultStrokeColor
	}
	return color
}

func sanitizeWidth(width *float64) float64 {
	if width == nil {
		return DefaultStrokeWidth
	}
	w := *width
	if w < MinStrokeWidth {
		return MinStrokeWidth
	}
	if w > MaxStrokeWidth {
		return MaxStrokeWidth
	}
	return w
}

func sanitizePoints(pts PointList) []Point {
	if len(pts) > MaxStrokePoints {
		pts = pts[:MaxStrokePoints]
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// Renderable 表示回放时需要真正画出来的操作：少于 2 个点画不出线段。
// 注意：点不足的操作仍会入库并占用一个 Sequence 槽位，只是渲染端跳过。
func (op *Operation) Renderable() bool {
	return op.Alive && len(op.Points) >= 2
}

func cloneOp(op *Operation) Operation {
	out := *op
	out.Points = make([]Point, len(op.Points))
	copy(out.Points, op.Points)
	return out
}
