package combat

import "math"

// Position 网格坐标
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add 坐标相加
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Metric 距离度量
type Metric string

const (
	MetricManhattan Metric = "manhattan"
	MetricChebyshev Metric = "chebyshev"
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric 解析技能配置中的度量名，无法识别时使用 chebyshev
func ParseMetric(s string) Metric {
	switch Metric(normalizeKey(s)) {
	case MetricManhattan:
		return MetricManhattan
	case MetricEuclidean:
		return MetricEuclidean
	default:
		return MetricChebyshev
	}
}

// Distance 计算两点间距离
func (m Metric) Distance(a, b Position) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	switch m {
	case MetricManhattan:
		return dx + dy
	case MetricEuclidean:
		return math.Hypot(dx, dy)
	default:
		return math.Max(dx, dy)
	}
}

// TraceLine Bresenham 直线，包含起点和终点
func TraceLine(a, b Position) []Position {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	errTerm := dx + dy

	cells := make([]Position, 0, max(dx, -dy)+1)
	x, y := a.X, a.Y
	for {
		cells = append(cells, Position{X: x, Y: y})
		if x == b.X && y == b.Y {
			return cells
		}
		e2 := 2 * errTerm
		if e2 >= dy {
			errTerm += dy
			x += sx
		}
		if e2 <= dx {
			errTerm += dx
			y += sy
		}
	}
}

// Board 战斗地图：尺寸和静态障碍
type Board struct {
	ID      string
	Width   int
	Height  int
	blocked map[Position]struct{}
}

// NewBoard 创建地图，宽高为 0 表示不限边界
func NewBoard(id string, width, height int, blocked []Position) *Board {
	b := &Board{ID: id, Width: width, Height: height, blocked: make(map[Position]struct{}, len(blocked))}
	for _, p := range blocked {
		b.blocked[p] = struct{}{}
	}
	return b
}

// InBounds 坐标是否在地图内
func (b *Board) InBounds(p Position) bool {
	if p.X < 0 || p.Y < 0 {
		return false
	}
	if b.Width > 0 && p.X >= b.Width {
		return false
	}
	if b.Height > 0 && p.Y >= b.Height {
		return false
	}
	return true
}

// IsBlocked 障碍格或越界格
func (b *Board) IsBlocked(p Position) bool {
	if b == nil {
		return false
	}
	if !b.InBounds(p) {
		return true
	}
	_, ok := b.blocked[p]
	return ok
}

// HasLineOfSight 只检查中间格，端点本身不阻挡视线
func (b *Board) HasLineOfSight(from, to Position) bool {
	cells := TraceLine(from, to)
	for i := 1; i < len(cells)-1; i++ {
		if b.IsBlocked(cells[i]) {
			return false
		}
	}
	return true
}

// LineCells 从 actor 朝 target 方向延伸 length 格（不含 actor 本身）
// blocksOnWalls 时在第一个障碍格处截断
func (b *Board) LineCells(actor, target Position, length int, blocksOnWalls bool) []Position {
	if actor == target || length <= 0 {
		return nil
	}
	dx, dy := target.X-actor.X, target.Y-actor.Y
	// 把终点放大到至少 length 格外，保证方向不变
	scale := 1
	if span := max(abs(dx), abs(dy)); span < length {
		scale = (length + span - 1) / span
	}
	far := Position{X: actor.X + dx*scale, Y: actor.Y + dy*scale}

	traced := TraceLine(actor, far)[1:]
	if len(traced) > length {
		traced = traced[:length]
	}
	if !blocksOnWalls {
		return traced
	}
	for i, c := range traced {
		if b.IsBlocked(c) {
			return traced[:i]
		}
	}
	return traced
}

// InLineWidth width 为 w 时，与线上任一格 Chebyshev 距离 <= (w-1)/2 的格子被命中
func InLineWidth(cells []Position, p Position, width int) bool {
	half := 0
	if width > 1 {
		half = (width - 1) / 2
	}
	for _, c := range cells {
		if max(abs(c.X-p.X), abs(c.Y-p.Y)) <= half {
			return true
		}
	}
	return false
}

// InCone 判断 p 是否位于从 actor 出发、朝 target 方向的锥形内
func InCone(actor, target, p Position, length, width int, metric Metric) bool {
	if p == actor {
		return false
	}
	dirX, dirY := sign(target.X-actor.X), sign(target.Y-actor.Y)
	if dirX == 0 && dirY == 0 {
		return false
	}
	if metric.Distance(actor, p) > float64(length) {
		return false
	}

	dx, dy := p.X-actor.X, p.Y-actor.Y
	if dirX == 0 || dirY == 0 {
		// 正交方向：forward 为沿方向的分量，lateral 为垂直分量
		forward, lateral := dx*dirX, dy
		if dirX == 0 {
			forward, lateral = dy*dirY, dx
		}
		if forward <= 0 || abs(lateral) > forward {
			return false
		}
		return width <= 0 || abs(lateral) <= width
	}

	// 对角方向：两个分量都不能与方向相反
	if dx*dirX < 0 || dy*dirY < 0 {
		return false
	}
	limit := width
	if limit <= 0 {
		limit = length
	}
	return abs(abs(dx)-abs(dy)) <= limit
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
