package physics

import "math"

// Ground 唯一的静态地面线段：A、B 为上表面端点（水平），厚度向下延伸
type Ground struct {
	A, B      Vec2
	Thickness float64
	Friction  float64
}

// FlatGround 从 x0 到 x1、表面位于 y 的水平地面
func FlatGround(x0, x1, y float64) Ground {
	return Ground{A: Vec2{X: x0, Y: y}, B: Vec2{X: x1, Y: y}, Thickness: 10, Friction: 1}
}

// SurfaceY 地面上表面 y
func (g Ground) SurfaceY() float64 {
	return math.Min(g.A.Y, g.B.Y)
}

// Spans 地面是否在水平区间 [l, r] 下方提供支撑
func (g Ground) Spans(l, r float64) bool {
	return spanOverlap(math.Min(g.A.X, g.B.X), math.Max(g.A.X, g.B.X), l, r) > Epsilon
}
