package physics

import "math"

// Vec2 二维向量（屏幕坐标：原点左上，y 向下）
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }

// Epsilon 浮点比较容差
const Epsilon = 1e-6

// spanOverlap 返回两个水平区间的重叠长度（<=0 表示不重叠）
func spanOverlap(l1, r1, l2, r2 float64) float64 {
	return math.Min(r1, r2) - math.Max(l1, l2)
}
