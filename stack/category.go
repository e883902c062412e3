package stack

import "fmt"

// Category 块的种类：决定得分、相对质量、下落速度与摩擦
type Category int

const (
	Normal Category = iota
	Sticky
	Stable
	Fast
)

// Categories 抽取时等概率的固定集合
var Categories = [...]Category{Normal, Sticky, Stable, Fast}

// Scales 尺寸缩放的离散集合
var Scales = [...]float64{0.5, 0.75, 1.0, 1.25, 1.5}

// CategorySpec 种类参数。FallPerTick 为参考节奏下每 tick 的最大下落距离。
type CategorySpec struct {
	Name         string
	Glyph        string
	Score        float64
	BaseMass     float64
	Friction     float64
	GravityScale float64
	FallPerTick  float64
}

var categorySpecs = map[Category]CategorySpec{
	Normal: {Name: "normal", Glyph: "友", Score: 1, BaseMass: 1, Friction: 0.5, GravityScale: 1, FallPerTick: 2},
	Sticky: {Name: "sticky", Glyph: "朋", Score: 2, BaseMass: 1, Friction: 0.9, GravityScale: 1, FallPerTick: 2},
	Stable: {Name: "stable", Glyph: "親", Score: 3, BaseMass: 2, Friction: 0.7, GravityScale: 1, FallPerTick: 2},
	Fast:   {Name: "fast", Glyph: "知", Score: 0.5, BaseMass: 1, Friction: 0.3, GravityScale: 2, FallPerTick: 5},
}

// Spec 返回种类参数
func (c Category) Spec() CategorySpec {
	return categorySpecs[c]
}

func (c Category) String() string {
	if s, ok := categorySpecs[c]; ok {
		return s.Name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory 按名称查找种类
func ParseCategory(name string) (Category, bool) {
	for c, s := range categorySpecs {
		if s.Name == name {
			return c, true
		}
	}
	return Normal, false
}
