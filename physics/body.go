package physics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBody 质量或尺寸非正：属于调用方（工厂）的编程错误
var ErrInvalidBody = errors.New("physics: invalid body")

// Body 最小盒形刚体。Pos 为未旋转盒子的左上角，旋转绕中心进行。
type Body struct {
	ID uint64

	Pos   Vec2
	Vel   Vec2
	Angle float64 // 弧度

	Width, Height float64

	Mass, InvMass       float64
	Inertia, InvInertia float64

	Friction    float64 // [0,1]
	Restitution float64 // [0,1]

	GravityScale float64 // 重力倍率
	MaxFallSpeed float64 // 竖直下落速度上限，<=0 不限制

	Static  bool
	Resting bool // 已落定，不再做竖直积分
}

// NewBox 按质量与尺寸创建动态盒子，转动惯量取标准盒子公式
func NewBox(mass, width, height float64) (*Body, error) {
	// 写成取反形式以同时拒绝 NaN
	if !(mass > 0) || !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: mass=%v size=%vx%v", ErrInvalidBody, mass, width, height)
	}
	inertia := BoxMoment(mass, width, height)
	return &Body{
		Width:        width,
		Height:       height,
		Mass:         mass,
		InvMass:      1 / mass,
		Inertia:      inertia,
		InvInertia:   1 / inertia,
		Friction:     0.3,
		GravityScale: 1,
	}, nil
}

// BoxMoment (m/12)(w²+h²)
func BoxMoment(mass, width, height float64) float64 {
	return mass * (width*width + height*height) / 12.0
}

// Center 盒子中心
func (b *Body) Center() Vec2 {
	return Vec2{X: b.Pos.X + b.Width/2, Y: b.Pos.Y + b.Height/2}
}

// SetCenter 保持尺寸不变移动中心
func (b *Body) SetCenter(c Vec2) {
	b.Pos = Vec2{X: c.X - b.Width/2, Y: c.Y - b.Height/2}
}

// Extent 旋转后轴对齐包围盒的宽高
func (b *Body) Extent() (w, h float64) {
	s, c := math.Abs(math.Sin(b.Angle)), math.Abs(math.Cos(b.Angle))
	return b.Width*c + b.Height*s, b.Width*s + b.Height*c
}

func (b *Body) Left() float64 {
	w, _ := b.Extent()
	return b.Center().X - w/2
}

func (b *Body) Right() float64 {
	w, _ := b.Extent()
	return b.Center().X + w/2
}

func (b *Body) Top() float64 {
	_, h := b.Extent()
	return b.Center().Y - h/2
}

func (b *Body) Bottom() float64 {
	_, h := b.Extent()
	return b.Center().Y + h/2
}

// RotateQuarter 绕中心旋转 90°
func (b *Body) RotateQuarter() {
	b.Angle = math.Mod(b.Angle+math.Pi/2, 2*math.Pi)
}

// Integrate 半隐式欧拉：先更新速度，再用新速度更新位置
func (b *Body) Integrate(dt float64, gravity Vec2) {
	if b.Static || b.Resting {
		return
	}
	b.Vel = b.Vel.Add(gravity.Scale(b.GravityScale * dt))
	if b.MaxFallSpeed > 0 && b.Vel.Y > b.MaxFallSpeed {
		b.Vel.Y = b.MaxFallSpeed
	}
	b.Pos = b.Pos.Add(b.Vel.Scale(dt))
}
