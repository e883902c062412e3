package physics

import (
	"fmt"
	"math"
)

// Fidelity 碰撞求解精度
type Fidelity int

const (
	// FidelityLanding 简化落地模型：下落体停在其水平范围下方最高的表面上，摩擦只作为系数保存
	FidelityLanding Fidelity = iota
	// FidelityRigid 完整刚体模型（Chipmunk），摩擦会产生滑动与倾倒
	FidelityRigid
)

func (f Fidelity) String() string {
	switch f {
	case FidelityLanding:
		return "landing"
	case FidelityRigid:
		return "rigid"
	default:
		return fmt.Sprintf("Fidelity(%d)", int(f))
	}
}

// ParseFidelity 解析配置中的精度名称
func ParseFidelity(s string) (Fidelity, error) {
	switch s {
	case "", "landing":
		return FidelityLanding, nil
	case "rigid":
		return FidelityRigid, nil
	default:
		return FidelityLanding, fmt.Errorf("physics: unknown fidelity %q", s)
	}
}

// Options 世界参数
type Options struct {
	Gravity  Vec2
	Fidelity Fidelity

	// 仅 FidelityRigid：接触中速度低于 SettleSpeed 连续 SettleTicks 步视为落定
	SettleSpeed float64
	SettleTicks int
}

// DefaultOptions 60Hz 下的默认参数
func DefaultOptions() Options {
	return Options{
		Gravity:     Vec2{Y: 600},
		Fidelity:    FidelityLanding,
		SettleSpeed: 2,
		SettleTicks: 10,
	}
}

// World 持有活动刚体（按加入顺序）与一个静态地面
type World struct {
	opts   Options
	ground Ground
	bodies []*Body
	nextID uint64

	rigid *rigidSpace
}

// NewWorld 创建世界，地面在整个生命周期内不变
func NewWorld(ground Ground, opts Options) *World {
	if opts.SettleTicks <= 0 {
		opts.SettleTicks = 1
	}
	w := &World{opts: opts, ground: ground, bodies: make([]*Body, 0, 64)}
	if opts.Fidelity == FidelityRigid {
		w.rigid = newRigidSpace(ground, opts)
	}
	return w
}

func (w *World) Ground() Ground { return w.ground }

func (w *World) Fidelity() Fidelity { return w.opts.Fidelity }

// Bodies 活动刚体（加入顺序），调用方不得修改切片
func (w *World) Bodies() []*Body { return w.bodies }

func (w *World) Len() int { return len(w.bodies) }

// AddBody 追加刚体；质量非正或为静态体时返回 ErrInvalidBody
func (w *World) AddBody(b *Body) error {
	if b == nil {
		return fmt.Errorf("%w: nil body", ErrInvalidBody)
	}
	if !(b.Mass > 0) || b.Static || !(b.Inertia > 0) {
		return fmt.Errorf("%w: mass=%v inertia=%v static=%v", ErrInvalidBody, b.Mass, b.Inertia, b.Static)
	}
	w.nextID++
	b.ID = w.nextID
	w.bodies = append(w.bodies, b)
	if w.rigid != nil {
		w.rigid.add(b)
	}
	return nil
}

// SetTransform 外部直接修改了 Pos/Angle/Vel 后同步到求解器
func (w *World) SetTransform(b *Body) {
	if w.rigid != nil {
		w.rigid.push(b)
	}
}

// Clear 移除全部刚体，地面保留
func (w *World) Clear() {
	w.bodies = w.bodies[:0]
	w.nextID = 0
	if w.rigid != nil {
		w.rigid = newRigidSpace(w.ground, w.opts)
	}
}

// Step 推进固定 dt，返回本步新落定的刚体（加入顺序）
func (w *World) Step(dt float64) []*Body {
	if w.rigid != nil {
		return w.rigid.step(w.bodies, dt)
	}

	for _, b := range w.bodies {
		b.Integrate(dt, w.opts.Gravity)
	}

	// 按加入顺序逐个落地：先落下的刚体成为后落下者的支撑面
	var settled []*Body
	for _, b := range w.bodies {
		if b.Static || b.Resting {
			continue
		}
		surface := w.restSurface(b.Left(), b.Right(), b)
		if b.Bottom() < surface {
			continue
		}
		b.Pos.Y += surface - b.Bottom()
		b.Vel.Y = 0
		b.Resting = true
		settled = append(settled, b)
	}
	return settled
}

// QueryRestY 以 x 为中心、半宽 halfWidth 的新刚体会落在的表面 y。
// 多个重叠时取最高表面（y 最小）；无刚体重叠时取地面，地面也不支撑则返回 +Inf。
func (w *World) QueryRestY(x, halfWidth float64) float64 {
	return w.restSurface(x-halfWidth, x+halfWidth, nil)
}

func (w *World) restSurface(l, r float64, self *Body) float64 {
	surface := math.Inf(1)
	found := false
	for _, o := range w.bodies {
		if o == self || !o.Resting {
			continue
		}
		if spanOverlap(l, r, o.Left(), o.Right()) <= Epsilon {
			continue
		}
		if top := o.Top(); top < surface {
			surface = top
			found = true
		}
	}
	if !found && w.ground.Spans(l, r) {
		surface = w.ground.SurfaceY()
	}
	return surface
}

// TopY 塔顶（所有落定刚体的最小上边缘），无刚体时为地面
func (w *World) TopY() float64 {
	top := w.ground.SurfaceY()
	for _, b := range w.bodies {
		if b.Resting && b.Top() < top {
			top = b.Top()
		}
	}
	return top
}
