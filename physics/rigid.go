package physics

import "github.com/jakecoffman/cp"

// rigidSpace 将 Body 镜像到 Chipmunk 空间，每步结束后把结果写回 Body
type rigidSpace struct {
	space  *cp.Space
	opts   Options
	bodies map[*Body]*cp.Body
	calm   map[*Body]int
	prev   map[*Body]cp.Vector // 上一步的位置，用于识别重叠修正带来的位移
}

func newRigidSpace(g Ground, opts Options) *rigidSpace {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{X: opts.Gravity.X, Y: opts.Gravity.Y})

	// 线段半径会向两侧膨胀，下移半个厚度使上表面正好位于 SurfaceY
	r := g.Thickness / 2
	seg := cp.NewSegment(space.StaticBody,
		cp.Vector{X: g.A.X, Y: g.A.Y + r},
		cp.Vector{X: g.B.X, Y: g.B.Y + r}, r)
	seg.SetFriction(g.Friction)
	seg.SetElasticity(0)
	space.AddShape(seg)

	return &rigidSpace{
		space:  space,
		opts:   opts,
		bodies: make(map[*Body]*cp.Body),
		calm:   make(map[*Body]int),
		prev:   make(map[*Body]cp.Vector),
	}
}

func (rs *rigidSpace) add(b *Body) {
	cb := cp.NewBody(b.Mass, b.Inertia)
	scale, maxFall := b.GravityScale, b.MaxFallSpeed
	cb.SetVelocityUpdateFunc(func(body *cp.Body, gravity cp.Vector, damping float64, dt float64) {
		cp.BodyUpdateVelocity(body, gravity.Mult(scale), damping, dt)
		if v := body.Velocity(); maxFall > 0 && v.Y > maxFall {
			body.SetVelocity(v.X, maxFall)
		}
	})
	shape := cp.NewBox(cb, b.Width, b.Height, 0)
	shape.SetFriction(b.Friction)
	shape.SetElasticity(b.Restitution)

	rs.space.AddBody(cb)
	rs.space.AddShape(shape)
	rs.bodies[b] = cb
	rs.push(b)
	rs.prev[b] = cb.Position()
}

func (rs *rigidSpace) push(b *Body) {
	cb, ok := rs.bodies[b]
	if !ok {
		return
	}
	c := b.Center()
	cb.SetPosition(cp.Vector{X: c.X, Y: c.Y})
	cb.SetAngle(b.Angle)
	cb.SetVelocity(b.Vel.X, b.Vel.Y)
}

func (rs *rigidSpace) step(bodies []*Body, dt float64) []*Body {
	rs.space.Step(dt)

	var settled []*Body
	for _, b := range bodies {
		cb, ok := rs.bodies[b]
		if !ok {
			continue
		}
		p, v := cb.Position(), cb.Velocity()
		b.Angle = cb.Angle()
		b.SetCenter(Vec2{X: p.X, Y: p.Y})
		b.Vel = Vec2{X: v.X, Y: v.Y}
		if b.Resting {
			continue
		}

		// 穿透修正走独立的偏置速度，速度为 0 时位置仍可能在变，两者都要小
		moved := p.Distance(rs.prev[b])
		rs.prev[b] = p
		touching := false
		cb.EachArbiter(func(*cp.Arbiter) { touching = true })
		if touching && v.Length() < rs.opts.SettleSpeed && moved < rs.opts.SettleSpeed*dt {
			rs.calm[b]++
		} else {
			rs.calm[b] = 0
		}
		if rs.calm[b] >= rs.opts.SettleTicks {
			b.Resting = true
			delete(rs.calm, b)
			delete(rs.prev, b)
			settled = append(settled, b)
		}
	}
	return settled
}
