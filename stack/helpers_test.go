package stack

import (
	"math/rand"
	"testing"

	"go.uber.org/zap/zaptest"

	"friendstack/physics"
)

// seqRand 按固定序列返回的随机源，用于精确控制种类与尺寸
type seqRand struct {
	ints []int
	i    int
}

func (r *seqRand) Intn(n int) int {
	v := r.ints[r.i%len(r.ints)]
	r.i++
	return v % n
}

func (r *seqRand) Float64() float64 { return 0.5 }

func newTestGame(t *testing.T, cfg Config, rng Rand) *Game {
	t.Helper()
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	g, err := New(cfg, rng, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

// stepUntil 推进直到 done 返回 true，返回所用 tick 数
func stepUntil(t *testing.T, g *Game, done func() bool) int {
	t.Helper()
	for i := 1; i <= 5000; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if done() {
			return i
		}
	}
	t.Fatalf("condition not reached within 5000 ticks (phase=%s)", g.Phase())
	return 0
}

func dropAndSettle(t *testing.T, g *Game, x float64) {
	t.Helper()
	ok, err := g.DropAt(x)
	if err != nil || !ok {
		t.Fatalf("DropAt(%v) = %v, %v", x, ok, err)
	}
	stepUntil(t, g, func() bool { return !g.Falling() })
}

// blockAt 以中心 x、上边缘 top 构造落定块
func blockAt(t *testing.T, cx, top, size float64) *Block {
	t.Helper()
	body, err := physics.NewBox(1, size, size)
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	body.Pos = physics.Vec2{X: cx - size/2, Y: top}
	body.Resting = true
	return &Block{Body: body, Owner: "1", Category: Normal, Scale: size / 60}
}
