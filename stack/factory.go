package stack

import (
	"errors"
	"fmt"
	"math"

	"friendstack/physics"
)

// ErrInvalidDropX 落点超出可玩水平范围；调用方应忽略该请求
var ErrInvalidDropX = errors.New("stack: drop x outside playable bounds")

// Rand 注入的随机源，*math/rand.Rand 满足该接口
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Block 一个带归属与种类的刚体。Owner、Category、Scale 创建后不变。
type Block struct {
	Body     *physics.Body
	Owner    PlayerID
	Category Category
	Scale    float64
}

// Factory 按玩家与落点生成随机种类、随机尺寸的块
type Factory struct {
	cfg Config
	rng Rand
}

func NewFactory(cfg Config, rng Rand) *Factory {
	return &Factory{cfg: cfg, rng: rng}
}

// Create 先等概率抽种类，再抽缩放，最后在落点上方的出生高度构造刚体
func (f *Factory) Create(owner PlayerID, dropX float64) (*Block, error) {
	if err := checkDropX(dropX, f.cfg); err != nil {
		return nil, err
	}
	cat := Categories[f.rng.Intn(len(Categories))]
	scale := Scales[f.rng.Intn(len(Scales))]
	spec := cat.Spec()

	size := f.cfg.BaseSize * scale
	body, err := physics.NewBox(spec.BaseMass*scale, size, size)
	if err != nil {
		return nil, fmt.Errorf("stack: create %s block for %s: %w", cat, owner, err)
	}
	body.Friction = spec.Friction
	body.GravityScale = spec.GravityScale
	body.MaxFallSpeed = spec.FallPerTick * float64(f.cfg.TickRate)
	body.SetCenter(physics.Vec2{
		X: clampCenter(dropX, size/2, f.cfg.FieldWidth),
		Y: f.cfg.SpawnY - size/2,
	})

	return &Block{Body: body, Owner: owner, Category: cat, Scale: scale}, nil
}

func checkDropX(x float64, cfg Config) error {
	if math.IsNaN(x) || x < 0 || x > cfg.FieldWidth {
		return fmt.Errorf("%w: x=%v field=[0,%v]", ErrInvalidDropX, x, cfg.FieldWidth)
	}
	return nil
}

// clampCenter 让半宽为 half 的块完整留在场地内
func clampCenter(x, half, width float64) float64 {
	return math.Max(half, math.Min(width-half, x))
}
