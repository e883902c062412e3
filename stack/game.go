package stack

import (
	"fmt"

	"go.uber.org/zap"

	"friendstack/physics"
)

// Phase 游戏阶段：Playing → Collapsing → GameOver，只能通过 Reset 回到 Playing
type Phase int

const (
	Playing Phase = iota
	Collapsing
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Playing:
		return "playing"
	case Collapsing:
		return "collapsing"
	case GameOver:
		return "game_over"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Game 堆叠游戏的编排者：持有物理世界、回合、得分与坍塌判定。
// 非并发安全：由单个 tick 协程独占。
type Game struct {
	cfg      Config
	pending  *Config // 下次 Reset 生效
	log      *zap.Logger
	rng      Rand
	factory  *Factory
	detector CollapseDetector
	world    *physics.World

	turn   int
	scores map[PlayerID]float64
	drops  map[PlayerID]int
	phase  Phase
	winner PlayerID
	won    bool

	settled []*Block
	current *Block // 当前回合的块：悬停或下落中
	falling bool

	collapseLeft int
	loser        PlayerID
	tick         uint64
}

// Option 构造选项
type Option func(*Game)

// WithLogger 注入日志，默认 zap.NewNop()
func WithLogger(l *zap.Logger) Option {
	return func(g *Game) {
		if l != nil {
			g.log = l
		}
	}
}

// New 校验配置并开始第一局
func New(cfg Config, rng Rand, opts ...Option) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("stack: nil random source")
	}
	g := &Game{cfg: cfg, rng: rng, log: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reconfigure 校验新配置，在下一次 Reset 时生效
func (g *Game) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.pending = &cfg
	return nil
}

// Reset 丢弃全部世界状态，重新铺设地面并回到第一位玩家
func (g *Game) Reset() error {
	if g.pending != nil {
		g.cfg = *g.pending
		g.pending = nil
	}
	g.factory = NewFactory(g.cfg, g.rng)
	g.detector = NewCollapseDetector(g.cfg)
	g.world = physics.NewWorld(g.cfg.ground(), g.cfg.worldOptions())

	g.turn = 0
	g.scores = make(map[PlayerID]float64, len(g.cfg.Players))
	g.drops = make(map[PlayerID]int, len(g.cfg.Players))
	for _, p := range g.cfg.Players {
		g.scores[p.ID] = 0
		g.drops[p.ID] = 0
	}
	g.phase = Playing
	g.winner, g.won = "", false
	g.settled = nil
	g.current, g.falling = nil, false
	g.collapseLeft, g.loser = 0, ""
	g.tick = 0

	if err := g.spawn(); err != nil {
		return err
	}
	g.log.Info("game reset", zap.String("fidelity", g.world.Fidelity().String()))
	return nil
}

// spawn 为当前玩家生成悬停块，底边保持在塔顶上方 SpawnGap 处
func (g *Game) spawn() error {
	b, err := g.factory.Create(g.CurrentPlayer(), g.cfg.StartX)
	if err != nil {
		return err
	}
	if limit := g.world.TopY() - g.cfg.SpawnGap; b.Body.Bottom() > limit {
		b.Body.Pos.Y -= b.Body.Bottom() - limit
	}
	g.current, g.falling = b, false
	return nil
}

// DropAt 释放悬停块。阶段不符或已有下落块时静默忽略（accepted=false, err=nil）。
func (g *Game) DropAt(x float64) (bool, error) {
	if g.phase != Playing || g.current == nil || g.falling {
		return false, nil
	}
	if err := checkDropX(x, g.cfg); err != nil {
		return false, err
	}
	b := g.current.Body
	w, _ := b.Extent()
	b.SetCenter(physics.Vec2{X: clampCenter(x, w/2, g.cfg.FieldWidth), Y: b.Center().Y})
	if err := g.world.AddBody(b); err != nil {
		return false, err
	}
	g.falling = true
	g.log.Debug("block dropped",
		zap.String("owner", string(g.current.Owner)),
		zap.Stringer("category", g.current.Category),
		zap.Float64("x", b.Center().X))
	return true, nil
}

// Nudge 水平移动当前块，下落中被相邻块挡住时忽略
func (g *Game) Nudge(dx float64) bool {
	if g.phase != Playing || g.current == nil || dx == 0 {
		return false
	}
	b := g.current.Body
	w, _ := b.Extent()
	c := b.Center()
	nx := clampCenter(c.X+dx, w/2, g.cfg.FieldWidth)
	if nx == c.X || g.blocked(nx, w/2, b.Bottom()) {
		return false
	}
	b.SetCenter(physics.Vec2{X: nx, Y: c.Y})
	g.syncCurrent()
	return true
}

// Rotate 当前块绕中心旋转 90°
func (g *Game) Rotate() bool {
	if g.phase != Playing || g.current == nil {
		return false
	}
	b := g.current.Body
	prevAngle, prevCenter := b.Angle, b.Center()
	b.RotateQuarter()
	w, _ := b.Extent()
	b.SetCenter(physics.Vec2{X: clampCenter(prevCenter.X, w/2, g.cfg.FieldWidth), Y: prevCenter.Y})
	if g.blocked(b.Center().X, w/2, b.Bottom()) {
		b.Angle = prevAngle
		b.SetCenter(prevCenter)
		return false
	}
	g.syncCurrent()
	return true
}

// Hurry 下落块前进一个基准边长，不越过落点表面
func (g *Game) Hurry() bool {
	if g.phase != Playing || !g.falling {
		return false
	}
	b := g.current.Body
	w, _ := b.Extent()
	surface := g.world.QueryRestY(b.Center().X, w/2)
	dy := g.cfg.BaseSize
	if gap := surface - b.Bottom(); gap < dy {
		dy = gap
	}
	if dy <= physics.Epsilon {
		return false
	}
	b.Pos.Y += dy
	g.syncCurrent()
	return true
}

func (g *Game) blocked(cx, halfWidth, bottom float64) bool {
	return g.falling && g.world.QueryRestY(cx, halfWidth) < bottom
}

func (g *Game) syncCurrent() {
	if g.falling {
		g.world.SetTransform(g.current.Body)
	}
}

// Step 推进一个固定 tick。仅在工厂契约被破坏时返回错误。
func (g *Game) Step() error {
	g.tick++
	switch g.phase {
	case Playing:
		return g.stepPlaying()
	case Collapsing:
		g.stepCollapsing()
	}
	return nil
}

func (g *Game) stepPlaying() error {
	settled := g.world.Step(g.cfg.DT())

	if fallen, ok := g.detector.Fallen(g.activeBlocks()); ok {
		// 掉出场地的下落块同样算作一次投放，但不计分
		if g.falling && fallen == g.current {
			g.drops[fallen.Owner]++
		}
		g.finish(g.other(fallen.Owner))
		g.log.Info("block fell out of the field",
			zap.String("owner", string(fallen.Owner)),
			zap.Float64("y", fallen.Body.Top()))
		return nil
	}

	for _, body := range settled {
		if !g.falling || body != g.current.Body {
			continue
		}
		return g.commit(g.current)
	}
	return nil
}

// commit 记分、计数、检查倾斜，然后换手并生成下一块
func (g *Game) commit(b *Block) error {
	g.settled = append(g.settled, b)
	g.scores[b.Owner] += b.Category.Spec().Score
	g.drops[b.Owner]++
	g.current, g.falling = nil, false
	g.log.Debug("block settled",
		zap.String("owner", string(b.Owner)),
		zap.Stringer("category", b.Category),
		zap.Float64("x", b.Body.Center().X),
		zap.Float64("top", b.Body.Top()))

	if g.detector.Check(g.settled) {
		g.phase = Collapsing
		g.collapseLeft = g.cfg.CollapseTicks
		g.loser = b.Owner
		g.log.Info("tower is leaning, collapsing", zap.String("last_owner", string(b.Owner)), zap.Int("blocks", len(g.settled)))
		return nil
	}

	g.turn = (g.turn + 1) % len(g.cfg.Players)
	return g.spawn()
}

// stepCollapsing 纯表现的随机抖落，不做物理求解
func (g *Game) stepCollapsing() {
	for _, b := range g.settled {
		dir := 1.0
		if g.rng.Intn(2) == 0 {
			dir = -1
		}
		b.Body.Pos.Y += 10 + g.rng.Float64()*5
		b.Body.Pos.X += dir * 5
	}
	g.collapseLeft--
	if g.collapseLeft <= 0 {
		g.finish(g.other(g.loser))
	}
}

func (g *Game) finish(winner PlayerID) {
	g.phase = GameOver
	g.winner, g.won = winner, true
	g.current, g.falling = nil, false
	g.log.Info("game over", zap.String("winner", string(winner)), zap.Uint64("tick", g.tick))
}

func (g *Game) activeBlocks() []*Block {
	if !g.falling {
		return g.settled
	}
	blocks := make([]*Block, 0, len(g.settled)+1)
	blocks = append(blocks, g.settled...)
	return append(blocks, g.current)
}

func (g *Game) other(id PlayerID) PlayerID {
	for _, p := range g.cfg.Players {
		if p.ID != id {
			return p.ID
		}
	}
	return id
}

func (g *Game) Config() Config { return g.cfg }

func (g *Game) Phase() Phase { return g.phase }

func (g *Game) Tick() uint64 { return g.tick }

func (g *Game) Players() []Player { return g.cfg.Players }

func (g *Game) CurrentPlayer() PlayerID { return g.cfg.Players[g.turn].ID }

// Winner 仅在 GameOver 时有值
func (g *Game) Winner() (PlayerID, bool) { return g.winner, g.won }

func (g *Game) Score(id PlayerID) float64 { return g.scores[id] }

func (g *Game) DropCount(id PlayerID) int { return g.drops[id] }

// Settled 已落定的块（落定顺序），调用方不得修改
func (g *Game) Settled() []*Block { return g.settled }

// Current 当前回合的块，没有时为 nil
func (g *Game) Current() *Block { return g.current }

// Falling 当前块是否已释放
func (g *Game) Falling() bool { return g.falling }

func (g *Game) World() *physics.World { return g.world }
