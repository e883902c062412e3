package stack

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"friendstack/physics"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Players = cfg.Players[:1]
	if _, err := New(cfg, rand.New(rand.NewSource(1))); err == nil {
		t.Fatalf("expected error for single-player config")
	}
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Fatalf("expected error for nil random source")
	}
}

func TestNewGameStartsWithHeldBlock(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), nil)
	if g.Phase() != Playing {
		t.Fatalf("phase = %s, want playing", g.Phase())
	}
	if g.Current() == nil || g.Falling() {
		t.Fatalf("expected a held block for the first turn")
	}
	if g.Current().Owner != "1" || g.CurrentPlayer() != "1" {
		t.Fatalf("first turn belongs to %q", g.CurrentPlayer())
	}
	if g.World().Len() != 0 {
		t.Fatalf("held block must not be simulated before the drop")
	}
	if _, ok := g.Winner(); ok {
		t.Fatalf("winner set while playing")
	}
}

func TestDropCountsMatchAcceptedDrops(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), rand.New(rand.NewSource(11)))
	accepted := 0
	for i := 0; i < 8; i++ {
		ok, err := g.DropAt(150)
		if err != nil {
			t.Fatalf("DropAt: %v", err)
		}
		if !ok {
			t.Fatalf("drop %d should be accepted", i)
		}
		accepted++
		// 下落中的重复请求被忽略
		if again, err := g.DropAt(150); again || err != nil {
			t.Fatalf("second drop while in flight = %v, %v", again, err)
		}
		stepUntil(t, g, func() bool { return !g.Falling() })
		if g.Phase() != Playing {
			t.Fatalf("centered tower left playing phase: %s", g.Phase())
		}

		total := 0
		for _, p := range g.Players() {
			total += g.DropCount(p.ID)
		}
		if total != accepted {
			t.Fatalf("sum(dropCounts) = %d, want %d", total, accepted)
		}
		if want := g.Players()[accepted%2].ID; g.CurrentPlayer() != want {
			t.Fatalf("after %d drops current player = %q, want %q", accepted, g.CurrentPlayer(), want)
		}
	}
}

func TestSettledBlocksRestWithoutOverlap(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), rand.New(rand.NewSource(5)))
	xs := []float64{150, 120, 180, 150, 135, 165}
	for _, x := range xs {
		dropAndSettle(t, g, x)
		if g.Phase() != Playing {
			break
		}
		last := g.Settled()[len(g.Settled())-1].Body
		if last.Bottom() > 500+physics.Epsilon {
			t.Fatalf("block bottom %v below ground", last.Bottom())
		}
	}
	settled := g.Settled()
	for i := range settled {
		for j := i + 1; j < len(settled); j++ {
			a, b := settled[i].Body, settled[j].Body
			if math.Min(a.Right(), b.Right())-math.Max(a.Left(), b.Left()) <= physics.Epsilon {
				continue
			}
			if v := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Top(), b.Top()); v > 1e-6 {
				t.Fatalf("blocks %d and %d overlap vertically by %v", a.ID, b.ID, v)
			}
		}
	}
}

func TestScoreFollowsCategory(t *testing.T) {
	// Sticky(2) 给玩家 1，Stable(3) 给玩家 2
	g := newTestGame(t, DefaultConfig(), &seqRand{ints: []int{1, 2, 2, 2}})
	dropAndSettle(t, g, 150)
	dropAndSettle(t, g, 150)
	if g.Score("1") != 2 || g.Score("2") != 3 {
		t.Fatalf("scores = %v/%v, want 2/3", g.Score("1"), g.Score("2"))
	}
}

func TestFastBlockSettlesSooner(t *testing.T) {
	ticks := func(rng Rand) int {
		g := newTestGame(t, DefaultConfig(), rng)
		if ok, err := g.DropAt(150); !ok || err != nil {
			t.Fatalf("DropAt: %v %v", ok, err)
		}
		return stepUntil(t, g, func() bool { return !g.Falling() })
	}
	normal := ticks(&seqRand{ints: []int{0, 2}})
	fast := ticks(&seqRand{ints: []int{3, 2}})
	if fast >= normal {
		t.Fatalf("fast block took %d ticks, normal %d", fast, normal)
	}
}

func TestInvalidDropIsRecoverable(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), nil)
	ok, err := g.DropAt(-5)
	if ok || !errors.Is(err, ErrInvalidDropX) {
		t.Fatalf("DropAt(-5) = %v, %v", ok, err)
	}
	if g.Falling() || g.World().Len() != 0 {
		t.Fatalf("invalid drop changed the game")
	}
	if ok, err := g.DropAt(150); !ok || err != nil {
		t.Fatalf("valid drop after invalid one = %v, %v", ok, err)
	}
}

func TestFallThroughEndsGameImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroundLeft, cfg.GroundRight = 100, 200
	g := newTestGame(t, cfg, nil)
	if ok, err := g.DropAt(30); !ok || err != nil {
		t.Fatalf("DropAt: %v %v", ok, err)
	}
	sawCollapsing := false
	stepUntil(t, g, func() bool {
		sawCollapsing = sawCollapsing || g.Phase() == Collapsing
		return g.Phase() == GameOver
	})
	if sawCollapsing {
		t.Fatalf("fall-through must bypass the collapsing phase")
	}
	if w, ok := g.Winner(); !ok || w != "2" {
		t.Fatalf("winner = %q (%v), want 2", w, ok)
	}
}

func TestFallThroughCountsTheDrop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroundLeft, cfg.GroundRight = 100, 200
	g := newTestGame(t, cfg, nil)
	dropAndSettle(t, g, 150)
	if ok, err := g.DropAt(30); !ok || err != nil {
		t.Fatalf("DropAt: %v %v", ok, err)
	}
	stepUntil(t, g, func() bool { return g.Phase() == GameOver })

	total := g.DropCount("1") + g.DropCount("2")
	if total != 2 {
		t.Fatalf("sum of drop counts = %d, want 2 accepted drops", total)
	}
	if got := g.DropCount("2"); got != 1 {
		t.Fatalf("player 2 drops = %d, want 1", got)
	}
	if got := g.Score("2"); got != 0 {
		t.Fatalf("fallen block scored %v", got)
	}
}

func leanConfig() Config {
	cfg := DefaultConfig()
	cfg.NearTopY = 1000
	cfg.MinLeanHeight = 0
	return cfg
}

func TestLeanCollapseAnimatesThenEnds(t *testing.T) {
	cfg := leanConfig()
	g := newTestGame(t, cfg, nil)
	dropAndSettle(t, g, 20)
	if g.Phase() != Playing {
		t.Fatalf("one block cannot lean, phase = %s", g.Phase())
	}
	dropAndSettle(t, g, 20)
	if g.Phase() != Collapsing {
		t.Fatalf("phase = %s, want collapsing", g.Phase())
	}
	if _, ok := g.Winner(); ok {
		t.Fatalf("winner must be set only at game over")
	}
	if ok, err := g.DropAt(150); ok || err != nil {
		t.Fatalf("drop during collapse = %v, %v", ok, err)
	}

	before := g.Settled()[0].Body.Pos
	for i := 1; i < cfg.CollapseTicks; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if g.Phase() != Collapsing {
			t.Fatalf("collapse ended after %d ticks, want %d", i, cfg.CollapseTicks)
		}
	}
	if after := g.Settled()[0].Body.Pos; after.Y <= before.Y {
		t.Fatalf("collapse should shake blocks downwards: %v -> %v", before, after)
	}
	if err := g.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if g.Phase() != GameOver {
		t.Fatalf("phase = %s, want game_over", g.Phase())
	}
	// 第二块由玩家 2 放下并引发坍塌
	if w, _ := g.Winner(); w != "1" {
		t.Fatalf("winner = %q, want 1", w)
	}
}

func TestResetAfterGameOver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroundLeft, cfg.GroundRight = 100, 200
	g := newTestGame(t, cfg, nil)
	dropAndSettle(t, g, 150)
	g.DropAt(30)
	stepUntil(t, g, func() bool { return g.Phase() == GameOver })

	if ok, err := g.DropAt(150); ok || err != nil {
		t.Fatalf("drop after game over = %v, %v", ok, err)
	}
	if g.Nudge(10) || g.Rotate() || g.Hurry() {
		t.Fatalf("movement accepted after game over")
	}

	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if g.Phase() != Playing || len(g.Settled()) != 0 || g.World().Len() != 0 {
		t.Fatalf("reset left state behind: phase=%s settled=%d bodies=%d", g.Phase(), len(g.Settled()), g.World().Len())
	}
	for _, p := range g.Players() {
		if g.Score(p.ID) != 0 || g.DropCount(p.ID) != 0 {
			t.Fatalf("player %s not cleared", p.ID)
		}
	}
	if g.CurrentPlayer() != "1" {
		t.Fatalf("current player = %q, want 1", g.CurrentPlayer())
	}
	if _, ok := g.Winner(); ok {
		t.Fatalf("winner survived reset")
	}
	if g.World().QueryRestY(150, 30) != cfg.FieldHeight {
		t.Fatalf("ground not re-added")
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() Snapshot {
		g := newTestGame(t, DefaultConfig(), rand.New(rand.NewSource(42)))
		for _, x := range []float64{150, 110, 190, 150, 130, 170, 150} {
			if g.Phase() != Playing {
				break
			}
			g.Nudge(10)
			g.DropAt(x)
			stepUntil(t, g, func() bool { return !g.Falling() })
		}
		for i := 0; i < 40; i++ {
			g.Step()
		}
		return g.Snapshot()
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("replays diverged:\n%+v\n%+v", a, b)
	}
}

func TestNudgeRotateHurry(t *testing.T) {
	// Normal、缩放 1.0（60x60），然后 Normal、0.5
	g := newTestGame(t, DefaultConfig(), &seqRand{ints: []int{0, 2, 0, 0}})
	c := g.Current().Body
	x0 := c.Center().X
	if !g.Nudge(10) || c.Center().X != x0+10 {
		t.Fatalf("nudge did not move held block: %v -> %v", x0, c.Center().X)
	}
	if !g.Nudge(-1000) || c.Left() != 0 {
		t.Fatalf("nudge should clamp at the left edge, left=%v", c.Left())
	}
	if g.Nudge(-10) {
		t.Fatalf("nudge against the wall should be ignored")
	}
	if !g.Rotate() || math.Abs(c.Angle-math.Pi/2) > 1e-9 {
		t.Fatalf("rotate angle = %v", c.Angle)
	}
	if g.Hurry() {
		t.Fatalf("hurry applies only to a falling block")
	}

	g.DropAt(150)
	y0 := c.Pos.Y
	if !g.Hurry() || c.Pos.Y != y0+DefaultConfig().BaseSize {
		t.Fatalf("hurry moved %v, want one base size", c.Pos.Y-y0)
	}
	for g.Hurry() {
	}
	if math.Abs(c.Bottom()-500) > 1e-6 {
		t.Fatalf("hurry must stop at the rest surface, bottom=%v", c.Bottom())
	}
	if err := g.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if g.Falling() || len(g.Settled()) != 1 {
		t.Fatalf("block at its rest surface should settle on the next tick")
	}
}

func TestNudgeBlockedByNeighbourWhileFalling(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), &seqRand{ints: []int{0, 4, 0, 0}})
	dropAndSettle(t, g, 45) // 90x90 靠左
	g.DropAt(200)           // 30x30
	c := g.Current().Body
	for c.Bottom() < 450 {
		g.Step()
	}
	x := c.Center().X
	for i := 0; i < 20; i++ {
		g.Nudge(-10)
	}
	if c.Left() < 90-physics.Epsilon {
		t.Fatalf("falling block pushed into neighbour: left=%v (was center %v)", c.Left(), x)
	}
}

func TestApplyDispatchesCommands(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), nil)
	x0 := g.Current().Body.Center().X
	if ok, _ := g.Apply(Command{Kind: CmdNudge, DX: -10}); !ok || g.Current().Body.Center().X != x0-10 {
		t.Fatalf("nudge command not applied")
	}
	if ok, err := g.Apply(Command{Kind: CmdDrop, X: 400}); ok || !errors.Is(err, ErrInvalidDropX) {
		t.Fatalf("invalid drop command = %v, %v", ok, err)
	}
	if ok, _ := g.Apply(Command{Kind: CmdDrop, X: 150}); !ok || !g.Falling() {
		t.Fatalf("drop command not applied")
	}
	if ok, _ := g.Apply(Command{Kind: CmdNone}); ok {
		t.Fatalf("empty command applied")
	}
	if ok, err := g.Apply(Command{Kind: CmdReset}); !ok || err != nil || g.Falling() {
		t.Fatalf("reset command = %v, %v", ok, err)
	}
	if ParseCommandKind("hurry") != CmdHurry || ParseCommandKind("jump") != CmdNone {
		t.Fatalf("ParseCommandKind mismatch")
	}
}

func TestReconfigureAppliesOnReset(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), nil)
	cfg := DefaultConfig()
	cfg.Players = []Player{{ID: "alice"}, {ID: "bob"}}
	if err := g.Reconfigure(cfg); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if g.CurrentPlayer() != "1" {
		t.Fatalf("reconfigure must wait for reset")
	}
	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if g.CurrentPlayer() != "alice" {
		t.Fatalf("current player = %q, want alice", g.CurrentPlayer())
	}
	bad := DefaultConfig()
	bad.TickRate = 0
	if err := g.Reconfigure(bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), &seqRand{ints: []int{2, 2}})
	dropAndSettle(t, g, 150)
	s := g.Snapshot()
	if s.Phase != "playing" || s.CurrentPlayer != "2" || s.Winner != "" {
		t.Fatalf("snapshot header = %+v", s)
	}
	if len(s.Players) != 2 || s.Players[0].ID != "1" || s.Players[0].Score != 3 || s.Players[0].Drops != 1 {
		t.Fatalf("players = %+v", s.Players)
	}
	if len(s.Settled) != 1 || s.Settled[0].Glyph != "親" || s.Settled[0].Category != "stable" {
		t.Fatalf("settled = %+v", s.Settled)
	}
	if s.Current == nil || s.Current.Falling {
		t.Fatalf("expected held current block, got %+v", s.Current)
	}
	s.Settled[0].X = -999
	if g.Settled()[0].Body.Pos.X == -999 {
		t.Fatalf("snapshot shares state with the game")
	}
}

func TestRigidFidelityGame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fidelity = "rigid"
	g := newTestGame(t, cfg, &seqRand{ints: []int{0, 2}})
	dropAndSettle(t, g, 150)
	if len(g.Settled()) != 1 || g.Score("1") != 1 {
		t.Fatalf("rigid drop not committed: settled=%d score=%v", len(g.Settled()), g.Score("1"))
	}
	if b := g.Settled()[0].Body.Bottom(); b < 498 || b > 501 {
		t.Fatalf("rigid block bottom = %v, want ≈500", b)
	}
}

func TestTickCountsStepsAndResets(t *testing.T) {
	g := newTestGame(t, DefaultConfig(), nil)
	for i := 0; i < 5; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if g.Tick() != 5 || g.Snapshot().Tick != 5 {
		t.Fatalf("tick = %d (snapshot %d), want 5", g.Tick(), g.Snapshot().Tick)
	}
	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if g.Tick() != 0 {
		t.Fatalf("tick after reset = %d", g.Tick())
	}
}
