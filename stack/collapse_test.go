package stack

import "testing"

func TestLeanCollapsed(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		xs   []float64
		top  float64
		want bool
	}{
		{"leaning_left", []float64{20, 40}, 50, true},
		{"leaning_right", []float64{260, 280}, 50, true},
		{"centered", []float64{140, 160}, 50, false},
		{"single_top_block", []float64{20}, 50, false},
		{"short_tower", []float64{20, 40}, 400, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var blocks []*Block
			for _, x := range c.xs {
				blocks = append(blocks, blockAt(t, x, c.top, 30))
			}
			if got := LeanCollapsed(blocks, cfg); got != c.want {
				t.Fatalf("LeanCollapsed = %v, want %v", got, c.want)
			}
		})
	}
}

func TestLeanIgnoresBlocksBelowNearTop(t *testing.T) {
	cfg := DefaultConfig()
	blocks := []*Block{
		blockAt(t, 20, 300, 30), // 不在近顶区
		blockAt(t, 150, 60, 30),
		blockAt(t, 160, 30, 30),
	}
	if LeanCollapsed(blocks, cfg) {
		t.Fatalf("only near-top blocks should be averaged")
	}
}

func TestCollapseDetectorToggles(t *testing.T) {
	cfg := DefaultConfig()
	leaning := []*Block{blockAt(t, 20, 50, 30), blockAt(t, 40, 20, 30)}
	fallen := []*Block{blockAt(t, 150, 600, 30)}

	if !NewCollapseDetector(cfg).Check(leaning) {
		t.Fatalf("lean collapse should trigger with default config")
	}
	if b, ok := NewCollapseDetector(cfg).Fallen(fallen); !ok || b != fallen[0] {
		t.Fatalf("fall-through should report the fallen block")
	}

	cfg.LeanCollapse, cfg.FallThrough = false, false
	d := NewCollapseDetector(cfg)
	if d.Check(leaning) {
		t.Fatalf("lean collapse disabled but triggered")
	}
	if _, ok := d.Fallen(fallen); ok {
		t.Fatalf("fall-through disabled but triggered")
	}
}

func TestFallenBodyRequiresPassingFieldBottom(t *testing.T) {
	blocks := []*Block{blockAt(t, 150, 440, 60)}
	if _, ok := FallenBody(blocks, 500); ok {
		t.Fatalf("block resting on the ground is not fallen")
	}
}
