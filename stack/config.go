package stack

import (
	"errors"
	"fmt"
	"math"

	"friendstack/physics"
)

// Config 游戏调参。零值不可用，从 DefaultConfig 开始修改。
type Config struct {
	FieldWidth   float64 `yaml:"field_width" json:"fieldWidth"`
	FieldHeight  float64 `yaml:"field_height" json:"fieldHeight"`
	BaseSize     float64 `yaml:"base_size" json:"baseSize"`         // 缩放 1.0 时的边长
	SpawnY       float64 `yaml:"spawn_y" json:"spawnY"`             // 新块底边的默认 y（视野上方）
	SpawnGap     float64 `yaml:"spawn_gap" json:"spawnGap"`         // 新块底边与塔顶的最小间距
	StartX       float64 `yaml:"start_x" json:"startX"`             // 新块的初始中心 x
	NudgeStep    float64 `yaml:"nudge_step" json:"nudgeStep"`       // 单次平移距离
	CameraMargin float64 `yaml:"camera_margin" json:"cameraMargin"` // 塔顶距视野上沿的最小距离

	TickRate int     `yaml:"tick_rate" json:"tickRate"`
	Gravity  float64 `yaml:"gravity" json:"gravity"`
	Fidelity string  `yaml:"fidelity" json:"fidelity"`

	GroundLeft     float64 `yaml:"ground_left" json:"groundLeft"`
	GroundRight    float64 `yaml:"ground_right" json:"groundRight"`
	GroundFriction float64 `yaml:"ground_friction" json:"groundFriction"`

	LeanCollapse  bool    `yaml:"lean_collapse" json:"leanCollapse"`
	FallThrough   bool    `yaml:"fall_through" json:"fallThrough"`
	NearTopY      float64 `yaml:"near_top_y" json:"nearTopY"`
	MinLeanHeight float64 `yaml:"min_lean_height" json:"minLeanHeight"`
	LeanThreshold float64 `yaml:"lean_threshold" json:"leanThreshold"`
	CollapseTicks int     `yaml:"collapse_ticks" json:"collapseTicks"`

	Players []Player          `yaml:"players" json:"players"`
	Glyphs  map[string]string `yaml:"glyphs,omitempty" json:"glyphs,omitempty"` // 种类名 -> 显示字形
}

// DefaultConfig 300x500 场地、60 像素基准块、60Hz
func DefaultConfig() Config {
	return Config{
		FieldWidth:   300,
		FieldHeight:  500,
		BaseSize:     60,
		SpawnY:       -10,
		SpawnGap:     40,
		StartX:       150,
		NudgeStep:    10,
		CameraMargin: 200,

		TickRate: 60,
		Gravity:  600,
		Fidelity: physics.FidelityLanding.String(),

		GroundLeft:     0,
		GroundRight:    300,
		GroundFriction: 1,

		LeanCollapse:  true,
		FallThrough:   true,
		NearTopY:      120,
		MinLeanHeight: 180,
		LeanThreshold: 60,
		CollapseTicks: 30,

		Players: []Player{
			{ID: "1", Name: "Player 1", Color: "blue"},
			{ID: "2", Name: "Player 2", Color: "red"},
		},
	}
}

// Validate 检查配置是否可用于创建游戏
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, v))
		}
	}
	positive("field_width", c.FieldWidth)
	positive("field_height", c.FieldHeight)
	positive("base_size", c.BaseSize)
	positive("gravity", c.Gravity)
	positive("nudge_step", c.NudgeStep)
	nonNegative := func(name string, v float64) {
		if !(v >= 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	nonNegative("spawn_gap", c.SpawnGap)
	nonNegative("camera_margin", c.CameraMargin)
	nonNegative("min_lean_height", c.MinLeanHeight)
	nonNegative("lean_threshold", c.LeanThreshold)
	nonNegative("ground_friction", c.GroundFriction)
	// 可为负的量只要求是有限值
	finite := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", name, v))
		}
	}
	finite("spawn_y", c.SpawnY)
	finite("start_x", c.StartX)
	finite("near_top_y", c.NearTopY)
	finite("ground_left", c.GroundLeft)
	finite("ground_right", c.GroundRight)
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate must be > 0, got %d", c.TickRate))
	}
	if c.CollapseTicks <= 0 {
		errs = append(errs, fmt.Errorf("collapse_ticks must be > 0, got %d", c.CollapseTicks))
	}
	if c.BaseSize*Scales[len(Scales)-1] > c.FieldWidth {
		errs = append(errs, fmt.Errorf("largest block (%v) wider than field (%v)", c.BaseSize*Scales[len(Scales)-1], c.FieldWidth))
	}
	if c.GroundRight <= c.GroundLeft {
		errs = append(errs, fmt.Errorf("ground_right (%v) must be > ground_left (%v)", c.GroundRight, c.GroundLeft))
	}
	if c.StartX < 0 || c.StartX > c.FieldWidth {
		errs = append(errs, fmt.Errorf("start_x %v outside field", c.StartX))
	}
	if _, err := physics.ParseFidelity(c.Fidelity); err != nil {
		errs = append(errs, err)
	}
	if len(c.Players) != 2 {
		errs = append(errs, fmt.Errorf("exactly 2 players required, got %d", len(c.Players)))
	} else if c.Players[0].ID == "" || c.Players[1].ID == "" || c.Players[0].ID == c.Players[1].ID {
		errs = append(errs, fmt.Errorf("player ids must be non-empty and distinct: %q %q", c.Players[0].ID, c.Players[1].ID))
	}
	for name := range c.Glyphs {
		if _, ok := ParseCategory(name); !ok {
			errs = append(errs, fmt.Errorf("glyphs: unknown category %q", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("stack: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DT 固定步长（秒）
func (c Config) DT() float64 {
	return 1.0 / float64(c.TickRate)
}

// Glyph 种类的显示字形，配置优先
func (c Config) Glyph(cat Category) string {
	if g, ok := c.Glyphs[cat.String()]; ok {
		return g
	}
	return cat.Spec().Glyph
}

func (c Config) ground() physics.Ground {
	g := physics.FlatGround(c.GroundLeft, c.GroundRight, c.FieldHeight)
	g.Friction = c.GroundFriction
	return g
}

func (c Config) worldOptions() physics.Options {
	opts := physics.DefaultOptions()
	opts.Gravity = physics.Vec2{Y: c.Gravity}
	opts.Fidelity, _ = physics.ParseFidelity(c.Fidelity)
	return opts
}
