package stack

import "math"

// BlockState 渲染端读取的块状态，X/Y 为未旋转盒子的左上角
type BlockState struct {
	ID       uint64   `json:"id" msgpack:"id"`
	X        float64  `json:"x" msgpack:"x"`
	Y        float64  `json:"y" msgpack:"y"`
	W        float64  `json:"w" msgpack:"w"`
	H        float64  `json:"h" msgpack:"h"`
	Angle    float64  `json:"angle" msgpack:"angle"`
	Owner    PlayerID `json:"owner" msgpack:"owner"`
	Category string   `json:"category" msgpack:"category"`
	Glyph    string   `json:"glyph" msgpack:"glyph"`
	Scale    float64  `json:"scale" msgpack:"scale"`
	Falling  bool     `json:"falling,omitempty" msgpack:"falling,omitempty"`
}

// PlayerScore 按玩家顺序排列的得分
type PlayerScore struct {
	Player
	Score float64 `json:"score" msgpack:"score"`
	Drops int     `json:"drops" msgpack:"drops"`
}

// Snapshot 每帧只读快照
type Snapshot struct {
	Tick          uint64        `json:"tick" msgpack:"tick"`
	Phase         string        `json:"phase" msgpack:"phase"`
	CurrentPlayer PlayerID      `json:"currentPlayer" msgpack:"currentPlayer"`
	Winner        PlayerID      `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Players       []PlayerScore `json:"players" msgpack:"players"`
	Settled       []BlockState  `json:"settled" msgpack:"settled"`
	Current       *BlockState   `json:"current,omitempty" msgpack:"current,omitempty"`
	FieldWidth    float64       `json:"fieldWidth" msgpack:"fieldWidth"`
	FieldHeight   float64       `json:"fieldHeight" msgpack:"fieldHeight"`
	CameraY       float64       `json:"cameraY" msgpack:"cameraY"`
}

// Snapshot 复制当前状态，返回值与游戏不共享可变数据
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Tick:          g.tick,
		Phase:         g.phase.String(),
		CurrentPlayer: g.CurrentPlayer(),
		Players:       make([]PlayerScore, 0, len(g.cfg.Players)),
		Settled:       make([]BlockState, 0, len(g.settled)),
		FieldWidth:    g.cfg.FieldWidth,
		FieldHeight:   g.cfg.FieldHeight,
	}
	if g.won {
		s.Winner = g.winner
	}
	for _, p := range g.cfg.Players {
		s.Players = append(s.Players, PlayerScore{Player: p, Score: g.scores[p.ID], Drops: g.drops[p.ID]})
	}
	minY := math.Inf(1)
	for _, b := range g.settled {
		s.Settled = append(s.Settled, g.blockState(b))
		minY = math.Min(minY, b.Body.Top())
	}
	if g.current != nil {
		bs := g.blockState(g.current)
		bs.Falling = g.falling
		s.Current = &bs
	}
	if !math.IsInf(minY, 1) {
		// 塔顶高过 CameraMargin 时整体下移，塔顶与其上方的悬停块留在视野内
		s.CameraY = math.Max(0, g.cfg.CameraMargin-minY)
	}
	return s
}

func (g *Game) blockState(b *Block) BlockState {
	return BlockState{
		ID:       b.Body.ID,
		X:        b.Body.Pos.X,
		Y:        b.Body.Pos.Y,
		W:        b.Body.Width,
		H:        b.Body.Height,
		Angle:    b.Body.Angle,
		Owner:    b.Owner,
		Category: b.Category.String(),
		Glyph:    g.cfg.Glyph(b.Category),
		Scale:    b.Scale,
	}
}
