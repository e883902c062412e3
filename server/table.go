package server

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"friendstack/config"
	"friendstack/stack"
)

// Table 一张牌桌：权威游戏状态维护在内存，单线程 Tick 推进
type Table struct {
	ID string

	game    *stack.Game
	clients map[ClientID]*Client
	order   []ClientID // 加入顺序，操作者离开时按此顺序移交
	control ClientID

	inputChan chan Input
	joinChan  chan *Client
	leaveChan chan ClientID
	cfgChan   chan stack.Config

	tickRate         int
	broadcastEvery   uint64
	maxInputsPerTick atomic.Int64
	tickSeq          atomic.Uint64
	phase            atomic.Int32
	gameCfg          atomic.Pointer[stack.Config] // 最近一次请求的配置（待生效或已生效）

	metrics *TableMetrics
	log     *zap.SugaredLogger

	tickerStarted bool
	quit          chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
}

// NewTable 创建牌桌并开始第一局
func NewTable(id string, cfg config.Config, rng stack.Rand) (*Table, error) {
	logger := Log.Desugar().With(zap.String("table", id))
	game, err := stack.New(cfg.Game, rng, stack.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	t := &Table{
		ID:        id,
		game:      game,
		clients:   make(map[ClientID]*Client),
		inputChan: make(chan Input, cfg.Server.InputBuffer), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:  make(chan *Client, 64),
		leaveChan: make(chan ClientID, 64),
		cfgChan:   make(chan stack.Config, 4),
		tickRate:  cfg.Game.TickRate,
		metrics:   &TableMetrics{},
		log:       logger.Sugar(),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	// 广播频率约 30Hz，模拟频率更高时隔帧发送
	t.broadcastEvery = uint64(max(1, t.tickRate/30))
	t.maxInputsPerTick.Store(int64(cfg.Server.MaxInputsPerTick))
	gc := cfg.Game
	t.gameCfg.Store(&gc)
	t.phase.Store(int32(game.Phase()))
	return t, nil
}

// Join 请求在 Tick 线程中加入连接，牌桌已停止时返回 false
func (t *Table) Join(c *Client) bool {
	select {
	case t.joinChan <- c:
		return true
	case <-t.quit:
		return false
	}
}

// RequestLeave 请求在 Tick 线程中移除连接，避免并发改动牌桌状态
func (t *Table) RequestLeave(id ClientID) {
	// 为保证移除一定生效，这里采用阻塞式写入（通道有容量，避免死锁）
	select {
	case t.leaveChan <- id:
	case <-t.quit:
	}
}

// OnInput 入站输入（不立即改变状态），仅记录意图，等下一次 Tick 处理
func (t *Table) OnInput(in Input) {
	// 不阻塞：输入拥塞时直接丢弃，保证 Tick 准时
	select {
	case t.inputChan <- in:
	default:
		t.metrics.IncChanFullDiscarded()
	}
}

// RequestConfig 校验新的游戏配置，下一次重开时生效。Tick 频率固定为建桌时的值。
func (t *Table) RequestConfig(cfg stack.Config) error {
	cfg.TickRate = t.tickRate
	if err := cfg.Validate(); err != nil {
		return err
	}
	t.gameCfg.Store(&cfg)
	select {
	case t.cfgChan <- cfg:
		return nil
	default:
		return errors.New("table: config queue full")
	}
}

// GameConfig 最近一次请求的游戏配置
func (t *Table) GameConfig() stack.Config { return *t.gameCfg.Load() }

func (t *Table) SetMaxInputsPerTick(n int) { t.maxInputsPerTick.Store(int64(n)) }

func (t *Table) MaxInputsPerTick() int { return int(t.maxInputsPerTick.Load()) }

func (t *Table) Metrics() *TableMetrics { return t.metrics }

// TickSeq 已执行的 Tick 数（与每局的游戏 tick 不同，重开不归零）
func (t *Table) TickSeq() uint64 { return t.tickSeq.Load() }

func (t *Table) Phase() stack.Phase { return stack.Phase(t.phase.Load()) }

// ProcessInputs 处理成员变更、配置与本帧的输入意图（非阻塞 drain）
func (t *Table) ProcessInputs() {
	for {
		select {
		case c := <-t.joinChan:
			t.addClient(c)
		case id := <-t.leaveChan:
			t.removeClient(id)
		case cfg := <-t.cfgChan:
			if err := t.game.Reconfigure(cfg); err != nil {
				t.log.Warnf("reconfigure rejected: %v", err)
			}
		default:
			t.drainInputs()
			return
		}
	}
}

// drainInputs 每帧至多处理 maxInputsPerTick 个输入，其余留到下一帧
func (t *Table) drainInputs() {
	limit := t.MaxInputsPerTick()
	for n := 0; n < limit; n++ {
		select {
		case in := <-t.inputChan:
			t.applyInput(in)
		default:
			return
		}
	}
	if len(t.inputChan) > 0 {
		t.metrics.IncRateLimited()
	}
}

func (t *Table) applyInput(in Input) {
	if in.ClientID != t.control || t.control == "" {
		t.metrics.IncIgnored()
		return
	}
	applied, err := t.game.Apply(in.Command)
	switch {
	case errors.Is(err, stack.ErrInvalidDropX):
		t.metrics.IncInvalidDrop()
		t.log.Debugf("invalid drop: client=%s seq=%d x=%.2f", in.ClientID, in.Seq, in.Command.X)
	case err != nil:
		t.log.Errorf("apply %s: %v", in.Command.Kind, err)
	case applied:
		t.metrics.IncAccepted()
	default:
		t.metrics.IncIgnored()
	}
}

// UpdateWorld 推进一步模拟，并统计落定、坍塌与结束
func (t *Table) UpdateWorld() {
	prevSettled := len(t.game.Settled())
	prevPhase := t.game.Phase()
	if err := t.game.Step(); err != nil {
		t.log.Errorf("step: %v", err)
	}
	if n := len(t.game.Settled()) - prevSettled; n > 0 {
		t.metrics.AddSettles(n)
	}
	phase := t.game.Phase()
	if phase != prevPhase {
		switch phase {
		case stack.Collapsing:
			t.metrics.IncCollapses()
			t.log.Infof("tower collapsing")
		case stack.GameOver:
			t.metrics.IncGamesFinished()
			winner, _ := t.game.Winner()
			t.log.Infof("game over: winner=%s ticks=%d", winner, t.game.Tick())
		}
	}
	t.phase.Store(int32(phase))
}

// Broadcast 将当前快照广播给所有连接，每种编码只序列化一次
func (t *Table) Broadcast() {
	if len(t.clients) == 0 {
		return
	}
	snap := t.game.Snapshot()
	encoded := make(map[Codec][]byte, 2)
	for _, c := range t.clients {
		b, ok := encoded[c.Codec]
		if !ok {
			var err error
			b, err = Encode(c.Codec, MsgState, snap)
			if err != nil {
				t.log.Errorf("encode snapshot (%s): %v", c.Codec, err)
				continue
			}
			encoded[c.Codec] = b
		}
		c.Conn.Enqueue(b)
	}
}

func (t *Table) addClient(c *Client) {
	c.Role = RoleViewer
	if t.control == "" {
		c.Role = RoleController
		t.control = c.ID
	}
	t.clients[c.ID] = c
	t.order = append(t.order, c.ID)
	t.log.Infof("client joined: id=%s name=%s role=%s codec=%s", c.ID, c.Name, c.Role, c.Codec)
	t.sendWelcome(c)
}

func (t *Table) removeClient(id ClientID) {
	c, ok := t.clients[id]
	if !ok {
		return
	}
	if c.Conn != nil {
		c.Conn.Close()
	}
	delete(t.clients, id)
	for i, cid := range t.order {
		if cid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.log.Infof("client left: id=%s", id)
	if t.control != id {
		return
	}
	t.control = ""
	if len(t.order) > 0 {
		next := t.clients[t.order[0]]
		next.Role = RoleController
		t.control = next.ID
		t.log.Infof("controller handed to %s", next.ID)
		t.sendWelcome(next)
	}
}

func (t *Table) sendWelcome(c *Client) {
	if c.Conn == nil {
		return
	}
	b, err := Encode(c.Codec, MsgWelcome, Welcome{
		ClientID: string(c.ID),
		Table:    t.ID,
		Role:     c.Role.String(),
		TickHz:   t.tickRate,
	})
	if err != nil {
		t.log.Errorf("encode welcome: %v", err)
		return
	}
	c.Conn.Enqueue(b)
}

// closeClients 关闭全部连接，仅在 Tick 线程退出时调用
func (t *Table) closeClients() {
	for id, c := range t.clients {
		if c.Conn != nil {
			c.Conn.Close()
		}
		delete(t.clients, id)
	}
	t.order = nil
	t.control = ""
}
