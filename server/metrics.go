package server

import (
	"sync/atomic"
)

// TableMetrics 记录牌桌运行期的关键指标（用于监控与调试）
type TableMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 被游戏接受的输入数
	InputsIgnored     int64 // 阶段不符或来自观众而被忽略的输入数
	InvalidDrops      int64 // 落点越界的输入数
	RateLimited       int64 // 因同帧限流顺延到下一帧的次数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	Settles           int64 // 落定的块数
	Collapses         int64 // 进入坍塌动画的次数
	GamesFinished     int64 // 结束的对局数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *TableMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *TableMetrics) IncIgnored()           { atomic.AddInt64(&m.InputsIgnored, 1) }
func (m *TableMetrics) IncInvalidDrop()       { atomic.AddInt64(&m.InvalidDrops, 1) }
func (m *TableMetrics) IncRateLimited()       { atomic.AddInt64(&m.RateLimited, 1) }
func (m *TableMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *TableMetrics) AddSettles(n int)      { atomic.AddInt64(&m.Settles, int64(n)) }
func (m *TableMetrics) IncCollapses()         { atomic.AddInt64(&m.Collapses, 1) }
func (m *TableMetrics) IncGamesFinished()     { atomic.AddInt64(&m.GamesFinished, 1) }
func (m *TableMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *TableMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"inputs_ignored":      atomic.LoadInt64(&m.InputsIgnored),
		"invalid_drops":       atomic.LoadInt64(&m.InvalidDrops),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"settles":             atomic.LoadInt64(&m.Settles),
		"collapses":           atomic.LoadInt64(&m.Collapses),
		"games_finished":      atomic.LoadInt64(&m.GamesFinished),
		"avg_tick_ms":         avgMs,
	}
}
