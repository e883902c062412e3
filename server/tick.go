package server

import "time"

// StartTicker 启动牌桌的 Tick 循环（单线程推进世界）
func (t *Table) StartTicker() {
	if t.tickerStarted {
		return
	}
	t.tickerStarted = true
	interval := time.Second / time.Duration(t.tickRate)
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.quit:
				t.closeClients()
				return
			case <-ticker.C:
				t.RunTick()
			}
		}
	}()
}

// RunTick 核心循环：处理输入 → 更新世界 → 广播结果
func (t *Table) RunTick() {
	start := time.Now()
	t.ProcessInputs()
	t.UpdateWorld()
	seq := t.tickSeq.Add(1)
	if seq%t.broadcastEvery == 0 {
		t.Broadcast()
	}
	t.metrics.AddTick(time.Since(start).Nanoseconds())
}

// Stop 停止 Tick 循环并等待其退出
func (t *Table) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
	if t.tickerStarted {
		<-t.done
	}
}
