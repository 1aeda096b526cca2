package server

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 世界推进频率（60 TPS，约 16.7ms）
	TicksPerSecond = 60
)

// startTicker 启动定时器，按固定间隔向邮箱投递 Tick。
// Tick 与其他请求走同一个邮箱，模拟推进与输入应用不会交错。
func (c *Coordinator) startTicker(ctx context.Context) {
	if c.tickInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Tick()
			}
		}
	}()
}
