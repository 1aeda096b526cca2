package server

import (
	"sync/atomic"
)

// Metrics 记录协调器与会话运行期的关键指标（HTTP 端读取，原子访问）
type Metrics struct {
	TickCount         int64 // 实际推进的 Tick 次数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
	InputsAccepted    int64 // 进入邮箱的输入数
	InputsRejected    int64 // 解析失败的输入数
	InputsDropped     int64 // 因邮箱满被丢弃的输入数
	TicksDropped      int64 // 因邮箱满未能投递的 Tick
	FramesDropped     int64 // 因会话发送队列满被丢弃的广播帧
	BroadcastsSkipped int64 // 快照编码失败而跳过的广播
	Players           int64 // 当前在线玩家
}

func (m *Metrics) IncInputsAccepted()    { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncInputsRejected()    { atomic.AddInt64(&m.InputsRejected, 1) }
func (m *Metrics) IncInputsDropped()     { atomic.AddInt64(&m.InputsDropped, 1) }
func (m *Metrics) IncTicksDropped()      { atomic.AddInt64(&m.TicksDropped, 1) }
func (m *Metrics) IncFramesDropped()     { atomic.AddInt64(&m.FramesDropped, 1) }
func (m *Metrics) IncBroadcastsSkipped() { atomic.AddInt64(&m.BroadcastsSkipped, 1) }
func (m *Metrics) SetPlayers(n int)      { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":         tick,
		"inputs_accepted":    atomic.LoadInt64(&m.InputsAccepted),
		"inputs_rejected":    atomic.LoadInt64(&m.InputsRejected),
		"inputs_dropped":     atomic.LoadInt64(&m.InputsDropped),
		"ticks_dropped":      atomic.LoadInt64(&m.TicksDropped),
		"frames_dropped":     atomic.LoadInt64(&m.FramesDropped),
		"broadcasts_skipped": atomic.LoadInt64(&m.BroadcastsSkipped),
		"players":            atomic.LoadInt64(&m.Players),
		"avg_tick_ms":        avgMs,
	}
}

// VisitorCounter 全局在线访客计数：仅协调器的 Join/Disconnect 修改，
// 计数接口只读
type VisitorCounter struct {
	n atomic.Int64
}

func (v *VisitorCounter) Inc() int64  { return v.n.Add(1) }
func (v *VisitorCounter) Dec() int64  { return v.n.Add(-1) }
func (v *VisitorCounter) Load() int64 { return v.n.Load() }
