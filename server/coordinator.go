package server

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"tickarena/game"
)

// ErrCoordinatorClosed 协调器已停止，请求无法送达
var ErrCoordinatorClosed = errors.New("coordinator closed")

// 邮箱中的请求种类（封闭集合，dispatch 中逐一处理）
type (
	joinRequest struct {
		outbox Outbox
		reply  chan game.PlayerID
	}
	disconnectRequest struct {
		id game.PlayerID
	}
	inputRequest struct {
		id    game.PlayerID
		input game.Input
	}
	tickRequest      struct{}
	listRoomsRequest struct {
		reply chan []string
	}
	joinRoomRequest struct {
		id   game.PlayerID
		name string
	}
	tuningRequest struct {
		set   *game.Tuning // nil 表示只读
		reply chan tuningReply
	}
	inspectRequest struct {
		fn   func()
		done chan struct{}
	}
)

type tuningReply struct {
	tuning game.Tuning
	err    error
}

// CoordinatorOptions 协调器构造参数
type CoordinatorOptions struct {
	TickInterval time.Duration // 0 不启动定时器，由调用方 Tick()
	MailboxSize  int
	Seed         int64 // 0 使用当前时间
	Tuning       game.Tuning
	Codec        SnapshotCodec
	Visitors     *VisitorCounter
	Metrics      *Metrics
}

// Coordinator 世界权威：独占实体表、会话注册表与房间表，
// 所有修改都经由邮箱在 Run 协程中串行执行，因此无需加锁。
type Coordinator struct {
	mailbox chan any
	done    chan struct{}

	world    *game.World
	sessions registry
	rooms    *roomSet
	rng      *rand.Rand
	codec    SnapshotCodec

	visitors *VisitorCounter
	metrics  *Metrics

	tickInterval time.Duration
	tickSeq      uint64
}

func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 4096
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Tuning == (game.Tuning{}) {
		opts.Tuning = game.DefaultTuning()
	}
	if opts.Codec == nil {
		opts.Codec = jsonCodec{}
	}
	if opts.Visitors == nil {
		opts.Visitors = &VisitorCounter{}
	}
	if opts.Metrics == nil {
		opts.Metrics = &Metrics{}
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Coordinator{
		mailbox:      make(chan any, opts.MailboxSize),
		done:         make(chan struct{}),
		world:        game.NewWorld(rng, opts.Tuning),
		sessions:     make(registry),
		rooms:        newRoomSet(),
		rng:          rng,
		codec:        opts.Codec,
		visitors:     opts.Visitors,
		metrics:      opts.Metrics,
		tickInterval: opts.TickInterval,
	}
}

func (c *Coordinator) Metrics() *Metrics         { return c.metrics }
func (c *Coordinator) Visitors() *VisitorCounter { return c.visitors }
func (c *Coordinator) MessageType() int          { return c.codec.MessageType() }
func (c *Coordinator) Done() <-chan struct{}     { return c.done }

// Run 处理邮箱直到 ctx 取消。只能调用一次。
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	c.startTicker(ctx)
	Log.Infow("coordinator started", "tick", c.tickInterval, "codec", c.codec.Name())
	for {
		select {
		case <-ctx.Done():
			Log.Infow("coordinator stopped", "players", c.world.Len(), "ticks", c.tickSeq)
			return ctx.Err()
		case req := <-c.mailbox:
			c.dispatch(req)
		}
	}
}

// dispatch 单个请求的处理不允许拖垮整个协调器
func (c *Coordinator) dispatch(req any) {
	defer func() {
		if r := recover(); r != nil {
			Log.Errorw("coordinator recovered from panic", "request", req, "panic", r)
		}
	}()
	switch r := req.(type) {
	case joinRequest:
		r.reply <- c.handleJoin(r.outbox)
	case disconnectRequest:
		c.handleDisconnect(r.id)
	case inputRequest:
		// 会话与断开竞争时 id 可能已不存在，直接忽略
		c.world.SetInput(r.id, r.input)
	case tickRequest:
		c.handleTick()
	case listRoomsRequest:
		r.reply <- c.rooms.names()
	case joinRoomRequest:
		if _, ok := c.sessions[r.id]; ok {
			left := c.rooms.join(r.name, r.id)
			Log.Debugw("player changed room", "id", r.id, "room", r.name, "left", left)
		}
	case tuningRequest:
		r.reply <- c.handleTuning(r.set)
	case inspectRequest:
		r.fn()
		close(r.done)
	default:
		Log.Warnw("coordinator received unknown request", "type", req)
	}
}

func (c *Coordinator) handleJoin(out Outbox) game.PlayerID {
	id := c.newID()
	c.sessions[id] = out
	c.world.Spawn(id)
	c.rooms.join(defaultRoom, id)
	visitors := c.visitors.Inc()
	c.metrics.SetPlayers(len(c.sessions))
	Log.Infow("player joined", "id", id, "visitors", visitors)
	return id
}

// newID 随机非零 id，在线会话内唯一
func (c *Coordinator) newID() game.PlayerID {
	for {
		id := game.PlayerID(c.rng.Uint64())
		if id == 0 {
			continue
		}
		if _, taken := c.sessions[id]; !taken {
			return id
		}
	}
}

// handleDisconnect 会话与玩家同时移除；重复断开为空操作
func (c *Coordinator) handleDisconnect(id game.PlayerID) {
	if _, ok := c.sessions[id]; !ok {
		return
	}
	delete(c.sessions, id)
	c.world.Remove(id)
	c.rooms.leave(id)
	visitors := c.visitors.Dec()
	c.metrics.SetPlayers(len(c.sessions))
	Log.Infow("player left", "id", id, "visitors", visitors)
}

// handleTick 推进世界并广播快照；编码失败只跳过本次广播
func (c *Coordinator) handleTick() {
	if c.world.Len() == 0 {
		return
	}
	start := time.Now()
	c.world.Step()
	c.tickSeq++

	payload, err := c.codec.Encode(c.world.Snapshot())
	if err != nil {
		c.metrics.IncBroadcastsSkipped()
		Log.Errorw("snapshot encode failed, broadcast skipped", "tick", c.tickSeq, "err", err)
	} else {
		c.sessions.broadcast(payload)
	}
	c.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (c *Coordinator) handleTuning(set *game.Tuning) tuningReply {
	if set == nil {
		return tuningReply{tuning: c.world.Tuning()}
	}
	if err := set.Validate(); err != nil {
		return tuningReply{tuning: c.world.Tuning(), err: err}
	}
	c.world.SetTuning(*set)
	Log.Infow("tuning updated", "tuning", *set)
	return tuningReply{tuning: *set}
}

// Join 注册会话并创建玩家，阻塞直到协调器分配 id
func (c *Coordinator) Join(ctx context.Context, out Outbox) (game.PlayerID, error) {
	reply := make(chan game.PlayerID, 1)
	if err := c.send(ctx, joinRequest{outbox: out, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case id := <-reply:
		return id, nil
	case <-ctx.Done():
		// 请求已入队：稍后分配的 id 无人认领，收到后立即注销
		go func() {
			select {
			case id := <-reply:
				c.Disconnect(id)
			case <-c.done:
			}
		}()
		return 0, ctx.Err()
	case <-c.done:
		return 0, ErrCoordinatorClosed
	}
}

// Disconnect 保证送达（协调器停止时放弃），不等待处理结果
func (c *Coordinator) Disconnect(id game.PlayerID) {
	select {
	case c.mailbox <- disconnectRequest{id: id}:
	case <-c.done:
	}
}

// Input 不阻塞：邮箱满时丢弃，下一条输入会覆盖旧输入
func (c *Coordinator) Input(id game.PlayerID, in game.Input) {
	select {
	case c.mailbox <- inputRequest{id: id, input: in}:
		c.metrics.IncInputsAccepted()
	default:
		c.metrics.IncInputsDropped()
	}
}

// Tick 投递一次模拟推进；定时器与手动步进都走这里
func (c *Coordinator) Tick() {
	select {
	case c.mailbox <- tickRequest{}:
	default:
		c.metrics.IncTicksDropped()
	}
}

func (c *Coordinator) ListRooms(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := c.send(ctx, listRoomsRequest{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rooms := <-reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrCoordinatorClosed
	}
}

func (c *Coordinator) JoinRoom(id game.PlayerID, name string) {
	select {
	case c.mailbox <- joinRoomRequest{id: id, name: name}:
	case <-c.done:
	}
}

func (c *Coordinator) Tuning(ctx context.Context) (game.Tuning, error) {
	return c.tuning(ctx, nil)
}

// SetTuning 校验并替换调参，返回生效后的值
func (c *Coordinator) SetTuning(ctx context.Context, t game.Tuning) (game.Tuning, error) {
	return c.tuning(ctx, &t)
}

func (c *Coordinator) tuning(ctx context.Context, set *game.Tuning) (game.Tuning, error) {
	reply := make(chan tuningReply, 1)
	if err := c.send(ctx, tuningRequest{set: set, reply: reply}); err != nil {
		return game.Tuning{}, err
	}
	select {
	case r := <-reply:
		return r.tuning, r.err
	case <-ctx.Done():
		return game.Tuning{}, ctx.Err()
	case <-c.done:
		return game.Tuning{}, ErrCoordinatorClosed
	}
}

// inspect 在协调器协程中执行 fn（用于读取一致的内部状态）
func (c *Coordinator) inspect(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := c.send(ctx, inspectRequest{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrCoordinatorClosed
	}
}

// Sessions 返回当前在线的 session id
func (c *Coordinator) Sessions(ctx context.Context) ([]game.PlayerID, error) {
	var ids []game.PlayerID
	err := c.inspect(ctx, func() { ids = c.sessions.ids() })
	return ids, err
}

func (c *Coordinator) send(ctx context.Context, req any) error {
	select {
	case c.mailbox <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrCoordinatorClosed
	}
}
