package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"tickarena/game"
)

type chanOutbox chan []byte

func (o chanOutbox) Enqueue(b []byte) {
	select {
	case o <- b:
	default:
	}
}

type wireEntry struct {
	ID    uint64      `json:"id"`
	Shape string      `json:"shape_id"`
	Model [16]float32 `json:"model_matrix"`
	Anim  string      `json:"anim_state"`
}

func startCoordinator(t *testing.T, opts CoordinatorOptions) *Coordinator {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	c := NewCoordinator(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustJoin(t *testing.T, c *Coordinator, out Outbox) game.PlayerID {
	t.Helper()
	id, err := c.Join(testCtx(t), out)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	return id
}

func recvFrame(t *testing.T, o chanOutbox) []byte {
	t.Helper()
	select {
	case b := <-o:
		return b
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for broadcast")
		return nil
	}
}

func decodeEntries(t *testing.T, b []byte) map[uint64]wireEntry {
	t.Helper()
	var entries []wireEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, b)
	}
	out := make(map[uint64]wireEntry, len(entries))
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}

func playerPos(t *testing.T, c *Coordinator, id game.PlayerID) mgl32.Vec3 {
	t.Helper()
	var pos mgl32.Vec3
	var ok bool
	if err := c.inspect(testCtx(t), func() {
		var p *game.Player
		if p, ok = c.world.Player(id); ok {
			pos = p.Transform.Pos
		}
	}); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !ok {
		t.Fatalf("player %d not found", id)
	}
	return pos
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

var forward = game.Input{StepForward: true}

func TestTwoSessionsForwardThreeTicks(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{})
	outA, outB := make(chanOutbox, 8), make(chanOutbox, 8)
	a := mustJoin(t, c, outA)
	b := mustJoin(t, c, outB)
	if a == b {
		t.Fatalf("expected distinct ids")
	}
	spawnA, spawnB := playerPos(t, c, a), playerPos(t, c, b)

	var last []byte
	for i := 0; i < 3; i++ {
		c.Input(a, forward)
		c.Tick()
		last = recvFrame(t, outA)
		if got := recvFrame(t, outB); !reflect.DeepEqual(got, last) {
			t.Fatalf("tick %d: sessions received different snapshots", i)
		}
	}

	entries := decodeEntries(t, last)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	ea, eb := entries[uint64(a)], entries[uint64(b)]
	if ea.Shape != "Guy" || ea.Anim != "Walk" {
		t.Fatalf("unexpected entry for A: %+v", ea)
	}
	if !near(ea.Model[12], spawnA[0]) || !near(ea.Model[13], 0) || !near(ea.Model[14], spawnA[2]-3*0.05) {
		t.Fatalf("A translation %v, spawn %v", ea.Model[12:15], spawnA)
	}
	want := mgl32.Translate3D(spawnB[0], spawnB[1], spawnB[2])
	if !mgl32.Mat4(eb.Model).ApproxEqualThreshold(want, 1e-6) {
		t.Fatalf("B should be unchanged at spawn, got %v", eb.Model)
	}
}

func TestJoinDisconnectSymmetry(t *testing.T) {
	visitors := &VisitorCounter{}
	c := startCoordinator(t, CoordinatorOptions{Visitors: visitors})
	rng := rand.New(rand.NewSource(3))

	var live []game.PlayerID
	for step := 0; step < 200; step++ {
		switch op := rng.Intn(4); {
		case op < 2 || len(live) == 0:
			live = append(live, mustJoin(t, c, make(chanOutbox, 1)))
		case op == 2:
			i := rng.Intn(len(live))
			c.Disconnect(live[i])
			live = append(live[:i], live[i+1:]...)
		default:
			// 重复或未知 id 的断开必须是空操作
			c.Disconnect(game.PlayerID(rng.Uint64()))
		}
		if step%10 == 0 {
			c.Tick()
		}

		var sessions, players, members []game.PlayerID
		if err := c.inspect(testCtx(t), func() {
			sessions = c.sessions.ids()
			players = c.world.IDs()
			members = c.rooms.members(defaultRoom)
		}); err != nil {
			t.Fatalf("inspect: %v", err)
		}
		if !reflect.DeepEqual(sessions, players) {
			t.Fatalf("step %d: registry %v != entity table %v", step, sessions, players)
		}
		if !reflect.DeepEqual(sessions, members) {
			t.Fatalf("step %d: registry %v != main room %v", step, sessions, members)
		}
		if int(visitors.Load()) != len(live) || len(sessions) != len(live) {
			t.Fatalf("step %d: visitors=%d sessions=%d live=%d", step, visitors.Load(), len(sessions), len(live))
		}
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{})
	id := mustJoin(t, c, make(chanOutbox, 1))
	c.Disconnect(id)
	c.Disconnect(id)
	ids, err := c.Sessions(testCtx(t))
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(ids) != 0 || c.Visitors().Load() != 0 {
		t.Fatalf("expected empty registry and zero visitors, got %v / %d", ids, c.Visitors().Load())
	}
}

func TestInputForUnknownIDIgnored(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{})
	out := make(chanOutbox, 4)
	id := mustJoin(t, c, out)
	c.Input(id+1, forward)
	c.Tick()
	entries := decodeEntries(t, recvFrame(t, out))
	if len(entries) != 1 || entries[uint64(id)].Anim != "Idle" {
		t.Fatalf("unexpected snapshot %+v", entries)
	}
}

func TestTickWithEmptyTableIsNoop(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{})
	c.Tick()
	if _, err := c.Sessions(testCtx(t)); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if n := c.Metrics().Snapshot()["tick_count"]; n != int64(0) {
		t.Fatalf("expected no simulated ticks, got %v", n)
	}
}

type failingCodec struct{ panics bool }

func (failingCodec) Name() string     { return "failing" }
func (failingCodec) MessageType() int { return 1 }
func (f failingCodec) Encode([]game.EntitySnapshot) ([]byte, error) {
	if f.panics {
		panic("encoder exploded")
	}
	return nil, errors.New("boom")
}

func TestEncodeFailureSkipsBroadcast(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{Codec: failingCodec{}})
	out := make(chanOutbox, 4)
	mustJoin(t, c, out)
	c.Tick()
	if _, err := c.Sessions(testCtx(t)); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	select {
	case b := <-out:
		t.Fatalf("expected no broadcast, got %s", b)
	default:
	}
	if c.Metrics().Snapshot()["broadcasts_skipped"] != int64(1) {
		t.Fatalf("expected skipped broadcast to be counted")
	}
}

func TestCoordinatorSurvivesPanickingRequest(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{Codec: failingCodec{panics: true}})
	mustJoin(t, c, make(chanOutbox, 1))
	c.Tick()
	// 协调器仍能处理后续请求
	mustJoin(t, c, make(chanOutbox, 1))
	ids, err := c.Sessions(testCtx(t))
	if err != nil || len(ids) != 2 {
		t.Fatalf("expected coordinator alive with 2 sessions, got %v, %v", ids, err)
	}
}

func TestRoomsCommands(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{})
	id := mustJoin(t, c, make(chanOutbox, 1))
	c.JoinRoom(id, "arena")
	c.JoinRoom(id+1, "ghost") // 未知 id 不创建房间

	rooms, err := c.ListRooms(testCtx(t))
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if !reflect.DeepEqual(rooms, []string{"arena", "main"}) {
		t.Fatalf("unexpected rooms %v", rooms)
	}
}

func TestTuningThroughMailbox(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{})
	cur, err := c.Tuning(testCtx(t))
	if err != nil || cur != game.DefaultTuning() {
		t.Fatalf("expected default tuning, got %+v, %v", cur, err)
	}
	cur.Damage = 40
	if got, err := c.SetTuning(testCtx(t), cur); err != nil || got.Damage != 40 {
		t.Fatalf("set tuning: %+v, %v", got, err)
	}
	cur.MaxHealth = -1
	if _, err := c.SetTuning(testCtx(t), cur); !errors.Is(err, game.ErrInvalidTuning) {
		t.Fatalf("expected invalid tuning error, got %v", err)
	}
	if got, _ := c.Tuning(testCtx(t)); got.MaxHealth != 100 || got.Damage != 40 {
		t.Fatalf("rejected update must not apply: %+v", got)
	}
}

func TestJoinAfterStopFails(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{Seed: 1})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	cancel()
	<-c.Done()

	if _, err := c.Join(testCtx(t), make(chanOutbox, 1)); err == nil {
		t.Fatalf("expected join to fail after stop")
	}
	// 不得阻塞
	c.Disconnect(1)
	c.JoinRoom(1, "x")
}

func TestTickerDrivesBroadcasts(t *testing.T) {
	c := startCoordinator(t, CoordinatorOptions{TickInterval: 5 * time.Millisecond})
	out := make(chanOutbox, 16)
	mustJoin(t, c, out)
	recvFrame(t, out)
	recvFrame(t, out)
}
