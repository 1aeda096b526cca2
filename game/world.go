package game

import (
	"math/rand"
	"sort"
)

// World 实体表：session id -> Player。仅由协调器协程访问。
type World struct {
	players map[PlayerID]*Player
	rng     *rand.Rand
	tuning  Tuning
}

func NewWorld(rng *rand.Rand, tuning Tuning) *World {
	return &World{
		players: make(map[PlayerID]*Player),
		rng:     rng,
		tuning:  tuning,
	}
}

// Spawn 以默认属性在随机出生点创建玩家；id 已存在时返回原玩家
func (w *World) Spawn(id PlayerID) *Player {
	if p, ok := w.players[id]; ok {
		return p
	}
	p := NewPlayer(randomSpawn(w.rng, w.tuning.SpawnHalfExtent), Attributes{
		MoveSpeed: w.tuning.MoveSpeed,
		Health:    w.tuning.MaxHealth,
	})
	w.players[id] = p
	return p
}

func (w *World) Remove(id PlayerID) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

// SetInput 覆盖玩家输入；未知 id 返回 false
func (w *World) SetInput(id PlayerID, in Input) bool {
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.Input = in
	return true
}

func (w *World) Player(id PlayerID) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

func (w *World) Len() int { return len(w.players) }

// IDs 升序返回全部 id，保证种子相同时模拟可复现
func (w *World) IDs() []PlayerID {
	ids := make([]PlayerID, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) Tuning() Tuning { return w.tuning }

// SetTuning 替换调参；已存在玩家的移动速度同步更新
func (w *World) SetTuning(t Tuning) {
	w.tuning = t
	for _, p := range w.players {
		p.Attributes.MoveSpeed = t.MoveSpeed
	}
}

// Step 推进一个 Tick：逐个玩家 Apply，再按固定顺序运行系统
func (w *World) Step() {
	if len(w.players) == 0 {
		return
	}
	for _, id := range w.IDs() {
		w.players[id].Apply()
	}
	for _, sys := range systems {
		sys(w)
	}
}
