package server

import (
	"sort"

	"tickarena/game"
)

// Outbox 会话的出站队列。协调器在广播时调用，实现不得阻塞。
type Outbox interface {
	Enqueue(b []byte)
}

// registry 会话注册表：session id -> 出站队列。
// 与 game.World 的键集合始终一致（同时插入、同时删除）。
type registry map[game.PlayerID]Outbox

func (r registry) ids() []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// broadcast 将同一份负载压入所有会话队列
func (r registry) broadcast(b []byte) {
	for _, out := range r {
		out.Enqueue(b)
	}
}
