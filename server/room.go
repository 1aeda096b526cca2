package server

import (
	"sort"

	"tickarena/game"
)

// defaultRoom 新会话默认加入的房间
const defaultRoom = "main"

// roomSet 房间名 -> 成员集合，仅用于 /list 与 /join 控制命令，
// 不影响模拟。由协调器协程独占，无需加锁。
type roomSet struct {
	rooms map[string]map[game.PlayerID]struct{}
}

func newRoomSet() *roomSet {
	rs := &roomSet{rooms: make(map[string]map[game.PlayerID]struct{})}
	rs.rooms[defaultRoom] = make(map[game.PlayerID]struct{})
	return rs
}

// join 将 id 移到指定房间（不存在则创建），返回之前所在的房间
func (rs *roomSet) join(name string, id game.PlayerID) []string {
	left := rs.leave(id)
	members, ok := rs.rooms[name]
	if !ok {
		members = make(map[game.PlayerID]struct{})
		rs.rooms[name] = members
	}
	members[id] = struct{}{}
	return left
}

// leave 从所有房间移除 id；空房间保留
func (rs *roomSet) leave(id game.PlayerID) []string {
	var left []string
	for name, members := range rs.rooms {
		if _, ok := members[id]; ok {
			delete(members, id)
			left = append(left, name)
		}
	}
	return left
}

func (rs *roomSet) names() []string {
	names := make([]string, 0, len(rs.rooms))
	for name := range rs.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rs *roomSet) members(name string) []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(rs.rooms[name]))
	for id := range rs.rooms[name] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
