package game

import (
	"github.com/go-gl/mathgl/mgl32"

	"tickarena/mathx"
)

// system 每 Tick 对整张实体表执行一次
type system func(w *World)

// 固定顺序：先生成判定体再结算伤害，同一 Tick 生成的攻击当帧即可命中
var systems = []system{
	gravity,
	spawnAttacks,
	resolveDamage,
}

// gravity 出界或低于地面时缓慢下落，跌破 RespawnDepth 后重生
func gravity(w *World) {
	t := w.tuning
	for _, id := range w.IDs() {
		p := w.players[id]
		pos := p.Transform.Pos
		if pos[1] < 0 || pos[0] < -t.ArenaHalfExtent || pos[0] > t.ArenaHalfExtent ||
			pos[2] < -t.ArenaHalfExtent || pos[2] > t.ArenaHalfExtent {
			p.Transform.Pos[1] -= t.FallSpeed
		}
		if p.Transform.Pos[1] < t.RespawnDepth {
			p.Respawn(w.rng, t.SpawnHalfExtent)
		}
	}
}

// spawnAttacks 攻击动画到达判定帧时生成判定体（每个玩家至多一个）
func spawnAttacks(w *World) {
	t := w.tuning
	offset := mgl32.Vec3{t.ProjectileOffset[0], t.ProjectileOffset[1], t.ProjectileOffset[2]}
	for _, id := range w.IDs() {
		p := w.players[id]
		if !p.Anim.IsAttack() || p.AnimTicks != t.AttackFrame || p.Projectile != nil {
			continue
		}
		tr := Transform{
			Pos:         p.Transform.Pos.Add(mathx.Rotate3(p.Transform.Orientation, offset)),
			Orientation: p.Transform.Orientation,
		}
		proj := &Projectile{
			TicksLifetime: t.ProjectileLifetime,
			Transform:     tr,
			Renderable:    NewRenderable(ShapeUnitcube),
		}
		proj.Renderable.Apply(tr)
		p.Projectile = proj
	}
}

type liveProjectile struct {
	owner PlayerID
	pos   mgl32.Vec3
}

// resolveDamage 先快照全部判定体，再对非所有者结算伤害
func resolveDamage(w *World) {
	t := w.tuning
	ids := w.IDs()

	var live []liveProjectile
	for _, id := range ids {
		p := w.players[id]
		p.TakingDamage = false
		if p.Projectile != nil {
			live = append(live, liveProjectile{owner: id, pos: p.Projectile.Transform.Pos})
		}
	}
	if len(live) == 0 {
		return
	}

	for _, proj := range live {
		for _, id := range ids {
			if id == proj.owner {
				continue
			}
			p := w.players[id]
			if mathx.Distance3(p.Transform.Pos, proj.pos) >= t.HitRadius {
				continue
			}
			p.Attributes.Health -= t.Damage
			p.TakingDamage = true
			if p.Attributes.Health <= 0 {
				p.Respawn(w.rng, t.SpawnHalfExtent)
				p.Attributes.Health = t.MaxHealth
			}
		}
	}
}
