package game

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Player 实体表中的玩家（服务端权威状态）
type Player struct {
	Attributes Attributes
	Transform  Transform
	Renderable Renderable
	Input      Input

	Anim      AnimState
	AnimTicks uint32

	// Projectile 至多一个，攻击判定期间存在
	Projectile *Projectile

	// TakingDamage 仅在本 Tick 被命中时为 true
	TakingDamage bool
}

func NewPlayer(pos mgl32.Vec3, attrs Attributes) *Player {
	p := &Player{
		Attributes: attrs,
		Transform:  NewTransform(pos),
		Renderable: NewRenderable(ShapeGuy),
		Anim:       AnimIdle,
	}
	p.Renderable.Apply(p.Transform)
	return p
}

// Apply 每 Tick 调用一次：输入 → 动画状态 → 渲染矩阵 → 动画计数。
// 踢优先于拳，攻击期间不移动。
func (p *Player) Apply() {
	prev := p.Anim

	var target AnimState
	switch {
	case p.Input.Kick:
		target = AnimKick
	case p.Input.Punch:
		target = AnimPunch
	default:
		if p.Transform.Apply(p.Input, p.Attributes) {
			target = AnimWalk
		} else {
			target = AnimIdle
		}
	}
	p.Anim = target
	p.Renderable.Apply(p.Transform)

	if prev != target {
		p.AnimTicks = 0
		p.Projectile = nil
		return
	}
	p.AnimTicks++
	if p.Projectile != nil {
		p.Projectile.TicksElapsed++
		if p.Projectile.Expired() {
			p.Projectile = nil
		}
	}
}

// Respawn 在 ±halfExtent 的正方形内随机选点，Y 置 0；其余状态不变
func (p *Player) Respawn(rng *rand.Rand, halfExtent float32) {
	p.Transform.Pos = randomSpawn(rng, halfExtent)
	p.Renderable.Apply(p.Transform)
}

func randomSpawn(rng *rand.Rand, halfExtent float32) mgl32.Vec3 {
	x := (rng.Float32() - 0.5) * 2 * halfExtent
	z := (rng.Float32() - 0.5) * 2 * halfExtent
	return mgl32.Vec3{x, 0, z}
}
