// Package game 实现权威模拟：实体模型、每 Tick 系统与实体表。
// 本包不做 I/O，所有状态由协调器单线程驱动。
package game

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"tickarena/mathx"
)

// PlayerID 玩家唯一标识，同时也是会话 id
type PlayerID uint64

// Shape 渲染形状（封闭枚举）
type Shape int

const (
	ShapeGuy Shape = iota
	ShapeFloor
	ShapeUnitcube
)

func (s Shape) String() string {
	switch s {
	case ShapeGuy:
		return "Guy"
	case ShapeFloor:
		return "Floor"
	case ShapeUnitcube:
		return "Unitcube"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

func (s Shape) MarshalText() ([]byte, error) {
	switch s {
	case ShapeGuy, ShapeFloor, ShapeUnitcube:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown shape %d", int(s))
}

// AnimState 互斥的移动/攻击状态
type AnimState int

const (
	AnimIdle AnimState = iota
	AnimWalk
	AnimKick
	AnimPunch
)

func (a AnimState) String() string {
	switch a {
	case AnimIdle:
		return "Idle"
	case AnimWalk:
		return "Walk"
	case AnimKick:
		return "Kick"
	case AnimPunch:
		return "Punch"
	}
	return fmt.Sprintf("AnimState(%d)", int(a))
}

func (a AnimState) MarshalText() ([]byte, error) {
	switch a {
	case AnimIdle, AnimWalk, AnimKick, AnimPunch:
		return []byte(a.String()), nil
	}
	return nil, fmt.Errorf("unknown anim state %d", int(a))
}

// IsAttack 是否为攻击动画
func (a AnimState) IsAttack() bool {
	switch a {
	case AnimKick, AnimPunch:
		return true
	case AnimIdle, AnimWalk:
		return false
	}
	return false
}

type Attributes struct {
	MoveSpeed float32
	Health    float32
}

// Input 客户端最近一次上报的输入，下一 Tick 生效
type Input struct {
	StepForward  bool
	StepBackward bool
	StepLeft     bool
	StepRight    bool
	Punch        bool
	Kick         bool
	// FacingRad 可选：相机朝向，移动向量按此角度旋转
	FacingRad *float32
}

// Renderable 由 Transform 每 Tick 推导
type Renderable struct {
	Shape Shape
	Model mgl32.Mat4
}

func NewRenderable(s Shape) Renderable {
	return Renderable{Shape: s, Model: mgl32.Ident4()}
}

func (r *Renderable) Apply(t Transform) {
	r.Model = mathx.ModelMatrix(t.Pos, t.Orientation)
}

// Projectile 攻击判定体，生命周期严格受限于所属玩家
type Projectile struct {
	TicksElapsed  uint32
	TicksLifetime uint32
	Transform     Transform
	Renderable    Renderable
}

// Expired 超过寿命即失效
func (p *Projectile) Expired() bool {
	return p.TicksElapsed > p.TicksLifetime
}
