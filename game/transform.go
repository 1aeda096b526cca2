package game

import (
	"github.com/go-gl/mathgl/mgl32"

	"tickarena/mathx"
)

// 移动方向（X/Z 平面，-Z 为前）
var (
	dirForward  = mgl32.Vec2{0, -1}
	dirBackward = mgl32.Vec2{0, 1}
	dirRight    = mgl32.Vec2{1, 0}
	dirLeft     = mgl32.Vec2{-1, 0}
)

// Transform 位置与朝向，Y 轴竖直
type Transform struct {
	Pos         mgl32.Vec3
	Orientation mgl32.Quat
}

func NewTransform(pos mgl32.Vec3) Transform {
	return Transform{Pos: pos, Orientation: mgl32.QuatIdent()}
}

// Apply 按输入推进位置并返回是否在行走。
// 对角输入先求和再归一化，速度不会叠加；静止时保持原朝向。
func (t *Transform) Apply(in Input, attrs Attributes) bool {
	var v mgl32.Vec2
	if in.StepForward {
		v = mathx.Add2(v, dirForward)
	}
	if in.StepBackward {
		v = mathx.Add2(v, dirBackward)
	}
	if in.StepRight {
		v = mathx.Add2(v, dirRight)
	}
	if in.StepLeft {
		v = mathx.Add2(v, dirLeft)
	}
	walking := v[0] != 0 || v[1] != 0

	if in.FacingRad != nil {
		v = mathx.RotateAroundOrigin2(v, *in.FacingRad)
	}
	dir := mathx.Normalize2(v)
	step := mathx.Scale2(dir, attrs.MoveSpeed)

	t.Pos[0] += step[0]
	t.Pos[2] += step[1]

	if walking {
		t.Orientation = mathx.Slerp(t.Orientation, mathx.QuatFromPlanar(dir), mathx.FacingSlerp)
	}
	return walking
}
