// Package mathx 提供模拟所需的纯函数向量/四元数运算（基于 mgl32，float32）。
// 所有函数无副作用，相同输入得到逐位相同的结果。
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FacingSlerp 每个 Tick 朝向向移动方向插值的比例
const FacingSlerp float32 = 0.1

func Add2(a, b mgl32.Vec2) mgl32.Vec2 { return a.Add(b) }

func Scale2(v mgl32.Vec2, k float32) mgl32.Vec2 { return v.Mul(k) }

// Normalize2 归一化二维向量；零向量原样返回（不做除零）
func Normalize2(v mgl32.Vec2) mgl32.Vec2 {
	l := v[0]*v[0] + v[1]*v[1]
	if l > 0 {
		l = 1 / float32(math.Sqrt(float64(l)))
	}
	return mgl32.Vec2{v[0] * l, v[1] * l}
}

// Rotate2 绕 origin 旋转 rad 弧度
func Rotate2(v, origin mgl32.Vec2, rad float32) mgl32.Vec2 {
	p0 := v[0] - origin[0]
	p1 := v[1] - origin[1]
	s := float32(math.Sin(float64(rad)))
	c := float32(math.Cos(float64(rad)))
	return mgl32.Vec2{p0*c - p1*s + origin[0], p0*s + p1*c + origin[1]}
}

func RotateAroundOrigin2(v mgl32.Vec2, rad float32) mgl32.Vec2 {
	return Rotate2(v, mgl32.Vec2{}, rad)
}

// QuatFromEuler 按 XYZ 半角合成四元数
func QuatFromEuler(x, y, z float32) mgl32.Quat {
	x, y, z = x*0.5, y*0.5, z*0.5
	sx, cx := float32(math.Sin(float64(x))), float32(math.Cos(float64(x)))
	sy, cy := float32(math.Sin(float64(y))), float32(math.Cos(float64(y)))
	sz, cz := float32(math.Sin(float64(z))), float32(math.Cos(float64(z)))
	return mgl32.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl32.Vec3{
			sx*cy*cz - cx*sy*sz,
			cx*sy*cz + sx*cy*sz,
			cx*cy*sz - sx*sy*cz,
		},
	}
}

// QuatFromPlanar 将 X/Z 平面上的方向映射为绕 Y 轴的朝向：
// [1,0] -> pi/2，[0,1] -> 0，[-1,0] -> -pi/2，[0,-1] -> pi
func QuatFromPlanar(v mgl32.Vec2) mgl32.Quat {
	yaw := float32(math.Atan2(float64(v[0]), float64(v[1])))
	return QuatFromEuler(0, yaw, 0)
}

// Slerp 最短路径球面插值（QuatSlerp 在点积为负时翻转目标）
func Slerp(from, to mgl32.Quat, t float32) mgl32.Quat {
	return mgl32.QuatSlerp(from, to, t)
}

// Rotate3 用四元数旋转三维向量
func Rotate3(q mgl32.Quat, v mgl32.Vec3) mgl32.Vec3 {
	return q.Rotate(v)
}

// ModelMatrix 返回 T(pos)*R(q)，列主序，平移位于 12/13/14
func ModelMatrix(pos mgl32.Vec3, q mgl32.Quat) mgl32.Mat4 {
	return mgl32.Translate3D(pos[0], pos[1], pos[2]).Mul4(q.Mat4())
}

func Distance3(a, b mgl32.Vec3) float32 {
	return a.Sub(b).Len()
}
