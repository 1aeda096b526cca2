package game

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTuning 调参数值不合法
var ErrInvalidTuning = errors.New("invalid tuning")

// Tuning 玩法策略参数，可从 YAML 加载，也可经管理接口热更新
type Tuning struct {
	MoveSpeed float32 `yaml:"move_speed" json:"move_speed"`
	MaxHealth float32 `yaml:"max_health" json:"max_health"`

	// 世界边界：超出 ArenaHalfExtent 开始下落，低于 RespawnDepth 重生
	ArenaHalfExtent float32 `yaml:"arena_half_extent" json:"arena_half_extent"`
	SpawnHalfExtent float32 `yaml:"spawn_half_extent" json:"spawn_half_extent"`
	FallSpeed       float32 `yaml:"fall_speed" json:"fall_speed"`
	RespawnDepth    float32 `yaml:"respawn_depth" json:"respawn_depth"`

	// 攻击：动画第 AttackFrame 个 Tick 生成判定体
	AttackFrame        uint32     `yaml:"attack_frame" json:"attack_frame"`
	ProjectileLifetime uint32     `yaml:"projectile_lifetime" json:"projectile_lifetime"`
	ProjectileOffset   [3]float32 `yaml:"projectile_offset" json:"projectile_offset"`
	HitRadius          float32    `yaml:"hit_radius" json:"hit_radius"`
	Damage             float32    `yaml:"damage" json:"damage"`
}

func DefaultTuning() Tuning {
	return Tuning{
		MoveSpeed:          0.05,
		MaxHealth:          100,
		ArenaHalfExtent:    10,
		SpawnHalfExtent:    8,
		FallSpeed:          0.1,
		RespawnDepth:       -8,
		AttackFrame:        20,
		ProjectileLifetime: 15,
		ProjectileOffset:   [3]float32{0, 0.5, 1},
		HitRadius:          1,
		Damage:             10,
	}
}

// LoadTuning 读取 YAML；缺失字段保留默认值。path 为空时直接返回默认值。
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	// NaN 会让下面的比较全部为假，先单独拒绝
	for _, f := range t.floats() {
		if math.IsNaN(float64(f.v)) || math.IsInf(float64(f.v), 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidTuning, f.name)
		}
	}
	switch {
	case t.MoveSpeed < 0:
		return fmt.Errorf("%w: move_speed must be >= 0", ErrInvalidTuning)
	case t.MaxHealth <= 0:
		return fmt.Errorf("%w: max_health must be > 0", ErrInvalidTuning)
	case t.SpawnHalfExtent < 0 || t.SpawnHalfExtent > t.ArenaHalfExtent:
		return fmt.Errorf("%w: spawn_half_extent must be within [0, arena_half_extent]", ErrInvalidTuning)
	case t.FallSpeed <= 0:
		return fmt.Errorf("%w: fall_speed must be > 0", ErrInvalidTuning)
	case t.RespawnDepth >= 0:
		return fmt.Errorf("%w: respawn_depth must be < 0", ErrInvalidTuning)
	case t.HitRadius < 0 || t.Damage < 0:
		return fmt.Errorf("%w: hit_radius and damage must be >= 0", ErrInvalidTuning)
	}
	return nil
}

type namedFloat struct {
	name string
	v    float32
}

func (t Tuning) floats() []namedFloat {
	return []namedFloat{
		{"move_speed", t.MoveSpeed},
		{"max_health", t.MaxHealth},
		{"arena_half_extent", t.ArenaHalfExtent},
		{"spawn_half_extent", t.SpawnHalfExtent},
		{"fall_speed", t.FallSpeed},
		{"respawn_depth", t.RespawnDepth},
		{"projectile_offset.x", t.ProjectileOffset[0]},
		{"projectile_offset.y", t.ProjectileOffset[1]},
		{"projectile_offset.z", t.ProjectileOffset[2]},
		{"hit_radius", t.HitRadius},
		{"damage", t.Damage},
	}
}
