package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tickarena/game"
)

const adminTimeout = 2 * time.Second

// HandleCount 输出当前访客数（纯文本）
// GET /count
func HandleCount(v *VisitorCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "Visitors: %d", v.Load())
	}
}

// HandleMetrics 输出协调器运行指标
// GET /metrics
func HandleMetrics(c *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"visitors": c.Visitors().Load(),
			"metrics":  c.Metrics().Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// HandleAdminTuning 提供玩法参数的读取与更新（热更新，经协调器邮箱生效）
// GET /admin/tuning  返回当前参数
// POST /admin/tuning 以 JSON 载荷更新部分字段
func HandleAdminTuning(c *Coordinator) http.HandlerFunc {
	type patch struct {
		MoveSpeed          *float32    `json:"move_speed,omitempty"`
		MaxHealth          *float32    `json:"max_health,omitempty"`
		ArenaHalfExtent    *float32    `json:"arena_half_extent,omitempty"`
		SpawnHalfExtent    *float32    `json:"spawn_half_extent,omitempty"`
		FallSpeed          *float32    `json:"fall_speed,omitempty"`
		RespawnDepth       *float32    `json:"respawn_depth,omitempty"`
		AttackFrame        *uint32     `json:"attack_frame,omitempty"`
		ProjectileLifetime *uint32     `json:"projectile_lifetime,omitempty"`
		ProjectileOffset   *[3]float32 `json:"projectile_offset,omitempty"`
		HitRadius          *float32    `json:"hit_radius,omitempty"`
		Damage             *float32    `json:"damage,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()

		switch r.Method {
		case http.MethodGet:
			cur, err := c.Tuning(ctx)
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, cur)
		case http.MethodPost:
			var body patch
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			cur, err := c.Tuning(ctx)
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			applyPatch(&cur.MoveSpeed, body.MoveSpeed)
			applyPatch(&cur.MaxHealth, body.MaxHealth)
			applyPatch(&cur.ArenaHalfExtent, body.ArenaHalfExtent)
			applyPatch(&cur.SpawnHalfExtent, body.SpawnHalfExtent)
			applyPatch(&cur.FallSpeed, body.FallSpeed)
			applyPatch(&cur.RespawnDepth, body.RespawnDepth)
			applyPatch(&cur.AttackFrame, body.AttackFrame)
			applyPatch(&cur.ProjectileLifetime, body.ProjectileLifetime)
			applyPatch(&cur.ProjectileOffset, body.ProjectileOffset)
			applyPatch(&cur.HitRadius, body.HitRadius)
			applyPatch(&cur.Damage, body.Damage)

			updated, err := c.SetTuning(ctx, cur)
			if errors.Is(err, game.ErrInvalidTuning) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func applyPatch[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
