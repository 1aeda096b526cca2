package game

// RenderableSnapshot 渲染快照（形状 + 列主序模型矩阵）
type RenderableSnapshot struct {
	Shape Shape       `json:"shape_id" msgpack:"shape_id"`
	Model [16]float32 `json:"model_matrix" msgpack:"model_matrix"`
}

// EntitySnapshot 每 Tick 广播的单个玩家条目，携带 id 以便客户端跨 Tick 关联
type EntitySnapshot struct {
	ID           PlayerID            `json:"id" msgpack:"id"`
	Shape        Shape               `json:"shape_id" msgpack:"shape_id"`
	Model        [16]float32         `json:"model_matrix" msgpack:"model_matrix"`
	Health       float32             `json:"health" msgpack:"health"`
	Anim         AnimState           `json:"anim_state" msgpack:"anim_state"`
	TakingDamage bool                `json:"taking_damage" msgpack:"taking_damage"`
	Projectile   *RenderableSnapshot `json:"projectile,omitempty" msgpack:"projectile,omitempty"`
}

// Snapshot 按 id 升序导出所有存活玩家
func (w *World) Snapshot() []EntitySnapshot {
	out := make([]EntitySnapshot, 0, len(w.players))
	for _, id := range w.IDs() {
		p := w.players[id]
		s := EntitySnapshot{
			ID:           id,
			Shape:        p.Renderable.Shape,
			Model:        p.Renderable.Model,
			Health:       p.Attributes.Health,
			Anim:         p.Anim,
			TakingDamage: p.TakingDamage,
		}
		if p.Projectile != nil {
			s.Projectile = &RenderableSnapshot{
				Shape: p.Projectile.Renderable.Shape,
				Model: p.Projectile.Renderable.Model,
			}
		}
		out = append(out, s)
	}
	return out
}
