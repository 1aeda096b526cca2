package server

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"tickarena/game"
)

func sampleSnapshot() []game.EntitySnapshot {
	return []game.EntitySnapshot{
		{
			ID:     7,
			Shape:  game.ShapeGuy,
			Model:  mgl32.Translate3D(1, 0, -2),
			Health: 90,
			Anim:   game.AnimKick,
			Projectile: &game.RenderableSnapshot{
				Shape: game.ShapeUnitcube,
				Model: mgl32.Translate3D(1, 0.5, -3),
			},
		},
	}
}

func TestJSONCodec(t *testing.T) {
	codec, err := NewSnapshotCodec("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codec.Name() != "json" || codec.MessageType() != websocket.TextMessage {
		t.Fatalf("unexpected default codec %s/%d", codec.Name(), codec.MessageType())
	}
	b, err := codec.Encode(sampleSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got[0]["shape_id"] != "Guy" || got[0]["anim_state"] != "Kick" {
		t.Fatalf("unexpected entry %v", got[0])
	}
	proj, ok := got[0]["projectile"].(map[string]any)
	if !ok || proj["shape_id"] != "Unitcube" {
		t.Fatalf("unexpected projectile %v", got[0]["projectile"])
	}

	empty, err := codec.Encode(nil)
	if err != nil || string(empty) != "null" && string(empty) != "[]" {
		t.Fatalf("unexpected empty encoding %q, %v", empty, err)
	}
}

func TestMsgpackCodec(t *testing.T) {
	codec, err := NewSnapshotCodec("msgpack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codec.MessageType() != websocket.BinaryMessage {
		t.Fatalf("msgpack must use binary frames")
	}
	b, err := codec.Encode(sampleSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got []struct {
		ID     uint64      `msgpack:"id"`
		Model  [16]float32 `msgpack:"model_matrix"`
		Health float32     `msgpack:"health"`
	}
	if err := msgpack.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 || got[0].Health != 90 {
		t.Fatalf("unexpected decoded %+v", got)
	}
	if got[0].Model[12] != 1 || got[0].Model[14] != -2 {
		t.Fatalf("translation lost: %v", got[0].Model)
	}
}

func TestUnknownCodec(t *testing.T) {
	if _, err := NewSnapshotCodec("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
