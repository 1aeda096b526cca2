package server

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"tickarena/game"
)

// SnapshotCodec 将每 Tick 的实体快照编码为一帧
type SnapshotCodec interface {
	Name() string
	// MessageType 对应的 WebSocket 帧类型
	MessageType() int
	Encode(snap []game.EntitySnapshot) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) Name() string     { return "json" }
func (jsonCodec) MessageType() int { return websocket.TextMessage }
func (jsonCodec) Encode(snap []game.EntitySnapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// msgpackCodec 二进制快照，以 BinaryMessage 发送
type msgpackCodec struct{}

func (msgpackCodec) Name() string     { return "msgpack" }
func (msgpackCodec) MessageType() int { return websocket.BinaryMessage }
func (msgpackCodec) Encode(snap []game.EntitySnapshot) ([]byte, error) {
	return msgpack.Marshal(snap)
}

// NewSnapshotCodec 按名称选择编码器，空名称为 json
func NewSnapshotCodec(name string) (SnapshotCodec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot codec %q", name)
	}
}
