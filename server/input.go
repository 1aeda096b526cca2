package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tickarena/game"
)

// ErrInvalidInput 输入负载无法解析为 game.Input
var ErrInvalidInput = errors.New("invalid input payload")

// inputMessage 入站输入（WebSocket 文本消息，不含 id，id 由会话注入）
// 示例：{"step_forward":true,"step_backward":false,"step_left":false,"step_right":false,"kick":true}
type inputMessage struct {
	StepForward  *bool    `json:"step_forward"`
	StepBackward *bool    `json:"step_backward"`
	StepLeft     *bool    `json:"step_left"`
	StepRight    *bool    `json:"step_right"`
	Punch        bool     `json:"punch"`
	Kick         bool     `json:"kick"`
	FacingRad    *float32 `json:"facing_rad,omitempty"`
}

// ParseInput 解析输入负载：四个方向字段必填，punch/kick/facing_rad 可选
func ParseInput(text string) (game.Input, error) {
	var im inputMessage
	if err := json.Unmarshal([]byte(text), &im); err != nil {
		return game.Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if im.StepForward == nil || im.StepBackward == nil || im.StepLeft == nil || im.StepRight == nil {
		return game.Input{}, fmt.Errorf("%w: missing step field", ErrInvalidInput)
	}
	return game.Input{
		StepForward:  *im.StepForward,
		StepBackward: *im.StepBackward,
		StepLeft:     *im.StepLeft,
		StepRight:    *im.StepRight,
		Punch:        im.Punch,
		Kick:         im.Kick,
		FacingRad:    im.FacingRad,
	}, nil
}

// parseCommand 识别以 / 开头的控制命令，返回命令与参数
func parseCommand(msg string) (cmd, arg string, ok bool) {
	if !strings.HasPrefix(msg, "/") {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(msg, " ")
	return cmd, strings.TrimSpace(arg), true
}

// roomsMessage /list 的应答
type roomsMessage struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}
