package server

import (
	"strings"

	"friendstack/stack"
)

// Input 客户端输入（意图），由服务端在 Tick 中交给游戏解释
type Input struct {
	ClientID ClientID
	Command  stack.Command
	Seq      int64 // 客户端本地序列号，用于去重与确认
}

// 入站输入的消息结构（文本帧为 JSON，二进制帧为 MessagePack）
// 示例：{"type":"drop","x":120}、{"type":"nudge","dx":-10}
type InputMessage struct {
	Type string  `json:"type" msgpack:"type"`
	X    float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	DX   float64 `json:"dx,omitempty" msgpack:"dx,omitempty"`
	Seq  int64   `json:"seq,omitempty" msgpack:"seq,omitempty"`
}

// Command 转换为游戏命令，未知类型返回 CmdNone
func (m InputMessage) Command() stack.Command {
	return stack.Command{
		Kind: stack.ParseCommandKind(strings.ToLower(m.Type)),
		X:    m.X,
		DX:   m.DX,
	}
}
