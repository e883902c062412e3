package server

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	MsgWelcome = "welcome"
	MsgState   = "state"
)

// Codec 下行消息编码：文本 JSON 或二进制 MessagePack
type Codec int

const (
	CodecJSON Codec = iota
	CodecMsgpack
)

// ParseCodec 未知名称退回 JSON
func ParseCodec(s string) Codec {
	if s == "msgpack" {
		return CodecMsgpack
	}
	return CodecJSON
}

func (c Codec) String() string {
	if c == CodecMsgpack {
		return "msgpack"
	}
	return "json"
}

// MessageType 对应的 WebSocket 帧类型
func (c Codec) MessageType() int {
	if c == CodecMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Envelope {t: 类型, p: 载荷}
type Envelope struct {
	T string `json:"t" msgpack:"t"`
	P any    `json:"p" msgpack:"p"`
}

func Encode(c Codec, t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: empty envelope type")
	}
	env := Envelope{T: t, P: payload}
	if c == CodecMsgpack {
		return msgpack.Marshal(&env)
	}
	return json.Marshal(env)
}

// Decode 解出类型与载荷，主要供测试与 Go 客户端使用
func Decode[T any](c Codec, b []byte) (string, T, error) {
	var out T
	if len(b) == 0 {
		return "", out, fmt.Errorf("decode: empty message")
	}
	if c == CodecMsgpack {
		var env struct {
			T string             `msgpack:"t"`
			P msgpack.RawMessage `msgpack:"p"`
		}
		if err := msgpack.Unmarshal(b, &env); err != nil {
			return "", out, err
		}
		err := msgpack.Unmarshal(env.P, &out)
		return env.T, out, err
	}
	var env struct {
		T string          `json:"t"`
		P json.RawMessage `json:"p"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return "", out, err
	}
	err := json.Unmarshal(env.P, &out)
	return env.T, out, err
}
