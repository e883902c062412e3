package stack

import "fmt"

// CommandKind 输入端送来的离散请求
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdDrop
	CmdRotate
	CmdNudge
	CmdHurry
	CmdReset
)

var commandNames = map[CommandKind]string{
	CmdNone:   "none",
	CmdDrop:   "drop",
	CmdRotate: "rotate",
	CmdNudge:  "nudge",
	CmdHurry:  "hurry",
	CmdReset:  "reset",
}

func (k CommandKind) String() string {
	if s, ok := commandNames[k]; ok {
		return s
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// ParseCommandKind 按名称解析（大小写敏感，传入前由调用方规范化）
func ParseCommandKind(s string) CommandKind {
	for k, name := range commandNames {
		if name == s {
			return k
		}
	}
	return CmdNone
}

// Command 一次输入意图。X 用于 drop，DX 用于 nudge。
type Command struct {
	Kind CommandKind
	X    float64
	DX   float64
}

// Apply 把输入意图交给对应操作。applied=false 表示被忽略（阶段不符或无效）。
// 只有越界落点（ErrInvalidDropX，可恢复）与工厂错误会返回 error。
func (g *Game) Apply(cmd Command) (applied bool, err error) {
	switch cmd.Kind {
	case CmdDrop:
		return g.DropAt(cmd.X)
	case CmdRotate:
		return g.Rotate(), nil
	case CmdNudge:
		return g.Nudge(cmd.DX), nil
	case CmdHurry:
		return g.Hurry(), nil
	case CmdReset:
		if err := g.Reset(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}
