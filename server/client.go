package server

// ClientID 连接的唯一标识
type ClientID string

// Role 同一张牌桌只有一个操作者（两位玩家共用，轮流操作），其余连接只读
type Role int

const (
	RoleViewer Role = iota
	RoleController
)

func (r Role) String() string {
	if r == RoleController {
		return "controller"
	}
	return "viewer"
}

// Sender 下行发送端，ClientConn 为 WebSocket 实现
type Sender interface {
	Enqueue(b []byte)
	Close()
}

// Client 牌桌内的一个连接
type Client struct {
	ID    ClientID
	Name  string
	Role  Role
	Codec Codec

	Conn Sender
}

// Welcome 加入后下发的第一条消息
type Welcome struct {
	ClientID string `json:"clientId" msgpack:"clientId"`
	Table    string `json:"table" msgpack:"table"`
	Role     string `json:"role" msgpack:"role"`
	TickHz   int    `json:"tickHz" msgpack:"tickHz"`
}
