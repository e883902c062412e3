package stack

// PlayerID 不透明的玩家标识
type PlayerID string

// Player 玩家的显示身份（名称与颜色由资源侧提供，核心只透传）
type Player struct {
	ID    PlayerID `yaml:"id" json:"id" msgpack:"id"`
	Name  string   `yaml:"name" json:"name" msgpack:"name"`
	Color string   `yaml:"color" json:"color" msgpack:"color"`
}
