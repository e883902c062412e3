package server

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"friendstack/config"
	"friendstack/stack"
)

// TableManager 管理多张牌桌的生命周期
type TableManager struct {
	mu     sync.RWMutex
	tables map[string]*Table
	cfg    config.Config
	seeds  int64
}

func NewTableManager(cfg config.Config) *TableManager {
	return &TableManager{tables: make(map[string]*Table), cfg: cfg}
}

// DefaultTableID 未指定牌桌时使用的 ID
func (m *TableManager) DefaultTableID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Server.DefaultTable
}

// GetOrCreateTable 获取或创建牌桌，并确保开始 Tick
func (m *TableManager) GetOrCreateTable(id string) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[id]; ok {
		return t, nil
	}
	return m.createLocked(id)
}

// CreateTable 以随机 UUID 新建一张牌桌
func (m *TableManager) CreateTable() (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(uuid.NewString())
}

func (m *TableManager) createLocked(id string) (*Table, error) {
	t, err := NewTable(id, m.cfg, m.newRand())
	if err != nil {
		return nil, err
	}
	m.tables[id] = t
	t.StartTicker()
	Log.Infof("table created: id=%s fidelity=%s", id, m.cfg.Game.Fidelity)
	return t, nil
}

// newRand 固定种子时每张桌子依次偏移，保证可复现
func (m *TableManager) newRand() stack.Rand {
	seed := m.cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seed += m.seeds
	m.seeds++
	return rand.New(rand.NewSource(seed))
}

func (m *TableManager) Get(id string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	return t, ok
}

// IDs 按字典序返回全部牌桌 ID
func (m *TableManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tables))
	for id := range m.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyGameConfig 把新的游戏配置推送给所有牌桌（下一局生效），新建牌桌直接使用
func (m *TableManager) ApplyGameConfig(cfg stack.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg.Game = cfg
	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.Unlock()

	for _, t := range tables {
		if err := t.RequestConfig(cfg); err != nil {
			Log.Warnf("table %s: config not applied: %v", t.ID, err)
		}
	}
	return nil
}

// Close 停止全部牌桌
func (m *TableManager) Close() {
	m.mu.Lock()
	tables := m.tables
	m.tables = make(map[string]*Table)
	m.mu.Unlock()
	for _, t := range tables {
		t.Stop()
	}
}
