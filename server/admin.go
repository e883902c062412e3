package server

import (
	"encoding/json"
	"net/http"

	"friendstack/stack"
)

// adminConfig 管理接口的载荷，字段缺省表示不修改
type adminConfig struct {
	MaxInputsPerTick *int          `json:"maxInputsPerTick,omitempty"`
	Game             *stack.Config `json:"game,omitempty"`
}

// tableFromQuery 只查找已有牌桌，未知 ID 返回 404（建桌走 /ws 或 POST /tables）
func (m *TableManager) tableFromQuery(w http.ResponseWriter, r *http.Request) (*Table, bool) {
	id := r.URL.Query().Get("table")
	if id == "" {
		id = m.DefaultTableID()
	}
	t, ok := m.Get(id)
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return nil, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供牌桌配置的读取与更新（游戏参数在下一局生效）
// GET /admin/config?table=table-1  返回当前配置
// POST /admin/config?table=table-1 以 JSON 载荷更新部分字段
func (m *TableManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := m.tableFromQuery(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		n := t.MaxInputsPerTick()
		g := t.GameConfig()
		writeJSON(w, http.StatusOK, adminConfig{MaxInputsPerTick: &n, Game: &g})
	case http.MethodPost:
		cur := t.GameConfig()
		body := adminConfig{Game: &cur}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxInputsPerTick != nil {
			if *body.MaxInputsPerTick <= 0 {
				http.Error(w, "maxInputsPerTick must be positive", http.StatusBadRequest)
				return
			}
			t.SetMaxInputsPerTick(*body.MaxInputsPerTick)
		}
		if body.Game != nil {
			if err := t.RequestConfig(*body.Game); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "appliesOn": "reset"})
		Log.Infof("config updated: table=%s maxInputsPerTick=%d fidelity=%s",
			t.ID, t.MaxInputsPerTick(), t.GameConfig().Fidelity)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出指定牌桌的运行指标
// GET /metrics?table=table-1
func (m *TableManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	t, ok := m.tableFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":   t.ID,
		"tick":    t.TickSeq(),
		"phase":   t.Phase().String(),
		"metrics": t.Metrics().Snapshot(),
	})
}

// HandleTables GET 列出牌桌；POST 新建一张随机 ID 的牌桌
func (m *TableManager) HandleTables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"tables": m.IDs()})
	case http.MethodPost:
		t, err := m.CreateTable()
		if err != nil {
			Log.Errorf("create table: %v", err)
			http.Error(w, "create table failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": t.ID})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
