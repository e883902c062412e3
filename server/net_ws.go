package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec Codec
	send  chan []byte
	once  sync.Once
}

func NewClientConn(ws *websocket.Conn, codec Codec) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）。只在 Tick 线程调用。
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
	}
}

// Close 关闭发送队列，写协程随之关闭底层连接
func (c *ClientConn) Close() {
	c.once.Do(func() { close(c.send) })
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(c.codec.MessageType(), msg); err != nil {
				Log.Debugf("write: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端输入，转换为 Input 注入牌桌
func (c *ClientConn) readPump(t *Table, id ClientID) {
	defer c.ws.Close()
	// 读泵退出时，通知牌桌在 Tick 线程中移除该连接
	defer t.RequestLeave(id)
	c.ws.SetReadLimit(1 << 16)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugf("read: client=%s: %v", id, err)
			}
			return
		}
		var im InputMessage
		if mt == websocket.BinaryMessage {
			err = msgpack.Unmarshal(payload, &im)
		} else {
			err = json.Unmarshal(payload, &im)
		}
		if err != nil {
			Log.Debugf("bad input: client=%s: %v", id, err)
			continue
		}
		t.OnInput(Input{ClientID: id, Command: im.Command(), Seq: im.Seq})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?table=table-1&name=alice&codec=msgpack
func (m *TableManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tableID := q.Get("table")
	if tableID == "" {
		tableID = m.DefaultTableID()
	}
	name := q.Get("name")
	if name == "" {
		name = "guest"
	}
	codec := ParseCodec(q.Get("codec"))

	t, err := m.GetOrCreateTable(tableID)
	if err != nil {
		Log.Errorf("table %s: %v", tableID, err)
		http.Error(w, "table unavailable", http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	conn := NewClientConn(ws, codec)
	client := &Client{ID: ClientID(uuid.NewString()), Name: name, Codec: codec, Conn: conn}
	go conn.writePump()
	if !t.Join(client) {
		conn.Close()
		return
	}
	go conn.readPump(t, client.ID)
}
