package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tickarena/game"
)

// SessionState 会话生命周期：Connecting → Active → Closing → Closed
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type outFrame struct {
	typ  int
	data []byte
}

// Session 单个连接：写协程负责发送与心跳，读协程负责解析输入与命令。
// 会话只持有协调器的发送端，不直接接触世界状态。
type Session struct {
	ws    *websocket.Conn
	coord *Coordinator
	cfg   NetworkConfig

	send      chan outFrame
	done      chan struct{}
	closeOnce sync.Once

	state    atomic.Int32
	lastSeen atomic.Int64 // 最近一次 ping/pong 的 UnixNano

	id game.PlayerID

	mu   sync.Mutex // 保护 room/name：读协程写，关闭路径读
	room string
	name string
}

func NewSession(ws *websocket.Conn, coord *Coordinator, cfg NetworkConfig) *Session {
	s := &Session{
		ws:    ws,
		coord: coord,
		cfg:   cfg,
		send:  make(chan outFrame, cfg.SendQueueSize),
		done:  make(chan struct{}),
		room:  defaultRoom,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) ID() game.PlayerID { return s.id }

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Enqueue 将广播帧压入发送队列（非阻塞，满则丢弃，防止阻塞 Tick）
func (s *Session) Enqueue(b []byte) {
	s.enqueue(outFrame{typ: s.coord.MessageType(), data: b})
}

func (s *Session) enqueue(f outFrame) {
	select {
	case <-s.done:
	case s.send <- f:
	default:
		s.coord.Metrics().IncFramesDropped()
	}
}

// Start 向协调器注册并启动读写协程；注册失败时关闭连接
func (s *Session) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JoinTimeout)
	defer cancel()
	id, err := s.coord.Join(ctx, s)
	if err != nil {
		s.state.Store(int32(StateClosed))
		_ = s.ws.Close()
		return err
	}
	s.id = id
	s.touch()
	s.state.Store(int32(StateActive))

	go s.writePump()
	go s.readPump()
	return nil
}

func (s *Session) label() (room, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.name
}

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// close 所有退出路径（读错误、关闭帧、心跳超时、写失败）汇聚于此，
// 保证 Disconnect 只发送一次
func (s *Session) close(reason string) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		close(s.done)
		s.coord.Disconnect(s.id)
		_ = s.ws.Close()
		s.state.Store(int32(StateClosed))
		room, name := s.label()
		Log.Infow("session closed", "id", s.id, "room", room, "name", name, "reason", reason)
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时发送心跳
func (s *Session) writePump() {
	hb := time.NewTicker(s.cfg.HeartbeatInterval)
	defer hb.Stop()
	for {
		select {
		case <-s.done:
			return
		case f := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.ws.WriteMessage(f.typ, f.data); err != nil {
				s.close("write failed: " + err.Error())
				return
			}
		case now := <-hb.C:
			if s.idleFor(now) > s.cfg.ClientTimeout {
				s.close("heartbeat timeout")
				return
			}
			if err := s.ws.WriteControl(websocket.PingMessage, nil, now.Add(s.cfg.WriteTimeout)); err != nil {
				s.close("ping failed: " + err.Error())
				return
			}
		}
	}
}

// readPump 读取客户端消息：控制命令或输入负载
func (s *Session) readPump() {
	s.ws.SetReadLimit(s.cfg.ReadLimit)
	s.ws.SetPingHandler(func(appData string) error {
		s.touch()
		err := s.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(s.cfg.WriteTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	s.ws.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	for {
		typ, payload, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Log.Warnw("session read error", "id", s.id, "err", err)
			}
			s.close("read: " + err.Error())
			return
		}
		switch typ {
		case websocket.TextMessage:
			s.handleText(string(payload))
		default:
			Log.Debugw("unexpected non-text frame", "id", s.id, "type", typ)
		}
	}
}

func (s *Session) handleText(raw string) {
	msg := strings.TrimSpace(raw)
	if cmd, arg, ok := parseCommand(msg); ok {
		s.handleCommand(cmd, arg)
		return
	}
	in, err := ParseInput(msg)
	if err != nil {
		s.coord.Metrics().IncInputsRejected()
		Log.Debugw("bad input payload", "id", s.id, "payload", msg, "err", err)
		return
	}
	s.coord.Input(s.id, in)
}

func (s *Session) handleCommand(cmd, arg string) {
	switch cmd {
	case "/list":
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JoinTimeout)
		defer cancel()
		rooms, err := s.coord.ListRooms(ctx)
		if err != nil {
			Log.Warnw("list rooms failed", "id", s.id, "err", err)
			return
		}
		b, err := json.Marshal(roomsMessage{Type: "rooms", Rooms: rooms})
		if err != nil {
			Log.Errorw("encode rooms failed", "id", s.id, "err", err)
			return
		}
		s.enqueue(outFrame{typ: websocket.TextMessage, data: b})
	case "/join":
		if arg != "" {
			s.mu.Lock()
			s.room = arg
			s.mu.Unlock()
			s.coord.JoinRoom(s.id, arg)
		}
	case "/name":
		if arg != "" {
			s.mu.Lock()
			s.name = arg
			s.mu.Unlock()
			Log.Debugw("session renamed", "id", s.id, "name", arg)
		}
	default:
		Log.Infow("unknown command", "id", s.id, "cmd", cmd, "arg", arg)
	}
}

// HandleWS WebSocket 接入：每个连接一个 Session
func HandleWS(coord *Coordinator, cfg NetworkConfig) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 不做来源校验：会话无鉴权，来源限制交给前置代理
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
			return
		}
		s := NewSession(ws, coord, cfg)
		if err := s.Start(); err != nil {
			Log.Warnw("session join failed", "remote", r.RemoteAddr, "err", err)
		}
	}
}
