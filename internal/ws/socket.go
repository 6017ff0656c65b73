package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
	"github.com/talktagger/server/internal/content"
	"github.com/talktagger/server/internal/game"
	"github.com/talktagger/server/internal/pipeline"
)

// ConnCtx is the per-connection context: which session the connection is in
// and which durable token it authenticated with.
type ConnCtx struct {
	Code  string
	Token string
	Role  string // "host" | "player"
}

type Server struct {
	reg    *game.Registry
	status *pipeline.Tracker
	pool   *content.Pool

	io *socketio.Server

	mu    sync.Mutex
	conns map[string]socketio.Conn // connID -> conn
}

func New(status *pipeline.Tracker) *Server {
	return &Server{status: status, conns: make(map[string]socketio.Conn)}
}

func (srv *Server) SetRegistry(reg *game.Registry) { srv.reg = reg }
func (srv *Server) SetPool(pool *content.Pool)     { srv.pool = pool }

// ToRoom and ToConn make the server the engine's Emitter.

func (srv *Server) ToRoom(room, event string, payload any) {
	if srv.io != nil {
		srv.io.BroadcastToRoom("/", room, event, payload)
	}
}

func (srv *Server) ToConn(connID, event string, payload any) {
	srv.mu.Lock()
	c := srv.conns[connID]
	srv.mu.Unlock()
	if c != nil {
		c.Emit(event, payload)
	}
}

// Broadcast fans an event out to every connected client, session or not.
// Used for pipeline status passthrough.
func (srv *Server) Broadcast(event string, payload any) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for _, c := range srv.conns {
		c.Emit(event, payload)
	}
}

// Mount attaches the Socket.IO server with all game handlers to the Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		srv.mu.Lock()
		srv.conns[s.ID()] = s
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		s.Emit("pipeline_status_update", srv.status.Get())
		return nil
	})

	io.OnEvent("/", "create_session", func(s socketio.Conn, payload struct {
		DisplayName string `json:"display_name"`
	}) map[string]any {
		return srv.safe(s, func() map[string]any {
			name := payload.DisplayName
			if name == "" {
				name = "Host Display"
			}
			sess, err := srv.reg.CreateSession(s.ID(), name, srv.pool)
			if err != nil {
				return srv.fail(s, err)
			}
			s.SetContext(&ConnCtx{Code: sess.Code, Token: sess.HostToken, Role: "host"})
			s.Join(sess.Code)
			log.Info().Str("sid", s.ID()).Str("code", sess.Code).Msg("create_session")
			s.Emit("session_created", map[string]any{
				"code":       sess.Code,
				"host_token": sess.HostToken,
				"host_name":  sess.HostName(),
			})
			return map[string]any{"code": sess.Code, "hostToken": sess.HostToken}
		})
	})

	io.OnEvent("/", "join_session", func(s socketio.Conn, payload struct {
		Code       string `json:"code"`
		PlayerName string `json:"player_name"`
	}) map[string]any {
		return srv.safe(s, func() map[string]any {
			code := strings.ToUpper(strings.TrimSpace(payload.Code))
			name := strings.TrimSpace(payload.PlayerName)
			if code == "" || name == "" {
				return srv.fail(s, game.ErrCodeRequired)
			}
			sess, err := srv.reg.Get(code)
			if err != nil {
				return srv.fail(s, err)
			}
			token, names, err := sess.Join(s.ID(), name)
			if err != nil {
				return srv.fail(s, err)
			}
			srv.reg.Bind(s.ID(), sess.Code, false)
			s.SetContext(&ConnCtx{Code: sess.Code, Token: token, Role: "player"})
			s.Join(sess.Code)
			log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("player", name).Msg("join_session")
			srv.ToRoom(sess.Code, "player_joined", map[string]any{
				"player_name":   name,
				"players":       names,
				"players_count": len(names),
			})
			s.Emit("joined_session", map[string]any{
				"code":         sess.Code,
				"player_name":  name,
				"players":      names,
				"player_token": token,
			})
			return map[string]any{"playerToken": token}
		})
	})

	io.OnEvent("/", "start_session", func(s socketio.Conn) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.sessionOf(s)
			if err != nil {
				return srv.fail(s, err)
			}
			if err := sess.Start(s.ID()); err != nil {
				return srv.fail(s, err)
			}
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "submit_answer", func(s socketio.Conn, payload struct {
		Value string `json:"value"`
	}) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.sessionOf(s)
			if err != nil {
				return srv.fail(s, err)
			}
			if err := sess.SubmitAnswer(s.ID(), payload.Value, time.Now()); err != nil {
				return srv.fail(s, err)
			}
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "mark_ready", func(s socketio.Conn) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.sessionOf(s)
			if err != nil {
				return srv.fail(s, err)
			}
			if err := sess.MarkReady(s.ID()); err != nil {
				return srv.fail(s, err)
			}
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "advance_round", func(s socketio.Conn) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.sessionOf(s)
			if err != nil {
				return srv.fail(s, err)
			}
			if err := sess.AdvanceRound(s.ID()); err != nil {
				return srv.fail(s, err)
			}
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "request_current_round", func(s socketio.Conn) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.sessionOf(s)
			if err != nil {
				return srv.fail(s, err)
			}
			event, view, err := sess.CurrentRound(s.ID())
			if err != nil {
				return srv.fail(s, err)
			}
			s.Emit(event, view)
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "host_reconnect", func(s socketio.Conn, payload struct {
		HostToken string `json:"host_token"`
	}) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.reg.FindByHostToken(payload.HostToken)
			if err != nil {
				return srv.fail(s, err)
			}
			old := sess.ReconnectHost(s.ID())
			srv.reg.Rebind(old, s.ID(), sess.Code, true)
			s.SetContext(&ConnCtx{Code: sess.Code, Token: payload.HostToken, Role: "host"})
			s.Join(sess.Code)
			log.Info().Str("sid", s.ID()).Str("code", sess.Code).Msg("host_reconnect")
			s.Emit("host_reconnected", map[string]any{
				"code":          sess.Code,
				"session_state": string(sess.State()),
			})
			if event, view, err := sess.CurrentRound(s.ID()); err == nil {
				s.Emit(event, view)
			}
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "player_reconnect", func(s socketio.Conn, payload struct {
		PlayerToken string `json:"player_token"`
		PlayerName  string `json:"player_name"`
		Code        string `json:"code"`
	}) map[string]any {
		return srv.safe(s, func() map[string]any {
			sess, err := srv.reg.Get(payload.Code)
			if err != nil {
				return srv.fail(s, err)
			}
			name, old, err := sess.ReconnectPlayer(payload.PlayerToken, s.ID())
			if err != nil {
				return srv.fail(s, err)
			}
			srv.reg.Rebind(old, s.ID(), sess.Code, false)
			s.SetContext(&ConnCtx{Code: sess.Code, Token: payload.PlayerToken, Role: "player"})
			s.Join(sess.Code)
			log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("player", name).Msg("player_reconnect")
			s.Emit("joined_session", map[string]any{
				"code":         sess.Code,
				"player_name":  name,
				"players":      sess.PlayerNames(),
				"player_token": payload.PlayerToken,
			})
			if event, view, err := sess.CurrentRound(s.ID()); err == nil {
				s.Emit(event, view)
			}
			return map[string]any{"ok": true}
		})
	})

	io.OnEvent("/", "heartbeat", func(s socketio.Conn) map[string]any {
		s.Emit("heartbeat_response", map[string]any{"timestamp": time.Now().Unix()})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "check_pipeline_status", func(s socketio.Conn) map[string]any {
		s.Emit("pipeline_status_update", srv.status.Get())
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.mu.Lock()
		delete(srv.conns, s.ID())
		srv.mu.Unlock()
		srv.reg.Disconnect(s.ID(), time.Now())
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) sessionOf(s socketio.Conn) (*game.Session, error) {
	ctx, _ := s.Context().(*ConnCtx)
	if ctx == nil || ctx.Code == "" {
		return nil, game.ErrNotInSession
	}
	return srv.reg.Get(ctx.Code)
}

// safe runs a handler and converts a panic into a logged generic error event
// so a fault in one handler cannot take the session down.
func (srv *Server) safe(s socketio.Conn, fn func() map[string]any) (out map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("sid", s.ID()).Interface("panic", r).Msg("handler panic")
			s.Emit("error", map[string]any{"message": "internal error"})
			out = map[string]any{"error": "internal error"}
		}
	}()
	return fn()
}

func (srv *Server) fail(s socketio.Conn, err error) map[string]any {
	s.Emit("error", map[string]any{"message": err.Error()})
	return map[string]any{"error": err.Error()}
}
