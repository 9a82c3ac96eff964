package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/internal/shared/types"
)

// loggingListener logs every accepted connection at debug level.
type loggingListener struct {
	net.Listener
	log zerolog.Logger
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		l.log.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("Connection accepted.")
	}
	return conn, err
}

// basicAuthMiddleware 检查 user 和 password 是否已配置。
// 如果配置了，它将强制执行 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	// 如果用户名或密码未设置，则不启用认证，直接返回原始处理器
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server 是只读的状态服务。
type Server struct {
	conf    types.WebConf
	handler *Handler
	hub     *Hub

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

func NewServer(conf types.WebConf, provider StatusProvider, hub *Hub) *Server {
	return &Server{
		conf:    conf,
		handler: NewHandler(provider),
		hub:     hub,
	}
}

// Routes builds the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// 当前可用代理需要认证
	mux.Handle("/api/proxies", basicAuthMiddleware(http.HandlerFunc(s.handler.HandleProxies), s.conf.User, s.conf.Password))

	// 公开的状态 API 与 WebSocket
	mux.HandleFunc("/api/status", s.handler.HandleStatus)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(s.hub, w, r)
	})
	return mux
}

// Start 在配置的端口上监听, 端口为 0 时不启动。服务在 wg 中运行直到 Shutdown。
func (s *Server) Start(wg *sync.WaitGroup) error {
	l := logger.WithComponent("Web/Server")
	if s.conf.Port <= 0 {
		l.Info().Msg("Web status service is disabled (port is 0 or not set).")
		return nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", s.conf.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start web status service on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.listener = listener
	s.mu.Unlock()

	l.Info().Msgf("SUCCESS: Web status service is listening on http://%s", listener.Addr())

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(loggingListener{Listener: listener, log: l}); err != nil && err != http.ErrServerClosed {
			l.Error().Err(err).Msg("Web server error")
		}
		l.Info().Msg("Web server stopped.")
	}()
	return nil
}

// Addr returns the listening address, or "" when the server is not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
