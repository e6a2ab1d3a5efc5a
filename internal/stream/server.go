// Package stream serves live engine frames over websockets. A single
// goroutine owns the engine; clients only read frames and queue commands.
package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/sandsim/internal/logx"
	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
)

const (
	DefaultFrameRate = 30
	commandBuffer    = 64
	writeTimeout     = time.Second
)

var (
	ErrBusy           = errors.New("command queue full")
	ErrUnknownCommand = errors.New("unknown command")
)

type Options struct {
	FrameRate int
	Seed      int64
	Emitter   scene.Emitter
	Log       logrus.FieldLogger
}

// Server advances an engine at a fixed frame rate and broadcasts a Frame
// to every connected client after each update.
type Server struct {
	engine   *sand.Engine
	emitter  scene.Emitter
	rng      *rand.Rand
	interval time.Duration
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
	commands chan Command

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	t      float64
	frames int
	paused bool
}

func New(engine *sand.Engine, opts Options) *Server {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Log == nil {
		opts.Log = logx.Discard()
	}
	return &Server{
		engine:   engine,
		emitter:  opts.Emitter,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		interval: time.Second / time.Duration(opts.FrameRate),
		log:      opts.Log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		commands: make(chan Command, commandBuffer),
		clients:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Handler routes /ws to the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Submit queues cmd for the simulation goroutine.
func (s *Server) Submit(cmd Command) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Run drives the engine until ctx is done. Commands are applied between
// updates, never during one.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	lastLog := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			if err := s.apply(cmd); err != nil {
				s.log.WithError(err).WithField("command", cmd.Type).Warn("command rejected")
			}
		case <-ticker.C:
			s.step()
			s.broadcast(s.frame())
			if time.Since(lastLog) > time.Second {
				lastLog = time.Now()
				st := s.engine.Stats()
				s.log.WithFields(logrus.Fields{
					"t":         fmt.Sprintf("%.2f", s.t),
					"particles": st.Count,
					"clients":   s.Clients(),
				}).Debug("frame")
			}
		}
	}
}

// ListenAndServe serves Handler on addr while Run drives the engine. Both
// stop when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("serving")
		errc <- srv.ListenAndServe()
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-runErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.closeClients()
	return nil
}

func (s *Server) step() {
	if s.paused {
		return
	}
	if err := s.emitter.Emit(s.engine); err != nil {
		s.log.WithError(err).Warn("emitter")
	}
	s.engine.Update(0)
	s.t += s.engine.Settings().TimeStep
	s.frames++
}

func (s *Server) frame() Frame {
	return Frame{
		Type:     "frame",
		T:        s.t,
		Paused:   s.paused,
		Stats:    s.engine.Stats(),
		Snapshot: s.engine.ParticleData(),
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("client connected")

	// held until the hello is out so no frame overtakes it
	connMutex := &sync.Mutex{}
	connMutex.Lock()
	s.clientsMu.Lock()
	s.clients[conn] = connMutex
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	err = conn.WriteJSON(newHello())
	connMutex.Unlock()
	if err != nil {
		log.WithError(err).Warn("hello")
		return
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			log.WithError(err).Debug("client gone")
			return
		}
		if err := s.Submit(cmd); err != nil {
			log.WithError(err).Warn("dropping command")
		}
	}
}

func (s *Server) broadcast(f Frame) {
	var failed []*websocket.Conn

	s.clientsMu.RLock()
	for client, mutex := range s.clients {
		mutex.Lock()
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := client.WriteJSON(f)
		mutex.Unlock()
		if err != nil {
			failed = append(failed, client)
		}
	}
	s.clientsMu.RUnlock()

	if len(failed) == 0 {
		return
	}
	s.clientsMu.Lock()
	for _, client := range failed {
		delete(s.clients, client)
		client.Close()
	}
	s.clientsMu.Unlock()
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}
