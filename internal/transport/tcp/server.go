// internal/transport/tcp/server.go
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/tamzrod/handler-simulator/internal/runner"
)

// maxLineSize bounds one command line.
const maxLineSize = 4096

// Submitter executes one command line. *runner.Runner satisfies it.
type Submitter interface {
	Submit(ctx context.Context, line string) (runner.Response, error)
}

// Config is the runtime config of the command link.
type Config struct {
	Address string
	EOC     string // end-of-command appended to every reply
}

// Server accepts line oriented command connections.
type Server struct {
	cfg Config
	sub Submitter
	log *zap.Logger
	ln  net.Listener

	mu    sync.Mutex
	conns map[*conn]struct{}
	wg    sync.WaitGroup
}

type conn struct {
	c  net.Conn
	mu sync.Mutex // serialises replies and broadcasts
}

func (c *conn) writeLine(text, eoc string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.c.Write([]byte(text + eoc))
	return err
}

// Listen binds the command link.
func Listen(cfg Config, sub Submitter, log *zap.Logger) (*Server, error) {
	if sub == nil {
		return nil, errors.New("tcp: submitter required")
	}
	if cfg.EOC == "" {
		cfg.EOC = "\n"
	}
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", cfg.Address, err)
	}
	return &Server{
		cfg:   cfg,
		sub:   sub,
		log:   log,
		ln:    ln,
		conns: make(map[*conn]struct{}),
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is cancelled, then closes every
// connection and waits for their goroutines.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("command link listening", zap.String("address", s.Addr().String()))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		s.ln.Close()
	}()

	var err error
	for {
		c, aerr := s.ln.Accept()
		if aerr != nil {
			if ctx.Err() == nil {
				err = fmt.Errorf("tcp: accept: %w", aerr)
			}
			break
		}
		s.add(ctx, c)
	}

	s.closeAll()
	s.wg.Wait()
	return err
}

func (s *Server) add(ctx context.Context, c net.Conn) {
	cc := &conn{c: c}

	s.mu.Lock()
	s.conns[cc] = struct{}{}
	s.mu.Unlock()

	s.log.Info("client connected", zap.String("remote", c.RemoteAddr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleConn(ctx, cc)
	}()
}

func (s *Server) remove(cc *conn) {
	s.mu.Lock()
	delete(s.conns, cc)
	s.mu.Unlock()
	cc.c.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cc := range s.conns {
		cc.c.Close()
	}
}

func (s *Server) handleConn(ctx context.Context, cc *conn) {
	defer s.remove(cc)
	log := s.log.With(zap.String("remote", cc.c.RemoteAddr().String()))

	sc := bufio.NewScanner(cc.c)
	sc.Buffer(make([]byte, 0, 256), maxLineSize)

	for sc.Scan() {
		resp, err := s.sub.Submit(ctx, sc.Text())
		if err != nil {
			log.Debug("submit failed, closing connection", zap.Error(err))
			return
		}
		if !resp.HasReply {
			continue
		}

		eoc := s.cfg.EOC
		if resp.Reply.Raw {
			eoc = "\n"
		}
		if err := cc.writeLine(resp.Reply.Text, eoc); err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Debug("read failed", zap.Error(err))
	}
	log.Info("client disconnected")
}

// Broadcast writes one line to every connected client.
func (s *Server) Broadcast(text string) {
	s.mu.Lock()
	targets := make([]*conn, 0, len(s.conns))
	for cc := range s.conns {
		targets = append(targets, cc)
	}
	s.mu.Unlock()

	for _, cc := range targets {
		if err := cc.writeLine(text, s.cfg.EOC); err != nil {
			s.log.Debug("broadcast failed", zap.Error(err))
		}
	}
}

// Notify forwards runner events the command link cares about.
func (s *Server) Notify(ev runner.Event) {
	if ev.Kind == runner.EventSRQ {
		s.Broadcast(SRQLine(ev.SRQ))
	}
}

// SRQLine formats a service request notification.
func SRQLine(srq byte) string {
	return fmt.Sprintf("SRQ 0x%02X", srq)
}
