// internal/transport/tcp/server_test.go
package tcp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tamzrod/handler-simulator/internal/command"
	"github.com/tamzrod/handler-simulator/internal/handler"
	"github.com/tamzrod/handler-simulator/internal/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSubmitter struct {
	mu    sync.Mutex
	lines []string
	reply map[string]runner.Response
}

func (f *fakeSubmitter) Submit(ctx context.Context, line string) (runner.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return f.reply[line], nil
}

func (f *fakeSubmitter) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// serve starts a server on a loopback port and stops it on cleanup.
func serve(t *testing.T, cfg Config, sub Submitter) *Server {
	t.Helper()

	cfg.Address = "127.0.0.1:0"
	s, err := Listen(cfg, sub, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
	})
	return s
}

func dial(t *testing.T, s *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))
	return c, bufio.NewReader(c)
}

func TestServer_RepliesWithEOC(t *testing.T) {
	sub := &fakeSubmitter{reply: map[string]runner.Response{
		"idn?":   {Reply: command.Reply{Text: "SIM,1"}, HasReply: true},
		"broken": {Reply: command.Reply{Text: " ", Raw: true}, HasReply: true},
	}}
	s := serve(t, Config{EOC: "\r\n"}, sub)
	c, r := dial(t, s)

	_, err := c.Write([]byte("start\nidn?\r\nbroken\n"))
	require.NoError(t, err)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "SIM,1\r\n", line)

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, " \n", line, "raw replies use a bare newline")

	assert.Equal(t, []string{"start", "idn?", "broken"}, sub.received())
}

func TestServer_BroadcastReachesEveryClient(t *testing.T) {
	sub := &fakeSubmitter{reply: map[string]runner.Response{
		"ping?": {Reply: command.Reply{Text: "PONG"}, HasReply: true},
	}}
	s := serve(t, Config{}, sub)

	var readers []*bufio.Reader
	for i := 0; i < 2; i++ {
		c, r := dial(t, s)
		// round trip so the client is registered before broadcasting
		_, err := c.Write([]byte("ping?\n"))
		require.NoError(t, err)
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "PONG\n", line)
		readers = append(readers, r)
	}

	s.Notify(runner.Event{Kind: runner.EventStatus})
	s.Notify(runner.Event{Kind: runner.EventSRQ, SRQ: 0xC3})

	for _, r := range readers {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "SRQ 0xC3\n", line)
	}
}

func TestServer_WithRunner(t *testing.T) {
	h, err := handler.New(handler.Setup{NumOfSites: 2, NumOfDevicesToTest: 10})
	require.NoError(t, err)
	in := command.New(h, command.Device{Model: "SIM", SoftwareVersion: "2", SRQMask: 0xFF}, nil)
	run, err := runner.New(runner.Config{Interval: time.Hour}, in, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan runner.Event, 16)
	done := make(chan struct{})
	go func() {
		run.Run(ctx, events)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s := serve(t, Config{}, run)
	c, r := dial(t, s)

	_, err = c.Write([]byte("IDN?\nstat?\n"))
	require.NoError(t, err)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "SIM,2\n", line)

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "STAT 0 10 stopped", strings.TrimSpace(line))
}

func TestListen_Validation(t *testing.T) {
	_, err := Listen(Config{Address: "127.0.0.1:0"}, nil, nil)
	assert.Error(t, err)

	_, err = Listen(Config{Address: "256.0.0.1:bad"}, &fakeSubmitter{}, nil)
	assert.Error(t, err)
}

func TestSRQLine(t *testing.T) {
	assert.Equal(t, "SRQ 0x05", SRQLine(0x05))
}
