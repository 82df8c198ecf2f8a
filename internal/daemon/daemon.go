// Package daemon keeps a long-lived test service on a unix socket so
// repeated runs skip process startup, and so watch mode can push results.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/nrser/drt/internal/logger"
	"github.com/nrser/drt/pkg/protocol"
)

var log = logger.ForComponent("daemon")

// RunFunc executes a run request. The daemon serializes calls to it.
type RunFunc func(ctx context.Context, req *protocol.RunRequest) (*protocol.RunResponse, error)

type Daemon struct {
	socketPath string
	root       string
	watching   bool
	run        RunFunc

	listener  net.Listener
	conns     map[*jsonrpc2.Conn]bool
	connMu    sync.Mutex
	startTime time.Time

	runMu      sync.Mutex
	runsServed int64

	lastMu sync.RWMutex
	last   *protocol.RunResponse

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func New(socketPath, root string, watching bool, run RunFunc) *Daemon {
	return &Daemon{
		socketPath: socketPath,
		root:       root,
		watching:   watching,
		run:        run,
		conns:      make(map[*jsonrpc2.Conn]bool),
		startTime:  time.Now(),
		shutdown:   make(chan struct{}),
	}
}

// Start binds the socket and serves until Shutdown is called.
func (d *Daemon) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.socketPath), 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(d.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	d.listener = listener

	if err := os.Chmod(d.socketPath, 0700); err != nil {
		listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	log.Info("listening", "socket", d.socketPath, "root", d.root)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
				log.Debug("accept failed", "error", err)
				continue
			}
		}

		stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.PlainObjectCodec{})
		rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(d.handle))

		d.connMu.Lock()
		d.conns[rpcConn] = true
		d.connMu.Unlock()

		go func() {
			<-rpcConn.DisconnectNotify()
			d.connMu.Lock()
			delete(d.conns, rpcConn)
			d.connMu.Unlock()
		}()
	}
}

func (d *Daemon) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	log.Debug("request", "method", req.Method)

	switch req.Method {
	case protocol.MethodRun:
		var params protocol.RunRequest
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		return d.handleRun(ctx, &params)

	case protocol.MethodLast:
		d.lastMu.RLock()
		last := d.last
		d.lastMu.RUnlock()
		if last == nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "no runs yet"}
		}
		return last, nil

	case protocol.MethodStatus:
		return &protocol.StatusResponse{
			PID:        os.Getpid(),
			Root:       d.root,
			UptimeSec:  int64(time.Since(d.startTime).Seconds()),
			Watching:   d.watching,
			RunsServed: atomic.LoadInt64(&d.runsServed),
		}, nil

	case protocol.MethodShutdown:
		go d.Shutdown()
		return &protocol.ShutdownResponse{OK: true}, nil

	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		}
	}
}

func (d *Daemon) handleRun(ctx context.Context, params *protocol.RunRequest) (interface{}, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	resp, err := d.run(ctx, params)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}

	atomic.AddInt64(&d.runsServed, 1)
	d.SetLast(resp)
	return resp, nil
}

// SetLast records the most recent results, whether the run came from a
// client request or the file watcher.
func (d *Daemon) SetLast(resp *protocol.RunResponse) {
	d.lastMu.Lock()
	d.last = resp
	d.lastMu.Unlock()
}

func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		log.Info("shutting down")
		close(d.shutdown)

		if d.listener != nil {
			d.listener.Close()
		}

		d.connMu.Lock()
		for conn := range d.conns {
			conn.Close()
		}
		d.connMu.Unlock()

		os.Remove(d.socketPath)
	})
}

// Done is closed once Shutdown has been requested.
func (d *Daemon) Done() <-chan struct{} {
	return d.shutdown
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}
