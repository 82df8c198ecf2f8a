package daemon

import (
	"context"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/nrser/drt/pkg/protocol"
)

// Client talks to a running daemon over its unix socket.
type Client struct {
	conn *jsonrpc2.Conn
}

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}

func Dial(ctx context.Context, socketPath string) (*Client, error) {
	netConn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, err
	}

	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, noopHandler{})

	return &Client{conn: conn}, nil
}

func (c *Client) Run(ctx context.Context, req *protocol.RunRequest) (*protocol.RunResponse, error) {
	var resp protocol.RunResponse
	if err := c.conn.Call(ctx, protocol.MethodRun, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Last(ctx context.Context) (*protocol.RunResponse, error) {
	var resp protocol.RunResponse
	if err := c.conn.Call(ctx, protocol.MethodLast, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Status(ctx context.Context) (*protocol.StatusResponse, error) {
	var resp protocol.StatusResponse
	if err := c.conn.Call(ctx, protocol.MethodStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	var resp protocol.ShutdownResponse
	return c.conn.Call(ctx, protocol.MethodShutdown, nil, &resp)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
