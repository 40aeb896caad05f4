package linewire

import (
	"context"
	"fmt"

	"linewire/dataline"
	"linewire/gonet"
)

type Client struct {
	cli *gonet.Client
}

func NewClient(ctx context.Context, addr string, minConns, maxConns int) (*Client, error) {
	cli, err := gonet.NewClient(ctx, addr, minConns, maxConns)
	if err != nil {
		return nil, err
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() {
	c.cli.Close()
}

// Call sends req and returns the reply line. Error replies are returned as
// errors wrapping ErrGenError, ErrClientError or ErrServerError.
func (c *Client) Call(ctx context.Context, req *dataline.Line) (*dataline.Line, error) {
	resp, err := c.cli.Call(ctx, req.String())
	if err != nil {
		return nil, err
	}
	reply := dataline.New(resp)
	if reply.Name() == "" {
		return nil, fmt.Errorf("empty reply to %s: %w", req.Name(), ErrBadResponse)
	}
	if err := maybeError(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// CallString sends a raw line and returns the raw reply.
func (c *Client) CallString(ctx context.Context, data string) (string, error) {
	return c.cli.Call(ctx, data)
}
