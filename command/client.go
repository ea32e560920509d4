package command

import (
	"fmt"
	"net"
)

// Client is the controller-side end of the channel. It writes one float per
// command; batching several calls before the engine reads them is harmless
// because the engine applies only the last float of a batch.
type Client struct {
	conn net.Conn
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// SendSpeed commands a new scale factor. Negative values are delivered but
// ignored by the engine.
func (c *Client) SendSpeed(scale float32) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if _, err := c.conn.Write(Encode(nil, scale)); err != nil {
		return fmt.Errorf("send speed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
