package bus

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection with the reconnect policy used by the
// derivation worker.
type Client struct {
	nc *nats.Conn
}

// Connect dials the NATS server and keeps reconnecting indefinitely.
func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

// Close drains the connection
func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// Conn returns the underlying connection
func (c *Client) Conn() *nats.Conn { return c.nc }

// QueueSubscribe delivers each message on subject to handler, distributing
// across members of the same queue group. Each delivery gets a bounded context.
func (c *Client) QueueSubscribe(subject, queue string, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		handler(ctx, msg.Data)
	})
}
