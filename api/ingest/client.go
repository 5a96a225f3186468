package ingest

import (
	"context"
	"errors"

	"mimir/domain/event"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protowire"
)

var ErrBadAck = errors.New("ingest: malformed ack")

// Client publishes events to a remote collector.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a collector. Callers supply transport credentials via
// opts, the same way they would for any gRPC client.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection (tests use bufconn).
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error { return c.conn.Close() }

var publishStreamDesc = grpc.StreamDesc{
	StreamName:    "Publish",
	ClientStreams: true,
}

// Publish opens a client stream. Send events, then CloseAndRecv for the
// count the collector accepted.
func (c *Client) Publish(ctx context.Context) (*PublishStream, error) {
	s, err := c.conn.NewStream(ctx, &publishStreamDesc, publishMethod, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		return nil, err
	}
	return &PublishStream{s: s}, nil
}

type PublishStream struct {
	s grpc.ClientStream
}

func (p *PublishStream) Send(ev event.Event) error {
	f := frame(ev.Encode())
	return p.s.SendMsg(&f)
}

// SendRaw forwards an already-encoded frame.
func (p *PublishStream) SendRaw(b []byte) error {
	f := frame(b)
	return p.s.SendMsg(&f)
}

// CloseAndRecv finishes the stream and returns the accepted-event count.
func (p *PublishStream) CloseAndRecv() (uint64, error) {
	if err := p.s.CloseSend(); err != nil {
		return 0, err
	}
	var ack frame
	if err := p.s.RecvMsg(&ack); err != nil {
		return 0, err
	}
	return decodeAck(ack)
}

func decodeAck(b []byte) (uint64, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 || num != 1 || typ != protowire.VarintType {
		return 0, ErrBadAck
	}
	v, n2 := protowire.ConsumeVarint(b[n:])
	if n2 < 0 {
		return 0, ErrBadAck
	}
	return v, nil
}
