package rpc

import (
	"context"
	"fmt"

	"github.com/matheus3301/rolechat/internal/message"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to a workspace daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Send(ctx context.Context, req *SendRequest) (*message.Message, error) {
	return invoke[message.Message](ctx, c, "Send", req)
}

func (c *Client) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c, "History", req)
}

func (c *Client) Unread(ctx context.Context, req *UnreadRequest) (*UnreadResponse, error) {
	return invoke[UnreadResponse](ctx, c, "Unread", req)
}

func (c *Client) MarkRead(ctx context.Context, req *MessageRef) error {
	_, err := invoke[Empty](ctx, c, "MarkRead", req)
	return err
}

func (c *Client) Delete(ctx context.Context, req *MessageRef) error {
	_, err := invoke[Empty](ctx, c, "Delete", req)
	return err
}

func (c *Client) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c, "ListUsers", req)
}

func (c *Client) SetPresence(ctx context.Context, req *PresenceRequest) error {
	_, err := invoke[Empty](ctx, c, "SetPresence", req)
	return err
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "Status", &Empty{})
}

// EventStream receives events from Watch.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (s *EventStream) Recv() (*EventEnvelope, error) {
	evt := new(EventEnvelope)
	if err := s.stream.RecvMsg(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// Watch opens an event stream. Cancel ctx to end it.
func (c *Client) Watch(ctx context.Context, req *WatchRequest) (*EventStream, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/Watch")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
