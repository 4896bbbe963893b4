package rpc

import (
	"context"

	"github.com/matheus3301/rolechat/internal/message"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rolechat.v1.Chat"

// ChatServer is the server side of the Chat service.
type ChatServer interface {
	Send(context.Context, *SendRequest) (*message.Message, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Unread(context.Context, *UnreadRequest) (*UnreadResponse, error)
	MarkRead(context.Context, *MessageRef) (*Empty, error)
	Delete(context.Context, *MessageRef) (*Empty, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	SetPresence(context.Context, *PresenceRequest) (*Empty, error)
	Status(context.Context, *Empty) (*StatusResponse, error)
	Watch(*WatchRequest, grpc.ServerStream) error
}

// RegisterChatServer registers srv on s.
func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req any, Resp any](name string, call func(ChatServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Chat service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Send", ChatServer.Send),
		unary("History", ChatServer.History),
		unary("Unread", ChatServer.Unread),
		unary("MarkRead", ChatServer.MarkRead),
		unary("Delete", ChatServer.Delete),
		unary("ListUsers", ChatServer.ListUsers),
		unary("SetPresence", ChatServer.SetPresence),
		unary("Status", ChatServer.Status),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ChatServer).Watch(in, stream)
			},
		},
	},
}
