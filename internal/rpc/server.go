package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/matheus3301/rolechat/internal/bus"
	"github.com/matheus3301/rolechat/internal/chat"
	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Handler implements ChatServer on top of the chat service.
type Handler struct {
	workspace string
	svc       *chat.Service
	log       *message.Log
	dir       *directory.Directory
	machine   *status.Machine
	bus       *bus.Bus
	pending   func() int

	quit      chan struct{}
	closeOnce sync.Once
}

// NewHandler creates the gRPC handler. pending reports scheduled read
// receipts and may be nil.
func NewHandler(workspace string, svc *chat.Service, log *message.Log, dir *directory.Directory, machine *status.Machine, b *bus.Bus, pending func() int) *Handler {
	return &Handler{
		workspace: workspace,
		svc:       svc,
		log:       log,
		dir:       dir,
		machine:   machine,
		bus:       b,
		pending:   pending,
		quit:      make(chan struct{}),
	}
}

// Close ends all open Watch streams.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

func (h *Handler) Send(ctx context.Context, req *SendRequest) (*message.Message, error) {
	m, err := h.svc.Send(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &m, nil
}

func (h *Handler) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	msgs, err := h.svc.History(ctx, req.ViewerID, req.A, req.B)
	if err != nil {
		return nil, toStatus(err)
	}
	return &HistoryResponse{Messages: msgs}, nil
}

func (h *Handler) Unread(ctx context.Context, req *UnreadRequest) (*UnreadResponse, error) {
	var (
		n   int
		err error
	)
	if req.FromID != 0 {
		n, err = h.svc.UnreadFrom(ctx, req.UserID, req.FromID)
	} else {
		n, err = h.svc.Unread(ctx, req.UserID)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &UnreadResponse{Count: n}, nil
}

func (h *Handler) MarkRead(ctx context.Context, req *MessageRef) (*Empty, error) {
	if err := h.svc.MarkRead(ctx, req.ActorID, req.MessageID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *Handler) Delete(ctx context.Context, req *MessageRef) (*Empty, error) {
	if err := h.svc.Delete(ctx, req.ActorID, req.MessageID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *Handler) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	users, err := h.svc.Users(ctx, req.ViewerID, req.Query, req.Role)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListUsersResponse{Users: users}, nil
}

func (h *Handler) SetPresence(ctx context.Context, req *PresenceRequest) (*Empty, error) {
	h.svc.SetPresence(ctx, req.UserID, req.Online)
	return &Empty{}, nil
}

func (h *Handler) Status(_ context.Context, _ *Empty) (*StatusResponse, error) {
	resp := &StatusResponse{
		Workspace: h.workspace,
		State:     string(h.machine.Current()),
		Since:     h.machine.Since().UTC(),
		Messages:  h.log.Len(),
		Users:     len(h.dir.List()),
	}
	if h.pending != nil {
		resp.Pending = h.pending()
	}
	return resp, nil
}

func (h *Handler) Watch(req *WatchRequest, stream grpc.ServerStream) error {
	ch, unsub := h.bus.Subscribe(req.Prefix, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				return grpcstatus.Errorf(codes.Internal, "encode %s payload: %v", evt.Kind, err)
			}
			if err := stream.SendMsg(&EventEnvelope{
				ID:         evt.ID,
				Workspace:  h.workspace,
				Kind:       evt.Kind,
				OccurredAt: evt.Timestamp,
				Payload:    payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		case <-h.quit:
			return nil
		}
	}
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case chat.IsValidation(err):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, chat.ErrPermissionDenied):
		return grpcstatus.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, chat.ErrUnknownUser):
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.Is(err, chat.ErrDuplicateEmail):
		return grpcstatus.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		return grpcstatus.Error(codes.ResourceExhausted, err.Error())
	}
	return grpcstatus.Errorf(codes.Internal, "%v", err)
}

// Server manages the gRPC server lifecycle for a workspace daemon.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the Unix domain socket at
// socketPath.
func NewServer(socketPath string, h ChatServer, logger *zap.Logger) (*Server, error) {
	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(logUnary(logger)),
	)
	RegisterChatServer(srv, h)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file. If ctx
// expires first, remaining RPCs are cut off.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
	_ = os.Remove(s.socketPath)
}

func logUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		method := info.FullMethod[strings.LastIndexByte(info.FullMethod, '/')+1:]
		if err != nil {
			logger.Debug("rpc failed", zap.String("method", method), zap.Error(err))
		}
		return resp, err
	}
}
