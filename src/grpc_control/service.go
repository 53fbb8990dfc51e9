package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"orderbook-observer/src/config"
	"orderbook-observer/src/engine"
	"orderbook-observer/src/history"
	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements BookControlServer on top of the book service.
type ControlService struct {
	Config     *config.Config
	Service    interfaces.IBookService
	ConfigPath string
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService. When cfgPath is
// set, a successful symbol change is saved as the new default symbol.
func NewControlService(cfg *config.Config, svc interfaces.IBookService, cfgPath string, log *logger.Logger) *ControlService {
	return &ControlService{
		Config:     cfg,
		Service:    svc,
		ConfigPath: cfgPath,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetSymbol(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	symbol := req.GetValue()
	if symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol is required")
	}
	if err := s.Service.SetSymbol(ctx, symbol); err != nil {
		return nil, toStatus(err)
	}

	if s.ConfigPath != "" {
		// the live config is shared with readers, so a copy is saved
		saved := *s.Config.MConfig
		saved.DefaultSymbol = symbol
		if err := (&config.Config{MConfig: &saved}).Save(s.ConfigPath); err != nil {
			s.Logger.Warning("gRPC: failed to persist default symbol %s: %v", symbol, err)
		}
	}
	s.Logger.Info("gRPC: desired symbol set to %s", symbol)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetTimeTravel(ctx context.Context, req *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	if err := s.Service.SetTimeTravel(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) ToggleTimeTravel(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.Service.ToggleTimeTravel(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) Scrub(ctx context.Context, req *wrapperspb.Int32Value) (*emptypb.Empty, error) {
	if err := s.Service.Scrub(ctx, int(req.GetValue())); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetBook(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	state, ok := s.Service.BookState(req.GetValue())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no book for %q", req.GetValue())
	}
	return toStruct(state)
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetView(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Service.CurrentView())
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Service.Status())
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Serve registers the control service on a new grpc.Server and serves lis in
// the background. The caller stops it with GracefulStop.
func Serve(lis net.Listener, svc BookControlServer, log *logger.Logger) *grpc.Server {
	srv := grpc.NewServer()
	RegisterBookControlServer(srv, svc)
	go func() {
		log.Info("gRPC control listening on %s", lis.Addr())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("gRPC control server failed: %v", err)
		}
	}()
	return srv
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func toStatus(err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownSymbol):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, history.ErrNoSnapshot), errors.Is(err, history.ErrTimeTravelDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, history.ErrIndexOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, engine.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-tagged model into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("decode: %v", err))
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
