package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "orderbook.control.v1.BookControl"

// BookControlServer is the server API for the BookControl service. Messages are
// protobuf well-known types so no generated code is needed.
type BookControlServer interface {
	SetSymbol(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SetTimeTravel(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error)
	ToggleTimeTravel(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Scrub(context.Context, *wrapperspb.Int32Value) (*emptypb.Empty, error)
	GetBook(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetView(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterBookControlServer attaches srv to a grpc.Server.
func RegisterBookControlServer(s grpc.ServiceRegistrar, srv BookControlServer) {
	s.RegisterService(&BookControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------

var BookControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SetSymbol", BookControlServer.SetSymbol),
		unary("SetTimeTravel", BookControlServer.SetTimeTravel),
		unary("ToggleTimeTravel", BookControlServer.ToggleTimeTravel),
		unary("Scrub", BookControlServer.Scrub),
		unary("GetBook", BookControlServer.GetBook),
		unary("GetView", BookControlServer.GetView),
		unary("GetStatus", BookControlServer.GetStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orderbook/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

func unary[Req any, Resp any](name string, call func(BookControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(BookControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type BookControlClient struct {
	cc grpc.ClientConnInterface
}

func NewBookControlClient(cc grpc.ClientConnInterface) *BookControlClient {
	return &BookControlClient{cc: cc}
}

func (c *BookControlClient) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}

func (c *BookControlClient) SetSymbol(ctx context.Context, symbol string) error {
	return c.invoke(ctx, "SetSymbol", wrapperspb.String(symbol), new(emptypb.Empty))
}

func (c *BookControlClient) SetTimeTravel(ctx context.Context, enabled bool) error {
	return c.invoke(ctx, "SetTimeTravel", wrapperspb.Bool(enabled), new(emptypb.Empty))
}

func (c *BookControlClient) ToggleTimeTravel(ctx context.Context) error {
	return c.invoke(ctx, "ToggleTimeTravel", new(emptypb.Empty), new(emptypb.Empty))
}

func (c *BookControlClient) Scrub(ctx context.Context, index int32) error {
	return c.invoke(ctx, "Scrub", wrapperspb.Int32(index), new(emptypb.Empty))
}

func (c *BookControlClient) GetBook(ctx context.Context, symbol string) (map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "GetBook", wrapperspb.String(symbol), out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *BookControlClient) GetView(ctx context.Context) (map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "GetView", new(emptypb.Empty), out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *BookControlClient) GetStatus(ctx context.Context) (map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "GetStatus", new(emptypb.Empty), out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
