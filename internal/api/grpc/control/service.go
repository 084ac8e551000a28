package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "vibrationalarm.v1.ControlService"

	// SendCommandMethod is the full method name of SendCommand.
	SendCommandMethod = "/" + ServiceName + "/SendCommand"
	// GetStateMethod is the full method name of GetState.
	GetStateMethod = "/" + ServiceName + "/GetState"
)

// ControlServer is the server side of the control service.
type ControlServer interface {
	SendCommand(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the control service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendCommand", Handler: sendCommandHandler},
		{MethodName: "GetState", Handler: getStateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vibrationalarm/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func sendCommandHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(ControlServer)

	if interceptor == nil {
		return server.SendCommand(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendCommandMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*wrapperspb.StringValue)
		return server.SendCommand(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

func getStateHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature is fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(ControlServer)

	if interceptor == nil {
		return server.GetState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*emptypb.Empty)
		return server.GetState(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

// ControlClient is the client side of the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient wraps a connection.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// SendCommand calls ControlService.SendCommand.
func (c *ControlClient) SendCommand(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SendCommandMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// GetState calls ControlService.GetState.
func (c *ControlClient) GetState(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStateMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
