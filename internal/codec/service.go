// Package codec exposes the decision engine over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated code.
package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
const ServiceName = "harness.v1.DecisionService"

const (
	decideMethod = "/" + ServiceName + "/Decide"
	limitsMethod = "/" + ServiceName + "/Limits"
)

// DecisionServiceServer is the server API for the decision service.
type DecisionServiceServer interface {
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Limits(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// DecisionServiceClient is the client API for the decision service.
type DecisionServiceClient interface {
	Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Limits(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// DecisionServiceDesc describes the service to grpc.Server.
var DecisionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DecisionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: decideHandler},
		{MethodName: "Limits", Handler: limitsHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterDecisionServiceServer attaches srv to s.
func RegisterDecisionServiceServer(s grpc.ServiceRegistrar, srv DecisionServiceServer) {
	s.RegisterService(&DecisionServiceDesc, srv)
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DecisionServiceServer).Decide(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decideMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DecisionServiceServer).Decide(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func limitsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DecisionServiceServer).Limits(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: limitsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DecisionServiceServer).Limits(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc

// #region client-stub
type decisionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDecisionServiceClient returns a stub bound to cc.
func NewDecisionServiceClient(cc grpc.ClientConnInterface) DecisionServiceClient {
	return &decisionServiceClient{cc: cc}
}

func (c *decisionServiceClient) Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, decideMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *decisionServiceClient) Limits(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, limitsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-stub
