package proto

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "chandelier.v1.OptimizerService"

// JSONCodec marshals messages as JSON. Servers install it with
// grpc.ForceServerCodec and clients with grpc.ForceCodec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                               { return "json" }

type OptimizerServiceServer interface {
	Backtest(context.Context, *BacktestRequest) (*BacktestResponse, error)
	Optimize(context.Context, *OptimizeRequest) (*OptimizeResponse, error)
}

type UnimplementedOptimizerServiceServer struct{}

func (UnimplementedOptimizerServiceServer) Backtest(context.Context, *BacktestRequest) (*BacktestResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Backtest not implemented")
}

func (UnimplementedOptimizerServiceServer) Optimize(context.Context, *OptimizeRequest) (*OptimizeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Optimize not implemented")
}

func RegisterOptimizerServiceServer(s grpc.ServiceRegistrar, srv OptimizerServiceServer) {
	s.RegisterService(&OptimizerService_ServiceDesc, srv)
}

func _OptimizerService_Backtest_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BacktestRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OptimizerServiceServer).Backtest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Backtest"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OptimizerServiceServer).Backtest(ctx, req.(*BacktestRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _OptimizerService_Optimize_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OptimizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OptimizerServiceServer).Optimize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Optimize"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OptimizerServiceServer).Optimize(ctx, req.(*OptimizeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var OptimizerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OptimizerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Backtest", Handler: _OptimizerService_Backtest_Handler},
		{MethodName: "Optimize", Handler: _OptimizerService_Optimize_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chandelier/v1/optimizer.proto",
}

type OptimizerServiceClient interface {
	Backtest(ctx context.Context, in *BacktestRequest, opts ...grpc.CallOption) (*BacktestResponse, error)
	Optimize(ctx context.Context, in *OptimizeRequest, opts ...grpc.CallOption) (*OptimizeResponse, error)
}

type optimizerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOptimizerServiceClient returns a client that always speaks JSONCodec.
func NewOptimizerServiceClient(cc grpc.ClientConnInterface) OptimizerServiceClient {
	return &optimizerServiceClient{cc}
}

func (c *optimizerServiceClient) Backtest(ctx context.Context, in *BacktestRequest, opts ...grpc.CallOption) (*BacktestResponse, error) {
	out := new(BacktestResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(JSONCodec{})}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Backtest", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *optimizerServiceClient) Optimize(ctx context.Context, in *OptimizeRequest, opts ...grpc.CallOption) (*OptimizeResponse, error) {
	out := new(OptimizeResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(JSONCodec{})}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Optimize", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
