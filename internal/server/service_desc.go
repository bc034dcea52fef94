package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "nupi.translate.v1.TranslationService"

// TranslationServer is the server API for the TranslationService.
type TranslationServer interface {
	Translate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectLanguage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListModels(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TranslationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TranslationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TranslationServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the TranslationService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranslationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: unaryHandler("Translate", TranslationServer.Translate)},
		{MethodName: "DetectLanguage", Handler: unaryHandler("DetectLanguage", TranslationServer.DetectLanguage)},
		{MethodName: "ListModels", Handler: unaryHandler("ListModels", TranslationServer.ListModels)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nupi/translate/v1/translate.proto",
}

// Register attaches srv to the gRPC registrar.
func Register(s grpc.ServiceRegistrar, srv TranslationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is a thin TranslationService client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Translate calls TranslationService.Translate.
func (c *Client) Translate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Translate", in, opts...)
}

// DetectLanguage calls TranslationService.DetectLanguage.
func (c *Client) DetectLanguage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DetectLanguage", in, opts...)
}

// ListModels calls TranslationService.ListModels.
func (c *Client) ListModels(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListModels", in, opts...)
}
