package connections_service_api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "tripmates.connections.v1.ConnectionsService"

// ConnectionsServer is the server API for the connections service. Messages are
// google.protobuf.Struct documents with snake_case keys.
type ConnectionsServer interface {
	SendRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Respond(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveConnection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetActiveConnection(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NextObligation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, grpc.ServerStream) error
}

type unaryCall func(ConnectionsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConnectionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SendRequest", ConnectionsServer.SendRequest),
		unary("Respond", ConnectionsServer.Respond),
		unary("RemoveConnection", ConnectionsServer.RemoveConnection),
		unary("GetActiveConnection", ConnectionsServer.GetActiveConnection),
		unary("NextObligation", ConnectionsServer.NextObligation),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			ServerStreams: true,
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ConnectionsServer).Subscribe(in, stream)
			},
		},
	},
	Metadata: "tripmates/connections/v1/connections.proto",
}

func RegisterConnectionsServer(s grpc.ServiceRegistrar, srv ConnectionsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ConnectionsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ConnectionsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the connections service over cc.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendRequest(ctx context.Context, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "SendRequest", in, opts...)
}

func (c *Client) Respond(ctx context.Context, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Respond", in, opts...)
}

func (c *Client) RemoveConnection(ctx context.Context, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "RemoveConnection", in, opts...)
}

func (c *Client) GetActiveConnection(ctx context.Context, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetActiveConnection", in, opts...)
}

func (c *Client) NextObligation(ctx context.Context, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "NextObligation", in, opts...)
}

// Subscribe opens the event stream; call RecvMsg with a *structpb.Struct per event.
func (c *Client) Subscribe(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Subscribe"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}
