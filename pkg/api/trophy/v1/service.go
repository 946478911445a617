package trophyv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Full method names.
const (
	TrophyDaemon_GetStatus_FullMethodName          = "/trophy.v1.TrophyDaemon/GetStatus"
	TrophyDaemon_PreSearch_FullMethodName          = "/trophy.v1.TrophyDaemon/PreSearch"
	TrophyDaemon_ListAchievements_FullMethodName   = "/trophy.v1.TrophyDaemon/ListAchievements"
	TrophyDaemon_ResetAchievements_FullMethodName  = "/trophy.v1.TrophyDaemon/ResetAchievements"
	TrophyDaemon_RefreshDefinitions_FullMethodName = "/trophy.v1.TrophyDaemon/RefreshDefinitions"
	TrophyDaemon_WatchEvents_FullMethodName        = "/trophy.v1.TrophyDaemon/WatchEvents"
	TrophyDaemon_Shutdown_FullMethodName           = "/trophy.v1.TrophyDaemon/Shutdown"
)

// TrophyDaemonServer is the server API for the TrophyDaemon service.
type TrophyDaemonServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*Status, error)
	PreSearch(context.Context, *PreSearchRequest) (*PreSearchResponse, error)
	ListAchievements(context.Context, *ListAchievementsRequest) (*ListAchievementsResponse, error)
	ResetAchievements(context.Context, *ResetAchievementsRequest) (*ResetAchievementsResponse, error)
	RefreshDefinitions(context.Context, *RefreshDefinitionsRequest) (*RefreshDefinitionsResponse, error)
	WatchEvents(*WatchEventsRequest, grpc.ServerStreamingServer[Event]) error
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
}

// UnimplementedTrophyDaemonServer can be embedded for forward compatibility.
type UnimplementedTrophyDaemonServer struct{}

func (UnimplementedTrophyDaemonServer) GetStatus(context.Context, *GetStatusRequest) (*Status, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}

func (UnimplementedTrophyDaemonServer) PreSearch(context.Context, *PreSearchRequest) (*PreSearchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PreSearch not implemented")
}

func (UnimplementedTrophyDaemonServer) ListAchievements(context.Context, *ListAchievementsRequest) (*ListAchievementsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAchievements not implemented")
}

func (UnimplementedTrophyDaemonServer) ResetAchievements(context.Context, *ResetAchievementsRequest) (*ResetAchievementsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetAchievements not implemented")
}

func (UnimplementedTrophyDaemonServer) RefreshDefinitions(context.Context, *RefreshDefinitionsRequest) (*RefreshDefinitionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshDefinitions not implemented")
}

func (UnimplementedTrophyDaemonServer) WatchEvents(*WatchEventsRequest, grpc.ServerStreamingServer[Event]) error {
	return status.Error(codes.Unimplemented, "method WatchEvents not implemented")
}

func (UnimplementedTrophyDaemonServer) Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Shutdown not implemented")
}

// RegisterTrophyDaemonServer registers srv with s.
func RegisterTrophyDaemonServer(s grpc.ServiceRegistrar, srv TrophyDaemonServer) {
	s.RegisterService(&TrophyDaemon_ServiceDesc, srv)
}

// unary adapts a typed server method to a gRPC method handler.
func unary[Req, Resp any](fullMethod string, call func(TrophyDaemonServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TrophyDaemonServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TrophyDaemonServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	m := new(WatchEventsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TrophyDaemonServer).WatchEvents(m, &grpc.GenericServerStream[WatchEventsRequest, Event]{ServerStream: stream})
}

// TrophyDaemon_ServiceDesc is the grpc.ServiceDesc for the TrophyDaemon service.
var TrophyDaemon_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "trophy.v1.TrophyDaemon",
	HandlerType: (*TrophyDaemonServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    unary(TrophyDaemon_GetStatus_FullMethodName, TrophyDaemonServer.GetStatus),
		},
		{
			MethodName: "PreSearch",
			Handler:    unary(TrophyDaemon_PreSearch_FullMethodName, TrophyDaemonServer.PreSearch),
		},
		{
			MethodName: "ListAchievements",
			Handler:    unary(TrophyDaemon_ListAchievements_FullMethodName, TrophyDaemonServer.ListAchievements),
		},
		{
			MethodName: "ResetAchievements",
			Handler:    unary(TrophyDaemon_ResetAchievements_FullMethodName, TrophyDaemonServer.ResetAchievements),
		},
		{
			MethodName: "RefreshDefinitions",
			Handler:    unary(TrophyDaemon_RefreshDefinitions_FullMethodName, TrophyDaemonServer.RefreshDefinitions),
		},
		{
			MethodName: "Shutdown",
			Handler:    unary(TrophyDaemon_Shutdown_FullMethodName, TrophyDaemonServer.Shutdown),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "trophy/v1/trophy.json",
}

// TrophyDaemonClient is the client API for the TrophyDaemon service.
type TrophyDaemonClient interface {
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*Status, error)
	PreSearch(ctx context.Context, in *PreSearchRequest, opts ...grpc.CallOption) (*PreSearchResponse, error)
	ListAchievements(ctx context.Context, in *ListAchievementsRequest, opts ...grpc.CallOption) (*ListAchievementsResponse, error)
	ResetAchievements(ctx context.Context, in *ResetAchievementsRequest, opts ...grpc.CallOption) (*ResetAchievementsResponse, error)
	RefreshDefinitions(ctx context.Context, in *RefreshDefinitionsRequest, opts ...grpc.CallOption) (*RefreshDefinitionsResponse, error)
	WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error)
	Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error)
}

type trophyDaemonClient struct {
	cc grpc.ClientConnInterface
}

// NewTrophyDaemonClient creates a client that speaks the JSON codec.
func NewTrophyDaemonClient(cc grpc.ClientConnInterface) TrophyDaemonClient {
	return &trophyDaemonClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trophyDaemonClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*Status, error) {
	return invoke[Status](ctx, c.cc, TrophyDaemon_GetStatus_FullMethodName, in, opts)
}

func (c *trophyDaemonClient) PreSearch(ctx context.Context, in *PreSearchRequest, opts ...grpc.CallOption) (*PreSearchResponse, error) {
	return invoke[PreSearchResponse](ctx, c.cc, TrophyDaemon_PreSearch_FullMethodName, in, opts)
}

func (c *trophyDaemonClient) ListAchievements(ctx context.Context, in *ListAchievementsRequest, opts ...grpc.CallOption) (*ListAchievementsResponse, error) {
	return invoke[ListAchievementsResponse](ctx, c.cc, TrophyDaemon_ListAchievements_FullMethodName, in, opts)
}

func (c *trophyDaemonClient) ResetAchievements(ctx context.Context, in *ResetAchievementsRequest, opts ...grpc.CallOption) (*ResetAchievementsResponse, error) {
	return invoke[ResetAchievementsResponse](ctx, c.cc, TrophyDaemon_ResetAchievements_FullMethodName, in, opts)
}

func (c *trophyDaemonClient) RefreshDefinitions(ctx context.Context, in *RefreshDefinitionsRequest, opts ...grpc.CallOption) (*RefreshDefinitionsResponse, error) {
	return invoke[RefreshDefinitionsResponse](ctx, c.cc, TrophyDaemon_RefreshDefinitions_FullMethodName, in, opts)
}

func (c *trophyDaemonClient) Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error) {
	return invoke[ShutdownResponse](ctx, c.cc, TrophyDaemon_Shutdown_FullMethodName, in, opts)
}

func (c *trophyDaemonClient) WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	stream, err := c.cc.NewStream(ctx, &TrophyDaemon_ServiceDesc.Streams[0], TrophyDaemon_WatchEvents_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchEventsRequest, Event]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
