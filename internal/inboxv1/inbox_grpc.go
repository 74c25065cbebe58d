package inboxv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "inbox.v1.InboxService"

const (
	InboxService_ListChats_FullMethodName       = "/" + ServiceName + "/ListChats"
	InboxService_GetTimeline_FullMethodName     = "/" + ServiceName + "/GetTimeline"
	InboxService_Search_FullMethodName          = "/" + ServiceName + "/Search"
	InboxService_SelectChat_FullMethodName      = "/" + ServiceName + "/SelectChat"
	InboxService_StartChat_FullMethodName       = "/" + ServiceName + "/StartChat"
	InboxService_SendMessage_FullMethodName     = "/" + ServiceName + "/SendMessage"
	InboxService_RetrySend_FullMethodName       = "/" + ServiceName + "/RetrySend"
	InboxService_Refresh_FullMethodName         = "/" + ServiceName + "/Refresh"
	InboxService_SetVisible_FullMethodName      = "/" + ServiceName + "/SetVisible"
	InboxService_GetConnection_FullMethodName   = "/" + ServiceName + "/GetConnection"
	InboxService_ListFailedSends_FullMethodName = "/" + ServiceName + "/ListFailedSends"
	InboxService_WatchChanges_FullMethodName    = "/" + ServiceName + "/WatchChanges"
)

// InboxServiceServer is the server API for InboxService.
type InboxServiceServer interface {
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	GetTimeline(context.Context, *GetTimelineRequest) (*GetTimelineResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	SelectChat(context.Context, *SelectChatRequest) (*SelectChatResponse, error)
	StartChat(context.Context, *StartChatRequest) (*StartChatResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	RetrySend(context.Context, *RetrySendRequest) (*RetrySendResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	SetVisible(context.Context, *SetVisibleRequest) (*SetVisibleResponse, error)
	GetConnection(context.Context, *GetConnectionRequest) (*GetConnectionResponse, error)
	ListFailedSends(context.Context, *ListFailedSendsRequest) (*ListFailedSendsResponse, error)
	WatchChanges(*WatchChangesRequest, InboxService_WatchChangesServer) error
}

// InboxService_WatchChangesServer is the server side of the WatchChanges stream.
type InboxService_WatchChangesServer = grpc.ServerStreamingServer[ChangeEvent]

// InboxService_WatchChangesClient is the client side of the WatchChanges stream.
type InboxService_WatchChangesClient = grpc.ServerStreamingClient[ChangeEvent]

// UnimplementedInboxServiceServer answers every RPC with codes.Unimplemented.
type UnimplementedInboxServiceServer struct{}

func (UnimplementedInboxServiceServer) ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListChats not implemented")
}
func (UnimplementedInboxServiceServer) GetTimeline(context.Context, *GetTimelineRequest) (*GetTimelineResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTimeline not implemented")
}
func (UnimplementedInboxServiceServer) Search(context.Context, *SearchRequest) (*SearchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Search not implemented")
}
func (UnimplementedInboxServiceServer) SelectChat(context.Context, *SelectChatRequest) (*SelectChatResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SelectChat not implemented")
}
func (UnimplementedInboxServiceServer) StartChat(context.Context, *StartChatRequest) (*StartChatResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartChat not implemented")
}
func (UnimplementedInboxServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedInboxServiceServer) RetrySend(context.Context, *RetrySendRequest) (*RetrySendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RetrySend not implemented")
}
func (UnimplementedInboxServiceServer) Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}
func (UnimplementedInboxServiceServer) SetVisible(context.Context, *SetVisibleRequest) (*SetVisibleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetVisible not implemented")
}
func (UnimplementedInboxServiceServer) GetConnection(context.Context, *GetConnectionRequest) (*GetConnectionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetConnection not implemented")
}
func (UnimplementedInboxServiceServer) ListFailedSends(context.Context, *ListFailedSendsRequest) (*ListFailedSendsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListFailedSends not implemented")
}
func (UnimplementedInboxServiceServer) WatchChanges(*WatchChangesRequest, InboxService_WatchChangesServer) error {
	return status.Error(codes.Unimplemented, "method WatchChanges not implemented")
}

// RegisterInboxServiceServer registers srv on s.
func RegisterInboxServiceServer(s grpc.ServiceRegistrar, srv InboxServiceServer) {
	s.RegisterService(&InboxService_ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(InboxServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InboxServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InboxServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchChangesHandler(srv any, stream grpc.ServerStream) error {
	m := new(WatchChangesRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(InboxServiceServer).WatchChanges(m, &grpc.GenericServerStream[WatchChangesRequest, ChangeEvent]{ServerStream: stream})
}

// InboxService_ServiceDesc is the grpc.ServiceDesc for InboxService.
var InboxService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InboxServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListChats", Handler: unary(InboxService_ListChats_FullMethodName, InboxServiceServer.ListChats)},
		{MethodName: "GetTimeline", Handler: unary(InboxService_GetTimeline_FullMethodName, InboxServiceServer.GetTimeline)},
		{MethodName: "Search", Handler: unary(InboxService_Search_FullMethodName, InboxServiceServer.Search)},
		{MethodName: "SelectChat", Handler: unary(InboxService_SelectChat_FullMethodName, InboxServiceServer.SelectChat)},
		{MethodName: "StartChat", Handler: unary(InboxService_StartChat_FullMethodName, InboxServiceServer.StartChat)},
		{MethodName: "SendMessage", Handler: unary(InboxService_SendMessage_FullMethodName, InboxServiceServer.SendMessage)},
		{MethodName: "RetrySend", Handler: unary(InboxService_RetrySend_FullMethodName, InboxServiceServer.RetrySend)},
		{MethodName: "Refresh", Handler: unary(InboxService_Refresh_FullMethodName, InboxServiceServer.Refresh)},
		{MethodName: "SetVisible", Handler: unary(InboxService_SetVisible_FullMethodName, InboxServiceServer.SetVisible)},
		{MethodName: "GetConnection", Handler: unary(InboxService_GetConnection_FullMethodName, InboxServiceServer.GetConnection)},
		{MethodName: "ListFailedSends", Handler: unary(InboxService_ListFailedSends_FullMethodName, InboxServiceServer.ListFailedSends)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchChanges",
			Handler:       watchChangesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "inbox/v1/inbox.proto",
}

// InboxServiceClient is the client API for InboxService. Every call is sent
// with the JSON codec.
type InboxServiceClient interface {
	ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error)
	GetTimeline(ctx context.Context, in *GetTimelineRequest, opts ...grpc.CallOption) (*GetTimelineResponse, error)
	Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	SelectChat(ctx context.Context, in *SelectChatRequest, opts ...grpc.CallOption) (*SelectChatResponse, error)
	StartChat(ctx context.Context, in *StartChatRequest, opts ...grpc.CallOption) (*StartChatResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	RetrySend(ctx context.Context, in *RetrySendRequest, opts ...grpc.CallOption) (*RetrySendResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error)
	SetVisible(ctx context.Context, in *SetVisibleRequest, opts ...grpc.CallOption) (*SetVisibleResponse, error)
	GetConnection(ctx context.Context, in *GetConnectionRequest, opts ...grpc.CallOption) (*GetConnectionResponse, error)
	ListFailedSends(ctx context.Context, in *ListFailedSendsRequest, opts ...grpc.CallOption) (*ListFailedSendsResponse, error)
	WatchChanges(ctx context.Context, in *WatchChangesRequest, opts ...grpc.CallOption) (InboxService_WatchChangesClient, error)
}

type inboxServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewInboxServiceClient creates a client over cc.
func NewInboxServiceClient(cc grpc.ClientConnInterface) InboxServiceClient {
	return &inboxServiceClient{cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inboxServiceClient) ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error) {
	return invoke[ListChatsResponse](ctx, c.cc, InboxService_ListChats_FullMethodName, in, opts)
}

func (c *inboxServiceClient) GetTimeline(ctx context.Context, in *GetTimelineRequest, opts ...grpc.CallOption) (*GetTimelineResponse, error) {
	return invoke[GetTimelineResponse](ctx, c.cc, InboxService_GetTimeline_FullMethodName, in, opts)
}

func (c *inboxServiceClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, InboxService_Search_FullMethodName, in, opts)
}

func (c *inboxServiceClient) SelectChat(ctx context.Context, in *SelectChatRequest, opts ...grpc.CallOption) (*SelectChatResponse, error) {
	return invoke[SelectChatResponse](ctx, c.cc, InboxService_SelectChat_FullMethodName, in, opts)
}

func (c *inboxServiceClient) StartChat(ctx context.Context, in *StartChatRequest, opts ...grpc.CallOption) (*StartChatResponse, error) {
	return invoke[StartChatResponse](ctx, c.cc, InboxService_StartChat_FullMethodName, in, opts)
}

func (c *inboxServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, InboxService_SendMessage_FullMethodName, in, opts)
}

func (c *inboxServiceClient) RetrySend(ctx context.Context, in *RetrySendRequest, opts ...grpc.CallOption) (*RetrySendResponse, error) {
	return invoke[RetrySendResponse](ctx, c.cc, InboxService_RetrySend_FullMethodName, in, opts)
}

func (c *inboxServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	return invoke[RefreshResponse](ctx, c.cc, InboxService_Refresh_FullMethodName, in, opts)
}

func (c *inboxServiceClient) SetVisible(ctx context.Context, in *SetVisibleRequest, opts ...grpc.CallOption) (*SetVisibleResponse, error) {
	return invoke[SetVisibleResponse](ctx, c.cc, InboxService_SetVisible_FullMethodName, in, opts)
}

func (c *inboxServiceClient) GetConnection(ctx context.Context, in *GetConnectionRequest, opts ...grpc.CallOption) (*GetConnectionResponse, error) {
	return invoke[GetConnectionResponse](ctx, c.cc, InboxService_GetConnection_FullMethodName, in, opts)
}

func (c *inboxServiceClient) ListFailedSends(ctx context.Context, in *ListFailedSendsRequest, opts ...grpc.CallOption) (*ListFailedSendsResponse, error) {
	return invoke[ListFailedSendsResponse](ctx, c.cc, InboxService_ListFailedSends_FullMethodName, in, opts)
}

func (c *inboxServiceClient) WatchChanges(ctx context.Context, in *WatchChangesRequest, opts ...grpc.CallOption) (InboxService_WatchChangesClient, error) {
	stream, err := c.cc.NewStream(ctx, &InboxService_ServiceDesc.Streams[0], InboxService_WatchChanges_FullMethodName, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchChangesRequest, ChangeEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
