// Package api defines the socialmaster.v1.ContentService gRPC contract.
// Messages are google.protobuf.Struct values carrying the JSON form of the
// DTOs in this package, so the service needs no generated code.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "socialmaster.v1.ContentService"

const (
	MethodPing                    = "Ping"
	MethodGetBalance              = "GetBalance"
	MethodListPosts               = "ListPosts"
	MethodGetPost                 = "GetPost"
	MethodUpdatePostContent       = "UpdatePostContent"
	MethodRegenerateImage         = "RegenerateImage"
	MethodRegenerateContent       = "RegenerateContent"
	MethodPublishPost             = "PublishPost"
	MethodGetStats                = "GetStats"
	MethodGetProfile              = "GetProfile"
	MethodUpdateProfile           = "UpdateProfile"
	MethodGetPreferences          = "GetPreferences"
	MethodUpdatePreferences       = "UpdatePreferences"
	MethodConnectSocialAccount    = "ConnectSocialAccount"
	MethodListSocialAccounts      = "ListSocialAccounts"
	MethodDisconnectSocialAccount = "DisconnectSocialAccount"
	MethodGenerateBatch           = "GenerateBatch"
)

// FullMethod returns the "/service/method" name used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ContentServiceServer is implemented by the gRPC server.
type ContentServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPosts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePostContent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegenerateImage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegenerateContent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PublishPost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConnectSocialAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSocialAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DisconnectSocialAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateBatch(*structpb.Struct, GenerateBatchServer) error
}

// GenerateBatchServer is the server side of the GenerateBatch stream.
type GenerateBatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type generateBatchServer struct {
	grpc.ServerStream
}

func (s *generateBatchServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

type unaryCall func(ContentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ContentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ContentServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func generateBatchHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ContentServiceServer).GenerateBatch(in, &generateBatchServer{stream})
}

// ServiceDesc describes ContentService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, ContentServiceServer.Ping),
		unary(MethodGetBalance, ContentServiceServer.GetBalance),
		unary(MethodListPosts, ContentServiceServer.ListPosts),
		unary(MethodGetPost, ContentServiceServer.GetPost),
		unary(MethodUpdatePostContent, ContentServiceServer.UpdatePostContent),
		unary(MethodRegenerateImage, ContentServiceServer.RegenerateImage),
		unary(MethodRegenerateContent, ContentServiceServer.RegenerateContent),
		unary(MethodPublishPost, ContentServiceServer.PublishPost),
		unary(MethodGetStats, ContentServiceServer.GetStats),
		unary(MethodGetProfile, ContentServiceServer.GetProfile),
		unary(MethodUpdateProfile, ContentServiceServer.UpdateProfile),
		unary(MethodGetPreferences, ContentServiceServer.GetPreferences),
		unary(MethodUpdatePreferences, ContentServiceServer.UpdatePreferences),
		unary(MethodConnectSocialAccount, ContentServiceServer.ConnectSocialAccount),
		unary(MethodListSocialAccounts, ContentServiceServer.ListSocialAccounts),
		unary(MethodDisconnectSocialAccount, ContentServiceServer.DisconnectSocialAccount),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodGenerateBatch,
			Handler:       generateBatchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "api/socialmaster/v1/content.proto",
}

func RegisterContentServiceServer(s grpc.ServiceRegistrar, srv ContentServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
