// Package rpc exposes batch verification to local automation over a
// small gRPC service.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ExportVerifierServer is the server API for the ExportVerifier gRPC
// service.
//
// We intentionally use protobuf well-known wrapper types so this
// package does not require a protoc/codegen toolchain.
//
// Proto definition: exportverifier.proto.
type ExportVerifierServer interface {
	// VerifyArchive takes raw export zip archive bytes and returns the
	// verification outcome string ("Valid" or a failure kind).
	VerifyArchive(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	// ExtractKeys takes raw export zip archive bytes and, after
	// verification, returns the canonical export container bytes.
	ExtractKeys(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedExportVerifierServer can be embedded to have forward compatible implementations.
type UnimplementedExportVerifierServer struct{}

func (UnimplementedExportVerifierServer) VerifyArchive(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyArchive not implemented")
}
func (UnimplementedExportVerifierServer) ExtractKeys(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ExtractKeys not implemented")
}

// RegisterExportVerifierServer registers the service on a gRPC server.
func RegisterExportVerifierServer(s grpc.ServiceRegistrar, srv ExportVerifierServer) {
	s.RegisterService(&ExportVerifier_ServiceDesc, srv)
}

// ExportVerifierClient is the client API for the ExportVerifier gRPC
// service.
type ExportVerifierClient interface {
	VerifyArchive(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	ExtractKeys(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type exportVerifierClient struct{ cc grpc.ClientConnInterface }

func NewExportVerifierClient(cc grpc.ClientConnInterface) ExportVerifierClient {
	return &exportVerifierClient{cc: cc}
}

func (c *exportVerifierClient) VerifyArchive(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/coronarchive.tekexport.rpc.v1.ExportVerifier/VerifyArchive", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *exportVerifierClient) ExtractKeys(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/coronarchive.tekexport.rpc.v1.ExportVerifier/ExtractKeys", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _ExportVerifier_VerifyArchive_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExportVerifierServer).VerifyArchive(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/coronarchive.tekexport.rpc.v1.ExportVerifier/VerifyArchive"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExportVerifierServer).VerifyArchive(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ExportVerifier_ExtractKeys_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExportVerifierServer).ExtractKeys(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/coronarchive.tekexport.rpc.v1.ExportVerifier/ExtractKeys"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExportVerifierServer).ExtractKeys(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ExportVerifier_ServiceDesc is the grpc.ServiceDesc for the
// ExportVerifier service.
var ExportVerifier_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "coronarchive.tekexport.rpc.v1.ExportVerifier",
	HandlerType: (*ExportVerifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyArchive", Handler: _ExportVerifier_VerifyArchive_Handler},
		{MethodName: "ExtractKeys", Handler: _ExportVerifier_ExtractKeys_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "exportverifier.proto",
}
