package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor attaches the bearer token, trace id and caller
// service of the context's [RequestContext] to outgoing metadata. Calls
// without a RequestContext proceed untouched.
func UnaryClientInterceptor(serviceName string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(propagateToGRPC(ctx, serviceName), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the streaming form of
// [UnaryClientInterceptor].
func StreamClientInterceptor(serviceName string) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		return streamer(propagateToGRPC(ctx, serviceName), desc, cc, method, opts...)
	}
}

func propagateToGRPC(ctx context.Context, serviceName string) context.Context {
	rc, ok := RequestContextFromContext(ctx)
	if !ok {
		return ctx
	}

	existing, _ := metadata.FromOutgoingContext(ctx)
	pairs := make([]string, 0, 6)
	for k, v := range outgoingHeaders(rc, serviceName) {
		key := strings.ToLower(k)
		if len(existing.Get(key)) > 0 {
			continue
		}
		pairs = append(pairs, key, v)
	}
	if len(pairs) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}
