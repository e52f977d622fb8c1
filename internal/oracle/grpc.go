package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	serviceName  = "voe.oracle.v1.StabilityOracle"
	replayMethod = "/" + serviceName + "/Replay"
)

// Client calls a remote oracle over gRPC. Requests and responses travel as
// google.protobuf.Struct so the simulator side needs no generated stubs.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

// Dial connects to the oracle at addr. Extra options are appended after the
// default insecure transport credentials.
func Dial(addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial oracle %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn.Close, timeout: timeout}, nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Close releases the connection when the client created it.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// Replay sends req to the remote oracle. Every failure wraps ErrUnavailable.
func (c *Client) Replay(ctx context.Context, req Request) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	in, err := toStruct(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, replayMethod, in, out); err != nil {
		st := status.Convert(err)
		return Response{}, fmt.Errorf("%w: replay %s: %s", ErrUnavailable, st.Code(), st.Message())
	}

	var resp Response
	if err := fromStruct(out, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// ServiceDesc describes the oracle service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StabilityOracle)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Replay", Handler: replayHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voe/oracle/v1/oracle.proto",
}

// RegisterServer exposes impl on s.
func RegisterServer(s grpc.ServiceRegistrar, impl StabilityOracle) {
	s.RegisterService(&ServiceDesc, impl)
}

func replayHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, raw any) (any, error) {
		var req Request
		if err := fromStruct(raw.(*structpb.Struct), &req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode replay request: %v", err)
		}
		resp, err := srv.(StabilityOracle).Replay(ctx, req)
		if err != nil {
			code := codes.Internal
			switch {
			case errors.Is(err, ErrUnavailable):
				code = codes.Unavailable
			case errors.Is(err, context.DeadlineExceeded):
				code = codes.DeadlineExceeded
			}
			return nil, status.Error(code, err.Error())
		}
		return toStruct(resp)
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: replayMethod}
	return interceptor(ctx, in, info, handle)
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return structpb.NewStruct(payload)
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return errors.New("nil payload")
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
