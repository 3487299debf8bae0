// Package client is the Go client for the ducktest runtime API.
//
//	conn, err := client.Dial("localhost:12345", client.WithAPIKey(key))
//	sess, err := conn.CreateSession(ctx)
//	ok, err := sess.IsItADuck(ctx, map[string]any{"looks": "like a duck", ...})
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/ducktest/internal/core/auth"
	"github.com/solatis/ducktest/internal/duck"
	pb "github.com/solatis/ducktest/internal/protobuf/ducktest/runtime/v1"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Option configures Dial.
type Option func(*options)

type options struct {
	apiKey      string
	dialOptions []grpc.DialOption
}

// WithAPIKey attaches key as x-api-key metadata on every RPC.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithDialOptions appends raw gRPC dial options. Transport credentials
// default to insecure unless one of these overrides them.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}

// Connection is a client connection to a runtime server.
type Connection struct {
	conn *grpc.ClientConn
	rpc  pb.RuntimeClient
}

// Dial connects to addr. The connection is established lazily on the
// first RPC.
func Dial(addr string, opts ...Option) (*Connection, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if o.apiKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(apiKeyInterceptor(o.apiKey)))
	}
	dialOpts = append(dialOpts, o.dialOptions...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Connection{conn: conn, rpc: pb.NewRuntimeClient(conn)}, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.MetadataKey, key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the underlying connection. Open sessions expire server-side.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// CreateSession opens a session on the server's root class.
func (c *Connection) CreateSession(ctx context.Context) (*Session, error) {
	return c.CreateSessionOf(ctx, "")
}

// CreateSessionOf opens a session whose root object is the named class.
func (c *Connection) CreateSessionOf(ctx context.Context, class string) (*Session, error) {
	resp, err := c.rpc.CreateSession(ctx, pb.NewCreateSessionRequest(class))
	if err != nil {
		return nil, fromStatus(err)
	}
	info, err := pb.ParseSessionInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &Session{conn: c, info: info}, nil
}

// Session is an open session with a root object on the server.
type Session struct {
	conn *Connection
	info pb.SessionInfo
}

// ID returns the server-assigned session ID.
func (s *Session) ID() string { return s.info.SessionID }

// Class returns the root object's class name.
func (s *Session) Class() string { return s.info.Class }

// CreatedAt returns when the server opened the session.
func (s *Session) CreatedAt() time.Time { return s.info.CreatedAt }

// Call invokes method on the root object. Arguments must be values
// structpb can encode.
func (s *Session) Call(ctx context.Context, method string, args ...any) (any, error) {
	req, err := pb.NewCallRequest(pb.CallRequest{
		SessionID: s.info.SessionID,
		Method:    method,
		Args:      args,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.conn.rpc.Call(ctx, req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return v.AsInterface(), nil
}

// IsItADuck asks the remote DuckTester whether obj looks, swims and quacks
// like a duck. A missing field comes back as *duck.FieldAccessError.
func (s *Session) IsItADuck(ctx context.Context, obj map[string]any) (bool, error) {
	result, err := s.Call(ctx, duck.MethodIsItADuck, obj)
	if err != nil {
		return false, err
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("%s returned %T, want bool", duck.MethodIsItADuck, result)
	}
	return ok, nil
}

// Close ends the session on the server.
func (s *Session) Close(ctx context.Context) error {
	if _, err := s.conn.rpc.CloseSession(ctx, pb.NewSessionRequest(s.info.SessionID)); err != nil {
		return fromStatus(err)
	}
	return nil
}

// fromStatus rebuilds domain errors carried in status details.
// Anything else is returned as the gRPC status error.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.Domain != pb.ErrorDomain {
			continue
		}
		if info.Reason == pb.ReasonFieldNotFound {
			return &duck.FieldAccessError{Key: info.Metadata[pb.ErrorMetadataFieldKey]}
		}
	}
	return err
}
