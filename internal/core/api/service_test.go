package api

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solatis/ducktest/internal/core/auth"
	"github.com/solatis/ducktest/internal/core/config"
	"github.com/solatis/ducktest/internal/core/db"
	"github.com/solatis/ducktest/internal/duck"
	pb "github.com/solatis/ducktest/internal/protobuf/ducktest/runtime/v1"
	"github.com/solatis/ducktest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeRecorder struct {
	mu       sync.Mutex
	sessions []db.SessionRow
	closed   []types.SessionID
	calls    []db.CallRow
}

func (f *fakeRecorder) InsertSession(_ context.Context, row db.SessionRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, row)
	return nil
}

func (f *fakeRecorder) CloseSession(_ context.Context, id types.SessionID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeRecorder) InsertCall(_ context.Context, row db.CallRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, row)
	return nil
}

func (f *fakeRecorder) callRows() []db.CallRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.CallRow(nil), f.calls...)
}

func (f *fakeRecorder) closedIDs() []types.SessionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.SessionID(nil), f.closed...)
}

type testEnv struct {
	service  *RuntimeService
	recorder *fakeRecorder
	client   pb.RuntimeClient
	dataDir  string
}

// newTestEnv serves the runtime over bufconn. clientID, when set, is
// injected as the authenticated caller.
func newTestEnv(t *testing.T, cfg *config.RuntimeAPIConfig, clientID types.ClientID) *testEnv {
	t.Helper()

	module, err := duck.NewModule()
	require.NoError(t, err)

	if cfg == nil {
		cfg = config.DefaultRuntimeAPIConfig()
	}
	cfg.DataDir = t.TempDir()

	rec := &fakeRecorder{}
	svc, err := NewRuntimeService(module, rec, cfg)
	require.NoError(t, err)

	inject := func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if clientID != "" {
			ctx = auth.WithClientID(ctx, clientID)
		}
		return handler(ctx, req)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(inject))
	pb.RegisterRuntimeServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		svc.Close()
	})

	return &testEnv{
		service:  svc,
		recorder: rec,
		client:   pb.NewRuntimeClient(conn),
		dataDir:  cfg.DataDir,
	}
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp, err := e.client.CreateSession(context.Background(), pb.NewCreateSessionRequest(""))
	require.NoError(t, err)
	info, err := pb.ParseSessionInfo(resp)
	require.NoError(t, err)
	return info.SessionID
}

func (e *testEnv) isItADuck(t *testing.T, sessionID string, rec map[string]any) (bool, error) {
	t.Helper()
	req, err := pb.NewCallRequest(pb.CallRequest{
		SessionID: sessionID,
		Method:    duck.MethodIsItADuck,
		Args:      []any{rec},
	})
	require.NoError(t, err)

	v, err := e.client.Call(context.Background(), req)
	if err != nil {
		return false, err
	}
	return v.GetBoolValue(), nil
}

func TestNewRuntimeService_Validation(t *testing.T) {
	module, err := duck.NewModule()
	require.NoError(t, err)
	cfg := config.DefaultRuntimeAPIConfig()
	cfg.DataDir = t.TempDir()

	_, err = NewRuntimeService(nil, &fakeRecorder{}, cfg)
	assert.Error(t, err)
	_, err = NewRuntimeService(module, nil, cfg)
	assert.Error(t, err)
	_, err = NewRuntimeService(module, &fakeRecorder{}, nil)
	assert.Error(t, err)

	cfg.RootClass = "Goose"
	_, err = NewRuntimeService(module, &fakeRecorder{}, cfg)
	assert.ErrorContains(t, err, "Goose")
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, nil, "client-a")

	resp, err := env.client.CreateSession(context.Background(), pb.NewCreateSessionRequest(""))
	require.NoError(t, err)

	info, err := pb.ParseSessionInfo(resp)
	require.NoError(t, err)
	assert.Equal(t, duck.ClassDuckTester, info.Class)
	assert.False(t, info.CreatedAt.IsZero())

	_, err = types.ParseSessionID(info.SessionID)
	assert.NoError(t, err)

	require.Len(t, env.recorder.sessions, 1)
	assert.Equal(t, "client-a", env.recorder.sessions[0].ClientID)
	assert.Equal(t, 1, env.service.LiveSessions())
}

func TestCreateSession_UnknownClass(t *testing.T) {
	env := newTestEnv(t, nil, "")

	_, err := env.client.CreateSession(context.Background(), pb.NewCreateSessionRequest("Goose"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestCreateSession_Limit(t *testing.T) {
	cfg := config.DefaultRuntimeAPIConfig()
	cfg.MaxSessions = 2
	env := newTestEnv(t, cfg, "")

	env.createSession(t)
	id := env.createSession(t)

	_, err := env.client.CreateSession(context.Background(), pb.NewCreateSessionRequest(""))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = env.client.CloseSession(context.Background(), pb.NewSessionRequest(id))
	require.NoError(t, err)

	env.createSession(t)
}

func TestCall_IsItADuck(t *testing.T) {
	env := newTestEnv(t, nil, "client-a")
	id := env.createSession(t)

	tests := []struct {
		name   string
		record map[string]any
		want   bool
	}{
		{
			name:   "all three match",
			record: map[string]any{"looks": "like a duck", "swims": "like a duck", "quacks": "like a duck"},
			want:   true,
		},
		{
			name:   "one differs",
			record: map[string]any{"looks": "like a duck", "swims": "like a duck", "quacks": "like a goose"},
			want:   false,
		},
		{
			name:   "case sensitive",
			record: map[string]any{"looks": "Like a duck", "swims": "like a duck", "quacks": "like a duck"},
			want:   false,
		},
		{
			name:   "extra fields ignored",
			record: map[string]any{"looks": "like a duck", "swims": "like a duck", "quacks": "like a duck", "name": "Donald"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.isItADuck(t, id, tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	rows := env.recorder.callRows()
	require.Len(t, rows, len(tests))
	assert.Equal(t, "true", rows[0].Result)
	assert.Equal(t, "client-a", rows[0].ClientID)
	assert.Equal(t, duck.MethodIsItADuck, rows[0].Method)
}

func TestCall_MissingField(t *testing.T) {
	env := newTestEnv(t, nil, "")
	id := env.createSession(t)

	_, err := env.isItADuck(t, id, map[string]any{"looks": "like a goose", "swims": "like a duck"})
	require.Error(t, err)

	st := status.Convert(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())

	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if ei, ok := d.(*errdetails.ErrorInfo); ok {
			info = ei
		}
	}
	require.NotNil(t, info, "missing ErrorInfo detail")
	assert.Equal(t, pb.ReasonFieldNotFound, info.Reason)
	assert.Equal(t, "quacks", info.Metadata[pb.ErrorMetadataFieldKey])

	rows := env.recorder.callRows()
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Error, "quacks")
	assert.Empty(t, rows[0].Result)
}

func TestCall_Errors(t *testing.T) {
	env := newTestEnv(t, nil, "")
	id := env.createSession(t)

	call := func(req pb.CallRequest) error {
		s, err := pb.NewCallRequest(req)
		require.NoError(t, err)
		_, err = env.client.Call(context.Background(), s)
		return err
	}

	tests := []struct {
		name string
		req  pb.CallRequest
		want codes.Code
	}{
		{"unknown method", pb.CallRequest{SessionID: id, Method: "waddle"}, codes.NotFound},
		{"unknown session", pb.CallRequest{SessionID: string(types.NewSessionID()), Method: duck.MethodIsItADuck}, codes.NotFound},
		{"malformed session", pb.CallRequest{SessionID: "nope", Method: duck.MethodIsItADuck}, codes.NotFound},
		{"no args", pb.CallRequest{SessionID: id, Method: duck.MethodIsItADuck}, codes.InvalidArgument},
		{"non-object arg", pb.CallRequest{SessionID: id, Method: duck.MethodIsItADuck, Args: []any{"duck"}}, codes.InvalidArgument},
		{"too many args", pb.CallRequest{SessionID: id, Method: duck.MethodIsItADuck, Args: make([]any, types.MaxCallArgs+1)}, codes.InvalidArgument},
		{"method name too long", pb.CallRequest{SessionID: id, Method: strings.Repeat("m", types.MaxMethodNameLength+1)}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(call(tt.req)))
		})
	}
}

func TestCall_ForeignSession(t *testing.T) {
	env := newTestEnv(t, nil, "client-a")
	id := env.createSession(t)

	// same service, different caller
	ctx := auth.WithClientID(context.Background(), "client-b")
	req, err := pb.NewCallRequest(pb.CallRequest{
		SessionID: id,
		Method:    duck.MethodIsItADuck,
		Args:      []any{map[string]any{}},
	})
	require.NoError(t, err)

	_, err = env.service.Call(ctx, req)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestCloseSession(t *testing.T) {
	env := newTestEnv(t, nil, "")
	id := env.createSession(t)

	_, err := env.client.CloseSession(context.Background(), pb.NewSessionRequest(id))
	require.NoError(t, err)
	assert.Equal(t, []types.SessionID{types.SessionID(id)}, env.recorder.closedIDs())
	assert.Equal(t, 0, env.service.LiveSessions())

	_, err = env.client.CloseSession(context.Background(), pb.NewSessionRequest(id))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.isItADuck(t, id, map[string]any{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestSessionExpiry(t *testing.T) {
	cfg := config.DefaultRuntimeAPIConfig()
	cfg.SessionTTL = 100 * time.Millisecond
	env := newTestEnv(t, cfg, "")
	id := env.createSession(t)

	require.Eventually(t, func() bool {
		return len(env.recorder.closedIDs()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	_, err := env.isItADuck(t, id, map[string]any{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestJournal(t *testing.T) {
	env := newTestEnv(t, nil, "")
	id := env.createSession(t)

	_, err := env.isItADuck(t, id, map[string]any{"looks": "like a duck", "swims": "like a duck", "quacks": "like a duck"})
	require.NoError(t, err)

	path := filepath.Join(env.dataDir, "calls", time.Now().UTC().Format("2006-01-02")+".jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"result":"true"`)
	assert.Contains(t, lines[0], id)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"field access", &duck.FieldAccessError{Key: "looks"}, codes.FailedPrecondition},
		{"session", types.ErrSessionNotFound, codes.NotFound},
		{"limit", types.ErrTooManySessions, codes.ResourceExhausted},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"other", assert.AnError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}
	assert.NoError(t, toStatus(nil))
}
