// Package api implements the ducktest.v1.Runtime gRPC service.
//
// Thin orchestration layer: sessions live in a TTL cache keyed by session
// ID, each holding the root object built by the binding module; every call
// is dispatched through the binding layer and audited to the database and
// the daily JSONL journal.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/solatis/ducktest/internal/binding"
	"github.com/solatis/ducktest/internal/core/cache"
	"github.com/solatis/ducktest/internal/core/config"
	"github.com/solatis/ducktest/internal/core/db"
	pb "github.com/solatis/ducktest/internal/protobuf/ducktest/runtime/v1"
	"github.com/solatis/ducktest/internal/types"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Recorder persists session lifecycle and call audit rows.
// Implemented by *db.Store.
type Recorder interface {
	InsertSession(ctx context.Context, row db.SessionRow) error
	CloseSession(ctx context.Context, id types.SessionID, at time.Time) error
	InsertCall(ctx context.Context, row db.CallRow) error
}

// Option customizes a RuntimeService.
type Option func(*RuntimeService)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *RuntimeService) { s.logger = l }
}

// WithTracer sets the tracer used for call spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *RuntimeService) { s.tracer = t }
}

// RuntimeService implements pb.RuntimeServer.
type RuntimeService struct {
	module   *binding.Module
	recorder Recorder
	cfg      *config.RuntimeAPIConfig
	sessions *cache.TTLCache[types.SessionID, *binding.Object]
	journal  *journal
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// serializes the session-limit check with insertion
	createMu sync.Mutex
}

var _ pb.RuntimeServer = (*RuntimeService)(nil)

// NewRuntimeService creates the service. Auto-creates the journal directory.
func NewRuntimeService(module *binding.Module, recorder Recorder, cfg *config.RuntimeAPIConfig, opts ...Option) (*RuntimeService, error) {
	if module == nil {
		return nil, fmt.Errorf("module cannot be nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if _, ok := module.Lookup(cfg.RootClass); !ok {
		return nil, fmt.Errorf("root class %q not registered in module %s", cfg.RootClass, module.Name())
	}

	j, err := newJournal(filepath.Join(cfg.DataDir, "calls"))
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	s := &RuntimeService{
		module:   module,
		recorder: recorder,
		cfg:      cfg,
		journal:  j,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sessions = cache.New[types.SessionID, *binding.Object]("sessions", cfg.SessionTTL, cfg.SessionTTL/2, s.logger)
	s.sessions.OnEvicted(s.onSessionEvicted)

	return s, nil
}

// onSessionEvicted closes the session on expiry or explicit close.
func (s *RuntimeService) onSessionEvicted(id types.SessionID, obj *binding.Object) {
	if !obj.Session().Close() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	if err := s.recorder.CloseSession(ctx, id, s.now()); err != nil {
		s.logger.Warn("record session close failed", "session_id", id, "error", err)
	}
	s.logger.Debug("session closed", "session_id", id, "class", obj.ClassName())
}

// LiveSessions returns the number of sessions in the table.
func (s *RuntimeService) LiveSessions() int {
	return s.sessions.Len()
}

// Close ends every live session.
func (s *RuntimeService) Close() {
	s.sessions.DeleteExpired()
	for _, id := range s.sessions.Keys() {
		s.sessions.Delete(id)
	}
}
