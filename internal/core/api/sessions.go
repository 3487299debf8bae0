package api

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/ducktest/internal/binding"
	"github.com/solatis/ducktest/internal/core/auth"
	"github.com/solatis/ducktest/internal/core/db"
	pb "github.com/solatis/ducktest/internal/protobuf/ducktest/runtime/v1"
	"github.com/solatis/ducktest/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// CreateSession opens a session and constructs its root object.
func (s *RuntimeService) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	class, err := pb.ParseClass(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if class == "" {
		class = s.cfg.RootClass
	}

	clientID := auth.ClientIDFromContext(ctx)
	obj, err := s.openSession(clientID, class)
	if err != nil {
		return nil, toStatus(err)
	}
	sess := obj.Session()

	row := db.SessionRow{
		SessionID: string(sess.ID()),
		ClientID:  string(clientID),
		Class:     class,
		CreatedAt: sess.CreatedAt().Format(time.RFC3339Nano),
	}
	if err := s.recorder.InsertSession(ctx, row); err != nil {
		s.logger.Warn("record session failed", "session_id", sess.ID(), "error", err)
	}

	s.logger.Info("session created",
		"session_id", sess.ID(),
		"client_id", clientID,
		"class", class,
	)

	return pb.NewSessionInfo(pb.SessionInfo{
		SessionID: string(sess.ID()),
		Class:     class,
		CreatedAt: sess.CreatedAt(),
	}), nil
}

// openSession enforces the live session limit and stores the new root object.
func (s *RuntimeService) openSession(clientID types.ClientID, class string) (*binding.Object, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if s.cfg.MaxSessions > 0 && s.sessions.Len() >= s.cfg.MaxSessions {
		s.sessions.DeleteExpired()
		if s.sessions.Len() >= s.cfg.MaxSessions {
			return nil, fmt.Errorf("%w: limit %d", types.ErrTooManySessions, s.cfg.MaxSessions)
		}
	}

	sess := binding.NewSession(clientID)
	obj, err := s.module.New(class, sess)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Add(sess.ID(), obj); err != nil {
		sess.Close()
		return nil, fmt.Errorf("store session: %w", err)
	}
	return obj, nil
}

// CloseSession ends a session. Unknown or foreign sessions are NotFound.
func (s *RuntimeService) CloseSession(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	raw, err := pb.ParseSessionRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	id, obj, err := s.lookupSession(ctx, raw, false)
	if err != nil {
		return nil, toStatus(err)
	}

	// eviction callback closes the session and records closed_at
	s.sessions.Delete(id)
	s.logger.Info("session closed by client", "session_id", id, "class", obj.ClassName())

	return &emptypb.Empty{}, nil
}

// lookupSession resolves raw to a live session owned by the caller.
// touch restarts the session's idle TTL.
func (s *RuntimeService) lookupSession(ctx context.Context, raw string, touch bool) (types.SessionID, *binding.Object, error) {
	id, err := types.ParseSessionID(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, raw)
	}

	var (
		obj *binding.Object
		ok  bool
	)
	if touch {
		obj, ok = s.sessions.Touch(id)
	} else {
		obj, ok = s.sessions.Get(id)
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}

	if obj.Session().ClientID() != auth.ClientIDFromContext(ctx) {
		return "", nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, id)
	}
	return id, obj, nil
}
