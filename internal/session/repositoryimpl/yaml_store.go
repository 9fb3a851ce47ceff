package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/skilldepot/skilldepot/internal/session"
	"github.com/skilldepot/skilldepot/pkg/cerr"
	"github.com/skilldepot/skilldepot/pkg/storage"
)

const sessionsPrefix = "sessions"

// YAMLStore persists import sessions as YAML documents on a Storage
// backend, so sessions survive a restart and can be shared by replicas
// pointing at the same bucket. Expiry is enforced on read; the sweeper
// reclaims abandoned entries.
type YAMLStore struct {
	storage storage.Storage
	now     func() time.Time
}

func NewYAMLStore(s storage.Storage) *YAMLStore {
	return &YAMLStore{storage: s, now: time.Now}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", sessionsPrefix, id)
}

func (s *YAMLStore) Create(ctx context.Context, folders []session.Folder) (*session.Session, error) {
	now := s.now()
	sess := &session.Session{
		ID:        uuid.NewString(),
		Folders:   folders,
		CreatedAt: now,
		ExpiresAt: now.Add(session.TTL),
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal session: %w", err))
	}
	if err := s.storage.Write(ctx, path(sess.ID), data); err != nil {
		return nil, cerr.WrapStorageWriteError("session", err)
	}
	return sess, nil
}

func (s *YAMLStore) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.storage.Read(ctx, path(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, cerr.NewError(cerr.NotFound, "session not found", nil)
		}
		return nil, cerr.WrapStorageReadError("session", err)
	}
	var sess session.Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal session: %w", err))
	}
	if sess.Expired(s.now()) {
		// Identical to never stored; reclaim eagerly since we already paid
		// for the read.
		_ = s.storage.Delete(ctx, path(id))
		return nil, cerr.NewError(cerr.NotFound, "session not found", nil)
	}
	return &sess, nil
}

func (s *YAMLStore) Delete(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, path(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return cerr.WrapStorageDeleteError("session", err)
	}
	return nil
}

func (s *YAMLStore) Cleanup(ctx context.Context) (int, error) {
	paths, err := s.storage.List(ctx, sessionsPrefix)
	if err != nil {
		return 0, cerr.WrapStorageReadError("sessions", err)
	}
	now := s.now()
	removed := 0
	for _, p := range paths {
		data, err := s.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var sess session.Session
		if err := yaml.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.Expired(now) {
			if err := s.storage.Delete(ctx, p); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
