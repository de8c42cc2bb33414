package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/utils"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq provides a small counter to reduce key collisions when multiple
// messages share the same nanosecond timestamp.
var seq uint64

// ErrSessionNotFound is returned when an operation names a session id that
// has no stored metadata.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTitle is assigned to sessions created by the resumption policy.
const DefaultTitle = "New conversation"

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_session_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("session_db_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("session_db_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("session_db_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Key layout:
//   session:<id>:meta                      session metadata (no messages)
//   session:<id>:msg:<unixnano>-<seq>      one message, append-only

func metaKey(id string) []byte {
	return []byte("session:" + id + ":meta")
}

func msgPrefix(id string) []byte {
	return []byte("session:" + id + ":msg:")
}

func msgKey(id string) []byte {
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	return []byte(fmt.Sprintf("session:%s:msg:%020d-%06d", id, ts, s))
}

// ListSessions returns all persisted sessions with hydrated message lists,
// ordered by creation time (collection order). Corrupt entries are skipped
// and a closed store yields an empty list; the chat stays usable without
// persistence.
func ListSessions() ([]models.Session, error) {
	if db == nil {
		return nil, nil
	}
	metas, err := listMetas()
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(metas))
	for _, s := range metas {
		msgs, err := ListMessages(s.ID)
		if err != nil {
			return nil, err
		}
		s.Messages = msgs
		out = append(out, s)
	}
	return out, nil
}

// listMetas scans session metadata without hydrating messages.
func listMetas() ([]models.Session, error) {
	prefix := []byte("session:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Session
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !bytes.HasSuffix(iter.Key(), []byte(":meta")) {
			continue
		}
		var s models.Session
		if err := json.Unmarshal(iter.Value(), &s); err != nil {
			// corrupt metadata is treated as absent, not fatal
			logger.Warn("session_meta_corrupt", "key", string(iter.Key()))
			continue
		}
		out = append(out, s)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	// collection order equals creation order
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetSession returns the session with the given id including its messages.
func GetSession(id string) (models.Session, error) {
	var s models.Session
	if db == nil {
		return s, ErrSessionNotFound
	}
	v, closer, err := db.Get(metaKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return s, ErrSessionNotFound
		}
		return s, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &s); err != nil {
		return s, fmt.Errorf("invalid session metadata: %w", err)
	}
	msgs, err := ListMessages(id)
	if err != nil {
		return s, err
	}
	s.Messages = msgs
	return s, nil
}

// SaveSession persists session metadata. An existing session with the same
// id is replaced in place with UpdatedAt advanced; otherwise the session is
// appended to the collection. Messages travel through AppendMessage only.
func SaveSession(s models.Session) error {
	if db == nil {
		logger.Warn("session_save_skipped_store_closed", "session", s.ID)
		return nil
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if existing, err := getMeta(s.ID); err == nil {
		// replace in place; keep the original creation instant and keep
		// UpdatedAt monotonic
		s.CreatedAt = existing.CreatedAt
		if now.Before(existing.UpdatedAt) {
			now = existing.UpdatedAt
		}
	}
	s.UpdatedAt = now
	meta := s
	meta.Messages = nil
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := db.Set(metaKey(s.ID), data, pebble.Sync); err != nil {
		logger.Error("session_save_failed", "session", s.ID, "error", err)
		return err
	}
	logger.Info("session_saved", "session", s.ID)
	opsTotal.WithLabelValues("save_session").Inc()
	return nil
}

func getMeta(id string) (models.Session, error) {
	var s models.Session
	v, closer, err := db.Get(metaKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return s, ErrSessionNotFound
		}
		return s, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &s); err != nil {
		return s, fmt.Errorf("invalid session metadata: %w", err)
	}
	return s, nil
}

// AppendMessage appends a message to the session's log and advances the
// session's UpdatedAt. Appending to an unknown session returns
// ErrSessionNotFound; callers decide whether to create the session first.
func AppendMessage(sessionID string, m models.Message) error {
	if db == nil {
		logger.Warn("message_append_skipped_store_closed", "session", sessionID)
		return nil
	}
	meta, err := getMeta(sessionID)
	if err != nil {
		return err
	}
	if m.Session == "" {
		m.Session = sessionID
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := msgKey(sessionID)
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("message_append_failed", "session", sessionID, "key", string(key), "error", err)
		return err
	}
	now := time.Now().UTC()
	if now.Before(meta.UpdatedAt) {
		now = meta.UpdatedAt
	}
	meta.UpdatedAt = now
	meta.Messages = nil
	nb, _ := json.Marshal(meta)
	if err := db.Set(metaKey(sessionID), nb, pebble.Sync); err != nil {
		logger.Error("session_touch_failed", "session", sessionID, "error", err)
		return err
	}
	logger.Info("message_appended", "session", sessionID, "msg_id", m.ID, "role", string(m.Role))
	opsTotal.WithLabelValues("append_message").Inc()
	return nil
}

// ListMessages returns all messages for a session in insertion order.
func ListMessages(sessionID string) ([]models.Message, error) {
	if db == nil {
		return nil, nil
	}
	prefix := msgPrefix(sessionID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("message_corrupt", "key", string(iter.Key()))
			continue
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// DeleteSession removes a session's metadata and all of its messages.
func DeleteSession(id string) error {
	if db == nil {
		logger.Warn("session_delete_skipped_store_closed", "session", id)
		return nil
	}
	if _, err := getMeta(id); err != nil {
		return err
	}
	if err := deletePrefix([]byte("session:" + id + ":")); err != nil {
		logger.Error("session_delete_failed", "session", id, "error", err)
		return err
	}
	logger.Info("session_deleted", "session", id)
	opsTotal.WithLabelValues("delete_session").Inc()
	return nil
}

// ClearAll removes the entire stored session collection.
func ClearAll() error {
	if db == nil {
		logger.Warn("clear_all_skipped_store_closed")
		return nil
	}
	if err := deletePrefix([]byte("session:")); err != nil {
		logger.Error("clear_all_failed", "error", err)
		return err
	}
	logger.Info("sessions_cleared")
	opsTotal.WithLabelValues("clear_all").Inc()
	return nil
}

func deletePrefix(prefix []byte) error {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	var keys [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	if err := iter.Close(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

// ResumeSession implements the startup resumption policy: when no sessions
// exist, or the most recent one has an empty message list, a fresh empty
// session is created and persisted; otherwise the most recent session is
// resumed with its messages hydrated. With a closed store the returned
// session lives in memory only.
func ResumeSession() (models.Session, error) {
	now := time.Now().UTC()
	fresh := models.Session{
		ID:        utils.GenSessionID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if db == nil {
		return fresh, nil
	}
	metas, err := listMetas()
	if err != nil {
		return models.Session{}, err
	}
	if len(metas) == 0 {
		return fresh, SaveSession(fresh)
	}
	last := metas[len(metas)-1]
	msgs, err := ListMessages(last.ID)
	if err != nil {
		return models.Session{}, err
	}
	if len(msgs) == 0 {
		return fresh, SaveSession(fresh)
	}
	last.Messages = msgs
	return last, nil
}
