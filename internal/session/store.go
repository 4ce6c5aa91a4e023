package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/nats-io/nats.go/jetstream"
)

// Bucket is the key-value bucket holding session state.
const Bucket = "sessions"

// Store reads and writes session State in a JetStream key-value bucket.
type Store struct {
	kv jetstream.KeyValue
}

func NewStore(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// OpenStore creates the sessions bucket if needed and returns a Store on it.
func OpenStore(ctx context.Context, js jetstream.JetStream, storage jetstream.StorageType) (*Store, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  Bucket,
		History: 5,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bucket: %w", Bucket, err)
	}
	return NewStore(kv), nil
}

// Load returns the state for sid. A session that was never saved has the
// zero State.
func (s *Store) Load(ctx context.Context, sid string) (State, error) {
	var st State
	entry, err := s.kv.Get(ctx, sid)
	if isMissing(err) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("get session %s: %w", sid, err)
	}
	if err := json.Unmarshal(entry.Value(), &st); err != nil {
		return st, fmt.Errorf("decode session %s: %w", sid, err)
	}
	return st, nil
}

// Update applies fn to the stored state of sid and writes the result only
// if the entry is unchanged since it was read. On a conflicting write fn runs
// again on the fresh state, at most maxUpdateAttempts times.
func (s *Store) Update(ctx context.Context, sid string, fn func(State) (State, error)) (State, error) {
	var out State
	err := s.modify(ctx, sid, func(current []byte) ([]byte, error) {
		var st State
		if current != nil {
			if err := json.Unmarshal(current, &st); err != nil {
				return nil, fmt.Errorf("decode session %s: %w", sid, err)
			}
		}
		next, err := fn(st)
		if err != nil {
			return nil, err
		}
		out = next
		return encode(sid, next)
	})
	return out, err
}

// Patch applies an RFC 7386 merge patch to the stored state of sid and
// returns the result. Null members in the patch delete fields.
func (s *Store) Patch(ctx context.Context, sid string, mergePatch []byte) (State, error) {
	var out State
	err := s.modify(ctx, sid, func(current []byte) ([]byte, error) {
		if current == nil {
			current = []byte("{}")
		}
		patched, err := jsonpatch.MergePatch(current, mergePatch)
		if err != nil {
			return nil, fmt.Errorf("patch session %s: %w", sid, err)
		}
		var st State
		if err := json.Unmarshal(patched, &st); err != nil {
			return nil, fmt.Errorf("decode patched session %s: %w", sid, err)
		}
		out = st
		return encode(sid, st)
	})
	return out, err
}

const maxUpdateAttempts = 5

// modify is a compare-and-set loop over the raw entry of sid. fn receives nil
// when the session does not exist yet.
func (s *Store) modify(ctx context.Context, sid string, fn func(current []byte) ([]byte, error)) error {
	for attempt := 1; ; attempt++ {
		var current []byte
		var rev uint64
		entry, err := s.kv.Get(ctx, sid)
		switch {
		case err == nil:
			current, rev = entry.Value(), entry.Revision()
		case !isMissing(err):
			return fmt.Errorf("get session %s: %w", sid, err)
		}

		data, err := fn(current)
		if err != nil {
			return err
		}
		if rev == 0 {
			_, err = s.kv.Create(ctx, sid, data)
		} else {
			_, err = s.kv.Update(ctx, sid, data, rev)
		}
		if err == nil {
			return nil
		}
		if !isConflict(err) || attempt == maxUpdateAttempts {
			return fmt.Errorf("put session %s: %w", sid, err)
		}
		slog.Debug("session: concurrent update, retrying", "sid", sid, "attempt", attempt)
	}
}

func encode(sid string, st State) ([]byte, error) {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", sid, err)
	}
	return data, nil
}

// Delete drops all state for sid.
func (s *Store) Delete(ctx context.Context, sid string) error {
	if err := s.kv.Delete(ctx, sid); err != nil && !isMissing(err) {
		return fmt.Errorf("delete session %s: %w", sid, err)
	}
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

// isConflict reports a write that lost against a concurrent one.
func isConflict(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
