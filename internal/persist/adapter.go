package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"room-designer/internal/domain"
	"room-designer/internal/repository"
	"room-designer/internal/store"
)

// Adapter keeps one state blob per user in the fast slot and, on demand,
// copies it into the SQL archive.
type Adapter struct {
	slot    repository.StateRepository
	archive repository.StateArchiveRepository
}

// NewAdapter panics on a nil slot. archive may be nil, which disables the
// archive fallback and Archive becomes a no-op.
func NewAdapter(slot repository.StateRepository, archive repository.StateArchiveRepository) *Adapter {
	if slot == nil {
		panic("state repository cannot be nil for persist.Adapter")
	}
	return &Adapter{slot: slot, archive: archive}
}

// Key is the logical slot name of a user.
func Key(userID uint) string {
	return fmt.Sprintf("%s:%d", StorageKey, userID)
}

// Save writes the state of st into the user's slot.
func (a *Adapter) Save(ctx context.Context, userID uint, st domain.DesignState) error {
	data, err := Encode(st)
	if err != nil {
		return err
	}
	if err := a.slot.SetState(ctx, userID, data); err != nil {
		return fmt.Errorf("persist: save %s: %w", Key(userID), err)
	}
	return nil
}

// Load returns the user's state. The slot is consulted first, then the
// archive (refilling the slot on a hit), and the defaults when neither has it.
// A slot that no longer decodes is cleared and treated as empty.
func (a *Adapter) Load(ctx context.Context, userID uint) (domain.DesignState, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "operation": "LoadState"})

	data, err := a.slot.GetState(ctx, userID)
	switch {
	case err == nil:
		st, _, decErr := Decode(data, store.DefaultState())
		if decErr == nil {
			return st, nil
		}
		// A corrupt slot would fail every load of this user. Drop it and
		// fall back to the archive, which only ever holds decodable blobs.
		logCtx.WithError(decErr).Warn("Corrupt state slot, clearing it")
		if err := a.Clear(ctx, userID); err != nil {
			return store.DefaultState(), err
		}
	case !errors.Is(err, repository.ErrStateNotFound):
		return store.DefaultState(), fmt.Errorf("persist: load %s: %w", Key(userID), err)
	}

	if a.archive == nil {
		return store.DefaultState(), nil
	}
	rec, err := a.archive.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			logCtx.Debug("No stored state, starting from defaults")
			return store.DefaultState(), nil
		}
		return store.DefaultState(), fmt.Errorf("persist: load archive of user %d: %w", userID, err)
	}

	st, _, err := Decode(rec.Data, store.DefaultState())
	if err != nil {
		return st, err
	}
	if err := a.slot.SetState(ctx, userID, rec.Data); err != nil {
		logCtx.WithError(err).Warn("Failed to refill state slot from archive")
	} else {
		logCtx.Info("State slot refilled from archive")
	}
	return st, nil
}

// Archive copies the user's current slot into the SQL archive.
func (a *Adapter) Archive(ctx context.Context, userID uint) error {
	if a.archive == nil {
		return nil
	}
	data, err := a.slot.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			return nil
		}
		return fmt.Errorf("persist: read slot for archive: %w", err)
	}
	if _, _, err := Decode(data, store.DefaultState()); err != nil {
		return err
	}
	rec := &domain.StateRecord{
		UserID:  userID,
		Slot:    StorageKey,
		Version: Version,
		Data:    data,
	}
	if err := a.archive.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("persist: archive user %d: %w", userID, err)
	}
	return nil
}

// Clear empties the user's slot. The archive keeps its last copy until the
// next Archive overwrites it.
func (a *Adapter) Clear(ctx context.Context, userID uint) error {
	if err := a.slot.DeleteState(ctx, userID); err != nil {
		return fmt.Errorf("persist: clear %s: %w", Key(userID), err)
	}
	return nil
}
