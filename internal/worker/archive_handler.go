package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"room-designer/internal/tasks"
)

// Archiver copies a user's state slot into the SQL archive. *persist.Adapter implements it.
type Archiver interface {
	Archive(ctx context.Context, userID uint) error
}

// DirtySource yields users whose slot changed since their last archive.
type DirtySource interface {
	PopDirtyUsers(ctx context.Context, max int64) ([]uint, error)
	MarkDirty(ctx context.Context, userIDs ...uint) error
}

// StateArchiveHandler processes TypeStateArchive tasks.
type StateArchiveHandler struct {
	archiver Archiver
}

// NewStateArchiveHandler creates the handler.
func NewStateArchiveHandler(archiver Archiver) *StateArchiveHandler {
	if archiver == nil {
		panic("Archiver cannot be nil for StateArchiveHandler")
	}
	return &StateArchiveHandler{archiver: archiver}
}

// ProcessTask implements asynq.Handler.
func (h *StateArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	payload, err := tasks.ParseStateArchivePayload(t.Payload())
	if err != nil {
		// a malformed payload will never parse, so retrying is pointless
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("user_id", payload.UserID)

	if err := h.archiver.Archive(ctx, payload.UserID); err != nil {
		logCtx.WithError(err).Error("Failed to archive state")
		// plain error: asynq retries with backoff, the DB may be back by then
		return fmt.Errorf("failed to archive state of user %d: %w", payload.UserID, err)
	}
	logCtx.Info("State archived")
	return nil
}

// sweepBatch is how many dirty users one pop takes.
const sweepBatch = 100

// StateArchiveSweepHandler archives every dirty slot. It runs periodically so
// slots whose own archive task was lost still reach SQL.
type StateArchiveSweepHandler struct {
	archiver Archiver
	dirty    DirtySource
}

// NewStateArchiveSweepHandler creates the handler.
func NewStateArchiveSweepHandler(archiver Archiver, dirty DirtySource) *StateArchiveSweepHandler {
	if archiver == nil || dirty == nil {
		panic("Archiver and DirtySource are required for StateArchiveSweepHandler")
	}
	return &StateArchiveSweepHandler{archiver: archiver, dirty: dirty}
}

// ProcessTask implements asynq.Handler. Users that fail are marked dirty
// again for the next sweep.
func (h *StateArchiveSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)
	logCtx.Info("Processing state archive sweep...")

	archived := 0
	var failed []uint
	var firstErr error
	for {
		users, err := h.dirty.PopDirtyUsers(ctx, sweepBatch)
		if err != nil {
			return fmt.Errorf("failed to pop dirty users: %w", err)
		}
		// one failing user must not stop the rest of the batch
		for _, userID := range users {
			if err := h.archiver.Archive(ctx, userID); err != nil {
				failed = append(failed, userID)
				if firstErr == nil {
					firstErr = err
				}
				logCtx.WithField("user_id", userID).WithError(err).Warn("Sweep failed to archive state")
				continue
			}
			archived++
		}
		// a short batch means the set is drained
		if len(users) < sweepBatch {
			break
		}
	}

	logCtx.WithFields(logrus.Fields{"archived": archived, "failed": len(failed)}).Info("State archive sweep finished")
	if firstErr == nil {
		return nil
	}
	// popping removed them from the set; put the failures back
	if err := h.dirty.MarkDirty(ctx, failed...); err != nil {
		logCtx.WithError(err).Error("Failed to re-mark users dirty after sweep errors")
	}
	// the next scheduled sweep picks them up
	return fmt.Errorf("sweep failed for %d users: %v: %w", len(failed), firstErr, asynq.SkipRetry)
}

func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}
