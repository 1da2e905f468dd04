package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TypeStateArchive      = "state:archive"       // copy one user's state slot into SQL
	TypeStateArchiveSweep = "state:archive_sweep" // archive every dirty slot
)

// ArchiveDelay batches bursts of edits into one archive write.
const ArchiveDelay = 30 * time.Second

// StateArchivePayload names the user whose slot is archived.
type StateArchivePayload struct {
	UserID uint `json:"user_id"`
}

// NewStateArchiveTask creates the archive task of one user. Its task id is
// per user, so an archive already waiting in the queue absorbs new requests.
func NewStateArchiveTask(userID uint) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(StateArchivePayload{UserID: userID})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%d", TypeStateArchive, userID)),
		asynq.ProcessIn(ArchiveDelay),
		asynq.Queue("low"),
		asynq.MaxRetry(5),
	}
	return asynq.NewTask(TypeStateArchive, payload), opts, nil
}

// ParseStateArchivePayload decodes the payload of a TypeStateArchive task.
func ParseStateArchivePayload(data []byte) (StateArchivePayload, error) {
	var p StateArchivePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	if p.UserID == 0 {
		return p, fmt.Errorf("payload has no user_id")
	}
	return p, nil
}

// NewStateArchiveSweepTask creates the periodic sweep task. It carries no payload.
func NewStateArchiveSweepTask() *asynq.Task {
	return asynq.NewTask(TypeStateArchiveSweep, nil)
}
