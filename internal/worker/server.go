package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"room-designer/internal/tasks"
)

// WorkerServer wraps the asynq server that copies design state from the
// Redis slot into the SQL archive. It owns startup, task routing and
// graceful shutdown.
type WorkerServer struct {
	server   *asynq.Server
	log      *logrus.Entry
	archiver Archiver
	dirty    DirtySource
}

// NewWorkerServer creates the worker. Handlers are registered in Start.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, archiver Archiver, dirty DirtySource, logger *logrus.Logger) *WorkerServer {
	// both are needed by the handlers registered in Mux
	if archiver == nil || dirty == nil {
		panic("Archiver and DirtySource are required for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// archiving is I/O bound; ten workers keep the DB pool busy
			// without starving the HTTP handlers of connections
			Concurrency: 10,
			// Weighted priority: critical is polled six times as often as low.
			// Archive tasks go to default, as does the periodic sweep.
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			// Called for every failed attempt, including the last one before
			// the task moves to the archived (dead) set.
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				// the result writer is nil for tasks that never started
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:   server,
		log:      logEntry,
		archiver: archiver,
		dirty:    dirty,
	}
}

// Mux returns the task routing used by Start.
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	// one handler per task type; unknown types fail and are retried
	mux.Handle(tasks.TypeStateArchive, NewStateArchiveHandler(ws.archiver))
	mux.Handle(tasks.TypeStateArchiveSweep, NewStateArchiveSweepHandler(ws.archiver, ws.dirty))
	return mux
}

// Start runs the worker until Shutdown. Call it in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	// Run blocks until Shutdown is called or the server fails to start
	if err := ws.server.Run(ws.Mux()); err != nil {
		// ErrServerClosed is the normal result of Shutdown
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown stops the worker and waits for in-flight tasks.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	// stops fetching new tasks, then waits for running handlers; tasks
	// still running at the timeout go back to the queue
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
