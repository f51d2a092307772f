package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mandi-erp/mandi-erp/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBookReconcile recomputes every derived balance in the book.
	TaskBookReconcile = "book:reconcile"
	// TaskBookIntegrity scans the book for invariant violations.
	TaskBookIntegrity = "book:integrity"
)

// ReconcilePayload carries optional context for a reconcile run.
type ReconcilePayload struct {
	Reason string `json:"reason"`
}

// NewBookReconcileTask constructs an Asynq task.
func NewBookReconcileTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReconcilePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookReconcile, data), nil
}

// NewBookIntegrityTask constructs an Asynq task.
func NewBookIntegrityTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskBookIntegrity, nil), nil
}

// ReconcileJob wires the ledger service into the queue.
type ReconcileJob struct {
	ledger *ledger.Service
	logger *slog.Logger
}

// NewReconcileJob builds the job.
func NewReconcileJob(svc *ledger.Service, logger *slog.Logger) *ReconcileJob {
	return &ReconcileJob{ledger: svc, logger: logger}
}

// Handle processes TaskBookReconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if err := j.ledger.Reconcile(ctx); err != nil {
		return err
	}
	j.logger.Info("book reconciled", slog.String("reason", payload.Reason))
	return nil
}

// IntegrityJob runs the nightly invariant scan.
type IntegrityJob struct {
	ledger *ledger.Service
	logger *slog.Logger
}

// NewIntegrityJob builds the job.
func NewIntegrityJob(svc *ledger.Service, logger *slog.Logger) *IntegrityJob {
	return &IntegrityJob{ledger: svc, logger: logger}
}

// Handle processes TaskBookIntegrity tasks. Violations are logged, not
// fixed: a failed invariant means a bug, and silently repairing it
// would bury the evidence.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	issues, err := j.ledger.CheckIntegrity(ctx)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		j.logger.Info("book integrity clean")
		return nil
	}
	for _, issue := range issues {
		j.logger.Error("book integrity violation", slog.String("issue", issue))
	}
	return nil
}
