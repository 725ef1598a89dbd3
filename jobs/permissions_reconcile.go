package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	jobmetrics "github.com/examforge/examforge/internal/jobs"
	"github.com/examforge/examforge/internal/platform/db"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Duplicate grants for the same (account, permission) pair are legal, so the
// derivation collapses them by permission id, keeping the earliest grant's
// position. That reproduces the list array_append builds at grant time and
// keeps the IS DISTINCT FROM guard quiet for accounts that are already in step.
const reconcileStatement = `
	UPDATE accounts a
	SET permission_ids = derived.ids
	FROM (
		SELECT acc.id,
		       COALESCE(ARRAY(
		           SELECT g.permission_id FROM permission_grants g
		           WHERE g.account_id = acc.id AND g.is_active
		             AND (g.expires_at IS NULL OR g.expires_at > NOW())
		           GROUP BY g.permission_id
		           ORDER BY MIN(g.granted_at)
		       ), '{}') AS ids
		FROM accounts acc
	) AS derived
	WHERE a.id = derived.id AND a.permission_ids IS DISTINCT FROM derived.ids`

// PermissionsReconcileJob rewrites each account's denormalized permission-id
// list from its active grant records. Grant and revoke keep the list in step
// inside one transaction, but a manual data fix or a partially applied
// migration can still leave drift; this job is the corrective sweep.
type PermissionsReconcileJob struct {
	DB      db.Beginner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPermissionsReconcileJob wires dependencies for the reconcile handler.
func NewPermissionsReconcileJob(database db.Beginner, logger *slog.Logger, metrics *jobmetrics.Metrics) *PermissionsReconcileJob {
	return &PermissionsReconcileJob{DB: database, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypePermissionsReconcile tasks.
func (j *PermissionsReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.DB == nil {
		return errors.New("permissions reconcile: handler not configured")
	}

	tracker := j.metrics().Track(TaskTypePermissionsReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting permission list reconciliation")
	start := time.Now()

	repaired := 0
	resultErr = db.WithTx(ctx, j.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, reconcileStatement)
		if err != nil {
			return err
		}
		repaired = int(tag.RowsAffected())
		return nil
	})
	if resultErr != nil {
		logger.Error("reconcile permission lists", slog.Any("error", resultErr))
		return resultErr
	}

	j.metrics().AddRepaired(repaired)
	logger.Info("completed permission list reconciliation",
		slog.Int("repaired", repaired),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *PermissionsReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypePermissionsReconcile))
	}
	return slog.Default().With(slog.String("job", TaskTypePermissionsReconcile))
}

func (j *PermissionsReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
