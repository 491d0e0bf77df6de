package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/clinicamia/contable/internal/accounting/shared"
	jobmetrics "github.com/clinicamia/contable/internal/jobs"
)

// Syncer mirrors one asiento into the external accounting system.
type Syncer interface {
	SyncEntry(ctx context.Context, asientoID int64) (string, error)
}

// BridgeSyncJob processes TaskBridgeSync tasks.
type BridgeSyncJob struct {
	syncer  Syncer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func NewBridgeSyncJob(syncer Syncer, logger *slog.Logger, metrics *jobmetrics.Metrics) *BridgeSyncJob {
	return &BridgeSyncJob{syncer: syncer, logger: logger, metrics: metrics}
}

// Handle runs one sync attempt. Validation failures (already synced,
// not approved, remote rejected the payload) are dropped; transient
// failures are left to Asynq's retry policy.
func (j *BridgeSyncJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskBridgeSync)
	defer func() { _ = tracker.End(err) }()

	var payload BridgeSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("bridge sync: payload inválido: %w", asynq.SkipRetry)
	}
	siigoID, err := j.syncer.SyncEntry(ctx, payload.AsientoID)
	if err != nil {
		if shared.IsValidation(err) || shared.IsNotFound(err) {
			if j.logger != nil {
				j.logger.Warn("sincronización descartada",
					slog.Int64("asiento_id", payload.AsientoID), slog.Any("error", err))
			}
			j.metrics.AddSync("dropped")
			return errors.Join(err, asynq.SkipRetry)
		}
		j.metrics.AddSync("error")
		return err
	}
	j.metrics.AddSync("success")
	if j.logger != nil {
		j.logger.Info("sincronización completada",
			slog.Int64("asiento_id", payload.AsientoID), slog.String("siigo_id", siigoID))
	}
	return nil
}
