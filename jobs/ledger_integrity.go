package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clinicamia/contable/internal/accounting/shared"
	jobmetrics "github.com/clinicamia/contable/internal/jobs"
)

// Verifier checks one period's libro mayor against the journal.
type Verifier interface {
	VerificarPeriodo(ctx context.Context, anio, mes int) error
}

// LedgerIntegrityJob processes TaskLedgerIntegrity tasks. Scheduled
// nightly for the current period; also enqueued on demand.
type LedgerIntegrityJob struct {
	verifier Verifier
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
	now      func() time.Time
}

func NewLedgerIntegrityJob(verifier Verifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{verifier: verifier, logger: logger, metrics: metrics, now: time.Now}
}

// Handle verifies the requested period. A detected inconsistency is
// reported but not retried: re-running the same check cannot repair the
// rows, an operator has to recalculate.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskLedgerIntegrity)
	defer func() { _ = tracker.End(err) }()

	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("ledger integrity: payload inválido: %w", asynq.SkipRetry)
	}
	anio, mes := payload.Anio, payload.Mes
	if anio == 0 || mes == 0 {
		hoy := j.now()
		anio, mes = hoy.Year(), int(hoy.Month())
	}
	if err := j.verifier.VerificarPeriodo(ctx, anio, mes); err != nil {
		if shared.IsConsistency(err) {
			j.metrics.AddInconsistencia()
			if j.logger != nil {
				j.logger.Error("libro mayor inconsistente",
					slog.Int("anio", anio), slog.Int("mes", mes), slog.Any("error", err))
			}
			return asynq.SkipRetry
		}
		return err
	}
	if j.logger != nil {
		j.logger.Info("libro mayor verificado", slog.Int("anio", anio), slog.Int("mes", mes))
	}
	return nil
}
