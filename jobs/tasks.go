package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBridgeSync pushes one approved asiento to the external system.
	TaskBridgeSync = "contable:bridge_sync"
	// TaskLedgerIntegrity verifies the libro mayor against the journal.
	TaskLedgerIntegrity = "contable:ledger_integrity"
)

// BridgeSyncPayload identifies the asiento to mirror externally.
type BridgeSyncPayload struct {
	AsientoID int64 `json:"asientoId"`
}

// LedgerIntegrityPayload scopes the nightly check; zero values mean the
// current period.
type LedgerIntegrityPayload struct {
	Anio int `json:"anio"`
	Mes  int `json:"mes"`
}

// NewBridgeSyncTask constructs a bridge sync task.
func NewBridgeSyncTask(asientoID int64) (*asynq.Task, error) {
	data, err := json.Marshal(BridgeSyncPayload{AsientoID: asientoID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBridgeSync, data), nil
}

// NewLedgerIntegrityTask constructs a ledger integrity task.
func NewLedgerIntegrityTask(anio, mes int) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{Anio: anio, Mes: mes})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueBridgeSync queues an asiento for external synchronization.
func (c *Client) EnqueueBridgeSync(ctx context.Context, asientoID int64) error {
	task, err := NewBridgeSyncTask(asientoID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}

// EnqueueLedgerIntegrity queues an on-demand consistency check.
func (c *Client) EnqueueLedgerIntegrity(ctx context.Context, anio, mes int) error {
	task, err := NewLedgerIntegrityTask(anio, mes)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
