package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TaskTypeFabricate = "segment:fabricate"
	QueueFabricate    = "fabricate"
)

// FabricatePayload is the body of a fabricate task: which chain to advance.
type FabricatePayload struct {
	ChainID uuid.UUID `json:"chainId"`
}

// Scheduler drives a chain's fabrication loop. Each scheduled run fabricates
// at most one segment and schedules the next run.
type Scheduler interface {
	ScheduleSegmentFabricate(ctx context.Context, delay time.Duration, chainID uuid.UUID) error
	StartChainFabrication(ctx context.Context, chainID uuid.UUID) error
	StopChainFabrication(ctx context.Context, chainID uuid.UUID) error
}

// TaskScheduler implements Scheduler on asynq.
type TaskScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	log       *zap.Logger
}

func NewTaskScheduler(client *asynq.Client, inspector *asynq.Inspector, log *zap.Logger) *TaskScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskScheduler{client: client, inspector: inspector, log: log}
}

func NewFabricateTask(chainID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(FabricatePayload{ChainID: chainID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeFabricate, data), nil
}

// ParseFabricateTask reads the chain id out of a fabricate task.
func ParseFabricateTask(t *asynq.Task) (FabricatePayload, error) {
	var p FabricatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if p.ChainID == uuid.Nil {
		return p, fmt.Errorf("task payload has no chain id")
	}
	return p, nil
}

// ScheduleSegmentFabricate enqueues the next run for a chain after delay.
// Failed runs are not retried by the queue; the worker reschedules itself.
func (s *TaskScheduler) ScheduleSegmentFabricate(ctx context.Context, delay time.Duration, chainID uuid.UUID) error {
	task, err := NewFabricateTask(chainID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueFabricate),
		asynq.MaxRetry(0),
		asynq.ProcessIn(delay),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// StartChainFabrication replaces any queued runs of the chain with one
// immediate run.
func (s *TaskScheduler) StartChainFabrication(ctx context.Context, chainID uuid.UUID) error {
	if err := s.StopChainFabrication(ctx, chainID); err != nil {
		return err
	}
	if err := s.ScheduleSegmentFabricate(ctx, 0, chainID); err != nil {
		return err
	}
	s.log.Info("chain fabrication started", zap.String("chain_id", chainID.String()))
	return nil
}

// StopChainFabrication deletes the chain's queued runs. A run already in
// progress finishes and then stops because the chain left Fabricate.
func (s *TaskScheduler) StopChainFabrication(ctx context.Context, chainID uuid.UUID) error {
	deleted := 0
	for _, list := range []func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error){
		s.inspector.ListScheduledTasks,
		s.inspector.ListPendingTasks,
	} {
		tasks, err := list(QueueFabricate, asynq.PageSize(1000))
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		for _, info := range tasks {
			if info.Type != TaskTypeFabricate || !payloadIsChain(info.Payload, chainID) {
				continue
			}
			err := s.inspector.DeleteTask(QueueFabricate, info.ID)
			if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
				return fmt.Errorf("failed to delete task %s: %w", info.ID, err)
			}
			deleted++
		}
	}
	if deleted > 0 {
		s.log.Info("chain fabrication stopped", zap.String("chain_id", chainID.String()), zap.Int("deleted_tasks", deleted))
	}
	return nil
}

func payloadIsChain(payload []byte, chainID uuid.UUID) bool {
	var p FabricatePayload
	return json.Unmarshal(payload, &p) == nil && p.ChainID == chainID
}
