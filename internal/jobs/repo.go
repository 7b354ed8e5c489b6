package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// stuckAfter is how long a RUNNING job may stay locked before it is requeued.
const stuckAfter = 5 * time.Minute

type Repo struct {
	DB *gorm.DB
}

// Enqueue stores a job for userID due at runAt; payload is JSON encoded.
func (r *Repo) Enqueue(ctx context.Context, userID uint64, typ string, payload any, runAt time.Time) (*Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	j := Job{
		UserID:      userID,
		Type:        typ,
		Payload:     b,
		RunAt:       runAt,
		Status:      StatusPending,
		MaxAttempts: defaultMaxAttempts,
	}
	if err := r.DB.WithContext(ctx).Create(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// Claim locks one due job for workerID. It returns nil when nothing is due.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	now := time.Now()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// requeue jobs whose worker died mid-flight
		if err := tx.Model(&Job{}).
			Where("status = ? AND locked_at IS NOT NULL AND locked_at < ?", StatusRunning, now.Add(-stuckAfter)).
			Updates(map[string]any{"status": StatusPending, "locked_by": nil, "locked_at": nil, "updated_at": now}).
			Error; err != nil {
			return err
		}

		if tx.Dialector.Name() == "postgres" {
			// FOR UPDATE SKIP LOCKED ensures no double-claim across workers
			return tx.Raw(`
with cte as (
  select id
  from jobs
  where status = ? and run_at <= ?
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status = ?, locked_by = ?, locked_at = ?, updated_at = ?
where id in (select id from cte)
returning *;
`, StatusPending, now, StatusRunning, workerID, now, now).Scan(&job).Error
		}

		// single-writer dialects: select then guarded update
		err := tx.Where("status = ? AND run_at <= ?", StatusPending, now).
			Order("run_at asc, id asc").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Model(&Job{}).
			Where("id = ? AND status = ?", job.ID, StatusPending).
			Updates(map[string]any{"status": StatusRunning, "locked_by": workerID, "locked_at": now, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			job = Job{}
			return nil
		}
		job.Status = StatusRunning
		job.LockedBy = &workerID
		job.LockedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(ctx context.Context, id uint64) error {
	return r.update(ctx, id, map[string]any{"status": StatusDone})
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.update(ctx, id, map[string]any{"status": StatusFailed, "last_error": errMsg})
}

func (r *Repo) RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.update(ctx, id, map[string]any{
		"status":     StatusPending,
		"attempts":   attempts,
		"run_at":     runAt,
		"locked_by":  nil,
		"locked_at":  nil,
		"last_error": errMsg,
	})
}

func (r *Repo) Get(ctx context.Context, id uint64) (*Job, error) {
	var j Job
	if err := r.DB.WithContext(ctx).First(&j, id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) update(ctx context.Context, id uint64, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	return r.DB.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(fields).Error
}
