// Package notify turns notifications into durable push jobs and delivers them.
//
// Outbox.Notify only records a PUSH_DISPATCH job; the jobs worker later hands the
// job to PushHandler, which publishes it through a Pusher (redis or log).
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"decisionjar/internal/jobs"
)

var ErrNoRecipient = errors.New("recipient required")

// Message is one notification for one user.
type Message struct {
	RecipientID uint64 `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
}

type Outbox struct {
	Jobs *jobs.Repo
}

func (o *Outbox) Notify(ctx context.Context, msg Message) error {
	if msg.RecipientID == 0 {
		return ErrNoRecipient
	}
	if _, err := o.Jobs.Enqueue(ctx, msg.RecipientID, jobs.TypePushDispatch, msg, time.Now()); err != nil {
		return fmt.Errorf("enqueue push for user %d: %w", msg.RecipientID, err)
	}
	return nil
}

// Pusher is a push transport.
type Pusher interface {
	Push(ctx context.Context, msg Message) error
}

// PushHandler is the jobs.Handler for PUSH_DISPATCH jobs.
type PushHandler struct {
	Pusher Pusher
}

func (h *PushHandler) Handle(ctx context.Context, job *jobs.Job) error {
	var msg Message
	if err := json.Unmarshal(job.Payload, &msg); err != nil {
		return jobs.Permanent(fmt.Errorf("bad payload: %w", err))
	}
	if msg.RecipientID == 0 {
		msg.RecipientID = job.UserID
	}
	return h.Pusher.Push(ctx, msg)
}
