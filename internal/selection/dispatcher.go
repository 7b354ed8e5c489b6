package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"decisionjar/internal/jar"
	"decisionjar/internal/metrics"
	"decisionjar/internal/notify"
	"decisionjar/internal/rewards"

	"golang.org/x/sync/errgroup"
)

type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

type RewardLedger interface {
	Award(ctx context.Context, groupID uint64, points int) error
}

type AchievementEvaluator interface {
	Evaluate(ctx context.Context, groupID uint64) error
}

const (
	defaultEffectsTimeout = 30 * time.Second
	maxNotifyInFlight     = 8
)

// Committed describes a pick that has been persisted.
type Committed struct {
	RoundID string
	GroupID uint64
	UserID  uint64
	Idea    jar.Idea
}

// Dispatcher runs the best-effort effects of a committed pick: member
// notifications, reward points and achievement checks. None of them can fail
// the pick; failures are logged and counted.
type Dispatcher struct {
	Members      Store
	Notifier     Notifier
	Ledger       RewardLedger
	Achievements AchievementEvaluator

	BaseURL string
	Timeout time.Duration
	Log     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Dispatch starts the effects in the background and returns immediately. The
// effects outlive ctx's cancellation but not the dispatcher timeout. After
// Close, effects run inline before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, c Committed) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.runDetached(ctx, c)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.runDetached(ctx, c)
	}()
}

// Wait blocks until every dispatched effect has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops background dispatching and waits for in-flight effects.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) runDetached(ctx context.Context, c Committed) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultEffectsTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	d.run(ctx, c)
}

func (d *Dispatcher) run(ctx context.Context, c Committed) {
	var wg sync.WaitGroup
	wg.Add(3)

	go d.guard(&wg, "notify", c, func() error { return d.notifyMembers(ctx, c) })
	go d.guard(&wg, "reward", c, func() error {
		return d.Ledger.Award(ctx, c.GroupID, rewards.PointsFor(rewards.ActionSpin))
	})
	go d.guard(&wg, "achievement", c, func() error { return d.Achievements.Evaluate(ctx, c.GroupID) })

	wg.Wait()
}

func (d *Dispatcher) guard(wg *sync.WaitGroup, effect string, c Committed, fn func() error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.failed(effect, c, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		d.failed(effect, c, err)
	}
}

func (d *Dispatcher) failed(effect string, c Committed, err error) {
	metrics.SideEffectFailuresTotal.WithLabelValues(effect).Inc()
	d.log().Warn("post-selection effect failed",
		"effect", effect,
		"round_id", c.RoundID,
		"group_id", c.GroupID,
		"idea_id", c.Idea.ID,
		"error", err,
	)
}

// notifyMembers sends one message per member other than the spinner. Every
// send is attempted; the returned error joins the individual failures.
func (d *Dispatcher) notifyMembers(ctx context.Context, c Committed) error {
	ids, err := d.Members.MemberIDs(ctx, c.GroupID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(maxNotifyInFlight)

	for _, uid := range ids {
		if uid == c.UserID {
			continue
		}
		msg := d.message(c, uid)
		g.Go(func() error {
			if err := d.Notifier.Notify(ctx, msg); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("user %d: %w", msg.RecipientID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (d *Dispatcher) message(c Committed, recipient uint64) notify.Message {
	return notify.Message{
		RecipientID: recipient,
		Title:       "The jar has spoken",
		Body:        fmt.Sprintf("Your jar picked: %s", c.Idea.Description),
		URL:         d.BaseURL + "/dashboard?spin=" + c.RoundID,
		Icon:        d.BaseURL + "/icon-192.png",
	}
}

func (d *Dispatcher) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
