// Package selection picks one idea out of a jar.
//
// A spin runs in three steps. The Resolver loads the jar's candidate pool,
// Filter and Pick narrow it by the request's constraints and choose one idea
// uniformly at random, and after the pick is committed the Dispatcher fires the
// best-effort effects (notifications, points, achievements) in the background.
//
// The commit only succeeds while the idea is still unselected, so two
// concurrent spins can never both claim the same idea; the loser re-picks from
// what is left.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"decisionjar/internal/jar"
	"decisionjar/internal/metrics"

	"github.com/google/uuid"
)

var ErrSelectionConflict = errors.New("ideas were taken by concurrent spins")

const maxCommitAttempts = 3

type Request struct {
	UserID  uint64
	GroupID uint64
	Filters Filters
}

type Result struct {
	RoundID   string
	Idea      jar.Idea
	CanEdit   bool
	CanDelete bool
}

type Service struct {
	Store      Store
	Dispatcher *Dispatcher

	// Rand returns a value in [0, n). Defaults to math/rand/v2.IntN.
	Rand func(n int) int
	Now  func() time.Time
}

// Spin selects one idea of req.GroupID matching req.Filters and commits it.
func (s *Service) Spin(ctx context.Context, req Request) (*Result, error) {
	res, err := s.spin(ctx, req)
	switch {
	case err == nil:
		metrics.SpinsTotal.WithLabelValues("selected").Inc()
	case errors.Is(err, ErrNoMatchingIdeas):
		metrics.SpinsTotal.WithLabelValues("no_match").Inc()
	case errors.Is(err, ErrSelectionConflict):
		metrics.SpinsTotal.WithLabelValues("conflict").Inc()
	default:
		metrics.SpinsTotal.WithLabelValues("error").Inc()
	}
	return res, err
}

func (s *Service) spin(ctx context.Context, req Request) (*Result, error) {
	if req.GroupID == 0 {
		return nil, ErrGroupRequired
	}
	f := req.Filters.Normalize()
	resolver := Resolver{Store: s.Store}

	role, err := s.Store.MemberRole(ctx, req.GroupID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}

	taken := map[uint64]bool{}
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		pool, err := resolver.Resolve(ctx, req.GroupID, f)
		if err != nil {
			return nil, err
		}

		survivors := Filter(pool, f)
		if len(taken) > 0 {
			survivors = withoutTaken(survivors, taken)
		}

		idea, err := Pick(survivors, s.intn())
		if err != nil {
			return nil, err
		}

		at := s.now()
		ok, err := s.Store.MarkSelected(ctx, idea.ID, at)
		if err != nil {
			return nil, fmt.Errorf("commit selection: %w", err)
		}
		if !ok {
			slog.Debug("idea taken by a concurrent spin", "group_id", req.GroupID, "idea_id", idea.ID)
			taken[idea.ID] = true
			continue
		}
		idea.SelectedAt = &at
		idea.SelectedDate = &at

		roundID := uuid.NewString()
		slog.Info("idea selected",
			"round_id", roundID,
			"group_id", req.GroupID,
			"user_id", req.UserID,
			"idea_id", idea.ID,
			"pool", len(pool),
			"survivors", len(survivors),
		)

		if s.Dispatcher != nil {
			s.Dispatcher.Dispatch(ctx, Committed{
				RoundID: roundID,
				GroupID: req.GroupID,
				UserID:  req.UserID,
				Idea:    idea,
			})
		}

		can := jar.CanManage(idea.CreatedBy, req.UserID, role)
		return &Result{RoundID: roundID, Idea: idea, CanEdit: can, CanDelete: can}, nil
	}
	return nil, ErrSelectionConflict
}

func withoutTaken(ideas []jar.Idea, taken map[uint64]bool) []jar.Idea {
	out := ideas[:0]
	for _, i := range ideas {
		if !taken[i.ID] {
			out = append(out, i)
		}
	}
	return out
}

func (s *Service) intn() func(int) int {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.IntN
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
