package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"decisionjar/internal/jar"
	"decisionjar/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	ideas   []jar.Idea
	roles   map[uint64]string // user id -> role, all in group 1
	markErr error
	// steal makes the first commit lose to a concurrent spin.
	steal  bool
	marked []uint64
}

func (s *memStore) Candidates(_ context.Context, groupID uint64, f Filters) ([]jar.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []jar.Idea
	for _, i := range s.ideas {
		if i.GroupID != groupID || i.SelectedAt != nil || i.Category == jar.CategoryPlanned {
			continue
		}
		if concrete(f.Category) && i.Category != f.Category {
			continue
		}
		if concrete(f.TimeOfDay) && i.TimeOfDay != jar.TimeAny && i.TimeOfDay != f.TimeOfDay {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (s *memStore) MarkSelected(_ context.Context, ideaID uint64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	for k := range s.ideas {
		if s.ideas[k].ID != ideaID {
			continue
		}
		if s.steal {
			s.steal = false
			s.ideas[k].SelectedAt = &at
			return false, nil
		}
		if s.ideas[k].SelectedAt != nil {
			return false, nil
		}
		s.ideas[k].SelectedAt = &at
		s.marked = append(s.marked, ideaID)
		return true, nil
	}
	return false, nil
}

func (s *memStore) MemberRole(_ context.Context, _, userID uint64) (string, error) {
	return s.roles[userID], nil
}

func (s *memStore) MemberIDs(_ context.Context, _ uint64) ([]uint64, error) {
	var ids []uint64
	for uid := range s.roles {
		ids = append(ids, uid)
	}
	return ids, nil
}

type effects struct {
	mu          sync.Mutex
	notified    []notify.Message
	failFor     map[uint64]bool
	awards      []int
	evaluations int
}

func (e *effects) Notify(_ context.Context, msg notify.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notified = append(e.notified, msg)
	if e.failFor[msg.RecipientID] {
		return errors.New("push endpoint gone")
	}
	return nil
}

func (e *effects) Award(_ context.Context, _ uint64, points int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.awards = append(e.awards, points)
	return nil
}

func (e *effects) Evaluate(context.Context, uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluations++
	return nil
}

func newService(store *memStore, fx *effects) *Service {
	return &Service{
		Store: store,
		Dispatcher: &Dispatcher{
			Members:      store,
			Notifier:     fx,
			Ledger:       fx,
			Achievements: fx,
			BaseURL:      "https://jar.example.com",
		},
		Rand: func(int) int { return 0 },
	}
}

func scenarioIdeas() []jar.Idea {
	selected := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []jar.Idea{
		{ID: 1, GroupID: 1, CreatedBy: 1, Description: "Climbing gym", Cost: "$$", ActivityLevel: "HIGH", Duration: 3, Weather: "ANY", TimeOfDay: "ANY"},
		{ID: 2, GroupID: 1, CreatedBy: 1, Description: "Beach day", Cost: "$", ActivityLevel: "LOW", Duration: 1, Weather: "SUNNY", TimeOfDay: "ANY", RequiresTravel: true},
		{ID: 3, GroupID: 1, CreatedBy: 1, Description: "Tasting menu", Cost: "$$$", ActivityLevel: "MEDIUM", Duration: 2, Weather: "ANY", TimeOfDay: "ANY", SelectedAt: &selected},
	}
}

func TestSpinScenario(t *testing.T) {
	store := &memStore{ideas: scenarioIdeas(), roles: map[uint64]string{1: jar.RoleAdmin, 2: jar.RoleMember}}
	fx := &effects{}
	svc := newService(store, fx)
	svc.Rand = func(n int) int {
		require.Equal(t, 1, n, "only idea 1 survives")
		return 0
	}

	res, err := svc.Spin(context.Background(), Request{
		UserID:  1,
		GroupID: 1,
		Filters: Filters{MaxCost: "$$", MaxActivity: "HIGH", MaxDuration: ptr(4.0), LocalOnly: true},
	})
	require.NoError(t, err)
	svc.Dispatcher.Wait()

	assert.Equal(t, uint64(1), res.Idea.ID)
	require.NotNil(t, res.Idea.SelectedAt)
	assert.NotEmpty(t, res.RoundID)
	assert.Equal(t, []uint64{1}, store.marked)

	require.Len(t, fx.notified, 1, "spinner is not notified")
	assert.Equal(t, uint64(2), fx.notified[0].RecipientID)
	assert.Contains(t, fx.notified[0].Body, "Climbing gym")
	assert.Equal(t, "https://jar.example.com/dashboard?spin="+res.RoundID, fx.notified[0].URL)
	assert.Equal(t, []int{5}, fx.awards)
	assert.Equal(t, 1, fx.evaluations)
}

func TestSpinNoMatchDoesNotMutate(t *testing.T) {
	store := &memStore{ideas: scenarioIdeas(), roles: map[uint64]string{1: jar.RoleAdmin}}
	fx := &effects{}
	svc := newService(store, fx)

	_, err := svc.Spin(context.Background(), Request{
		UserID: 1, GroupID: 1,
		Filters: Filters{MaxCost: jar.CostFree},
	})
	svc.Dispatcher.Wait()

	assert.ErrorIs(t, err, ErrNoMatchingIdeas)
	assert.Empty(t, store.marked)
	assert.Empty(t, fx.notified)
	assert.Empty(t, fx.awards)
}

func TestSpinRequiresGroup(t *testing.T) {
	svc := newService(&memStore{}, &effects{})
	_, err := svc.Spin(context.Background(), Request{UserID: 1})
	assert.ErrorIs(t, err, ErrGroupRequired)
}

func TestSpinCommitFailureFiresNoEffects(t *testing.T) {
	store := &memStore{
		ideas:   scenarioIdeas(),
		roles:   map[uint64]string{1: jar.RoleAdmin, 2: jar.RoleMember},
		markErr: errors.New("db down"),
	}
	fx := &effects{}
	svc := newService(store, fx)

	_, err := svc.Spin(context.Background(), Request{UserID: 1, GroupID: 1})
	svc.Dispatcher.Wait()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, fx.notified)
	assert.Empty(t, fx.awards)
	assert.Zero(t, fx.evaluations)
}

func TestSpinSurvivesNotificationFailure(t *testing.T) {
	store := &memStore{
		ideas: scenarioIdeas(),
		roles: map[uint64]string{1: jar.RoleAdmin, 2: jar.RoleMember, 3: jar.RoleMember},
	}
	fx := &effects{failFor: map[uint64]bool{2: true}}
	svc := newService(store, fx)

	res, err := svc.Spin(context.Background(), Request{UserID: 1, GroupID: 1})
	require.NoError(t, err)
	require.NotNil(t, res)
	svc.Dispatcher.Wait()

	var recipients []uint64
	for _, m := range fx.notified {
		recipients = append(recipients, m.RecipientID)
	}
	assert.ElementsMatch(t, []uint64{2, 3}, recipients, "every member is attempted")
	assert.Equal(t, []int{5}, fx.awards)
	assert.Equal(t, 1, fx.evaluations)
}

func TestSpinPermissionFlags(t *testing.T) {
	// X (1) created the idea, Y (2) is an admin, Z (3) is a plain member.
	roles := map[uint64]string{1: jar.RoleMember, 2: jar.RoleAdmin, 3: jar.RoleMember}

	for _, tc := range []struct {
		user uint64
		want bool
	}{{1, true}, {2, true}, {3, false}} {
		store := &memStore{
			ideas: []jar.Idea{{ID: 10, GroupID: 1, CreatedBy: 1, Description: "Board games"}},
			roles: roles,
		}
		svc := newService(store, &effects{})

		res, err := svc.Spin(context.Background(), Request{UserID: tc.user, GroupID: 1})
		require.NoError(t, err)
		svc.Dispatcher.Wait()

		assert.Equal(t, tc.want, res.CanEdit, "user %d", tc.user)
		assert.Equal(t, tc.want, res.CanDelete, "user %d", tc.user)
	}
}

func TestSpinRetriesWhenIdeaTakenConcurrently(t *testing.T) {
	store := &memStore{
		ideas: []jar.Idea{
			{ID: 1, GroupID: 1, Description: "a"},
			{ID: 2, GroupID: 1, Description: "b"},
		},
		roles: map[uint64]string{1: jar.RoleMember},
		steal: true,
	}
	svc := newService(store, &effects{})

	res, err := svc.Spin(context.Background(), Request{UserID: 1, GroupID: 1})
	require.NoError(t, err)
	svc.Dispatcher.Wait()

	assert.Equal(t, uint64(2), res.Idea.ID)
	assert.Equal(t, []uint64{2}, store.marked)
}

func TestSpinConflictWhenEverythingIsTaken(t *testing.T) {
	store := &memStore{
		ideas: []jar.Idea{{ID: 1, GroupID: 1}},
		roles: map[uint64]string{1: jar.RoleMember},
		steal: true,
	}
	svc := newService(store, &effects{})

	_, err := svc.Spin(context.Background(), Request{UserID: 1, GroupID: 1})
	svc.Dispatcher.Wait()
	// the only idea was taken; the next round finds an empty pool
	assert.ErrorIs(t, err, ErrNoMatchingIdeas)
}
