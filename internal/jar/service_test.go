package jar_test

import (
	"context"
	"strings"
	"testing"

	"decisionjar/internal/auth"
	"decisionjar/internal/jar"
	"decisionjar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T, emails ...string) (*jar.Service, *gorm.DB, []uint64) {
	t.Helper()
	gdb := testutil.NewDB(t)
	var ids []uint64
	for _, e := range emails {
		u := auth.User{Email: e, PasswordHash: "x"}
		require.NoError(t, gdb.Create(&u).Error)
		ids = append(ids, u.ID)
	}
	return &jar.Service{DB: gdb}, gdb, ids
}

func u64(v uint64) *uint64 { return &v }

func TestResolveActiveGroup(t *testing.T) {
	ms := []jar.Membership{{GroupID: 4}, {GroupID: 9}}

	g, ok := jar.ResolveActiveGroup(auth.User{ActiveGroupID: u64(9), LegacyGroupID: u64(1)}, ms)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), g, "explicit active jar wins")

	g, ok = jar.ResolveActiveGroup(auth.User{ActiveGroupID: u64(77)}, ms)
	assert.True(t, ok)
	assert.Equal(t, uint64(4), g, "stale pointer falls back to the first membership")

	g, ok = jar.ResolveActiveGroup(auth.User{LegacyGroupID: u64(3)}, nil)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), g, "legacy pointer is the last resort")

	_, ok = jar.ResolveActiveGroup(auth.User{}, nil)
	assert.False(t, ok)
}

func TestCreateJoinAndSwitchJars(t *testing.T) {
	svc, gdb, ids := setup(t, "a@example.com", "b@example.com")
	alice, bob := ids[0], ids[1]
	ctx := context.Background()

	_, err := svc.CreateGroup(ctx, alice, "   ")
	assert.ErrorIs(t, err, jar.ErrInvalidName)

	g1, err := svc.CreateGroup(ctx, alice, "Weekend")
	require.NoError(t, err)
	assert.Len(t, g1.ReferenceCode, 8)
	assert.Equal(t, 1, g1.Level)

	role, err := svc.Role(ctx, g1.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, jar.RoleAdmin, role)

	_, err = svc.JoinGroup(ctx, bob, "nope")
	assert.ErrorIs(t, err, jar.ErrNotFound)

	joined, err := svc.JoinGroup(ctx, bob, " "+strings.ToLower(g1.ReferenceCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, g1.ID, joined.ID)
	_, err = svc.JoinGroup(ctx, bob, g1.ReferenceCode)
	require.NoError(t, err, "joining twice is a no-op")

	role, err = svc.Role(ctx, g1.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, jar.RoleMember, role)

	g2, err := svc.CreateGroup(ctx, alice, "Weeknights")
	require.NoError(t, err)

	active, ok, err := svc.ActiveGroup(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g2.ID, active, "creating a jar switches to it")

	require.NoError(t, svc.SetActiveGroup(ctx, alice, g1.ID))
	active, _, err = svc.ActiveGroup(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, g1.ID, active)

	assert.ErrorIs(t, svc.SetActiveGroup(ctx, bob, g2.ID), jar.ErrNotMember)

	views, err := svc.ListGroups(ctx, alice)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Weekend", views[0].Name)
	assert.Equal(t, jar.RoleAdmin, views[0].Role)

	var count int64
	require.NoError(t, gdb.Model(&jar.Membership{}).Where("group_id = ?", g1.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDeleteGroup(t *testing.T) {
	svc, gdb, ids := setup(t, "a@example.com", "b@example.com")
	alice, bob := ids[0], ids[1]
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, alice, "Trips")
	require.NoError(t, err)
	_, err = svc.JoinGroup(ctx, bob, g.ReferenceCode)
	require.NoError(t, err)
	_, err = svc.CreateIdea(ctx, alice, g.ID, jar.IdeaInput{Description: "Lisbon"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteGroup(ctx, bob, g.ID), jar.ErrForbidden)
	require.NoError(t, svc.DeleteGroup(ctx, alice, g.ID))

	var ideas, members int64
	require.NoError(t, gdb.Model(&jar.Idea{}).Where("group_id = ?", g.ID).Count(&ideas).Error)
	require.NoError(t, gdb.Model(&jar.Membership{}).Where("group_id = ?", g.ID).Count(&members).Error)
	assert.Zero(t, ideas)
	assert.Zero(t, members)

	_, ok, err := svc.ActiveGroup(ctx, bob)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdeas(t *testing.T) {
	svc, _, ids := setup(t, "a@example.com", "b@example.com", "c@example.com")
	alice, bob, carol := ids[0], ids[1], ids[2]
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, alice, "Us")
	require.NoError(t, err)
	_, err = svc.JoinGroup(ctx, bob, g.ReferenceCode)
	require.NoError(t, err)

	_, err = svc.CreateIdea(ctx, carol, g.ID, jar.IdeaInput{Description: "x"})
	assert.ErrorIs(t, err, jar.ErrNotMember)
	_, err = svc.CreateIdea(ctx, bob, g.ID, jar.IdeaInput{Description: "x", Cost: "$$$$"})
	assert.ErrorIs(t, err, jar.ErrInvalidIdea)
	_, err = svc.CreateIdea(ctx, bob, g.ID, jar.IdeaInput{Description: "  "})
	assert.ErrorIs(t, err, jar.ErrInvalidIdea)

	public, err := svc.CreateIdea(ctx, bob, g.ID, jar.IdeaInput{
		Description: "Sunset #hike with #Views",
		Details:     "bring #views snacks",
		Cost:        "free",
		Weather:     "sunny",
	})
	require.NoError(t, err)
	assert.Equal(t, jar.CostFree, public.Cost)
	assert.Equal(t, jar.WeatherSunny, public.Weather)
	assert.Equal(t, jar.ActivityMedium, public.ActivityLevel)
	assert.Equal(t, jar.TimeAny, public.TimeOfDay)
	assert.Equal(t, 2.0, public.Duration)
	assert.Equal(t, jar.Tags{"hike", "views"}, public.Tags)

	_, err = svc.CreateIdea(ctx, bob, g.ID, jar.IdeaInput{Description: "Surprise", IsPrivate: true})
	require.NoError(t, err)

	aliceView, err := svc.ListIdeas(ctx, alice, g.ID)
	require.NoError(t, err)
	require.Len(t, aliceView, 1, "bob's private idea is hidden from alice")
	assert.True(t, aliceView[0].CanEdit, "admins manage every idea")
	assert.Equal(t, jar.Tags{"hike", "views"}, aliceView[0].Tags)

	bobView, err := svc.ListIdeas(ctx, bob, g.ID)
	require.NoError(t, err)
	assert.Len(t, bobView, 2)

	rated, err := svc.RateIdea(ctx, alice, public.ID, 5, " perfect ")
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 5, *rated.Rating)
	assert.Equal(t, "perfect", rated.Notes)
	assert.NotNil(t, rated.SelectedAt, "rating completes the idea")

	_, err = svc.RateIdea(ctx, alice, public.ID, 6, "")
	assert.ErrorIs(t, err, jar.ErrInvalidIdea)

	mine, err := svc.CreateIdea(ctx, alice, g.ID, jar.IdeaInput{Description: "Alice's idea"})
	require.NoError(t, err)
	_, err = svc.DeleteIdea(ctx, bob, mine.ID)
	assert.ErrorIs(t, err, jar.ErrForbidden)
	_, err = svc.DeleteIdea(ctx, alice, public.ID)
	require.NoError(t, err, "admin may delete a member's idea")
	_, err = svc.DeleteIdea(ctx, alice, public.ID)
	assert.ErrorIs(t, err, jar.ErrNotFound)
}

func TestExtractTags(t *testing.T) {
	assert.Nil(t, jar.ExtractTags("no tags here"))
	assert.Equal(t, jar.Tags{"a", "b_2"}, jar.ExtractTags("#A then #b_2 and #a again"))
}

func TestCanManage(t *testing.T) {
	assert.True(t, jar.CanManage(1, 1, jar.RoleMember))
	assert.True(t, jar.CanManage(1, 2, jar.RoleAdmin))
	assert.False(t, jar.CanManage(1, 3, jar.RoleMember))
	assert.False(t, jar.CanManage(1, 3, ""))
}
