package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decisionjar/internal/jar"

	"gorm.io/gorm"
)

var ErrGroupRequired = errors.New("jar required")

// Store is the persistence the selection flow needs.
type Store interface {
	// Candidates returns the unselected, non-planned ideas of the jar, with the
	// category and time-of-day filters of f applied.
	Candidates(ctx context.Context, groupID uint64, f Filters) ([]jar.Idea, error)
	// MarkSelected commits the pick. It reports false when the idea was
	// already selected by someone else.
	MarkSelected(ctx context.Context, ideaID uint64, at time.Time) (bool, error)
	// MemberRole returns "" when the user is not a member.
	MemberRole(ctx context.Context, groupID, userID uint64) (string, error)
	MemberIDs(ctx context.Context, groupID uint64) ([]uint64, error)
}

// Resolver produces the candidate pool of a jar.
type Resolver struct {
	Store Store
}

func (r *Resolver) Resolve(ctx context.Context, groupID uint64, f Filters) ([]jar.Idea, error) {
	if groupID == 0 {
		return nil, ErrGroupRequired
	}
	ideas, err := r.Store.Candidates(ctx, groupID, f)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return ideas, nil
}

type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Candidates(ctx context.Context, groupID uint64, f Filters) ([]jar.Idea, error) {
	q := s.DB.WithContext(ctx).
		Where("group_id = ? AND selected_at IS NULL AND category <> ?", groupID, jar.CategoryPlanned)

	if concrete(f.Category) {
		q = q.Where("category = ?", f.Category)
	}
	if concrete(f.TimeOfDay) {
		q = q.Where("time_of_day IN ?", []string{jar.TimeAny, f.TimeOfDay})
	}

	var ideas []jar.Idea
	if err := q.Find(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

func (s *GormStore) MarkSelected(ctx context.Context, ideaID uint64, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&jar.Idea{}).
		Where("id = ? AND selected_at IS NULL", ideaID).
		Updates(map[string]any{"selected_at": at, "selected_date": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) MemberRole(ctx context.Context, groupID, userID uint64) (string, error) {
	var m jar.Membership
	err := s.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

func (s *GormStore) MemberIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.DB.WithContext(ctx).Model(&jar.Membership{}).
		Where("group_id = ?", groupID).
		Order("user_id asc").
		Pluck("user_id", &ids).Error
	return ids, err
}
