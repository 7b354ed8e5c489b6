package jar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decisionjar/internal/auth"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNotMember   = errors.New("not a member of this jar")
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidName = errors.New("jar name required")
)

type Service struct {
	DB *gorm.DB
}

// GroupView is a jar as seen by one of its members.
type GroupView struct {
	Group
	Role string
}

// CreateGroup creates a jar, makes userID its admin and switches the user to it.
func (s *Service) CreateGroup(ctx context.Context, userID uint64, name string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	g := Group{Name: name, ReferenceCode: newReferenceCode(), Level: 1}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		m := Membership{UserID: userID, GroupID: g.ID, Role: RoleAdmin}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return tx.Model(&auth.User{}).Where("id = ?", userID).Update("active_group_id", g.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create jar: %w", err)
	}
	return &g, nil
}

func (s *Service) ListGroups(ctx context.Context, userID uint64) ([]GroupView, error) {
	var rows []GroupView
	err := s.DB.WithContext(ctx).
		Table("groups").
		Select("groups.*, memberships.role AS role").
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ?", userID).
		Order("memberships.created_at asc, memberships.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list jars: %w", err)
	}
	return rows, nil
}

// JoinGroup adds userID to the jar with the given reference code as a member.
// Joining a jar twice keeps the existing role.
func (s *Service) JoinGroup(ctx context.Context, userID uint64, code string) (*Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var g Group
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reference_code = ?", code).First(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		m := Membership{UserID: userID, GroupID: g.ID, Role: RoleMember}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
			return err
		}
		return tx.Model(&auth.User{}).Where("id = ?", userID).Update("active_group_id", g.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SetActiveGroup points the user at one of their jars.
func (s *Service) SetActiveGroup(ctx context.Context, userID, groupID uint64) error {
	if _, err := s.Role(ctx, groupID, userID); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&auth.User{}).
		Where("id = ?", userID).
		Update("active_group_id", groupID).Error
}

// DeleteGroup removes a jar with its ideas, memberships and achievements. Admin only.
func (s *Service) DeleteGroup(ctx context.Context, userID, groupID uint64) error {
	role, err := s.Role(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return ErrForbidden
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmts := []struct {
			sql string
			arg any
		}{
			{`delete from ideas where group_id = ?`, groupID},
			{`delete from memberships where group_id = ?`, groupID},
			{`delete from unlocked_achievements where group_id = ?`, groupID},
			{`update users set active_group_id = null where active_group_id = ?`, groupID},
			{`update users set legacy_group_id = null where legacy_group_id = ?`, groupID},
			{`delete from groups where id = ?`, groupID},
		}
		for _, st := range stmts {
			if err := tx.Exec(st.sql, st.arg).Error; err != nil {
				return fmt.Errorf("delete jar: %w", err)
			}
		}
		return nil
	})
}

// Role returns the user's role in the jar, or ErrNotMember.
func (s *Service) Role(ctx context.Context, groupID, userID uint64) (string, error) {
	var m Membership
	err := s.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// ActiveGroup resolves the jar the user is currently working in.
// ok is false when the user belongs to no jar at all.
func (s *Service) ActiveGroup(ctx context.Context, userID uint64) (groupID uint64, ok bool, err error) {
	var u auth.User
	if err := s.DB.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, ErrNotFound
		}
		return 0, false, err
	}

	var ms []Membership
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&ms).Error; err != nil {
		return 0, false, err
	}

	groupID, ok = ResolveActiveGroup(u, ms)
	return groupID, ok, nil
}

// ResolveActiveGroup applies the fallback chain: the explicit active pointer
// (while the user is still a member), then the oldest membership, then the
// legacy single-jar pointer. memberships must be ordered oldest first.
func ResolveActiveGroup(u auth.User, memberships []Membership) (uint64, bool) {
	if u.ActiveGroupID != nil {
		for _, m := range memberships {
			if m.GroupID == *u.ActiveGroupID {
				return m.GroupID, true
			}
		}
	}
	if len(memberships) > 0 {
		return memberships[0].GroupID, true
	}
	if u.LegacyGroupID != nil && *u.LegacyGroupID != 0 {
		return *u.LegacyGroupID, true
	}
	return 0, false
}

func newReferenceCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}

func now() time.Time { return time.Now().UTC() }
