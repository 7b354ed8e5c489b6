package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"decisionjar/internal/jar"
	"decisionjar/internal/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnlockedAchievement struct {
	ID         uint64    `gorm:"primaryKey"`
	GroupID    uint64    `gorm:"uniqueIndex:uq_achievement_group_code;not null"`
	Code       string    `gorm:"uniqueIndex:uq_achievement_group_code;not null"`
	UnlockedAt time.Time `gorm:"not null"`
}

// Stats is what unlock conditions are evaluated against.
type Stats struct {
	Ideas    int64
	Selected int64
	Rated    int64
	Level    int
}

type Achievement struct {
	Code        string
	Title       string
	Description string
	unlocked    func(Stats) bool
}

var Catalogue = []Achievement{
	{"FIRST_IDEA", "Jar Starter", "Add the first idea to the jar.", func(s Stats) bool { return s.Ideas >= 1 }},
	{"IDEA_HOARDER", "Idea Hoarder", "Collect 25 ideas.", func(s Stats) bool { return s.Ideas >= 25 }},
	{"FIRST_SPIN", "Leap of Faith", "Let the jar pick for the first time.", func(s Stats) bool { return s.Selected >= 1 }},
	{"SPIN_10", "Creature of Chance", "Let the jar pick 10 times.", func(s Stats) bool { return s.Selected >= 10 }},
	{"CRITIC", "Critic", "Rate a completed idea.", func(s Stats) bool { return s.Rated >= 1 }},
	{"LEVEL_5", "Seasoned", "Reach level 5.", func(s Stats) bool { return s.Level >= 5 }},
}

func Lookup(code string) (Achievement, bool) {
	for _, a := range Catalogue {
		if a.Code == code {
			return a, true
		}
	}
	return Achievement{}, false
}

type Evaluator struct {
	DB *gorm.DB
}

// Evaluate unlocks every achievement the jar now qualifies for.
func (e *Evaluator) Evaluate(ctx context.Context, groupID uint64) error {
	_, err := e.Unlock(ctx, groupID)
	return err
}

// Unlock is Evaluate returning the achievements unlocked by this call.
func (e *Evaluator) Unlock(ctx context.Context, groupID uint64) ([]Achievement, error) {
	stats, err := e.stats(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var have []string
	if err := e.DB.WithContext(ctx).Model(&UnlockedAchievement{}).
		Where("group_id = ?", groupID).
		Pluck("code", &have).Error; err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	owned := make(map[string]bool, len(have))
	for _, c := range have {
		owned[c] = true
	}

	var fresh []Achievement
	for _, a := range Catalogue {
		if owned[a.Code] || !a.unlocked(stats) {
			continue
		}
		row := UnlockedAchievement{GroupID: groupID, Code: a.Code, UnlockedAt: time.Now().UTC()}
		res := e.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fresh, fmt.Errorf("unlock %s: %w", a.Code, res.Error)
		}
		// a concurrent evaluation may have won the insert
		if res.RowsAffected == 0 {
			continue
		}
		fresh = append(fresh, a)
		metrics.AchievementsUnlockedTotal.Inc()
		slog.Info("achievement unlocked", "group_id", groupID, "code", a.Code)
	}
	return fresh, nil
}

// Unlocked lists a jar's achievements, oldest first.
func (e *Evaluator) Unlocked(ctx context.Context, groupID uint64) ([]UnlockedAchievement, error) {
	var rows []UnlockedAchievement
	err := e.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("unlocked_at asc, id asc").
		Find(&rows).Error
	return rows, err
}

func (e *Evaluator) stats(ctx context.Context, groupID uint64) (Stats, error) {
	var s Stats
	db := e.DB.WithContext(ctx)

	var g jar.Group
	if err := db.Select("level").First(&g, groupID).Error; err != nil {
		return s, fmt.Errorf("load jar: %w", err)
	}
	s.Level = g.Level

	base := func() *gorm.DB {
		return db.Model(&jar.Idea{}).Where("group_id = ? AND category <> ?", groupID, jar.CategoryPlanned)
	}
	if err := base().Count(&s.Ideas).Error; err != nil {
		return s, err
	}
	if err := base().Where("selected_at IS NOT NULL").Count(&s.Selected).Error; err != nil {
		return s, err
	}
	if err := base().Where("rating IS NOT NULL").Count(&s.Rated).Error; err != nil {
		return s, err
	}
	return s, nil
}
