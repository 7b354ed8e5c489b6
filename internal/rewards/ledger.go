// Package rewards keeps a jar's point ledger and unlocks achievements.
package rewards

import (
	"context"
	"errors"
	"fmt"

	"decisionjar/internal/metrics"

	"gorm.io/gorm"
)

var ErrUnknownGroup = errors.New("jar not found")

// Action identifies what earned the points.
type Action string

const (
	ActionSpin     Action = "SPIN"
	ActionAddIdea  Action = "ADD_IDEA"
	ActionRateIdea Action = "RATE_IDEA"
)

var pointsByAction = map[Action]int{
	ActionSpin:     5,
	ActionAddIdea:  15,
	ActionRateIdea: 10,
}

const pointsPerLevel = 100

// PointsFor returns the fixed amount credited for an action; unknown actions earn nothing.
func PointsFor(a Action) int {
	return pointsByAction[a]
}

// LevelFor maps accumulated XP to a level, starting at 1.
func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/pointsPerLevel
}

type Ledger struct {
	DB *gorm.DB
}

// Award adds points to the jar's XP and recomputes its level in one statement.
func (l *Ledger) Award(ctx context.Context, groupID uint64, points int) error {
	if points == 0 {
		return nil
	}
	res := l.DB.WithContext(ctx).Exec(
		`update groups set xp = xp + ?, level = 1 + (xp + ?) / ? where id = ?`,
		points, points, pointsPerLevel, groupID,
	)
	if res.Error != nil {
		return fmt.Errorf("award points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnknownGroup
	}
	metrics.PointsAwardedTotal.Add(float64(points))
	return nil
}

// Recorder credits an action and re-checks achievements.
type Recorder struct {
	Ledger    *Ledger
	Evaluator *Evaluator
}

func (r *Recorder) Record(ctx context.Context, groupID uint64, a Action) error {
	if err := r.Ledger.Award(ctx, groupID, PointsFor(a)); err != nil {
		return err
	}
	return r.Evaluator.Evaluate(ctx, groupID)
}
