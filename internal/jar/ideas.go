package jar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var ErrInvalidIdea = errors.New("invalid idea")

const defaultDuration = 2.0

type IdeaInput struct {
	Description    string
	Details        string
	Address        string
	Website        string
	GoogleRating   *float64
	Duration       float64
	Cost           string
	ActivityLevel  string
	TimeOfDay      string
	Weather        string
	RequiresTravel bool
	Indoor         bool
	Category       string
	IsPrivate      bool
}

// IdeaView carries the per-user permission flags next to the idea.
type IdeaView struct {
	Idea
	CanEdit   bool
	CanDelete bool
}

var (
	validCosts    = map[string]bool{CostFree: true, CostLow: true, CostMedium: true, CostHigh: true}
	validActivity = map[string]bool{ActivityLow: true, ActivityMedium: true, ActivityHigh: true}
	validTimes    = map[string]bool{TimeAny: true, TimeDay: true, TimeEvening: true}
	validWeather  = map[string]bool{WeatherAny: true, WeatherSunny: true, WeatherRainy: true, WeatherCold: true}
)

// normalize fills defaults and rejects values outside the known tiers.
func (in IdeaInput) normalize() (IdeaInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return in, fmt.Errorf("%w: description required", ErrInvalidIdea)
	}
	if in.Duration <= 0 {
		in.Duration = defaultDuration
	}

	in.Cost = defaultUpper(in.Cost, CostLow)
	in.ActivityLevel = defaultUpper(in.ActivityLevel, ActivityMedium)
	in.TimeOfDay = defaultUpper(in.TimeOfDay, TimeAny)
	in.Weather = defaultUpper(in.Weather, WeatherAny)
	in.Category = defaultUpper(in.Category, "ACTIVITY")

	switch {
	case !validCosts[in.Cost]:
		return in, fmt.Errorf("%w: cost %q", ErrInvalidIdea, in.Cost)
	case !validActivity[in.ActivityLevel]:
		return in, fmt.Errorf("%w: activity level %q", ErrInvalidIdea, in.ActivityLevel)
	case !validTimes[in.TimeOfDay]:
		return in, fmt.Errorf("%w: time of day %q", ErrInvalidIdea, in.TimeOfDay)
	case !validWeather[in.Weather]:
		return in, fmt.Errorf("%w: weather %q", ErrInvalidIdea, in.Weather)
	}
	return in, nil
}

func defaultUpper(v, def string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

// CreateIdea adds an idea to groupID on behalf of a member.
func (s *Service) CreateIdea(ctx context.Context, userID, groupID uint64, in IdeaInput) (*Idea, error) {
	if _, err := s.Role(ctx, groupID, userID); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	idea := Idea{
		GroupID:        groupID,
		CreatedBy:      userID,
		Description:    in.Description,
		Details:        in.Details,
		Address:        in.Address,
		Website:        in.Website,
		GoogleRating:   in.GoogleRating,
		Duration:       in.Duration,
		Cost:           in.Cost,
		ActivityLevel:  in.ActivityLevel,
		TimeOfDay:      in.TimeOfDay,
		Weather:        in.Weather,
		RequiresTravel: in.RequiresTravel,
		Indoor:         in.Indoor,
		Category:       in.Category,
		IsPrivate:      in.IsPrivate,
		Tags:           ExtractTags(in.Description + " " + in.Details),
	}
	if err := s.DB.WithContext(ctx).Create(&idea).Error; err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	return &idea, nil
}

// ListIdeas returns the jar's ideas, newest first. Private ideas are only
// visible to their creator.
func (s *Service) ListIdeas(ctx context.Context, userID, groupID uint64) ([]IdeaView, error) {
	role, err := s.Role(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	var ideas []Idea
	if err := s.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Where("is_private = ? OR created_by = ?", false, userID).
		Order("created_at desc, id desc").
		Find(&ideas).Error; err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}

	out := make([]IdeaView, 0, len(ideas))
	for _, i := range ideas {
		can := CanManage(i.CreatedBy, userID, role)
		out = append(out, IdeaView{Idea: i, CanEdit: can, CanDelete: can})
	}
	return out, nil
}

// DeleteIdea removes an idea. Only its creator or a jar admin may do so.
func (s *Service) DeleteIdea(ctx context.Context, userID, ideaID uint64) (*Idea, error) {
	idea, err := s.manageableIdea(ctx, userID, ideaID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Delete(&Idea{}, idea.ID).Error; err != nil {
		return nil, fmt.Errorf("delete idea: %w", err)
	}
	return idea, nil
}

// RateIdea records a 1..5 rating and notes for an idea the jar has done.
// Any member may rate; an unselected idea is marked selected at rating time.
func (s *Service) RateIdea(ctx context.Context, userID, ideaID uint64, rating int, notes string) (*Idea, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidIdea)
	}

	idea, err := s.getIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Role(ctx, idea.GroupID, userID); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"rating": rating,
		"notes":  strings.TrimSpace(notes),
	}
	if idea.SelectedAt == nil {
		t := now()
		updates["selected_at"] = t
		updates["selected_date"] = t
	}
	if err := s.DB.WithContext(ctx).Model(idea).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("rate idea: %w", err)
	}
	return s.getIdea(ctx, ideaID)
}

func (s *Service) manageableIdea(ctx context.Context, userID, ideaID uint64) (*Idea, error) {
	idea, err := s.getIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	role, err := s.Role(ctx, idea.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if !CanManage(idea.CreatedBy, userID, role) {
		return nil, ErrForbidden
	}
	return idea, nil
}

func (s *Service) getIdea(ctx context.Context, ideaID uint64) (*Idea, error) {
	var idea Idea
	if err := s.DB.WithContext(ctx).First(&idea, ideaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &idea, nil
}
