package selection

import (
	"errors"
	"strings"

	"decisionjar/internal/jar"
)

var ErrNoMatchingIdeas = errors.New("no matching ideas")

// Filters narrows a spin. Every field is optional; "" and "ANY" mean no restriction.
type Filters struct {
	MaxDuration *float64
	MaxCost     string
	MaxActivity string
	TimeOfDay   string
	Weather     string
	LocalOnly   bool
	Category    string
}

// Normalize trims and upper-cases the enum fields.
func (f Filters) Normalize() Filters {
	f.MaxCost = strings.ToUpper(strings.TrimSpace(f.MaxCost))
	f.MaxActivity = strings.ToUpper(strings.TrimSpace(f.MaxActivity))
	f.TimeOfDay = strings.ToUpper(strings.TrimSpace(f.TimeOfDay))
	f.Weather = strings.ToUpper(strings.TrimSpace(f.Weather))
	f.Category = strings.ToUpper(strings.TrimSpace(f.Category))
	return f
}

func concrete(v string) bool {
	return v != "" && v != jar.TimeAny
}

// Matches reports whether idea passes every constraint in f that the
// candidate query does not already apply.
func Matches(idea jar.Idea, f Filters) bool {
	if f.MaxDuration != nil && idea.Duration > *f.MaxDuration {
		return false
	}
	if ideaCostRank(idea.Cost) > maxCostRank(f.MaxCost) {
		return false
	}
	if ideaActivityRank(idea.ActivityLevel) > maxActivityRank(f.MaxActivity) {
		return false
	}
	if concrete(f.Weather) && idea.Weather != "" && idea.Weather != jar.WeatherAny && idea.Weather != f.Weather {
		return false
	}
	if f.LocalOnly && idea.RequiresTravel {
		return false
	}
	return true
}

// Filter returns the candidates that match f, preserving order.
func Filter(candidates []jar.Idea, f Filters) []jar.Idea {
	out := make([]jar.Idea, 0, len(candidates))
	for _, c := range candidates {
		if Matches(c, f) {
			out = append(out, c)
		}
	}
	return out
}

// Pick chooses one idea uniformly; intn(n) must return a value in [0, n).
func Pick(survivors []jar.Idea, intn func(n int) int) (jar.Idea, error) {
	if len(survivors) == 0 {
		return jar.Idea{}, ErrNoMatchingIdeas
	}
	return survivors[intn(len(survivors))], nil
}
