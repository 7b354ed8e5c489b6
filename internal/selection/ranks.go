package selection

import "decisionjar/internal/jar"

var costRank = map[string]int{
	jar.CostFree:   0,
	jar.CostLow:    1,
	jar.CostMedium: 2,
	jar.CostHigh:   3,
}

var activityRank = map[string]int{
	jar.ActivityLow:    0,
	jar.ActivityMedium: 1,
	jar.ActivityHigh:   2,
}

// Unknown idea values rank lowest; an unset or unknown maximum ranks highest
// and so admits everything.
func ideaCostRank(v string) int { return rankOr(costRank, v, 0) }
func maxCostRank(v string) int  { return rankOr(costRank, v, costRank[jar.CostHigh]) }

func ideaActivityRank(v string) int { return rankOr(activityRank, v, 0) }
func maxActivityRank(v string) int  { return rankOr(activityRank, v, activityRank[jar.ActivityHigh]) }

func rankOr(table map[string]int, v string, def int) int {
	if r, ok := table[v]; ok {
		return r
	}
	return def
}
