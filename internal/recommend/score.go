package recommend

import (
	"fmt"
	"sort"

	"github.com/AgentPulseDev/agentpulse-web/internal/models"
)

var impactScores = map[models.Impact]int{
	models.ImpactHigh:   50,
	models.ImpactMedium: 30,
	models.ImpactLow:    10,
}

var typeScores = map[models.RecommendationType]int{
	models.RecHealth:       20,
	models.RecCost:         15,
	models.RecEfficiency:   12,
	models.RecProductivity: 10,
}

// priorityScore ranks a recommendation by impact, category weight,
// evidence freshness and sample size.
func priorityScore(rec *models.OptimizationRecommendation) int {
	score := impactScores[rec.PotentialImpact] + typeScores[rec.Type]

	if days, ok := timespanDays(rec.BasedOnData.Timespan); ok && days <= 7 {
		score += 10
	}
	if rec.BasedOnData.SessionCount > 20 {
		score += 5
	}

	return score
}

func timespanDays(timespan string) (int, bool) {
	var days int
	if _, err := fmt.Sscanf(timespan, "%d days", &days); err != nil {
		return 0, false
	}
	return days, true
}

// rank orders candidates by score, best first. Equal scores keep their
// generator order.
func rank(recs []models.OptimizationRecommendation) []models.OptimizationRecommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		return priorityScore(&recs[i]) > priorityScore(&recs[j])
	})
	return recs
}
