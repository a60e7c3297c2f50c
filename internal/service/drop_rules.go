package service

import (
	"sort"

	"github.com/noah-isme/canvas-gradebook/internal/models"
)

// ApplyDropRules returns a copy of items with Dropped set according to rules.
// Incoming flags are cleared first, so the result depends only on scores and
// rules. Items keep their input order.
//
// Droppable items are ranked by score ratio (stable, so ties keep input order).
// The DropLowest lowest are removed first; DropHighest is then taken from the
// top of what remains. Never-drop items are never considered.
func ApplyDropRules(rules models.DropRules, items []models.GradedItem) []models.GradedItem {
	result := make([]models.GradedItem, len(items))
	copy(result, items)
	for i := range result {
		result[i].Dropped = false
	}

	droppable := make([]models.GradedItem, 0, len(result))
	for _, item := range result {
		if !item.NeverDrop {
			droppable = append(droppable, item)
		}
	}
	if len(droppable) == 0 || !rules.HasDropRule() {
		return result
	}

	sort.SliceStable(droppable, func(i, j int) bool {
		return droppable[i].Ratio() < droppable[j].Ratio()
	})

	marked := make(map[int64]int)
	if n := count(rules.DropLowest); n > 0 {
		if n > len(droppable) {
			n = len(droppable)
		}
		for _, item := range droppable[:n] {
			marked[item.ID]++
		}
		droppable = droppable[n:]
	}
	if m := count(rules.DropHighest); m > 0 {
		if m > len(droppable) {
			m = len(droppable)
		}
		for _, item := range droppable[len(droppable)-m:] {
			marked[item.ID]++
		}
	}

	// One mark drops one occurrence, so an assignment listed twice is only
	// dropped as many times as it was selected.
	for i := range result {
		if marked[result[i].ID] > 0 && !result[i].NeverDrop {
			result[i].Dropped = true
			marked[result[i].ID]--
		}
	}

	return result
}

func count(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}
