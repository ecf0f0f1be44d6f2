package moderation

import (
	"coursesearch/internal/models"
)

// edges lists every legal moderation transition. Removed has none.
var edges = map[models.ReviewState][]models.ReviewState{
	models.ReviewVisible: {models.ReviewFlagged},
	models.ReviewFlagged: {models.ReviewRemoved, models.ReviewVisible},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.ReviewState) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DeriveState computes a review's state from the number of flags in its
// current cycle and its latest resolution (nil when never resolved).
// An upheld review is removed for good; a dismissal closes its cycle, so
// only flags filed afterwards are counted in active.
func DeriveState(active int64, threshold int, latest *models.Resolution) models.ReviewState {
	if latest != nil && latest.Outcome == models.OutcomeUphold {
		return models.ReviewRemoved
	}
	if threshold > 0 && active >= int64(threshold) {
		return models.ReviewFlagged
	}
	return models.ReviewVisible
}
