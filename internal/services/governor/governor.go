package governor

import "github.com/sh4869221b/niconeon/internal/models"

/*
LEARNING: COALESCE, THEN BUDGET

A batch of due comments goes through two steps, always in this order:

  emitted ──► coalesce (drop exact duplicates) ──► budget (keep first N)

Coalescing first means the budget is never spent on comments that would have
been removed as duplicates anyway. Truncation keeps the earliest-scanned
comments, which are the earliest at_ms because the window scan is sorted.
*/

// Settings are the governor tunables taken from the active runtime profile
type Settings struct {
	MaxEmitPerTick      int  // 0 means unbounded
	CoalesceSameContent bool
}

// Result is what survives the governor plus the accounting
type Result struct {
	Comments          []models.CommentEvent
	CoalescedComments int
	DroppedComments   int
	OverBudget        bool
}

type dedupKey struct {
	atMs   int64
	userID string
	text   string
}

// Apply runs coalescing (when enabled) and then the emit budget
func Apply(comments []models.CommentEvent, settings Settings) Result {
	var res Result

	survivors := comments
	if settings.CoalesceSameContent {
		survivors, res.CoalescedComments = coalesce(comments)
	}

	if settings.MaxEmitPerTick > 0 && len(survivors) > settings.MaxEmitPerTick {
		res.DroppedComments = len(survivors) - settings.MaxEmitPerTick
		res.OverBudget = true
		survivors = survivors[:settings.MaxEmitPerTick]
	}

	res.Comments = survivors
	if res.Comments == nil {
		res.Comments = []models.CommentEvent{}
	}
	return res
}

func coalesce(comments []models.CommentEvent) ([]models.CommentEvent, int) {
	seen := make(map[dedupKey]struct{}, len(comments))
	out := make([]models.CommentEvent, 0, len(comments))
	for _, c := range comments {
		k := dedupKey{atMs: c.AtMs, userID: c.UserID, text: c.Text}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out, len(comments) - len(out)
}
