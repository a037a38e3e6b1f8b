package pipeline

import "github.com/jonathan/hiring-pipeline/internal/types"

// ReviewItemCount is the number of checklist items a review has.
const ReviewItemCount = 4

// CompletionCount returns how many of the four review flags are set. A nil
// progress counts as nothing reviewed.
func CompletionCount(progress *types.ReviewProgress) (completed, total int) {
	if progress == nil {
		return 0, ReviewItemCount
	}
	for _, flag := range []bool{
		progress.AIAnalysisReviewed,
		progress.CVAnalysisReviewed,
		progress.DISCAnalysisReviewed,
		progress.BusinessCaseReviewed,
	} {
		if flag {
			completed++
		}
	}
	return completed, ReviewItemCount
}

// IsComplete reports whether every review flag is set.
func IsComplete(progress *types.ReviewProgress) bool {
	completed, total := CompletionCount(progress)
	return progress != nil && completed == total
}
