package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReviewFlag names one of the four review checklist items.
type ReviewFlag string

// Review flags
const (
	ReviewAIAnalysis   ReviewFlag = "ai_analysis_reviewed"
	ReviewCVAnalysis   ReviewFlag = "cv_analysis_reviewed"
	ReviewDISCAnalysis ReviewFlag = "disc_analysis_reviewed"
	ReviewBusinessCase ReviewFlag = "business_case_reviewed"
)

// ReviewFlags lists the checklist items in display order.
var ReviewFlags = []ReviewFlag{ReviewAIAnalysis, ReviewCVAnalysis, ReviewDISCAnalysis, ReviewBusinessCase}

// ReviewProgress is the recruiter checklist for one application.
type ReviewProgress struct {
	ApplicationID        uuid.UUID  `json:"application_id"`
	AIAnalysisReviewed   bool       `json:"ai_analysis_reviewed"`
	CVAnalysisReviewed   bool       `json:"cv_analysis_reviewed"`
	DISCAnalysisReviewed bool       `json:"disc_analysis_reviewed"`
	BusinessCaseReviewed bool       `json:"business_case_reviewed"`
	UpdatedBy            *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Flag returns the value of a single checklist item.
func (p *ReviewProgress) Flag(flag ReviewFlag) bool {
	switch flag {
	case ReviewAIAnalysis:
		return p.AIAnalysisReviewed
	case ReviewCVAnalysis:
		return p.CVAnalysisReviewed
	case ReviewDISCAnalysis:
		return p.DISCAnalysisReviewed
	case ReviewBusinessCase:
		return p.BusinessCaseReviewed
	}
	return false
}

// SetFlag sets a single checklist item.
func (p *ReviewProgress) SetFlag(flag ReviewFlag, value bool) error {
	switch flag {
	case ReviewAIAnalysis:
		p.AIAnalysisReviewed = value
	case ReviewCVAnalysis:
		p.CVAnalysisReviewed = value
	case ReviewDISCAnalysis:
		p.DISCAnalysisReviewed = value
	case ReviewBusinessCase:
		p.BusinessCaseReviewed = value
	default:
		return fmt.Errorf("unknown review flag: %q", flag)
	}
	return nil
}

// Valid reports whether f is a known review flag.
func (f ReviewFlag) Valid() bool {
	for _, known := range ReviewFlags {
		if f == known {
			return true
		}
	}
	return false
}
