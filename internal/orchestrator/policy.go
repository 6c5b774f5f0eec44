// internal/orchestrator/policy.go
package orchestrator

import (
	"fmt"

	"workflow-submit/internal/catalog"
)

// PromptReason says why a submission needs confirmation.
type PromptReason string

const (
	ReasonNoAnnotations PromptReason = "no_annotations"
	ReasonSmallDataset  PromptReason = "small_dataset"
)

// Prompt is a pending confirmation. It has exactly two answers, confirm and
// cancel, and never expires.
type Prompt struct {
	Reason  PromptReason `json:"reason"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
}

// Policy decides from the pre-flight counts whether to ask before
// dispatching.
type Policy struct {
	SmallDatasetThreshold int
}

// Decide returns the prompt to show, or nil to dispatch straight away.
// Tracks are taken as enough data regardless of the shape count.
func (p Policy) Decide(count catalog.PreflightCount) *Prompt {
	switch {
	case count.TrackedObjectCount > 0:
		return nil
	case count.AnnotatedShapeCount == 0:
		return &Prompt{
			Reason:  ReasonNoAnnotations,
			Title:   "This task has no annotations",
			Message: "Deep learning models work better with large datasets. Are you sure you want to continue?",
		}
	case count.AnnotatedShapeCount < p.SmallDatasetThreshold:
		return &Prompt{
			Reason: ReasonSmallDataset,
			Title:  "Are you sure?",
			Message: fmt.Sprintf("Number of annotations is less than %d. "+
				"Deep learning models work better with large datasets. Are you sure you want to continue?",
				p.SmallDatasetThreshold),
		}
	default:
		return nil
	}
}
