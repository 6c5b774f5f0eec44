// internal/result/handler.go
package result

import (
	"fmt"
	"strings"

	apperrors "workflow-submit/internal/common/errors"
)

const (
	SuccessTitle   = "Training Workflow is running"
	FailureTitle   = "Error"
	GenericFailure = "There was an error executing the training Workflow"
)

// Interpret maps a dispatch outcome to what the user is shown. err takes
// precedence over url. It keeps no state.
func Interpret(templateUID, url string, err error) Outcome {
	if err != nil {
		return Outcome{Failure: &Failure{
			Title:   FailureTitle,
			Message: Message(err),
		}}
	}
	return Outcome{Success: &Success{
		Title:     SuccessTitle,
		Body:      fmt.Sprintf("Training Workflow %s is running.", templateUID),
		DetailURL: url,
	}}
}

// Message prefers the server-supplied reason and falls back to a generic
// text.
func Message(err error) string {
	if stdErr, ok := apperrors.AsStandard(err); ok {
		if reason := strings.TrimSpace(stdErr.Reason); reason != "" {
			return reason
		}
	}
	return GenericFailure
}
