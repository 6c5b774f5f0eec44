// internal/result/models.go
package result

// Success is shown when an execution has started.
type Success struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	DetailURL string `json:"detailUrl"`
}

// Failure is shown when an execution could not be started.
type Failure struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Outcome is the presentation of one dispatch. Exactly one of Success and
// Failure is set.
type Outcome struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Success != nil
}
