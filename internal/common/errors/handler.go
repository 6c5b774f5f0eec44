package errors

// ErrorHandler is the boundary where failures of a dialog operation are
// normalized and logged before they turn into a user-visible notice.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err for operation, logs it and returns the normalized
// error. Retryable errors log at warn level since the dialog stays usable.
func (h *ErrorHandler) Handle(operation string, err error, fields map[string]interface{}) *StandardError {
	if err == nil {
		return nil
	}

	stdErr := Normalize(operation, err)
	h.log(operation, stdErr, fields)
	return stdErr
}

func (h *ErrorHandler) log(operation string, stdErr *StandardError, extra map[string]interface{}) {
	fields := map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if stdErr.Reason != "" {
		fields["reason"] = stdErr.Reason
	}
	for k, v := range extra {
		fields[k] = v
	}

	if stdErr.Retryable {
		h.logger.Warn("operation failed", fields)
		return
	}
	h.logger.Error("operation failed", fields)
}
