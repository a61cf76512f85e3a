package rubric

import "fmt"

// Kinds of grading failures.
const (
	KindUnavailable = "ollama_not_running_or_model_missing"
	KindHTTP        = "ollama_http_error"
	KindMalformed   = "malformed_response"
)

// GradingError is returned in place of a rubric when grading fails. It
// serialises as {"error": kind, "detail": ...}.
type GradingError struct {
	Kind   string `json:"error"`
	Detail string `json:"detail"`
}

func (e *GradingError) Error() string {
	if e.Detail == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}
