package router

import (
	"time"

	"github.com/zen-systems/hedgegate/pkg/adapter"
	"github.com/zen-systems/hedgegate/pkg/hedge"
)

// RouteResult is the normalized outcome of one routed request: either a
// single success or an aggregated failure, never a partial result.
type RouteResult struct {
	OK        bool             `json:"ok"`
	RequestID string           `json:"request_id"`
	Role      string           `json:"role"`
	Backend   string           `json:"backend_id,omitempty"`
	Model     string           `json:"model,omitempty"`
	Output    string           `json:"output,omitempty"`
	Citations []string         `json:"citations,omitempty"`
	Usage     adapter.Usage    `json:"usage,omitempty"`
	Elapsed   time.Duration    `json:"elapsed"`
	Errors    []CandidateError `json:"errors,omitempty"`
}

// CandidateError reports one candidate's disposition within a failed
// request.
type CandidateError struct {
	BackendID string `json:"backend_id"`
	Model     string `json:"model"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

func candidateErrors(dispositions []hedge.Disposition) []CandidateError {
	out := make([]CandidateError, 0, len(dispositions))
	for _, d := range dispositions {
		out = append(out, CandidateError{
			BackendID: d.BackendID,
			Model:     d.Model,
			Kind:      d.Kind,
			Message:   d.Message(),
		})
	}
	return out
}
