package executor

import (
	"context"
	"encoding/base64"

	"github.com/entropix/entropy-certify/internal/domain/model"
)

// SuiteA runs chunks against the frequency/runs statistical test battery.
// The suite exposes a single JSON endpoint that evaluates one bitstream and
// returns a verdict per sub-test.
type SuiteA struct {
	c *client
}

// NewSuiteA creates a suite-A executor client.
func NewSuiteA(opts ClientOptions) (*SuiteA, error) {
	c, err := newClient("executor_suite_a", opts)
	if err != nil {
		return nil, err
	}
	return &SuiteA{c: c}, nil
}

type suiteARequest struct {
	Data string `json:"data"` // base64-encoded bitstream
}

type suiteAResponse struct {
	Passed bool `json:"passed"`
	Tests  []struct {
		Name   string   `json:"name"`
		Passed bool     `json:"passed"`
		PValue *float64 `json:"p_value"`
		Detail string   `json:"detail,omitempty"`
	} `json:"tests"`
}

// Run implements core.TestExecutor.
func (e *SuiteA) Run(ctx context.Context, chunk []byte) (*model.SuiteOutcome, error) {
	req := suiteARequest{Data: base64.StdEncoding.EncodeToString(chunk)}

	var resp suiteAResponse
	if err := e.c.postJSON(ctx, "/v1/tests/run", req, &resp); err != nil {
		return nil, err
	}

	outcome := &model.SuiteOutcome{
		Passed:   resp.Passed,
		Outcomes: make([]model.TestOutcome, 0, len(resp.Tests)),
	}
	for _, tr := range resp.Tests {
		outcome.Outcomes = append(outcome.Outcomes, model.TestOutcome{
			TestName: tr.Name,
			Passed:   tr.Passed,
			PValue:   tr.PValue,
			Detail:   tr.Detail,
		})
	}
	return outcome, nil
}
