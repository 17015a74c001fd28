package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
)

// SuiteBExtraction holds the JMESPath expressions that pull the verdict out
// of the suite-B response. Suite B is an entropy-estimation service whose
// response layout varies between deployments, so the paths are configurable
// rather than hard-coded.
type SuiteBExtraction struct {
	Passed     string // boolean overall verdict
	MinEntropy string // numeric min-entropy estimate
	Estimators string // array of {name, passed, estimate, detail} objects
}

// DefaultSuiteBExtraction matches the upstream service's stock response shape.
func DefaultSuiteBExtraction() SuiteBExtraction {
	return SuiteBExtraction{
		Passed:     "passed",
		MinEntropy: "min_entropy_estimate",
		Estimators: "estimators",
	}
}

// Validate compiles every configured expression.
func (x SuiteBExtraction) Validate() error {
	for name, expr := range map[string]string{
		"passed":      x.Passed,
		"min_entropy": x.MinEntropy,
		"estimators":  x.Estimators,
	} {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("suite B extraction: %s expression is required", name)
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return fmt.Errorf("suite B extraction: compile %s: %w", name, err)
		}
	}
	return nil
}

// SuiteB runs chunks against the min-entropy estimation service.
type SuiteB struct {
	c       *client
	extract SuiteBExtraction
}

// NewSuiteB creates a suite-B executor client.
func NewSuiteB(opts ClientOptions, extract SuiteBExtraction) (*SuiteB, error) {
	if err := extract.Validate(); err != nil {
		return nil, err
	}
	c, err := newClient("executor_suite_b", opts)
	if err != nil {
		return nil, err
	}
	return &SuiteB{c: c, extract: extract}, nil
}

type suiteBRequest struct {
	Data string `json:"data"` // base64-encoded bitstream
}

// Run implements core.TestExecutor.
func (e *SuiteB) Run(ctx context.Context, chunk []byte) (*model.SuiteOutcome, error) {
	req := suiteBRequest{Data: base64.StdEncoding.EncodeToString(chunk)}

	var raw json.RawMessage
	if err := e.c.postJSON(ctx, "/v1/estimate", req, &raw); err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExecutorCall, "decode executor response")
	}

	return e.extractOutcome(doc)
}

func (e *SuiteB) extractOutcome(doc any) (*model.SuiteOutcome, error) {
	passedVal, err := jmespath.Search(e.extract.Passed, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExecutorCall, "extract passed flag")
	}
	passed, ok := passedVal.(bool)
	if !ok {
		return nil, apperrors.ExecutorCall(fmt.Sprintf("passed flag is %T, want bool", passedVal))
	}

	outcome := &model.SuiteOutcome{Passed: passed}

	minEntropyVal, err := jmespath.Search(e.extract.MinEntropy, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExecutorCall, "extract min entropy")
	}
	var overallEstimate *float64
	if f, ok := minEntropyVal.(float64); ok {
		overallEstimate = &f
	}

	estimatorsVal, err := jmespath.Search(e.extract.Estimators, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExecutorCall, "extract estimators")
	}

	if estimators, ok := estimatorsVal.([]any); ok {
		for i, item := range estimators {
			outcome.Outcomes = append(outcome.Outcomes, estimatorOutcome(item, i))
		}
	}

	// Responses without an estimator breakdown still yield one overall row so
	// the chunk is represented in chunk_results.
	if len(outcome.Outcomes) == 0 {
		outcome.Outcomes = append(outcome.Outcomes, model.TestOutcome{
			TestName:   "min_entropy",
			Passed:     passed,
			MinEntropy: overallEstimate,
		})
	}

	return outcome, nil
}

func estimatorOutcome(item any, index int) model.TestOutcome {
	out := model.TestOutcome{TestName: fmt.Sprintf("estimator_%d", index)}

	obj, ok := item.(map[string]any)
	if !ok {
		return out
	}
	if name, ok := obj["name"].(string); ok && name != "" {
		out.TestName = name
	}
	if passed, ok := obj["passed"].(bool); ok {
		out.Passed = passed
	}
	if estimate, ok := obj["estimate"].(float64); ok {
		e := estimate
		out.MinEntropy = &e
	}
	if detail, ok := obj["detail"].(string); ok {
		out.Detail = detail
	}
	return out
}
