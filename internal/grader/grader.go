// Package grader implements the Submission Grader (C5): the three-phase
// compile-once / run-N-tests / deployment-gate pipeline that turns a
// submission's source files into a persisted, classified result.
//
// Grounded on internal/judge/service/judge_service.go and
// internal/submit/service/submit_service.go for orchestration shape
// (typed Config of injected dependencies, appErr-wrapped boundary errors),
// trimmed of the teacher's async idempotency-cache/Kafka-dispatch
// machinery since grading here is synchronous end-to-end.
package grader

import (
	"context"
	"strings"
	"time"

	"judgecore/internal/deployment"
	"judgecore/internal/engine"
	"judgecore/internal/repository"
	"judgecore/pkg/apperr"
)

const hiddenPlaceholder = "[Hidden]"

// Verdict codes, matching spec's taxonomy exactly.
const (
	VerdictAC  = "AC"
	VerdictWA  = "WA"
	VerdictCE  = "CE"
	VerdictRE  = "RE"
	VerdictTLE = "TLE"
	VerdictMLE = "MLE"
	VerdictDEP = "DEP"
	VerdictIE  = "IE"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusRE   = "RE"
)

// TestOutcome is one test case's graded result, redacted for hidden cases
// before being returned to the caller.
type TestOutcome struct {
	TestCaseID int64
	IsHidden   bool
	Input      string
	Expected   string
	Output     string
	Status     string
	Error      string
	ExecTimeMs int64
	MemKB      int64
}

// GradedResult is the Grader's full response payload.
type GradedResult struct {
	SubmissionID int64
	Compiled     bool
	CompileError string
	Tests        []TestOutcome
	Passed       int
	Total        int
	Verdict      string
	Error        string
	ExecTimeMs   int64
}

// Config holds the Grader's injected dependencies and settings, in the
// teacher's typed-Config-struct style.
type Config struct {
	Engine     *engine.Engine
	Validator  *deployment.Validator
	Repo       repository.Repository
	RunTimeout int
	MemLimit   string
}

// Grader orchestrates one submission's grading pipeline.
type Grader struct {
	engine     *engine.Engine
	validator  *deployment.Validator
	repo       repository.Repository
	runTimeout int
	memLimit   string
}

// New builds a Grader from cfg.
func New(cfg Config) *Grader {
	return &Grader{
		engine:     cfg.Engine,
		validator:  cfg.Validator,
		repo:       cfg.Repo,
		runTimeout: cfg.RunTimeout,
		memLimit:   cfg.MemLimit,
	}
}

// Grade runs the full pipeline for one submission and persists the result.
func (g *Grader) Grade(ctx context.Context, userID int64, problem repository.Problem, files []engine.SourceFile, language string, codeBlob string) (GradedResult, error) {
	compileRes := g.engine.Run(ctx, files, language, "", g.runTimeout, g.memLimit)
	if strings.HasPrefix(compileRes.Error, engine.InternalErrorPrefix) {
		result := GradedResult{
			Compiled:     false,
			CompileError: compileRes.Error,
			Tests:        []TestOutcome{},
			Total:        len(problem.TestCases),
			Verdict:      VerdictIE,
		}
		id, err := g.persist(ctx, userID, problem.ID, language, codeBlob, result, nil)
		if err != nil {
			return GradedResult{}, err
		}
		result.SubmissionID = id
		return result, nil
	}
	if !compileRes.Compiled {
		result := GradedResult{
			Compiled:     false,
			CompileError: compileRes.Error,
			Tests:        []TestOutcome{},
			Passed:       0,
			Total:        len(problem.TestCases),
			Verdict:      VerdictCE,
		}
		id, err := g.persist(ctx, userID, problem.ID, language, codeBlob, result, nil)
		if err != nil {
			return GradedResult{}, err
		}
		result.SubmissionID = id
		return result, nil
	}

	if len(problem.TestCases) == 0 {
		result := GradedResult{Compiled: true, Tests: []TestOutcome{}, Passed: 0, Total: 0, Verdict: VerdictAC}
		id, err := g.persist(ctx, userID, problem.ID, language, codeBlob, result, nil)
		if err != nil {
			return GradedResult{}, err
		}
		result.SubmissionID = id
		return result, nil
	}

	var (
		tests             []TestOutcome
		passed            int
		provisionalVerdict string
		topError          string
	)

	for _, tc := range problem.TestCases {
		started := time.Now()
		runRes := g.engine.Run(ctx, files, language, tc.InputText, g.runTimeout, g.memLimit)

		outcome := TestOutcome{
			TestCaseID: tc.ID,
			IsHidden:   tc.IsHidden,
			Input:      tc.InputText,
			Expected:   tc.ExpectedOutput,
			ExecTimeMs: time.Since(started).Milliseconds(),
		}

		if !runRes.Success {
			outcome.Status = statusRE
			outcome.Error = runRes.Error
			if topError == "" {
				topError = runRes.Error
			}
		} else {
			normalizedOut := normalize(runRes.Output)
			normalizedExpected := normalize(tc.ExpectedOutput)
			outcome.Output = runRes.Output
			if normalizedOut == normalizedExpected {
				outcome.Status = statusPass
				passed++
			} else {
				outcome.Status = statusFail
			}
		}

		if outcome.Status != statusPass && provisionalVerdict == "" {
			provisionalVerdict = verdictFor(outcome)
		}

		tests = append(tests, outcome)
	}

	verdict := provisionalVerdict
	if verdict == "" {
		if passed == len(problem.TestCases) {
			verdict = VerdictAC
		} else {
			verdict = VerdictWA
		}
	}

	topErrorFinal := topError
	if verdict == VerdictAC && g.validator != nil {
		if ok, message := g.validator.Validate(language); !ok {
			verdict = VerdictDEP
			topErrorFinal = message
		}
	}

	var totalExecTimeMs int64
	for _, t := range tests {
		totalExecTimeMs += t.ExecTimeMs
	}

	result := GradedResult{
		Compiled:   true,
		Tests:      tests,
		Passed:     passed,
		Total:      len(problem.TestCases),
		Verdict:    verdict,
		Error:      topErrorFinal,
		ExecTimeMs: totalExecTimeMs,
	}

	id, err := g.persist(ctx, userID, problem.ID, language, codeBlob, result, tests)
	if err != nil {
		return GradedResult{}, err
	}
	result.SubmissionID = id
	result.Tests = redact(tests)
	return result, nil
}

func verdictFor(outcome TestOutcome) string {
	switch {
	case strings.HasPrefix(outcome.Error, engine.InternalErrorPrefix):
		return VerdictIE
	case strings.Contains(outcome.Error, "Time Limit Exceeded"):
		return VerdictTLE
	case strings.Contains(outcome.Error, "Memory Limit Exceeded"):
		return VerdictMLE
	case outcome.Status == statusRE:
		return VerdictRE
	case outcome.Status == statusFail:
		return VerdictWA
	default:
		return ""
	}
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// persist writes the submission row then one test row per outcome, sharing
// the new submission_id. Repository errors here are fatal: if the
// submission row insert fails, no testcase row is attempted. The writes are
// not wrapped in a transaction, so if a testcase row insert fails, the
// submission row and any testcase rows stored before it stay in place and
// the call returns the error.
func (g *Grader) persist(ctx context.Context, userID, problemID int64, language, codeBlob string, result GradedResult, tests []TestOutcome) (int64, error) {
	var execTimeMs, memKB int64
	for _, t := range tests {
		execTimeMs += t.ExecTimeMs
		if t.MemKB > memKB {
			memKB = t.MemKB
		}
	}

	errMsg := result.Error
	if result.Verdict == VerdictCE {
		errMsg = result.CompileError
	}

	id, err := g.repo.StoreSubmission(ctx, repository.Submission{
		UserID:     userID,
		ProblemID:  problemID,
		Language:   language,
		CodeBlob:   codeBlob,
		Verdict:    result.Verdict,
		Passed:     result.Passed,
		Total:      result.Total,
		ExecTimeMs: execTimeMs,
		MemKB:      memKB,
		Error:      errMsg,
	})
	if err != nil {
		return 0, apperr.Wrapf(err, apperr.DatabaseError, "store submission failed")
	}

	for _, t := range tests {
		if err := g.repo.StoreSubmissionTestcase(ctx, repository.SubmissionTestcase{
			SubmissionID: id,
			TestCaseID:   t.TestCaseID,
			Status:       t.Status,
			ExecTimeMs:   t.ExecTimeMs,
			MemKB:        t.MemKB,
			Output:       t.Output,
			Error:        t.Error,
		}); err != nil {
			return 0, apperr.Wrapf(err, apperr.DatabaseError, "store submission testcase failed")
		}
	}
	return id, nil
}

// redact replaces hidden test cases' input/expected/output with the
// placeholder string before the payload reaches the caller. The persisted
// rows (already written by persist) keep the real values.
func redact(tests []TestOutcome) []TestOutcome {
	out := make([]TestOutcome, len(tests))
	for i, t := range tests {
		if t.IsHidden {
			t.Input = hiddenPlaceholder
			t.Expected = hiddenPlaceholder
			t.Output = hiddenPlaceholder
		}
		out[i] = t
	}
	return out
}
