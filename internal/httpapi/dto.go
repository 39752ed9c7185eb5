package httpapi

import (
	"judgecore/internal/grader"
	"judgecore/internal/repository"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type runRequest struct {
	Language    string            `json:"language" binding:"required"`
	Files       map[string]string `json:"files" binding:"required"`
	Stdin       string            `json:"stdin"`
	ProblemSlug string            `json:"problem_slug"`
}

type submitRequest struct {
	Language    string            `json:"language" binding:"required"`
	Files       map[string]string `json:"files" binding:"required"`
	ProblemSlug string            `json:"problem_slug" binding:"required"`
}

type testOutcomeDTO struct {
	ID            int64  `json:"id"`
	Input         string `json:"input"`
	Expected      string `json:"expected"`
	Output        string `json:"output"`
	Status        string `json:"status"`
	Error         string `json:"error"`
	IsHidden      bool   `json:"is_hidden"`
	ExecutionTime int64  `json:"execution_time"`
}

func testOutcomesDTO(tests []grader.TestOutcome) []testOutcomeDTO {
	out := make([]testOutcomeDTO, len(tests))
	for i, t := range tests {
		out[i] = testOutcomeDTO{
			ID:            t.TestCaseID,
			Input:         t.Input,
			Expected:      t.Expected,
			Output:        t.Output,
			Status:        t.Status,
			Error:         t.Error,
			IsHidden:      t.IsHidden,
			ExecutionTime: t.ExecTimeMs,
		}
	}
	return out
}

type runResponse struct {
	Compiled      bool             `json:"compiled"`
	Output        string           `json:"output,omitempty"`
	Tests         []testOutcomeDTO `json:"tests,omitempty"`
	Error         string           `json:"error,omitempty"`
	Verdict       string           `json:"verdict"`
	ExecutionTime int64            `json:"execution_time"`
}

type submitResponse struct {
	Compiled      bool             `json:"compiled"`
	Tests         []testOutcomeDTO `json:"tests"`
	Passed        int              `json:"passed"`
	Total         int              `json:"total"`
	Verdict       string           `json:"verdict"`
	Error         string           `json:"error,omitempty"`
	SubmissionID  int64            `json:"submission_id"`
	ExecutionTime int64            `json:"execution_time"`
}

func submitResponseFromGraded(g grader.GradedResult) submitResponse {
	return submitResponse{
		Compiled:      g.Compiled,
		Tests:         testOutcomesDTO(g.Tests),
		Passed:        g.Passed,
		Total:         g.Total,
		Verdict:       g.Verdict,
		Error:         firstNonEmpty(g.Error, g.CompileError),
		SubmissionID:  g.SubmissionID,
		ExecutionTime: g.ExecTimeMs,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type exampleDTO struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type testCaseDTO struct {
	ID             int64  `json:"id"`
	ExecutionOrder int    `json:"execution_order"`
	IsHidden       bool   `json:"is_hidden"`
	InputText      string `json:"input_text,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type problemDTO struct {
	ID            int64         `json:"id"`
	Slug          string        `json:"slug"`
	Title         string        `json:"title"`
	Difficulty    string        `json:"difficulty"`
	Statement     string        `json:"statement"`
	Examples      []exampleDTO  `json:"examples"`
	Constraints   []string      `json:"constraints"`
	TimeLimitSec  int           `json:"time_limit_sec"`
	MemoryLimitMB int           `json:"memory_limit_mb"`
	TestCases     []testCaseDTO `json:"test_cases"`
}

// problemDetailDTO redacts every hidden test case's input/expected text,
// leaving only its id and execution order visible, per §6.
func problemDetailDTO(p *repository.Problem) problemDTO {
	examples := make([]exampleDTO, len(p.Examples))
	for i, e := range p.Examples {
		examples[i] = exampleDTO{Input: e.Input, Output: e.Output}
	}

	testCases := make([]testCaseDTO, len(p.TestCases))
	for i, tc := range p.TestCases {
		dto := testCaseDTO{ID: tc.ID, ExecutionOrder: tc.ExecutionOrder, IsHidden: tc.IsHidden}
		if !tc.IsHidden {
			dto.InputText = tc.InputText
			dto.ExpectedOutput = tc.ExpectedOutput
		}
		testCases[i] = dto
	}

	return problemDTO{
		ID:            p.ID,
		Slug:          p.Slug,
		Title:         p.Title,
		Difficulty:    p.Difficulty,
		Statement:     p.Statement,
		Examples:      examples,
		Constraints:   p.Constraints,
		TimeLimitSec:  p.TimeLimitSec,
		MemoryLimitMB: p.MemoryLimitMB,
		TestCases:     testCases,
	}
}

type problemListItemDTO struct {
	ID         int64  `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

type problemsPageResponse struct {
	Items    []problemListItemDTO `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type submissionListItemDTO struct {
	ID         int64  `json:"id"`
	ProblemID  int64  `json:"problem_id"`
	Language   string `json:"language"`
	Verdict    string `json:"verdict"`
	Passed     int    `json:"passed"`
	Total      int    `json:"total"`
	ExecTimeMs int64  `json:"execution_time"`
	CreatedAt  string `json:"created_at"`
}

type submissionsPageResponse struct {
	Items    []submissionListItemDTO `json:"items"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}
