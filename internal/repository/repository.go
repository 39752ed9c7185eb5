// Package repository is the Repository (C6): a narrow data-access contract
// over problems, test cases, and submissions.
//
// Grounded on the teacher's internal/submit/repository/submission.go and
// internal/problem/repository/problem.go (interface-per-aggregate,
// *sql.DB-backed implementation struct), generalized away from the
// teacher's cache-fronted, JSON-manifest-driven shape to this spec's
// flatter relational one.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by id/slug finds nothing.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when a registration's username is already
// taken.
var ErrDuplicateUser = errors.New("username already exists")

// User is an account record. Profile management beyond register/login is
// out of scope; this is the minimal shape those two operations need.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	LastLogin    time.Time
}

// Example is one worked input/output pair shown on a problem page.
type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// TestCase is one graded input/expected-output pair.
type TestCase struct {
	ID             int64
	ProblemID      int64
	InputText      string
	ExpectedOutput string
	IsHidden       bool
	ExecutionOrder int
}

// Problem is a public problem plus its ordered test cases.
type Problem struct {
	ID            int64
	Slug          string
	Title         string
	Difficulty    string
	Statement     string
	Examples      []Example
	Constraints   []string
	TimeLimitSec  int
	MemoryLimitMB int
	TestCases     []TestCase
}

// Submission is a persisted grading outcome for one user/problem attempt.
type Submission struct {
	ID         int64
	UserID     int64
	ProblemID  int64
	Language   string
	CodeBlob   string
	Verdict    string
	Passed     int
	Total      int
	ExecTimeMs int64
	MemKB      int64
	Error      string
	CreatedAt  time.Time
}

// SubmissionTestcase is one persisted per-test outcome row.
type SubmissionTestcase struct {
	ID           int64
	SubmissionID int64
	TestCaseID   int64
	Status       string
	ExecTimeMs   int64
	MemKB        int64
	Output       string
	Error        string
}

// Repository is the full narrow contract the Grader and Façade depend on.
type Repository interface {
	Ping(ctx context.Context) error
	FetchProblemBySlug(ctx context.Context, slug string) (*Problem, error)
	FetchProblemsPage(ctx context.Context, page, pageSize int, difficulty, search string) ([]Problem, int, error)
	StoreSubmission(ctx context.Context, s Submission) (int64, error)
	StoreSubmissionTestcase(ctx context.Context, t SubmissionTestcase) error
	GetUserSubmissions(ctx context.Context, userID int64, page, pageSize int) ([]Submission, int, error)
	GetSubmissionDetail(ctx context.Context, submissionID int64, userID *int64) (*Submission, []SubmissionTestcase, error)
	CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	TouchLastLogin(ctx context.Context, userID int64) error
}

// ClampPageSize bounds a requested page size to [1, max], matching the
// teacher's pagination guards in internal/problem/repository.
func ClampPageSize(pageSize, max int) int {
	if pageSize < 1 {
		return 1
	}
	if pageSize > max {
		return max
	}
	return pageSize
}
