package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"judgecore/internal/auth"
	"judgecore/internal/config"
	"judgecore/internal/deployment"
	"judgecore/internal/engine"
	"judgecore/internal/grader"
	"judgecore/internal/repository"
	"judgecore/internal/sandbox"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeDriver returns the same successful run (stdout "ok") for every exec;
// good enough for façade-level routing/validation tests that don't probe
// engine internals (engine_test.go covers those).
type fakeDriver struct {
	mu sync.Mutex
}

func (f *fakeDriver) Open(ctx context.Context, image, memLimit string, env map[string]string, networkEnabled bool, wallClock int) (*sandbox.Sandbox, error) {
	return &sandbox.Sandbox{ContainerID: "fake"}, nil
}
func (f *fakeDriver) Put(ctx context.Context, sb *sandbox.Sandbox, path string, data []byte) error {
	return nil
}
func (f *fakeDriver) Exec(ctx context.Context, sb *sandbox.Sandbox, argv []string, stdinPath string, wallClock int) (sandbox.ExecResult, error) {
	return sandbox.ExecResult{Stdout: "ok", ExitCode: 0}, nil
}
func (f *fakeDriver) Close(ctx context.Context, sb *sandbox.Sandbox) error { return nil }
func (f *fakeDriver) OOMKilled(ctx context.Context, sb *sandbox.Sandbox) bool { return false }

// fakeRepository is an in-memory Repository covering every method the
// façade's handlers call.
type fakeRepository struct {
	mu       sync.Mutex
	problems map[string]repository.Problem
	users    map[string]repository.User
	nextUser int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		problems: map[string]repository.Problem{},
		users:    map[string]repository.User{},
	}
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }

func (r *fakeRepository) FetchProblemBySlug(ctx context.Context, slug string) (*repository.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakeRepository) FetchProblemsPage(ctx context.Context, page, pageSize int, difficulty, search string) ([]repository.Problem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Problem
	for _, p := range r.problems {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *fakeRepository) StoreSubmission(ctx context.Context, s repository.Submission) (int64, error) {
	return 1, nil
}
func (r *fakeRepository) StoreSubmissionTestcase(ctx context.Context, t repository.SubmissionTestcase) error {
	return nil
}
func (r *fakeRepository) GetUserSubmissions(ctx context.Context, userID int64, page, pageSize int) ([]repository.Submission, int, error) {
	return nil, 0, nil
}
func (r *fakeRepository) GetSubmissionDetail(ctx context.Context, submissionID int64, userID *int64) (*repository.Submission, []repository.SubmissionTestcase, error) {
	return nil, nil, repository.ErrNotFound
}

func (r *fakeRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[username]; exists {
		return 0, repository.ErrDuplicateUser
	}
	r.nextUser++
	r.users[username] = repository.User{ID: r.nextUser, Username: username, Email: email, PasswordHash: passwordHash, IsActive: true}
	return r.nextUser, nil
}

func (r *fakeRepository) GetUserByUsername(ctx context.Context, username string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeRepository) TouchLastLogin(ctx context.Context, userID int64) error { return nil }

type testEnv struct {
	router *gin.Engine
	repo   *fakeRepository
	tokens *auth.TokenVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRateLimiter(redisClient)

	repo := newFakeRepository()
	eng := engine.New(&fakeDriver{})
	tokens := auth.NewTokenVerifier("test-secret", "")
	passwords := auth.NewPasswordHasher(4)
	validator := deployment.New(false, 60)

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{RegisterPerHour: 10, LoginPerHour: 20, RunPerHour: 50, SubmitPerHour: 30},
	}
	grading := config.GradingConfig{RunTimeout: 5 * time.Second, MemoryLimit: "256m", MaxFileBytes: 50_000, MaxTotalFileBytes: 200_000}

	g := grader.New(grader.Config{
		Engine:     eng,
		Validator:  validator,
		Repo:       repo,
		RunTimeout: 5,
		MemLimit:   "256m",
	})

	h := &Handlers{
		Repo:       repo,
		Grader:     g,
		Engine:     eng,
		Validator:  validator,
		Tokens:     tokens,
		Passwords:  passwords,
		Grading:    grading,
		CSRFSecret: "csrf-secret",
	}

	return &testEnv{router: NewRouter(h, rl, cfg), repo: repo, tokens: tokens}
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthOK(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestCSRFTokenIssued(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodGet, "/api/csrf-token", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var envelope struct {
		Data struct {
			CSRFToken string `json:"csrf_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CSRFToken == "" {
		t.Fatal("expected a non-empty csrf token")
	}
}

func TestRegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodPost, "/api/auth/register", registerRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("register: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, env.router, http.MethodPost, "/api/auth/login", loginRequest{
		Username: "alice", Password: "correct horse",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data loginResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Token == "" {
		t.Fatal("expected a non-empty token")
	}
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	env := newTestEnv(t)
	doRequest(t, env.router, http.MethodPost, "/api/auth/register", registerRequest{
		Username: "bob", Email: "bob@example.com", Password: "correct horse",
	}, "")

	rec := doRequest(t, env.router, http.MethodPost, "/api/auth/login", loginRequest{
		Username: "bob", Password: "wrong password",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestGetProblemNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodGet, "/api/problem/missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestGetProblemRedactsHiddenTestCases(t *testing.T) {
	env := newTestEnv(t)
	env.repo.problems["two-sum"] = repository.Problem{
		ID: 1, Slug: "two-sum", Title: "Two Sum",
		TestCases: []repository.TestCase{
			{ID: 1, InputText: "1 2", ExpectedOutput: "3", IsHidden: false, ExecutionOrder: 1},
			{ID: 2, InputText: "secret-in", ExpectedOutput: "secret-out", IsHidden: true, ExecutionOrder: 2},
		},
	}

	rec := doRequest(t, env.router, http.MethodGet, "/api/problem/two-sum", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data problemDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.TestCases) != 2 {
		t.Fatalf("expected 2 test cases, got %d", len(envelope.Data.TestCases))
	}
	hidden := envelope.Data.TestCases[1]
	if hidden.InputText != "" || hidden.ExpectedOutput != "" {
		t.Fatalf("expected hidden test case text to be empty, got %+v", hidden)
	}
}

func TestRunUnsupportedLanguageRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodPost, "/api/run", runRequest{
		Language: "ruby", Files: map[string]string{"main.rb": "puts 1"},
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestRunRawSuccess(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodPost, "/api/run", runRequest{
		Language: "python", Files: map[string]string{"app.py": "print(1)"},
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env.router, http.MethodPost, "/api/submit", submitRequest{
		Language: "python", Files: map[string]string{"app.py": "print(1)"}, ProblemSlug: "two-sum",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestSubmitTooManyFilesRejected(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.tokens.Issue(1, "alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	files := map[string]string{}
	for i := 0; i < 11; i++ {
		files[string(rune('a'+i))+".py"] = "print(1)"
	}
	rec := doRequest(t, env.router, http.MethodPost, "/api/submit", submitRequest{
		Language: "python", Files: files, ProblemSlug: "two-sum",
	}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}
