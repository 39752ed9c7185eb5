package httpapi

import (
	"strconv"
	"strings"
	"time"

	"judgecore/internal/auth"
	"judgecore/internal/config"
	"judgecore/internal/deployment"
	"judgecore/internal/engine"
	"judgecore/internal/grader"
	"judgecore/internal/repository"
	"judgecore/pkg/apperr"
	"judgecore/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the Request Façade's dependencies, in the teacher's
// controller-struct-over-injected-services style.
type Handlers struct {
	Repo       repository.Repository
	Grader     *grader.Grader
	Engine     *engine.Engine
	Validator  *deployment.Validator
	Tokens     *auth.TokenVerifier
	Passwords  *auth.PasswordHasher
	Grading    config.GradingConfig
	CSRFSecret string
}

func (h *Handlers) health(c *gin.Context) {
	if err := h.Repo.Ping(c.Request.Context()); err != nil {
		response.Error(c, apperr.Wrap(err, apperr.ServiceUnavailable))
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

func (h *Handlers) csrfToken(c *gin.Context) {
	response.Success(c, gin.H{"csrf_token": issueCSRFToken(h.CSRFSecret)})
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid register request: "+err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		response.Error(c, apperr.ValidationError("password", "username, email and an 8+ character password are required"))
		return
	}

	hashed, err := h.Passwords.Hash(req.Password)
	if err != nil {
		response.Error(c, apperr.Wrap(err, apperr.InternalServerError))
		return
	}

	userID, err := h.Repo.CreateUser(c.Request.Context(), req.Username, req.Email, hashed)
	if err != nil {
		if err == repository.ErrDuplicateUser {
			response.Error(c, apperr.New(apperr.InvalidParams).WithMessage("username already taken"))
			return
		}
		response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
		return
	}
	response.Success(c, gin.H{"user_id": userID, "username": req.Username})
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid login request: "+err.Error())
		return
	}

	user, err := h.Repo.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if err == repository.ErrNotFound {
			response.Error(c, apperr.New(apperr.Unauthorized).WithMessage("invalid username or password"))
			return
		}
		response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
		return
	}
	if !user.IsActive || !h.Passwords.Verify(user.PasswordHash, req.Password) {
		response.Error(c, apperr.New(apperr.Unauthorized).WithMessage("invalid username or password"))
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	_ = h.Repo.TouchLastLogin(c.Request.Context(), user.ID)

	response.Success(c, loginResponse{Token: token, UserID: user.ID, Username: user.Username})
}

func (h *Handlers) listProblems(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	difficulty := c.Query("difficulty")
	search := c.Query("search")

	problems, total, err := h.Repo.FetchProblemsPage(c.Request.Context(), page, pageSize, difficulty, search)
	if err != nil {
		response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
		return
	}

	items := make([]problemListItemDTO, len(problems))
	for i, p := range problems {
		items[i] = problemListItemDTO{ID: p.ID, Slug: p.Slug, Title: p.Title, Difficulty: p.Difficulty}
	}
	response.Success(c, problemsPageResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handlers) getProblem(c *gin.Context) {
	slug := c.Param("slug")
	problem, err := h.Repo.FetchProblemBySlug(c.Request.Context(), slug)
	if err != nil {
		if err == repository.ErrNotFound {
			response.Error(c, apperr.New(apperr.ProblemNotFound))
			return
		}
		response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
		return
	}
	response.Success(c, problemDetailDTO(problem))
}

func (h *Handlers) run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid run request: "+err.Error())
		return
	}
	if !validLanguage(req.Language) {
		response.Error(c, apperr.New(apperr.LanguageNotSupported))
		return
	}
	files, err := buildSourceFiles(req.Files, h.Grading)
	if err != nil {
		response.Error(c, err)
		return
	}
	runTimeoutSec := int(h.Grading.RunTimeout.Seconds())

	if req.ProblemSlug != "" {
		problem, err := h.Repo.FetchProblemBySlug(c.Request.Context(), req.ProblemSlug)
		if err != nil {
			if err == repository.ErrNotFound {
				response.Error(c, apperr.New(apperr.ProblemNotFound))
				return
			}
			response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
			return
		}
		h.runAgainstProblem(c, files, req.Language, *problem)
		return
	}

	stdin := truncateStdin(req.Stdin, h.Grading)
	started := time.Now()
	res := h.Engine.Run(c.Request.Context(), files, req.Language, stdin, runTimeoutSec, h.Grading.MemoryLimit)
	response.Success(c, runResponse{
		Compiled:      res.Compiled,
		Output:        res.Output,
		Error:         res.Error,
		Verdict:       classifyRunVerdict(res),
		ExecutionTime: time.Since(started).Milliseconds(),
	})
}

// runAgainstProblem grades files against a problem's test cases the same
// way submit does, without persisting anything.
func (h *Handlers) runAgainstProblem(c *gin.Context, files []engine.SourceFile, language string, problem repository.Problem) {
	runTimeoutSec := int(h.Grading.RunTimeout.Seconds())
	compileRes := h.Engine.Run(c.Request.Context(), files, language, "", runTimeoutSec, h.Grading.MemoryLimit)
	if strings.HasPrefix(compileRes.Error, engine.InternalErrorPrefix) {
		response.Success(c, runResponse{Compiled: false, Error: compileRes.Error, Verdict: grader.VerdictIE})
		return
	}
	if !compileRes.Compiled {
		response.Success(c, runResponse{Compiled: false, Error: compileRes.Error, Verdict: grader.VerdictCE})
		return
	}

	var tests []testOutcomeDTO
	var execTimeMs int64
	passed := 0
	verdict := ""
	topError := ""
	for _, tc := range problem.TestCases {
		started := time.Now()
		runRes := h.Engine.Run(c.Request.Context(), files, language, tc.InputText, runTimeoutSec, h.Grading.MemoryLimit)
		outcome := testOutcomeDTO{ID: tc.ID, IsHidden: tc.IsHidden, Input: tc.InputText, Expected: tc.ExpectedOutput, ExecutionTime: time.Since(started).Milliseconds()}
		execTimeMs += outcome.ExecutionTime
		switch {
		case !runRes.Success:
			outcome.Status = "RE"
			outcome.Error = runRes.Error
			if topError == "" {
				topError = runRes.Error
			}
		default:
			outcome.Output = runRes.Output
			if normalize(runRes.Output) == normalize(tc.ExpectedOutput) {
				outcome.Status = "PASS"
				passed++
			} else {
				outcome.Status = "FAIL"
			}
		}
		if outcome.Status != "PASS" && verdict == "" {
			verdict = verdictForOutcome(outcome)
		}
		if outcome.IsHidden {
			outcome.Input, outcome.Expected, outcome.Output = "[Hidden]", "[Hidden]", "[Hidden]"
		}
		tests = append(tests, outcome)
	}
	if verdict == "" {
		if passed == len(problem.TestCases) {
			verdict = grader.VerdictAC
		} else {
			verdict = grader.VerdictWA
		}
	}
	if verdict == grader.VerdictAC && h.Validator != nil {
		if ok, message := h.Validator.Validate(language); !ok {
			verdict = grader.VerdictDEP
			topError = message
		}
	}

	response.Success(c, runResponse{
		Compiled:      true,
		Tests:         tests,
		Error:         topError,
		Verdict:       verdict,
		ExecutionTime: execTimeMs,
	})
}

func (h *Handlers) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid submit request: "+err.Error())
		return
	}
	if !validLanguage(req.Language) {
		response.Error(c, apperr.New(apperr.LanguageNotSupported))
		return
	}
	files, err := buildSourceFiles(req.Files, h.Grading)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID, ok := auth.UserID(c)
	if !ok {
		response.Error(c, apperr.New(apperr.Unauthorized))
		return
	}

	problem, err := h.Repo.FetchProblemBySlug(c.Request.Context(), req.ProblemSlug)
	if err != nil {
		if err == repository.ErrNotFound {
			response.Error(c, apperr.New(apperr.ProblemNotFound))
			return
		}
		response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
		return
	}

	codeBlob := concatFiles(req.Files)
	result, err := h.Grader.Grade(c.Request.Context(), userID, *problem, files, req.Language, codeBlob)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submitResponseFromGraded(result))
}

func (h *Handlers) listSubmissions(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		response.Error(c, apperr.New(apperr.Unauthorized))
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	submissions, total, err := h.Repo.GetUserSubmissions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, apperr.Wrap(err, apperr.DatabaseError))
		return
	}

	items := make([]submissionListItemDTO, len(submissions))
	for i, s := range submissions {
		items[i] = submissionListItemDTO{
			ID: s.ID, ProblemID: s.ProblemID, Language: s.Language, Verdict: s.Verdict,
			Passed: s.Passed, Total: s.Total, ExecTimeMs: s.ExecTimeMs,
			CreatedAt: s.CreatedAt.Format(httpTimeFormat),
		}
	}
	response.Success(c, submissionsPageResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

const httpTimeFormat = "2006-01-02T15:04:05Z07:00"

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func concatFiles(files map[string]string) string {
	var b strings.Builder
	for name, body := range files {
		b.WriteString("// file: ")
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

func classifyRunVerdict(res engine.Result) string {
	switch {
	case strings.HasPrefix(res.Error, engine.InternalErrorPrefix):
		return grader.VerdictIE
	case !res.Compiled:
		return grader.VerdictCE
	case !res.Success:
		switch {
		case strings.Contains(res.Error, "Time Limit Exceeded"):
			return grader.VerdictTLE
		case strings.Contains(res.Error, "Memory Limit Exceeded"):
			return grader.VerdictMLE
		default:
			return grader.VerdictRE
		}
	default:
		return grader.VerdictAC
	}
}

func verdictForOutcome(t testOutcomeDTO) string {
	switch {
	case strings.HasPrefix(t.Error, engine.InternalErrorPrefix):
		return grader.VerdictIE
	case strings.Contains(t.Error, "Time Limit Exceeded"):
		return grader.VerdictTLE
	case strings.Contains(t.Error, "Memory Limit Exceeded"):
		return grader.VerdictMLE
	case t.Status == "RE":
		return grader.VerdictRE
	case t.Status == "FAIL":
		return grader.VerdictWA
	default:
		return ""
	}
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
