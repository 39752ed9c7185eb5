package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"judgecore/pkg/log"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlDuplicateEntryErrno = 1062

const maxPageSize = 50

// PoolConfig mirrors the teacher's MySQLConfig connection-pool knobs
// (internal/common/db/mysql.go).
type PoolConfig struct {
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// DefaultPoolConfig matches the teacher's DefaultMySQLConfig defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConnections: 25, MaxIdleConnections: 5, ConnMaxLifetime: 5 * time.Minute}
}

// MySQLRepository is the Repository backed by database/sql +
// go-sql-driver/mysql.
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository opens dsn with pool tuned by cfg and verifies
// connectivity, following NewMySQLWithConfig's open-then-ping sequence.
func NewMySQLRepository(dsn string, cfg PoolConfig) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database connection failed: %w", err)
	}
	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = 25
	}
	if cfg.MaxIdleConnections < 0 {
		cfg.MaxIdleConnections = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}
	return &MySQLRepository{db: db}, nil
}

// NewMySQLRepositoryFromDB wraps an already-open *sql.DB, for callers that
// manage the pool themselves (e.g. tests against sqlmock).
func NewMySQLRepositoryFromDB(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// Ping reports database reachability for the health endpoint.
func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *MySQLRepository) FetchProblemBySlug(ctx context.Context, slug string) (*Problem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slug, title, difficulty, statement, examples, constraints,
		       time_limit_sec, memory_limit_mb
		FROM problems
		WHERE slug = ? AND is_public = 1`, slug)

	var p Problem
	var examplesJSON, constraintsJSON string
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Difficulty, &p.Statement,
		&examplesJSON, &constraintsJSON, &p.TimeLimitSec, &p.MemoryLimitMB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch problem by slug failed: %w", err)
	}
	p.Examples = decodeExamples(ctx, examplesJSON)
	p.Constraints = decodeStringList(ctx, constraintsJSON)

	testCases, err := r.fetchTestCases(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.TestCases = testCases
	return &p, nil
}

func (r *MySQLRepository) fetchTestCases(ctx context.Context, problemID int64) ([]TestCase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, problem_id, input_text, expected_output, is_hidden, execution_order
		FROM testcases
		WHERE problem_id = ?
		ORDER BY execution_order ASC, id ASC`, problemID)
	if err != nil {
		return nil, fmt.Errorf("fetch testcases failed: %w", err)
	}
	defer rows.Close()

	var out []TestCase
	for rows.Next() {
		var tc TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.InputText, &tc.ExpectedOutput, &tc.IsHidden, &tc.ExecutionOrder); err != nil {
			return nil, fmt.Errorf("scan testcase failed: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *MySQLRepository) FetchProblemsPage(ctx context.Context, page, pageSize int, difficulty, search string) ([]Problem, int, error) {
	if page < 1 {
		page = 1
	}
	pageSize = ClampPageSize(pageSize, maxPageSize)

	where := []string{"is_public = 1"}
	args := []interface{}{}
	if difficulty != "" {
		where = append(where, "difficulty = ?")
		args = append(args, difficulty)
	}
	if search != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM problems WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count problems failed: %w", err)
	}

	offset := (page - 1) * pageSize
	listQuery := fmt.Sprintf(`
		SELECT id, slug, title, difficulty, statement, examples, constraints,
		       time_limit_sec, memory_limit_mb
		FROM problems
		WHERE %s
		ORDER BY id ASC
		LIMIT ? OFFSET ?`, whereClause)
	listArgs := append(append([]interface{}{}, args...), pageSize, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list problems failed: %w", err)
	}
	defer rows.Close()

	var items []Problem
	for rows.Next() {
		var p Problem
		var examplesJSON, constraintsJSON string
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Difficulty, &p.Statement,
			&examplesJSON, &constraintsJSON, &p.TimeLimitSec, &p.MemoryLimitMB); err != nil {
			return nil, 0, fmt.Errorf("scan problem failed: %w", err)
		}
		p.Examples = decodeExamples(ctx, examplesJSON)
		p.Constraints = decodeStringList(ctx, constraintsJSON)
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *MySQLRepository) StoreSubmission(ctx context.Context, s Submission) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions
			(user_id, problem_id, language, code_blob, verdict, passed, total, exec_time_ms, mem_kb, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.ProblemID, s.Language, s.CodeBlob, s.Verdict, s.Passed, s.Total, s.ExecTimeMs, s.MemKB, s.Error, time.Now())
	if err != nil {
		return 0, fmt.Errorf("store submission failed: %w", err)
	}
	return res.LastInsertId()
}

func (r *MySQLRepository) StoreSubmissionTestcase(ctx context.Context, t SubmissionTestcase) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_testcases
			(submission_id, testcase_id, status, exec_time_ms, mem_kb, output, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.SubmissionID, t.TestCaseID, t.Status, t.ExecTimeMs, t.MemKB, t.Output, t.Error)
	if err != nil {
		return fmt.Errorf("store submission testcase failed: %w", err)
	}
	return nil
}

func (r *MySQLRepository) GetUserSubmissions(ctx context.Context, userID int64, page, pageSize int) ([]Submission, int, error) {
	if page < 1 {
		page = 1
	}
	pageSize = ClampPageSize(pageSize, maxPageSize)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count submissions failed: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, problem_id, language, code_blob, verdict, passed, total, exec_time_ms, mem_kb, error, created_at
		FROM submissions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions failed: %w", err)
	}
	defer rows.Close()

	var items []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.CodeBlob, &s.Verdict,
			&s.Passed, &s.Total, &s.ExecTimeMs, &s.MemKB, &s.Error, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan submission failed: %w", err)
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *MySQLRepository) GetSubmissionDetail(ctx context.Context, submissionID int64, userID *int64) (*Submission, []SubmissionTestcase, error) {
	query := `
		SELECT id, user_id, problem_id, language, code_blob, verdict, passed, total, exec_time_ms, mem_kb, error, created_at
		FROM submissions WHERE id = ?`
	args := []interface{}{submissionID}
	if userID != nil {
		query += " AND user_id = ?"
		args = append(args, *userID)
	}

	var s Submission
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.CodeBlob, &s.Verdict,
		&s.Passed, &s.Total, &s.ExecTimeMs, &s.MemKB, &s.Error, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get submission detail failed: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submission_id, testcase_id, status, exec_time_ms, mem_kb, output, error
		FROM submission_testcases
		WHERE submission_id = ?
		ORDER BY id ASC`, submissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list submission testcases failed: %w", err)
	}
	defer rows.Close()

	var testcases []SubmissionTestcase
	for rows.Next() {
		var t SubmissionTestcase
		if err := rows.Scan(&t.ID, &t.SubmissionID, &t.TestCaseID, &t.Status, &t.ExecTimeMs, &t.MemKB, &t.Output, &t.Error); err != nil {
			return nil, nil, fmt.Errorf("scan submission testcase failed: %w", err)
		}
		testcases = append(testcases, t)
	}
	return &s, testcases, rows.Err()
}

func (r *MySQLRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES (?, ?, ?, 1)`, username, email, passwordHash)
	if err != nil {
		var mysqlErr *mysqldriver.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntryErrno {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("create user failed: %w", err)
	}
	return res.LastInsertId()
}

func (r *MySQLRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, is_active, COALESCE(last_login, FROM_UNIXTIME(0))
		FROM users WHERE username = ?`, username)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.LastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username failed: %w", err)
	}
	return &u, nil
}

func (r *MySQLRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("touch last login failed: %w", err)
	}
	return nil
}

// decodeExamples tolerates malformed JSON by substituting an empty list and
// logging, per the examples/constraints decoding rule.
func decodeExamples(ctx context.Context, raw string) []Example {
	if raw == "" {
		return []Example{}
	}
	var out []Example
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn(ctx, "malformed examples json", zap.Error(err))
		return []Example{}
	}
	return out
}

func decodeStringList(ctx context.Context, raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn(ctx, "malformed constraints json", zap.Error(err))
		return []string{}
	}
	return out
}
