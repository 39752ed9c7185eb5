// Package engine implements the Execution Engine (C3): the compile/run
// protocol that turns a bag of source files into a classified outcome.
//
// Grounded on the teacher's services/judge_service/internal/sandbox/runner
// Compile/Run split and internal/judge/sandbox/engine request/result shapes,
// adapted from cgroup isolation calls to Sandbox Driver (C2) calls.
package engine

import (
	"context"
	"fmt"
	"strings"

	"judgecore/internal/language"
	"judgecore/internal/sandbox"

	"github.com/google/shlex"
)

// SourceFile is one uploaded file, order-preserving so "the first entry in
// files" (used when no file matches the profile's expected name) is
// well-defined.
type SourceFile struct {
	Name    string
	Content []byte
}

// Result is the outcome of one Run call.
type Result struct {
	Compiled bool
	Success  bool
	Output   string
	Error    string
	ExitCode int
}

const (
	exitTimeLimit   = 124
	exitMemoryLimit = 137
	stdinFile       = "stdin.txt"
)

// InternalErrorPrefix marks a Result.Error as a judgecore-side failure
// (sandbox creation, file injection, malformed profile command) rather
// than anything about the submitted code, so callers can classify it as
// verdict IE instead of CE/RE.
const InternalErrorPrefix = "Internal Error (IE)"

// Engine runs submissions against a Sandbox Driver.
type Engine struct {
	driver sandbox.Driver
}

// New builds an Engine over driver.
func New(driver sandbox.Driver) *Engine {
	return &Engine{driver: driver}
}

// Run executes files under languageID with the given stdin, bounded by
// wallClock seconds and memLimit (e.g. "512m"). files lists the uploaded
// files in order; languageID selects the Profile from the language registry.
func (e *Engine) Run(ctx context.Context, files []SourceFile, languageID string, stdin string, wallClock int, memLimit string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, r)}
		}
	}()

	profile, ok := language.Lookup(languageID)
	if !ok {
		return Result{Compiled: true, Error: "Unsupported language"}
	}

	sb, err := e.driver.Open(ctx, profile.Image, memLimit, profile.Env, false, wallClock)
	if err != nil {
		return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
	}
	defer e.driver.Close(ctx, sb)

	source, filename := selectMainSource(files, profile.SourceFile)
	if err := e.driver.Put(ctx, sb, filename, source); err != nil {
		return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
	}

	hasStdin := stdin != ""
	if hasStdin {
		if err := e.driver.Put(ctx, sb, stdinFile, []byte(stdin)); err != nil {
			return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
		}
	}

	if profile.NeedsCompile() {
		argv, err := shlex.Split(profile.CompileCmd)
		if err != nil {
			return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
		}
		compileRes, err := e.driver.Exec(ctx, sb, argv, "", wallClock)
		if err != nil {
			return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
		}
		if compileRes.ExitCode != 0 {
			return Result{Compiled: false, Error: firstNonEmpty(compileRes.Stderr, compileRes.Stdout), ExitCode: compileRes.ExitCode}
		}
	}

	if profile.IsBinaryRun() {
		if _, err := e.driver.Exec(ctx, sb, []string{"chmod", "+x", "/app/main"}, "", wallClock); err != nil {
			return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
		}
	}

	runArgv, err := shlex.Split(profile.RunCmd)
	if err != nil {
		return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
	}
	stdinPath := ""
	if hasStdin {
		stdinPath = "/app/" + stdinFile
	}
	runRes, err := e.driver.Exec(ctx, sb, runArgv, stdinPath, wallClock)
	if err != nil {
		return Result{Compiled: true, Error: fmt.Sprintf("%s: %v", InternalErrorPrefix, err)}
	}

	oomConfirmed := runRes.ExitCode == exitMemoryLimit && e.driver.OOMKilled(ctx, sb)
	return classify(runRes, oomConfirmed)
}

func classify(res sandbox.ExecResult, oomConfirmed bool) Result {
	switch res.ExitCode {
	case 0:
		return Result{Compiled: true, Success: true, Output: res.Stdout, ExitCode: 0}
	case exitTimeLimit:
		return Result{Compiled: true, Error: "Time Limit Exceeded", ExitCode: res.ExitCode}
	case exitMemoryLimit:
		if oomConfirmed {
			return Result{Compiled: true, Error: "Memory Limit Exceeded", ExitCode: res.ExitCode}
		}
		fallthrough
	default:
		msg := res.Stderr
		if msg == "" {
			msg = fmt.Sprintf("Runtime Error (Exit Code %d)", res.ExitCode)
		}
		return Result{Compiled: true, Error: msg, ExitCode: res.ExitCode}
	}
}

// selectMainSource prefers the file named preferredName; otherwise the
// first entry in files. Either way the content lands at the profile's
// expected filename so compile/run commands resolve it.
func selectMainSource(files []SourceFile, preferredName string) (data []byte, filename string) {
	for _, f := range files {
		if f.Name == preferredName {
			return f.Content, preferredName
		}
	}
	if len(files) > 0 {
		return files[0].Content, preferredName
	}
	return nil, preferredName
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
