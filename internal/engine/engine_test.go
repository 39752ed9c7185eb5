package engine

import (
	"context"
	"sync"
	"testing"

	"judgecore/internal/sandbox"
)

// fakeDriver is a scripted in-memory Driver, styled after the teacher's
// lowercase mock* test doubles (tests/gateway/mocks_test.go).
type fakeDriver struct {
	mu        sync.Mutex
	files     map[string][]byte
	execQueue []sandbox.ExecResult
	execCalls [][]string
	openErr   error
	closed    bool
	oomKilled bool
}

func newFakeDriver(execResults ...sandbox.ExecResult) *fakeDriver {
	return &fakeDriver{files: make(map[string][]byte), execQueue: execResults, oomKilled: true}
}

func (f *fakeDriver) Open(ctx context.Context, image, memLimit string, env map[string]string, networkEnabled bool, wallClock int) (*sandbox.Sandbox, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &sandbox.Sandbox{ContainerID: "fake"}, nil
}

func (f *fakeDriver) Put(ctx context.Context, sb *sandbox.Sandbox, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
	return nil
}

func (f *fakeDriver) Exec(ctx context.Context, sb *sandbox.Sandbox, argv []string, stdinPath string, wallClock int) (sandbox.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCalls = append(f.execCalls, argv)
	if len(f.execQueue) == 0 {
		return sandbox.ExecResult{}, nil
	}
	res := f.execQueue[0]
	f.execQueue = f.execQueue[1:]
	return res, nil
}

func (f *fakeDriver) Close(ctx context.Context, sb *sandbox.Sandbox) error {
	f.closed = true
	return nil
}

func (f *fakeDriver) OOMKilled(ctx context.Context, sb *sandbox.Sandbox) bool {
	return f.oomKilled
}

func TestRunUnsupportedLanguage(t *testing.T) {
	fd := newFakeDriver()
	e := New(fd)
	res := e.Run(context.Background(), nil, "ruby", "", 5, "512m")
	if !res.Compiled || res.Error != "Unsupported language" {
		t.Fatalf("got %+v", res)
	}
	if fd.closed {
		t.Fatal("no sandbox should have been opened or closed")
	}
}

func TestRunPythonSuccess(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 0, Stdout: "hi\n"})
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("print(input())")}}
	res := e.Run(context.Background(), files, "python", "hi", 5, "512m")
	if !res.Success || res.Output != "hi\n" {
		t.Fatalf("got %+v", res)
	}
	if !fd.closed {
		t.Fatal("sandbox must be closed")
	}
}

func TestRunCompileFailure(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 1, Stderr: "missing semicolon"})
	e := New(fd)
	files := []SourceFile{{Name: "main.cpp", Content: []byte("int main() {")}}
	res := e.Run(context.Background(), files, "cpp", "", 5, "512m")
	if res.Compiled {
		t.Fatal("expected compiled=false")
	}
	if res.Error != "missing semicolon" {
		t.Fatalf("got error %q", res.Error)
	}
	if !fd.closed {
		t.Fatal("sandbox must be closed even on compile failure")
	}
}

func TestRunTimeLimitExceeded(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 124})
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("while True: pass")}}
	res := e.Run(context.Background(), files, "python", "", 2, "512m")
	if res.Error != "Time Limit Exceeded" {
		t.Fatalf("got %+v", res)
	}
}

func TestRunMemoryLimitExceeded(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 137})
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("x=[0]*10**9")}}
	res := e.Run(context.Background(), files, "python", "", 5, "512m")
	if res.Error != "Memory Limit Exceeded" {
		t.Fatalf("got %+v", res)
	}
}

func TestRunExitCode137WithoutConfirmedOOMIsRuntimeError(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 137})
	fd.oomKilled = false
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("os.kill(os.getpid(), 9)")}}
	res := e.Run(context.Background(), files, "python", "", 5, "512m")
	if res.Error != "Runtime Error (Exit Code 137)" {
		t.Fatalf("got %+v", res)
	}
}

func TestRunRuntimeError(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 1, Stderr: "ZeroDivisionError"})
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("print(1/0)")}}
	res := e.Run(context.Background(), files, "python", "", 5, "512m")
	if res.Error != "ZeroDivisionError" {
		t.Fatalf("got %+v", res)
	}
}

func TestRunRuntimeErrorNoStderr(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 2})
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("exit(2)")}}
	res := e.Run(context.Background(), files, "python", "", 5, "512m")
	if res.Error != "Runtime Error (Exit Code 2)" {
		t.Fatalf("got %+v", res)
	}
}

func TestRunFallsBackToFirstFileWhenNameMismatch(t *testing.T) {
	fd := newFakeDriver(sandbox.ExecResult{ExitCode: 0, Stdout: "ok"})
	e := New(fd)
	files := []SourceFile{{Name: "solution.py", Content: []byte("print('ok')")}}
	res := e.Run(context.Background(), files, "python", "", 5, "512m")
	if !res.Success {
		t.Fatalf("got %+v", res)
	}
	if _, ok := fd.files["app.py"]; !ok {
		t.Fatal("expected content written under the profile's expected filename")
	}
}

func TestRunOpenFailureIsInternalError(t *testing.T) {
	fd := newFakeDriver()
	fd.openErr = &sandbox.CreateError{Reason: sandbox.ReasonDaemonUnreachable}
	e := New(fd)
	files := []SourceFile{{Name: "app.py", Content: []byte("print(1)")}}
	res := e.Run(context.Background(), files, "python", "", 5, "512m")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" {
		t.Fatal("expected internal error message")
	}
}
