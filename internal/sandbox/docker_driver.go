package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	units "github.com/docker/go-units"
)

const workDir = "/app"

// DockerDriver is the production Driver, backed by the Docker Engine API.
// Container lifecycle, resource limits, and stdout/stderr demuxing follow
// IMMZEK-AggieCode's executor.CodeExecutor (createAndStartContainer,
// getContainerLogs, cleanupContainer), generalized so one container serves
// a compile step followed by any number of test runs instead of one shot.
type DockerDriver struct {
	cli             *client.Client
	networkDisabled bool
}

// NewDockerDriver dials the Docker daemon at host (empty uses the
// environment default, e.g. DOCKER_HOST or the local socket).
func NewDockerDriver(host string, networkDisabled bool) (*DockerDriver, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, &CreateError{Reason: ReasonDaemonUnreachable, Err: err}
	}
	return &DockerDriver{cli: cli, networkDisabled: networkDisabled}, nil
}

func (d *DockerDriver) Open(ctx context.Context, image string, memoryLimit string, env map[string]string, networkEnabled bool, wallClock int) (*Sandbox, error) {
	memBytes, err := units.RAMInBytes(memoryLimit)
	if err != nil {
		memBytes = 512 * 1024 * 1024
	}

	envList := make([]string, 0, len(env))
	for k, v := range env {
		envList = append(envList, k+"="+v)
	}

	netMode := container.NetworkMode("none")
	if networkEnabled && !d.networkDisabled {
		netMode = container.NetworkMode("bridge")
	}
	pidsLimit := int64(100)
	sleepSeconds := fmt.Sprintf("%d", wallClock+10)

	cfg := &container.Config{
		Image:      image,
		Cmd:        strslice.StrSlice{"sleep", sleepSeconds},
		Env:        envList,
		WorkingDir: workDir,
		Tty:        false,
	}
	hostCfg := &container.HostConfig{
		NetworkMode: netMode,
		Resources: container.Resources{
			Memory:    memBytes,
			PidsLimit: &pidsLimit,
		},
	}
	if opt := defaultSeccompSecurityOpt(); opt != "" {
		hostCfg.SecurityOpt = []string{opt}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, &CreateError{Reason: ReasonImageMissing, Err: err}
		}
		return nil, &CreateError{Reason: ReasonDaemonUnreachable, Err: err}
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = d.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, &CreateError{Reason: ReasonDaemonUnreachable, Err: err}
	}

	return &Sandbox{ContainerID: resp.ID}, nil
}

// Put uploads data as a single-entry tar archive rooted at workDir, matching
// the Docker Engine API's CopyToContainer contract.
func (d *DockerDriver) Put(ctx context.Context, sb *Sandbox, relPath string, data []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: relPath,
		Mode: 0644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return &IOError{Path: relPath, Err: err}
	}
	if _, err := tw.Write(data); err != nil {
		return &IOError{Path: relPath, Err: err}
	}
	if err := tw.Close(); err != nil {
		return &IOError{Path: relPath, Err: err}
	}

	err := d.cli.CopyToContainer(ctx, sb.ContainerID, workDir, &buf, dockertypes.CopyToContainerOptions{})
	if err != nil {
		return &IOError{Path: relPath, Err: err}
	}
	return nil
}

// Exec runs argv inside a shell, bounded by the coreutils `timeout` command
// so a wedged submission cannot outlive the wall-clock budget. Exit code 124
// from timeout signals the deadline was hit.
func (d *DockerDriver) Exec(ctx context.Context, sb *Sandbox, argv []string, stdinPath string, wallClock int) (ExecResult, error) {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	shellCmd := strings.Join(quoted, " ")
	if stdinPath != "" {
		shellCmd = fmt.Sprintf("%s < %s", shellCmd, shellQuote(stdinPath))
	}
	full := fmt.Sprintf("timeout -k 1 %ds %s", wallClock, shellCmd)

	execCfg := container.ExecOptions{
		Cmd:          []string{"sh", "-c", full},
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workDir,
	}
	created, err := d.cli.ContainerExecCreate(ctx, sb.ContainerID, execCfg)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec create: %w", err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil && err != io.EOF {
		return ExecResult{}, fmt.Errorf("exec demux: %w", err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec inspect: %w", err)
	}

	return ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

func (d *DockerDriver) Close(ctx context.Context, sb *Sandbox) error {
	if sb == nil || sb.ContainerID == "" {
		return nil
	}
	stopTimeout := 1
	_ = d.cli.ContainerStop(ctx, sb.ContainerID, container.StopOptions{Timeout: &stopTimeout})
	return d.cli.ContainerRemove(ctx, sb.ContainerID, container.RemoveOptions{Force: true})
}

// OOMKilled reports whether the container was OOM-killed, used by the
// Execution Engine when exit code 137 alone is ambiguous.
func (d *DockerDriver) OOMKilled(ctx context.Context, sb *Sandbox) bool {
	info, err := d.cli.ContainerInspect(ctx, sb.ContainerID)
	if err != nil || info.State == nil {
		return false
	}
	return info.State.OOMKilled
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
