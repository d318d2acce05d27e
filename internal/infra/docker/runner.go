package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"vmharness/internal/domain/execution"
	"vmharness/internal/ports"
)

// ErrMemoryLimit is reported when the container was OOM-killed.
var ErrMemoryLimit = errors.New("container exceeded its memory limit")

// Config describes how commands are executed inside containers.
type Config struct {
	// Image provides make, a C toolchain and a shell.
	Image string
	// Mounts are host directories bind-mounted at the same path inside the
	// container, so absolute working directories and artifact paths resolve
	// identically on both sides.
	Mounts []string
	// Timeout caps every command. Zero means no limit.
	Timeout time.Duration
	// MemoryLimitBytes caps container memory. Zero means no limit.
	MemoryLimitBytes int64
}

// Runner executes each command in a fresh container via the official SDK.
type Runner struct {
	cli      dockerClient
	cfg      Config
	binds    []string
	pullOnce sync.Once
	pullErr  error
}

var _ ports.CommandRunner = (*Runner)(nil)

// New creates a Runner connected to the Docker daemon described by the environment.
func New(cfg Config) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	runner, err := newRunnerWithClient(cli, cfg)
	if err != nil {
		_ = cli.Close()
		return nil, err
	}
	return runner, nil
}

func newRunnerWithClient(cli dockerClient, cfg Config) (*Runner, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("docker runner: image must be configured")
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	if cfg.MemoryLimitBytes < 0 {
		cfg.MemoryLimitBytes = 0
	}

	binds := make([]string, 0, len(cfg.Mounts))
	for _, mount := range cfg.Mounts {
		if !filepath.IsAbs(mount) {
			return nil, fmt.Errorf("docker runner: mount %q must be an absolute path", mount)
		}
		binds = append(binds, mount+":"+mount)
	}

	return &Runner{cli: cli, cfg: cfg, binds: binds}, nil
}

// Close releases the underlying Docker client resources.
func (r *Runner) Close() error {
	if r.cli == nil {
		return nil
	}
	return r.cli.Close()
}

// Run executes cmd in a new container and removes the container afterwards.
func (r *Runner) Run(ctx context.Context, cmd execution.Command) (execution.CommandResult, error) {
	if err := r.ensureImage(ctx); err != nil {
		return execution.CommandResult{}, err
	}

	containerID, cleanup, err := r.createContainer(ctx, cmd)
	if err != nil {
		return execution.CommandResult{}, err
	}
	defer cleanup()

	start := time.Now()
	if err := r.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return execution.CommandResult{}, fmt.Errorf("start container: %w", err)
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
	}
	status, err := r.waitForExit(waitCtx, containerID)
	if cancel != nil {
		cancel()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && r.cfg.Timeout > 0 && ctx.Err() == nil {
			return r.handleTimeout(cmd, containerID, start)
		}
		return execution.CommandResult{}, err
	}

	inspectCtx := ctx
	if inspectCtx.Err() != nil {
		inspectCtx = context.Background()
	}
	inspect, err := r.cli.ContainerInspect(inspectCtx, containerID)
	if err != nil {
		return execution.CommandResult{}, fmt.Errorf("inspect container: %w", err)
	}

	stdout, stderr, err := r.fetchLogs(inspectCtx, containerID)
	if err != nil {
		return execution.CommandResult{}, fmt.Errorf("fetch logs: %w", err)
	}

	result := execution.CommandResult{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: int(status.StatusCode),
		Duration: time.Since(start),
	}

	if inspect.ContainerJSONBase != nil && inspect.State != nil && inspect.State.OOMKilled {
		return result, &execution.CommandError{Command: cmd, Result: result, Err: ErrMemoryLimit}
	}
	if result.ExitCode != 0 {
		return result, &execution.CommandError{Command: cmd, Result: result}
	}
	return result, nil
}

func (r *Runner) ensureImage(ctx context.Context) error {
	r.pullOnce.Do(func() {
		reader, err := r.cli.ImagePull(ctx, r.cfg.Image, image.PullOptions{})
		if err != nil {
			r.pullErr = fmt.Errorf("pull image %s: %w", r.cfg.Image, err)
			return
		}
		defer reader.Close()
		if _, err := io.Copy(io.Discard, reader); err != nil {
			r.pullErr = fmt.Errorf("consume pull output for %s: %w", r.cfg.Image, err)
		}
	})
	return r.pullErr
}

func (r *Runner) createContainer(ctx context.Context, cmd execution.Command) (string, func(), error) {
	hostConfig := &container.HostConfig{
		Binds: r.binds,
		Resources: container.Resources{
			NanoCPUs: 1_000_000_000,
		},
	}
	if r.cfg.MemoryLimitBytes > 0 {
		hostConfig.Resources.Memory = r.cfg.MemoryLimitBytes
		hostConfig.Resources.MemorySwap = r.cfg.MemoryLimitBytes
	}

	resp, err := r.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:        r.cfg.Image,
			Cmd:          append([]string{cmd.Path}, cmd.Args...),
			AttachStdout: true,
			AttachStderr: true,
			WorkingDir:   cmd.Dir,
		},
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", nil, fmt.Errorf("create container: %w", err)
	}

	cleanup := func() {
		_ = r.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}

	return resp.ID, cleanup, nil
}

func (r *Runner) handleTimeout(cmd execution.Command, containerID string, start time.Time) (execution.CommandResult, error) {
	stopCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()

	if err := r.cli.ContainerStop(stopCtx, containerID, container.StopOptions{}); err != nil && !client.IsErrNotFound(err) {
		return execution.CommandResult{}, fmt.Errorf("stop container after timeout: %w", err)
	}

	waitCtx, cancelWait := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelWait()

	status, waitErr := r.waitForExit(waitCtx, containerID)
	if waitErr != nil && !errors.Is(waitErr, context.DeadlineExceeded) && !client.IsErrNotFound(waitErr) {
		return execution.CommandResult{}, fmt.Errorf("wait for container after timeout: %w", waitErr)
	}

	stdout, stderr, err := r.fetchLogs(context.Background(), containerID)
	if err != nil {
		return execution.CommandResult{}, fmt.Errorf("fetch logs: %w", err)
	}

	exitCode := -1
	if status != nil {
		exitCode = int(status.StatusCode)
	}

	result := execution.CommandResult{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		Duration: time.Since(start),
	}
	return result, &execution.CommandError{Command: cmd, Result: result, Timeout: true, Err: context.DeadlineExceeded}
}

func (r *Runner) waitForExit(ctx context.Context, containerID string) (*container.WaitResponse, error) {
	statusCh, errCh := r.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container error: %s", status.Error.Message)
		}
		return &status, nil
	case err := <-errCh:
		return nil, fmt.Errorf("wait for container: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for container: %w", ctx.Err())
	}
}

func (r *Runner) fetchLogs(ctx context.Context, containerID string) (stdout, stderr string, err error) {
	logs, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer logs.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, logs); err != nil {
		return "", "", err
	}

	return stdoutBuf.String(), stderrBuf.String(), nil
}
