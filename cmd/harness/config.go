package main

import (
	"fmt"
	"path/filepath"
	"time"

	"vmharness/internal/app/executor"
	"vmharness/internal/infra/docker"
	kafkainfra "vmharness/internal/infra/kafka"
	"vmharness/internal/infra/process"
	"vmharness/internal/ports"
)

const (
	runnerLocal  = "local"
	runnerDocker = "docker"

	defaultCommandTimeout = 2 * time.Minute
	defaultBuildTimeout   = 10 * time.Minute
	defaultDockerImage    = "gcc:14"
	defaultResultsTopic   = "vm-harness-results"
)

// appConfig is compiled in. The harness takes no flags and reads no
// environment; edit defaultConfig to change its behaviour.
type appConfig struct {
	Root           string
	BuildCommand   []string
	CommandTimeout time.Duration
	BuildTimeout   time.Duration

	Runner            string
	DockerImage       string
	DockerMemoryLimit int64

	KafkaBrokers []string
	ResultsTopic string
}

func defaultConfig(root string) appConfig {
	return appConfig{
		Root:           root,
		BuildCommand:   []string{"make"},
		CommandTimeout: defaultCommandTimeout,
		BuildTimeout:   defaultBuildTimeout,
		Runner:         runnerLocal,
		DockerImage:    defaultDockerImage,
		ResultsTopic:   defaultResultsTopic,
	}
}

func (c appConfig) toolchain() (executor.Toolchain, error) {
	toolchain, err := executor.NewToolchain(c.Root)
	if err != nil {
		return executor.Toolchain{}, err
	}
	if len(c.BuildCommand) > 0 {
		toolchain.BuildCommand = c.BuildCommand
	}
	return toolchain, nil
}

// newRunner builds the command runner for the configured backend. Docker
// containers bind-mount the toolchain root at the same path.
func (c appConfig) newRunner(timeout time.Duration) (ports.CommandRunner, error) {
	switch c.Runner {
	case "", runnerLocal:
		return process.New(process.Config{Timeout: timeout}), nil
	case runnerDocker:
		toolchain, err := c.toolchain()
		if err != nil {
			return nil, err
		}
		return docker.New(docker.Config{
			Image:            c.DockerImage,
			Mounts:           []string{toolchainRoot(toolchain)},
			Timeout:          timeout,
			MemoryLimitBytes: c.DockerMemoryLimit,
		})
	default:
		return nil, fmt.Errorf("unknown runner backend %q", c.Runner)
	}
}

// newPublisher returns nil when no brokers are configured.
func (c appConfig) newPublisher() (ports.OutcomePublisher, error) {
	if len(c.KafkaBrokers) == 0 {
		return nil, nil
	}
	publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
		Brokers: c.KafkaBrokers,
		Topic:   c.ResultsTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return publisher, nil
}

func toolchainRoot(toolchain executor.Toolchain) string {
	return filepath.Dir(toolchain.LanguageDir)
}
