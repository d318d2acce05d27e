package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vmharness/internal/app/executor"
	"vmharness/internal/app/producer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}

	os.Exit(run(ctx, defaultConfig(root), os.Stdout))
}

// run executes the suite and returns the process exit status: 1 when the
// toolchain could not be built, 0 otherwise, whatever the per-test verdicts.
func run(ctx context.Context, cfg appConfig, out io.Writer) int {
	toolchain, err := cfg.toolchain()
	if err != nil {
		log.Fatalf("failed to resolve toolchain: %v", err)
	}

	runner, err := cfg.newRunner(cfg.CommandTimeout)
	if err != nil {
		log.Fatalf("failed to initialize command runner: %v", err)
	}
	buildRunner, err := cfg.newRunner(cfg.BuildTimeout)
	if err != nil {
		_ = runner.Close()
		log.Fatalf("failed to initialize build runner: %v", err)
	}

	opts := []executor.Option{executor.WithBuildRunner(buildRunner)}
	publisher, err := cfg.newPublisher()
	if err != nil {
		log.Printf("warning: results will not be published: %v", err)
	} else if publisher != nil {
		opts = append(opts, executor.WithPublisher(publisher))
	}

	service, err := executor.NewService(runner, toolchain, executor.NewReporter(out), opts...)
	if err != nil {
		log.Fatalf("failed to initialize harness: %v", err)
	}
	defer func() {
		if cerr := service.Close(); cerr != nil {
			log.Printf("warning: failed to close harness: %v", cerr)
		}
	}()

	if _, err := service.Execute(ctx, producer.NewService()); err != nil {
		if !errors.Is(err, executor.ErrBuildFailed) {
			log.Printf("harness stopped: %v", err)
		}
		return 1
	}
	return 0
}
