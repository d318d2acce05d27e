//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"vmharness/internal/app/executor"
	"vmharness/internal/app/producer"
	"vmharness/internal/domain/execution"
	"vmharness/internal/domain/registers"
	"vmharness/internal/infra/docker"
	kafkainfra "vmharness/internal/infra/kafka"
	"vmharness/internal/infra/process"
	"vmharness/internal/ports"
	"vmharness/internal/testhelpers"
)

const (
	compilerBuild = `printf '#!/bin/sh\ncp test.src program.vmcode\n' > parser && chmod +x parser`
	vmBuild       = `cat > vm_runner <<'SH'
#!/bin/sh
n=$(tr '\n' ' ' < "$1" | sed -n 's/[^0-9]*int a = \([0-9][0-9]*\);.*/\1/p')
echo "Regs: R0=0, R1=${n:-0}"
SH
chmod +x vm_runner`
)

func shellToolchain(t *testing.T) executor.Toolchain {
	t.Helper()
	toolchain, err := executor.NewToolchain(t.TempDir())
	if err != nil {
		t.Fatalf("NewToolchain: %v", err)
	}
	for dir, script := range map[string]string{
		toolchain.LanguageDir: compilerBuild,
		toolchain.VMTestDir:   vmBuild,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "build.sh"), []byte(script), 0o644); err != nil {
			t.Fatalf("write build script: %v", err)
		}
	}
	toolchain.BuildCommand = []string{"/bin/sh", "build.sh"}
	return toolchain
}

func suite() *producer.Service {
	return producer.NewServiceWithCases(
		execution.TestCase{Name: "Simple Assignment", Source: "start\n  int a = 42;\nend\n", ExpectedRegisters: registers.State{"R1": 42}},
		execution.TestCase{Name: "Wrong Expectation", Source: "start\n  int a = 1;\nend\n", ExpectedRegisters: registers.State{"R1": 2}},
	)
}

func runPipeline(ctx context.Context, t *testing.T, runner ports.CommandRunner, toolchain executor.Toolchain) {
	t.Helper()

	const resultsTopic = "pipeline-results"
	broker := testhelpers.StartKafka(ctx, t, resultsTopic)

	publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
		Brokers: []string{broker},
		Topic:   resultsTopic,
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	var out bytes.Buffer
	service, err := executor.NewService(runner, toolchain, executor.NewReporter(&out), executor.WithPublisher(publisher))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer service.Close()

	summary, err := service.Execute(ctx, suite())
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, out.String())
	}
	if summary.Passed != 1 || summary.Total != 2 {
		t.Fatalf("unexpected summary %+v:\n%s", summary, out.String())
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{broker},
		Topic:   resultsTopic,
		GroupID: "pipeline-integration-results",
	})
	defer reader.Close()

	msgCtx, msgCancel := context.WithTimeout(ctx, time.Minute)
	defer msgCancel()

	var messages []map[string]any
	for len(messages) < 3 {
		msg, err := reader.ReadMessage(msgCtx)
		if err != nil {
			t.Fatalf("read result message %d: %v", len(messages)+1, err)
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			t.Fatalf("decode result message: %v", err)
		}
		messages = append(messages, payload)
	}

	if messages[0]["name"] != "Simple Assignment" || messages[0]["passed"] != true {
		t.Fatalf("unexpected first outcome %v", messages[0])
	}
	if messages[1]["name"] != "Wrong Expectation" || messages[1]["reason"] != string(execution.ReasonMismatch) {
		t.Fatalf("unexpected second outcome %v", messages[1])
	}
	if messages[2]["type"] != "summary" || messages[2]["passed"] != float64(1) || messages[2]["total"] != float64(2) {
		t.Fatalf("unexpected summary message %v", messages[2])
	}
}

func TestPipelineLocalProcesses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	runPipeline(ctx, t, process.New(process.Config{Timeout: 30 * time.Second}), shellToolchain(t))
}

func TestPipelineInDocker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	toolchain := shellToolchain(t)
	runner, err := docker.New(docker.Config{
		Image:   "alpine:3.20",
		Mounts:  []string{filepath.Dir(toolchain.LanguageDir)},
		Timeout: time.Minute,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	runPipeline(ctx, t, runner, toolchain)
}
