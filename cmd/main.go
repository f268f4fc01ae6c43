package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	reporter "github.com/ethereum-optimism/infra/op-reporter"
	"github.com/ethereum-optimism/infra/op-reporter/backend"
	"github.com/ethereum-optimism/infra/op-reporter/backend/local"
	"github.com/ethereum-optimism/infra/op-reporter/backend/remote"
	"github.com/ethereum-optimism/infra/op-reporter/exitcodes"
	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/service"
	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-reporter"
	app.Usage = "Test result reporter with backend failover"
	app.Description = "op-reporter delivers test-runner results to a remote test-management service or a local report, failing over when a backend breaks"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if reporter.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if reporter.IsReportError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.ReportFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.ReportFailure))
			}
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start server
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()

	if err := flags.CheckRequired(ctx); err != nil {
		return reporter.NewRuntimeError(fmt.Errorf("missing required flags: %w", err))
	}

	results, err := loadResults(ctx.String(flags.ResultsFile.Name))
	if err != nil {
		return reporter.NewRuntimeError(err)
	}
	logger.Info("Loaded test results", "count", len(results), "file", ctx.String(flags.ResultsFile.Name))

	opts := reporter.Options{
		Mode:        ctx.String(flags.Mode.Name),
		Fallback:    ctx.String(flags.Fallback.Name),
		CaptureLogs: ctx.Bool(flags.CaptureLogs.Name),
		RootDir:     ctx.String(flags.RootDir.Name),
		ConfigFile:  ctx.String(flags.ConfigFile.Name),
		Backends: backend.Config{
			Remote: remote.Config{
				BaseURL:  ctx.String(flags.APIURL.Name),
				Token:    ctx.String(flags.APIToken.Name),
				Project:  ctx.String(flags.Project.Name),
				RunID:    ctx.String(flags.RunID.Name),
				RunTitle: ctx.String(flags.RunTitle.Name),
			},
			Local: local.Config{
				OutputDir: ctx.String(flags.OutputDir.Name),
			},
		},
		Log: logger,
	}

	facade := reporter.Instance(opts)
	facade.StartTestRunAndWait(ctx.Context)
	for _, result := range results {
		facade.AddTestResult(ctx.Context, result)
	}
	facade.SummaryTable()
	facade.Publish(ctx.Context)

	if facade.State() == reporter.StateDisabled {
		return reporter.NewReportError("results could not be delivered to any backend")
	}
	return nil
}

// loadResults reads the JSON results file emitted by the test runner.
func loadResults(path string) ([]*types.TestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	var results []*types.TestResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	for _, r := range results {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid result in %s: %w", path, err)
		}
	}
	return results, nil
}
