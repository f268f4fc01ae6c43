package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_REPORTER"

var (
	ResultsFile = &cli.StringFlag{
		Name:     "results",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "RESULTS"),
		Usage:    "Path to the JSON results file emitted by the test runner",
	}
	Mode = &cli.StringFlag{
		Name:    "mode",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MODE"),
		Usage:   "Primary reporter backend ('remote', 'local' or 'off')",
	}
	Fallback = &cli.StringFlag{
		Name:    "fallback",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FALLBACK"),
		Usage:   "Secondary reporter backend used when the primary fails",
	}
	RootDir = &cli.StringFlag{
		Name:    "root-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ROOT_DIR"),
		Usage:   "Directory holding the shared run-state record (defaults to the working directory)",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory the local backend writes reports into",
	}
	APIURL = &cli.StringFlag{
		Name:    "api-url",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "API_URL"),
		Usage:   "Base URL of the remote test-management service",
	}
	APIToken = &cli.StringFlag{
		Name:    "api-token",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "API_TOKEN"),
		Usage:   "Bearer token for the remote test-management service",
	}
	Project = &cli.StringFlag{
		Name:    "project",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROJECT"),
		Usage:   "Project code on the remote test-management service",
	}
	RunID = &cli.StringFlag{
		Name:    "run-id",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_ID"),
		Usage:   "Existing remote run to attach results to",
	}
	RunTitle = &cli.StringFlag{
		Name:    "run-title",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_TITLE"),
		Usage:   "Title for a newly created remote run",
	}
	CaptureLogs = &cli.BoolFlag{
		Name:    "capture-logs",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CAPTURE_LOGS"),
		Usage:   "Attach captured test output to reported results",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to the reporter config file (defaults to '.op-reporter.yaml')",
	}
)

var requiredFlags = []cli.Flag{
	ResultsFile,
}

var optionalFlags = []cli.Flag{
	Mode,
	Fallback,
	RootDir,
	OutputDir,
	APIURL,
	APIToken,
	Project,
	RunID,
	RunTitle,
	CaptureLogs,
	ConfigFile,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
