//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
	"github.com/fivetwenty-io/polar-client/pkg/polarclient"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	AccessToken string
	Server      string
	PolarPath   string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables. Tests run
// against the sandbox unless POLAR_SERVER says otherwise.
func LoadTestConfig() *TestConfig {
	server := os.Getenv("POLAR_SERVER")
	if server == "" {
		server = constants.ServerSandbox
	}

	return &TestConfig{
		AccessToken: os.Getenv(constants.EnvAccessToken),
		Server:      server,
		PolarPath:   getPolarPath(),
		Verbose:     os.Getenv("POLAR_VERBOSE") == "true",
	}
}

// getPolarPath determines the path to the polar binary
func getPolarPath() string {
	if path := os.Getenv("POLAR_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../polar", "./polar", "../polar"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "polar"
}

// SkipIfMissingConfig skips test if no access token is configured
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.AccessToken == "" {
		t.Skipf("%s not set, skipping integration test", constants.EnvAccessToken)
	}
}

// SkipIfMissingBinary skips test if the polar binary cannot be found
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.PolarPath); err != nil {
		t.Skipf("polar binary not found at %s, skipping integration test", config.PolarPath)
	}
}

// NewClient creates an SDK client for the configured server
func (config *TestConfig) NewClient(t *testing.T) polar.Client {
	t.Helper()

	client, err := polarclient.New(&polar.Config{
		Server:      polar.Server(config.Server),
		AccessToken: config.AccessToken,
		ExportDefaults: polar.PollOptions{
			Timeout: 2 * time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	t.Cleanup(client.Close)

	return client
}

// CommandRunner provides utilities for running polar commands
type CommandRunner struct {
	config     *TestConfig
	t          *testing.T
	configFile string
}

// NewCommandRunner creates a runner with its own configuration file
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		t:          t,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
	}
}

// Run executes a polar command and returns stdout and stderr
func (r *CommandRunner) Run(args ...string) (string, string, error) {
	r.t.Helper()

	fullArgs := append([]string{"--config", r.configFile, "--server", r.config.Server}, args...)

	// #nosec G204
	cmd := exec.Command(r.config.PolarPath, fullArgs...)
	cmd.Env = append(os.Environ(), constants.EnvAccessToken+"="+r.config.AccessToken)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.config.Verbose {
		r.t.Logf("Running: %s %v", r.config.PolarPath, fullArgs)
	}

	err := cmd.Run()

	if r.config.Verbose {
		r.t.Logf("Stdout: %s", stdout.String())
		r.t.Logf("Stderr: %s", stderr.String())
	}

	return stdout.String(), stderr.String(), err
}

// GenerateTestName creates a unique name for test resources
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
