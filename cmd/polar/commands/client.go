package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fivetwenty-io/polar-client/internal/auth"
	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
	"github.com/fivetwenty-io/polar-client/pkg/polarclient"
)

// target identifies the API server a command talks to.
type target struct {
	server   string
	endpoint string
}

// credentialKey names the entry the target's token is stored under.
func (t target) credentialKey() string {
	if t.endpoint != "" {
		return t.endpoint
	}

	return t.server
}

func resolveTarget() (target, error) {
	server := viper.GetString("server")
	if server == "" {
		server = constants.ServerProduction
	}

	if server != constants.ServerProduction && server != constants.ServerSandbox {
		return target{}, fmt.Errorf("%w: %q", constants.ErrUnknownServer, server)
	}

	return target{
		server:   server,
		endpoint: polarclient.NormalizeEndpoint(viper.GetString("api")),
	}, nil
}

// CreateClient builds a client for the configured target. The --token flag
// and POLAR_ACCESS_TOKEN take precedence over the token stored by login.
func CreateClient() (*client.Client, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	tgt, err := resolveTarget()
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(viper.GetString("token"))
	persister := NewConfigPersister(path)

	var expiresAt time.Time

	if token == "" {
		token, expiresAt, err = persister.LoadAccessToken(tgt.credentialKey())
		if err != nil {
			return nil, err
		}
	}

	if token == "" {
		return nil, constants.ErrNoAccessToken
	}

	tokenManager := auth.NewConfigTokenManager(persister, tgt.credentialKey(), token, expiresAt)

	return newClient(tgt, tokenManager)
}

func newClient(tgt target, tokenManager auth.TokenManager) (*client.Client, error) {
	verbose := viper.GetBool("verbose")

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}

	c, err := client.NewWithTokenManager(&polar.Config{
		Server:      polar.Server(tgt.server),
		APIEndpoint: tgt.endpoint,
		Logger:      polar.NewZapLogger(logger),
		Debug:       verbose,
		UserAgent:   constants.CLIUserAgent,
	}, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return c, nil
}

// newLogger logs requests to stderr in development format when verbose, and
// only warnings otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}

		return logger, nil
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}
