package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/polar-client/internal/auth"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		skipVerify bool
		expiresIn  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an organization access token",
		Long: `Store an organization access token for the selected server.

The token is read from --token or prompted for, checked against the API and
saved in the configuration file. The selected server and endpoint become the
defaults for later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoginCommand(cmd, skipVerify, expiresIn)
		},
	}

	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "store the token without checking it against the API")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime, if it was created with an expiry")

	return cmd
}

func runLoginCommand(cmd *cobra.Command, skipVerify bool, expiresIn time.Duration) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	tgt, err := resolveTarget()
	if err != nil {
		return err
	}

	token := strings.TrimSpace(viper.GetString("token"))
	if token == "" {
		token, err = promptToken(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	if token == "" {
		return constants.ErrEmptyToken
	}

	var expiresAt time.Time
	if expiresIn > 0 {
		expiresAt = time.Now().Add(expiresIn)
	}

	tokenManager := auth.NewConfigTokenManager(NewConfigPersister(path), tgt.credentialKey(), token, expiresAt)

	if !skipVerify {
		err = verifyToken(cmd, tgt, tokenManager)
		if err != nil {
			return err
		}
	}

	err = tokenManager.Persist(token, expiresAt)
	if err != nil {
		return err
	}

	err = updateConfig(func(config *Config) error {
		config.Server = tgt.server
		config.API = tgt.endpoint

		return nil
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s\n", tgt.credentialKey())

	return nil
}

// promptToken reads a token without echo from a terminal, or a single line
// from any other input.
func promptToken(in io.Reader, prompt io.Writer) (string, error) {
	_, _ = fmt.Fprint(prompt, "Access token: ")

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)

		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// verifyToken lists a single product, which any organization token may do.
func verifyToken(cmd *cobra.Command, tgt target, tokenManager auth.TokenManager) error {
	c, err := newClient(tgt, tokenManager)
	if err != nil {
		return err
	}
	defer c.Close()

	_, err = c.Products().List(cmd.Context(), polar.NewQuery().WithPageSize(1), 0)
	if err != nil {
		if polar.IsUnauthorized(err) {
			return fmt.Errorf("token rejected by %s: %w", c.BaseURL(), err)
		}

		return fmt.Errorf("failed to verify token: %w", err)
	}

	return nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Long:  "Remove the access token stored for the selected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			tgt, err := resolveTarget()
			if err != nil {
				return err
			}

			err = NewConfigPersister(path).UpdateAccessToken(tgt.credentialKey(), "", time.Time{})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", tgt.credentialKey())

			return nil
		},
	}
}
