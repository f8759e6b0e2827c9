package commands

import (
	"io"

	"github.com/spf13/cobra"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the polar CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version: version,
				Commit:  commit,
				Built:   date,
			}

			return renderOutput(cmd.OutOrStdout(), info, func(w io.Writer) error {
				return renderDetails(w, [][2]string{
					{"Version", info.Version},
					{"Commit", info.Commit},
					{"Built", info.Built},
				})
			})
		},
	}
}
