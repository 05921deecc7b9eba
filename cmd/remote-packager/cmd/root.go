package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/remote-packager/internal/config"
	"github.com/oshokin/remote-packager/internal/version"
)

var (
	// configPath to the job configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command; the work is done by its subcommands.
	rootCmd = &cobra.Command{
		Use:   "remote-packager",
		Short: "Build pax packages on a remote host over SSH",
		Long: `Stages a local workspace, uploads it to a remote host over SFTP, runs the generated
packaging script over SSH, fetches the produced package back and cleans up the remote workspace.

The job is described by a YAML configuration file. The SSH password is never stored in it:
pass --password or set the ` + config.PasswordEnv + ` environment variable.`,
		SilenceUsage: true,
	}
)

// Execute runs the remote-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to job configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the configuration")

	rootCmd.AddCommand(packCmd, scriptCmd, initCmd)
}
