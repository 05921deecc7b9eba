package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/remote-packager/internal/service/packager"
)

var (
	// password for the SSH account.
	password string
	// keepTempFolder leaves the remote workspace in place.
	keepTempFolder bool
	// reportFile overrides the configured report path.
	reportFile string

	// packCmd runs a packaging job.
	packCmd = &cobra.Command{
		Use:   "pack",
		Short: "Run the packaging job and print the local path of the package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling. Cleanup still runs after cancellation.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath:     configPath,
				Password:       password,
				KeepTempFolder: keepTempFolder,
				ReportFile:     reportFile,
				LogLevel:       logLevel,
			}

			result, err := packager.Run(ctx, options)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.ArtifactPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	packCmd.Flags().StringVarP(&password, "password", "p", "", "SSH password")
	packCmd.Flags().BoolVar(&keepTempFolder, "keep-temp-folder", false, "leave the remote workspace for diagnostics")
	packCmd.Flags().StringVar(&reportFile, "report", "", "write a YAML run report to this path")
}
