package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/remote-packager/internal/service/packager"
)

var (
	// initOptions collects the values of the init flags.
	initOptions packager.InitOptions

	// initCmd writes a starter configuration.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a starter job configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			initOptions.ConfigPath = configPath

			_, err := packager.Init(cmd.Context(), &initOptions)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	cfg := &initOptions.Config

	initCmd.Flags().StringVar(&cfg.Job, "job", "", "job id")
	initCmd.Flags().StringVar(&cfg.SSH.Host, "host", "", "SSH host")
	initCmd.Flags().IntVar(&cfg.SSH.Port, "port", 0, "SSH port (default 22)")
	initCmd.Flags().StringVar(&cfg.SSH.Username, "username", "", "SSH username")
	initCmd.Flags().StringVar(&cfg.SSH.KnownHosts, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	initCmd.Flags().StringVar(&cfg.Workspace.Local, "local-workspace", ".", "local workspace directory")
	initCmd.Flags().StringVar(&cfg.Workspace.Remote, "remote-workspace", "", "remote workspace root")
	initCmd.Flags().StringVar(&cfg.Package.Filename, "filename", "", "package file name")
	initCmd.Flags().BoolVar(&cfg.Package.Compress, "compress", false, "compress the package")
	initCmd.Flags().BoolVar(&initOptions.Force, "force", false, "overwrite an existing configuration")
}
