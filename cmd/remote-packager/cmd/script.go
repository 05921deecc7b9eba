package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/remote-packager/internal/service/packager"
)

// scriptCmd prints the remote script of the job.
var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print the remote packaging script without contacting the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := packager.Script(cmd.Context(), &packager.Options{
			ConfigPath: configPath,
			LogLevel:   logLevel,
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprint(cmd.OutOrStdout(), text)

		return nil
	},
}
