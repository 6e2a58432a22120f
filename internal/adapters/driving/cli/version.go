package cli

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ragbot version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ragbot version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
