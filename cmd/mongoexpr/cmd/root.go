package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mongoexpr",
	Short: "Analyze Mongo shell expressions",
	Long: `mongoexpr extracts the collection and method from Mongo shell
expressions such as db.Cars.find({}) or db.Cars['find']({}).

Commands:
  analyze  - analyze expressions from arguments or stdin
  serve    - run the HTTP API with history and live event stream`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
