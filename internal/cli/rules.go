package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the error classification rules",
	Run:   runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) {
	app, _ := loadApp(context.Background())
	defer app.Close()

	printRules(os.Stdout, app.Recovery().Classifier().Rules())
}
