package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect configured providers",
}

var providersHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every configured provider",
	Run:   runProvidersHealth,
}

func init() {
	providersCmd.AddCommand(providersHealthCmd)
	rootCmd.AddCommand(providersCmd)
}

func runProvidersHealth(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	app, _ := loadApp(ctx)
	defer app.Close()

	report := app.HealthMonitor().CheckHealth(ctx)
	printHealth(os.Stdout, providerNames(app), report)
}
