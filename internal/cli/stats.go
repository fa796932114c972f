package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/taskrelay/internal/control"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show provider statistics",
	Run:   runStats,
}

var statsResetCmd = &cobra.Command{
	Use:   "reset [provider|all]",
	Short: "Reset statistics for one provider or all providers",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatsReset,
}

func init() {
	statsCmd.AddCommand(statsResetCmd)
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	app, _ := loadApp(context.Background())
	defer app.Close()

	printStats(os.Stdout, providerNames(app), app.Orchestrator().GetProviderStats())
}

func runStatsReset(cmd *cobra.Command, args []string) {
	name := "all"
	if len(args) == 1 {
		name = args[0]
	}

	ctx := context.Background()
	app, _ := loadApp(ctx)
	defer app.Close()

	if err := app.ResetStats(ctx, name); err != nil {
		slog.Error("Failed to reset stats", "provider", name, "error", err)
		app.Close()
		os.Exit(1)
	}
	fmt.Printf("Successfully reset stats for %s\n", name)
}

func providerNames(app *control.App) []string {
	var names []string
	for _, p := range app.Registry().Providers() {
		names = append(names, app.Registry().Normalize(p.GetName()))
	}
	return names
}
