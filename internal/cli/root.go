package cli

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"studyroom/internal/logger"
)

var (
	outputJSON bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "roomctl",
	Short: "Book and manage university study rooms",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger.InitWriter(os.Stderr, level)
	},
	SilenceUsage: true,
}

func Execute() {
	rootCmd.AddCommand(roomsCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(optionsCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(forceCancelCmd())
	rootCmd.AddCommand(roomStatusCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(mineCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log sync activity to stderr")
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
