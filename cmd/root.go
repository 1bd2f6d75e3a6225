package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "maskrisk",
	Short: "Estimate crowd infection risk from face detections",
	Long:  "Pairs detected faces by estimated physical distance, weights each pair by mask usage and classifies the scene into a risk tier.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
