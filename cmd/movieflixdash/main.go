package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hucksarn/movieflixdash/internal/interfaces/cli/bot"
	"github.com/hucksarn/movieflixdash/internal/interfaces/cli/reconciler"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "movieflixdash",
		Short: "Movieflixdash - subscription-gated media server controller",
		Long:  `Movieflixdash keeps media-server access policies in sync with subscription state and runs the Telegram approval workflow for payments and media requests.`,
	}

	rootCmd.AddCommand(
		reconciler.NewCommand(),
		bot.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
