package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version — подставляется при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "facebot",
		Short:         "Сбор оценок лиц через Telegram",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCommand(),
		migrateCommand(),
		exportCommand(),
		cleanupCommand(),
		statsCommand(),
	)
	return root
}
