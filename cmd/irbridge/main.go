package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"irbridge/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "irbridge",
		Short: "Bridge between an MQTT broker and an infrared transceiver",
		Long: `irbridge caches named IR commands published as retained MQTT messages,
replays them on request (including multi-burst repeats), and can learn a
new command by watching a remote being pressed repeatedly.`,
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
