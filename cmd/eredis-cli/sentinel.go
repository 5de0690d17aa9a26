package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nordix/eredis"
)

var sentinelCmd = &cobra.Command{
	Use:   "sentinel-topology <endpoint>",
	Short: "Query a single sentinel endpoint for the other monitors watching --sentinel-group",
	Args:  cobra.ExactArgs(1),
	RunE:  runSentinelTopology,
}

func init() {
	rootCmd.AddCommand(sentinelCmd)
}

func runSentinelTopology(cmd *cobra.Command, args []string) error {
	if flagGroup == "" {
		return fmt.Errorf("--sentinel-group is required")
	}
	pairs, err := eredis.Sentinels(args[0], flagGroup, 5*time.Second)
	if err != nil {
		return fmt.Errorf("query sentinel: %w", err)
	}
	if len(pairs) == 0 {
		fmt.Println("(no monitors reported)")
		return nil
	}
	for _, p := range pairs {
		fmt.Printf("%s:%s\n", p[0], p[1])
	}
	return nil
}
