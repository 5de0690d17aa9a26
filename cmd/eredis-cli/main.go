// Command eredis-cli is a small interactive client and subscription
// monitor built on top of the eredis package, in the spirit of the
// stock redis-cli but covering only this library's surface: raw
// command execution over a single connection, and a pub/sub monitor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagHost     string
	flagPort     int
	flagSocket   string
	flagDB       int
	flagUsername string
	flagPassword string
	flagSentinel []string
	flagGroup    string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "eredis-cli",
	Short: "Interactive client for eredis",
	Long:  "eredis-cli is a minimal command-line client for talking to a redis-protocol server through the eredis package.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "localhost", "server hostname or IP")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 6379, "server port")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "unix socket path (overrides host/port)")
	rootCmd.PersistentFlags().IntVar(&flagDB, "db", 0, "database number")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "user", "", "ACL username")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "a", "", "password")
	rootCmd.PersistentFlags().StringSliceVar(&flagSentinel, "sentinel", nil, "sentinel monitor endpoint (host:port); may be repeated")
	rootCmd.PersistentFlags().StringVar(&flagGroup, "sentinel-group", "", "sentinel master group name")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log connect/disconnect/subscription trace events")
}

func newLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	Execute()
}
