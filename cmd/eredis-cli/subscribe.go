package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nordix/eredis"
)

var flagPattern bool

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <channel>...",
	Short: "Subscribe to channels or patterns and print incoming messages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubscribe,
}

func init() {
	subscribeCmd.Flags().BoolVarP(&flagPattern, "pattern", "p", false, "treat arguments as PSUBSCRIBE patterns")
	rootCmd.AddCommand(subscribeCmd)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	events := make(chan eredis.Event, 64)
	client, err := eredis.NewSubClient(buildConfig(logger), events)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Stop()

	if flagPattern {
		client.PSubscribe(args...)
	} else {
		client.Subscribe(args...)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case ev := <-events:
			printEvent(ev)
			if ev.Kind.RequiresAck() {
				client.AckMessage()
			}
		case <-sigCh:
			return nil
		}
	}
}

func printEvent(ev eredis.Event) {
	switch ev.Kind {
	case eredis.EventMessage:
		fmt.Printf("message: channel=%s payload=%s\n", ev.Channel, ev.Payload)
	case eredis.EventPMessage:
		fmt.Printf("pmessage: pattern=%s channel=%s payload=%s\n", ev.Pattern, ev.Channel, ev.Payload)
	case eredis.EventSubscribed:
		fmt.Printf("subscribed: %s\n", strings.TrimSpace(ev.Channel+ev.Pattern))
	case eredis.EventUnsubscribed:
		fmt.Printf("unsubscribed: %s\n", strings.TrimSpace(ev.Channel+ev.Pattern))
	case eredis.EventDroppedMessages:
		fmt.Printf("dropped %d message(s)\n", ev.Dropped)
	case eredis.EventConnected:
		fmt.Println("connected")
	case eredis.EventDisconnected:
		fmt.Printf("disconnected: %v\n", ev.Err)
	}
}
