package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/Nordix/eredis"
	"github.com/Nordix/eredis/resp"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an interactive session and send raw commands",
	RunE:  runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	client, err := eredis.NewClient(buildConfig(logger))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Stop()

	interactive := isatty.IsTerminal(os.Stdin.Fd())

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if interactive {
		if home, err := os.UserHomeDir(); err == nil {
			historyFile = home + "/.eredis_history"
			if f, err := os.Open(historyFile); err == nil {
				line.ReadHistory(f)
				f.Close()
			}
		}
	}

	prompt := fmt.Sprintf("%s:%d> ", flagHost, flagPort)
	if flagSocket != "" {
		prompt = fmt.Sprintf("%s> ", flagSocket)
	}

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if strings.EqualFold(input, "quit") || strings.EqualFold(input, "exit") {
			break
		}

		fields := splitCommand(input)
		if len(fields) == 0 {
			continue
		}

		reply := make(chan eredis.Reply, 1)
		client.Request(resp.EncodeCommandStrings(fields...), reply)
		r := <-reply
		printReply(r)
	}

	if historyFile != "" {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

// splitCommand does minimal shell-like tokenizing: whitespace-separated
// fields, with single or double quotes grouping a field that contains
// spaces. It does not interpret backslash escapes.
func splitCommand(line string) []string {
	var fields []string
	var cur strings.Builder
	var quote byte
	inField := false

	flush := func() {
		if inField {
			fields = append(fields, cur.String())
			cur.Reset()
			inField = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inField = true
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
			inField = true
		}
	}
	flush()
	return fields
}

func printReply(r eredis.Reply) {
	if r.Err != nil {
		fmt.Printf("(error) %v\n", r.Err)
		return
	}
	printValue(r.Value, 0)
}

func printValue(v resp.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v.Type {
	case resp.Nil, resp.NilArray:
		fmt.Printf("%s(nil)\n", indent)
	case resp.Integer:
		fmt.Printf("%s(integer) %d\n", indent, v.Int)
	case resp.Array:
		if len(v.Array) == 0 {
			fmt.Printf("%s(empty array)\n", indent)
			return
		}
		for i, e := range v.Array {
			fmt.Printf("%s%d) ", indent, i+1)
			printValue(e, 0)
		}
	default:
		fmt.Printf("%s%q\n", indent, v.String())
	}
}
