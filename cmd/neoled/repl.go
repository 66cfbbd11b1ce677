package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/nipudarsh/NeoLED-Simulator/sim"
)

var replCmd = &cobra.Command{
	Use:   "repl [sketch]",
	Short: "Interactive simulator session",
	Long: `Control the simulator interactively.

Commands:
  load <file>   Load a sketch from disk
  run [file]    Run the loaded sketch
  pause         Pause execution
  resume        Resume a paused run
  stop          Stop the run and reset the pins
  pins          Show the pin bank (~ marks PWM-capable pins)
  log [n]       Show the last n log entries (default 10)
  state         Show the execution state
  exit          Leave the repl`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) {
	session, err := newSession(cmd, sim.WithLog(printEntry))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var source string
	if len(args) == 1 {
		if source, err = loadSketch(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "neoled> ",
		HistoryLimit:    500,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "neoled repl (type 'exit' to quit, Ctrl+D to exit)")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			break
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		switch words[0] {
		case "exit", "quit":
			session.Stop()
			return
		case "load":
			if len(words) != 2 {
				fmt.Println("usage: load <file>")
				continue
			}
			if source, err = loadSketch(words[1]); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "run":
			if len(words) == 2 {
				if source, err = loadSketch(words[1]); err != nil {
					fmt.Printf("Error: %v\n", err)
					continue
				}
			}
			if source == "" {
				fmt.Println("no sketch loaded (use: load <file>)")
				continue
			}
			session.Go(source)
		case "pause":
			session.Pause()
		case "resume":
			session.Resume()
		case "stop":
			session.Stop()
		case "state":
			fmt.Println(session.State())
		case "pins":
			printPins(session)
		case "log":
			n := 10
			if len(words) == 2 {
				if n, err = strconv.Atoi(words[1]); err != nil {
					fmt.Println("usage: log [n]")
					continue
				}
			}
			entries := session.Log()
			if len(entries) > n {
				entries = entries[len(entries)-n:]
			}
			for _, entry := range entries {
				printEntry(entry)
			}
		case "help":
			fmt.Println(cmd.Long)
		default:
			fmt.Printf("unknown command %q (try 'help')\n", words[0])
		}
	}

	session.Stop()
}

func loadSketch(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func printPins(session *sim.Session) {
	for label, p := range session.Bank().Pins() {
		marker := " "
		if session.Bank().PwmCapable(label) {
			marker = "~"
		}
		fmt.Printf("%s%-3s %-12s digital=%d pwm=%3d\n", marker, label, p.Mode, p.DigitalValue, p.PwmValue)
	}
}
