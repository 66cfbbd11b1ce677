package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/nipudarsh/NeoLED-Simulator/sim"
)

var runCmd = &cobra.Command{
	Use:   "run [sketch]",
	Short: "Run a sketch until stopped",
	Long: `Execute a sketch against the simulated board.

The sketch can be provided via:
  - File argument: neoled run blink.ino
  - Stdin: neoled run < blink.ino`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("duration", 0, "Stop after this long (0 = run until interrupted)")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress pin change output")
}

func runRun(cmd *cobra.Command, args []string) {
	source, err := readSource(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if source == "" {
		cmd.Help()
		return
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	duration, _ := cmd.Flags().GetDuration("duration")

	opts := []sim.Option{sim.WithLog(printEntry)}
	if !quiet {
		opts = append(opts, sim.WithPinChange(printPinChange))
	}
	session, err := newSession(cmd, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	done := session.Go(source)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	var timeout <-chan time.Time
	if duration > 0 {
		timeout = time.After(duration)
	}

	select {
	case err := <-done:
		if err != nil {
			os.Exit(1)
		}
	case <-interrupt:
		session.Stop()
		<-done
	case <-timeout:
		session.Stop()
		<-done
	}
}

func readSource(args []string) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		return string(data), err
	}

	// Check if stdin has data (not a terminal)
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	return string(data), err
}
