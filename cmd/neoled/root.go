package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nipudarsh/NeoLED-Simulator/pin"
	"github.com/nipudarsh/NeoLED-Simulator/sim"
)

var rootCmd = &cobra.Command{
	Use:   "neoled [sketch]",
	Short: "Arduino sketch simulator with a virtual pin bank",
	Long: `neoled - Run Arduino-flavored sketches against a simulated board.

Sketches are rewritten into a cooperatively scheduled program; pin writes
and serial output stream to the console as they happen. Use the repl
command for interactive pause/resume/stop control.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun, // Default to run command behavior
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("board", "", "Board profile TOML (default: built-in Uno)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Fix the random() seed")

	addRunFlags(rootCmd)
}

// newSession builds a simulator session from the shared flags.
func newSession(cmd *cobra.Command, extra ...sim.Option) (*sim.Session, error) {
	board, _ := cmd.Flags().GetString("board")
	seed, _ := cmd.Flags().GetInt64("seed")

	var opts []sim.Option
	if board != "" {
		profile, err := pin.LoadProfile(board)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sim.WithProfile(profile))
	}
	if seed != 0 {
		opts = append(opts, sim.WithSeed(seed))
	}
	return sim.NewSession(append(opts, extra...)...), nil
}

func printEntry(entry sim.Entry) {
	fmt.Printf("%s [%s] %s\n", entry.Time.Format("15:04:05.000"), entry.Kind, entry.Message)
}

func printPinChange(label string, digital, pwm int) {
	fmt.Printf("pin %-3s digital=%d pwm=%d\n", label, digital, pwm)
}
