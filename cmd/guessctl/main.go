// Command guessctl plays the age-guessing game in a terminal.
//
//	guessctl play  [--max 125]
//	guessctl solve --target 37 [--max 125] [--seed 1]
package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/robalobadob/guessage/internal/guess"
	"github.com/robalobadob/guessage/internal/tui"
)

var (
	maxValue int
	target   int
	seed     uint64
)

var rootCmd = &cobra.Command{
	Use:           "guessctl",
	Short:         "Guess a player's age by binary search",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := tui.New(maxValue, nil)
		if err != nil {
			return err
		}
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Answer automatically for a known age and print each step",
	RunE: func(cmd *cobra.Command, args []string) error {
		var src guess.Source
		if cmd.Flags().Changed("seed") {
			src = rand.New(rand.NewPCG(seed, seed))
		}
		_, err := solve(cmd.OutOrStdout(), maxValue, target, src)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&maxValue, "max", guess.DefaultMax, "oldest age considered")
	solveCmd.Flags().IntVar(&target, "target", 0, "age the oracle answers for")
	solveCmd.Flags().Uint64Var(&seed, "seed", 0, "seed for the opening guess")
	_ = solveCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(playCmd, solveCmd)
}

// solve plays one session against a truthful oracle for target, writing
// every message to w, and returns the finished session.
func solve(w io.Writer, maxValue, target int, src guess.Source) (*guess.Session, error) {
	if target < 0 || target > maxValue {
		return nil, fmt.Errorf("target %d outside [0, %d]", target, maxValue)
	}
	s, res, err := guess.Start(maxValue, src)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w, res.Message)
	for !s.Done() {
		var a guess.Answer
		switch {
		case s.Range.Guess < target:
			a = guess.AnswerOlder
		case s.Range.Guess > target:
			a = guess.AnswerYounger
		default:
			a = guess.AnswerCorrect
		}
		res, err = s.Apply(a)
		if err != nil {
			return s, err
		}
		fmt.Fprintf(w, "> %s\n%s\n", a, res.Message)
	}
	if s.Range.Guess != target {
		return s, errors.New("oracle and engine disagree")
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
