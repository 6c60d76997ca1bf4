// internal/guess/message.go
//
// Player-facing text for a session: the opening guess, each follow-up guess
// and the final answer.

package guess

import "fmt"

// Message renders the line shown to the player for the session's state.
func Message(s *Session) string {
	switch {
	case s.State == StateConverged:
		return fmt.Sprintf("You are %d years of age!", s.Range.Guess)
	case s.Steps == 0:
		return fmt.Sprintf("I'm guessing you are %d years of age.  Am I correct?", s.Range.Guess)
	default:
		return fmt.Sprintf("How about %d years?", s.Range.Guess)
	}
}
