// internal/guess/types.go
//
// Core type definitions for the age-guessing engine.
// Defines:
//   - State: searching or converged.
//   - Answer: one piece of player feedback (older/younger/correct).
//   - Range: the candidate interval and current midpoint guess.
//   - Session: caller-owned state for a single guessing session.
//   - Result: the pure value handed back to whatever renders the game.

package guess

// State is the coarse lifecycle state of a session.
type State string

const (
	StateSearching State = "searching"
	StateConverged State = "converged"
)

// Answer is the feedback a player gives about the current guess.
type Answer string

const (
	AnswerOlder   Answer = "older"
	AnswerYounger Answer = "younger"
	AnswerCorrect Answer = "correct"
)

// Range is the remaining candidate interval (Lower, Upper] and the guess
// currently shown to the player.
//
// While searching, Lower < Guess <= Upper. Once converged, Lower == Upper == Guess.
type Range struct {
	Lower int `json:"lower"` // exclusive
	Upper int `json:"upper"` // inclusive
	Guess int `json:"guess"`
}

// Session holds the state of one guessing session.
// It is owned by a single caller; nothing in this package shares it.
type Session struct {
	ID         string   // Unique session identifier.
	Max        int      // Upper bound the session started with.
	FirstGuess int      // Random opening guess.
	Range      Range    // Current interval and guess.
	State      State    // searching | converged
	Steps      int      // Feedback calls applied so far.
	Trail      []Answer // Answers in the order they were given.
}

// Result is what a caller renders after each operation.
type Result struct {
	Guess   int    `json:"guess"`
	State   State  `json:"state"`
	Steps   int    `json:"steps"`
	Message string `json:"message"`
}
