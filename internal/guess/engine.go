// internal/guess/engine.go
//
// Core engine for a single age-guessing session.
// Responsibilities:
//   - Open a session with a random first guess in [0, max].
//   - Narrow the candidate interval on "older"/"younger" feedback.
//   - Detect convergence and collapse the interval onto the answer.
//   - Report a pure Result (guess, state, message) after every call.
//
// Notes:
//   - The interval is (Lower, Upper]: Lower starts at -1 so 0 is a candidate.
//   - The midpoint rounds half up; see midpoint.
//   - Every feedback call strictly shrinks the interval, so a session
//     converges within ceil(log2(max+1)) + 1 answers whatever the player says.
package guess

import (
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"
)

// DefaultMax is the oldest age the game considers.
const DefaultMax = 125

var (
	ErrConverged  = errors.New("session converged")
	ErrInvalidMax = errors.New("max must be >= 0")
)

// Source supplies the random opening guess. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Start opens a new session over [0, maxValue].
// If src is nil the package-level math/rand/v2 generator is used.
func Start(maxValue int, src Source) (*Session, Result, error) {
	if maxValue < 0 {
		return nil, Result{}, ErrInvalidMax
	}
	if src == nil {
		src = globalSource{}
	}
	first := src.IntN(maxValue + 1)
	s := &Session{
		ID:         uuid.NewString(),
		Max:        maxValue,
		FirstGuess: first,
		Range:      Range{Lower: -1, Upper: maxValue, Guess: first},
		State:      StateSearching,
		Trail:      []Answer{},
	}
	return s, s.Result(), nil
}

// Older records that the player is older than the current guess.
func (s *Session) Older() (Result, error) {
	if s.State == StateConverged {
		return s.Result(), ErrConverged
	}
	s.Range.Lower = s.Range.Guess
	s.record(AnswerOlder)
	return s.Result(), nil
}

// Younger records that the player is younger than the current guess.
func (s *Session) Younger() (Result, error) {
	if s.State == StateConverged {
		return s.Result(), ErrConverged
	}
	if s.Range.Guess == s.Range.Upper {
		// Upper := Guess would leave the interval unchanged.
		s.Range.Upper = s.Range.Guess - 1
	} else {
		s.Range.Upper = s.Range.Guess
	}
	s.record(AnswerYounger)
	return s.Result(), nil
}

// Confirm records that the current guess is right and ends the session.
func (s *Session) Confirm() (Result, error) {
	if s.State == StateConverged {
		return s.Result(), ErrConverged
	}
	s.Trail = append(s.Trail, AnswerCorrect)
	s.converge(s.Range.Guess)
	return s.Result(), nil
}

// Apply dispatches an Answer to Older, Younger or Confirm.
func (s *Session) Apply(a Answer) (Result, error) {
	switch a {
	case AnswerOlder:
		return s.Older()
	case AnswerYounger:
		return s.Younger()
	case AnswerCorrect:
		return s.Confirm()
	}
	return s.Result(), errors.New("unknown answer " + string(a))
}

// Result reports the current state without changing it.
func (s *Session) Result() Result {
	return Result{
		Guess:   s.Range.Guess,
		State:   s.State,
		Steps:   s.Steps,
		Message: Message(s),
	}
}

// Done reports whether the session has converged.
func (s *Session) Done() bool { return s.State == StateConverged }

// record counts a feedback answer and either picks the next midpoint or,
// when at most one candidate remains, converges on it.
// Converging here, without first asking about the last candidate, is
// deliberate: it keeps every session within bits.Len(max)+1 answers
// whatever the opening guess.
func (s *Session) record(a Answer) {
	s.Steps++
	s.Trail = append(s.Trail, a)

	r := &s.Range
	if r.Upper-r.Lower > 1 {
		r.Guess = midpoint(r.Lower, r.Upper)
		return
	}
	// Upper is the last candidate; when the interval is empty it equals
	// Lower, which can only be the -1 sentinel below zero.
	s.converge(max(r.Upper, 0))
}

func (s *Session) converge(at int) {
	s.Range = Range{Lower: at, Upper: at, Guess: at}
	s.State = StateConverged
}

// midpoint returns round((upper-lower)/2) + lower, rounding halves up.
// upper > lower, so (upper-lower+1)/2 is the half-up rounding of the width.
func midpoint(lower, upper int) int {
	return (upper-lower+1)/2 + lower
}
