// internal/httpserver/routes_guess.go
//
// HTTP routes for the guessing game, mounted under /guess:
//   - POST   /guess/new            → open a session (optional {"max": n})
//   - GET    /guess/stats          → totals across all stored sessions
//   - GET    /guess/{id}           → current guess and message
//   - POST   /guess/{id}/older     → player is older than the guess
//   - POST   /guess/{id}/younger   → player is younger than the guess
//   - POST   /guess/{id}/correct   → guess confirmed
//   - DELETE /guess/{id}           → player closed the card
//
// Active sessions live in the memory store. Every start, answer and finish
// is mirrored to the history store on a best-effort basis: a failed write
// is logged and the game carries on.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessage/internal/guess"
	"github.com/robalobadob/guessage/internal/history"
	"github.com/robalobadob/guessage/internal/store"
)

// mountGuess registers all /guess routes.
func (s *Server) mountGuess(r chi.Router) {
	r.Route("/guess", func(r chi.Router) {
		r.Post("/new", s.handleNewSession)
		r.Get("/stats", s.handleStats)
		r.Get("/{id}", s.handleGetSession)
		r.Delete("/{id}", s.handleCloseSession)
		r.Post("/{id}/older", s.handleAnswer(guess.AnswerOlder))
		r.Post("/{id}/younger", s.handleAnswer(guess.AnswerYounger))
		r.Post("/{id}/correct", s.handleAnswer(guess.AnswerCorrect))
	})
}

// sessionView is the JSON shape returned for a session.
type sessionView struct {
	ID      string      `json:"id"`
	Guess   int         `json:"guess"`
	Lower   int         `json:"lower"`
	Upper   int         `json:"upper"`
	State   guess.State `json:"state"`
	Steps   int         `json:"steps"`
	Message string      `json:"message"`
}

func viewOf(sess *guess.Session) sessionView {
	res := sess.Result()
	return sessionView{
		ID:      sess.ID,
		Guess:   res.Guess,
		Lower:   sess.Range.Lower,
		Upper:   sess.Range.Upper,
		State:   res.State,
		Steps:   res.Steps,
		Message: res.Message,
	}
}

// newSessionReq is the optional body of POST /guess/new.
type newSessionReq struct {
	Max *int `json:"max"`
}

// handleNewSession opens a session and records its start.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	maxValue := s.opts.DefaultMax
	if req.Max != nil {
		maxValue = *req.Max
	}
	sess, _, err := guess.Start(maxValue, s.opts.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_max")
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	if err := s.hist.Begin(r.Context(), s.owner(w, r), sess, time.Now()); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("record session start")
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleGetSession reads a session without changing it.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleCloseSession drops a session from memory. Its history row stays.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnswer applies one answer to a stored session and mirrors the
// change into the history store.
func (s *Server) handleAnswer(a guess.Answer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := s.store.Update(r.Context(), id, func(sess *guess.Session) error {
			_, err := sess.Apply(a)
			return err
		})
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found")
			return
		case errors.Is(err, guess.ErrConverged):
			writeJSON(w, http.StatusConflict, map[string]any{"error": "converged", "session": viewOf(sess)})
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, "bad_answer")
			return
		}

		if sess.Done() {
			err = s.hist.Finish(r.Context(), sess, time.Now())
		} else {
			err = s.hist.Step(r.Context(), sess)
		}
		if err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Str("answer", string(a)).Msg("record answer")
		}
		writeJSON(w, http.StatusOK, viewOf(sess))
	}
}

// handleStats returns totals across every stored session.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.hist.Summary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("summary")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// owner resolves the signed-in user, falling back to the anonymous cookie.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) history.Owner {
	if me := userFrom(r); me != nil {
		return history.Owner{UserID: me.ID}
	}
	return history.Owner{AnonID: s.ensureAnonID(w, r)}
}
