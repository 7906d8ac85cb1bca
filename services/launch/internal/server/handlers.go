package server

import (
	"net/http"

	"github.com/jackosaurus2014/spacehub-sub018/pkg/domain"
	"github.com/jackosaurus2014/spacehub-sub018/services/launch/internal/app"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.app.Dashboard(r.Context(), s.app.Now())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleEventStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.EventStatus(r.Context(), r.PathValue("id"), s.app.Now())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	since, err := queryTime(r, "since")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := s.app.TelemetrySeries(r.Context(), r.PathValue("id"), since, limit, s.app.Now())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

type controlRequest struct {
	Phase *string `json:"phase"`
	Live  *bool   `json:"live"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req controlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Phase == nil && req.Live == nil {
		writeError(w, http.StatusBadRequest, "phase or live is required")
		return
	}
	eventID := r.PathValue("id")
	res, err := s.app.SetEventControl(r.Context(), user, app.ControlInput{
		EventID: eventID,
		Phase:   req.Phase,
		Live:    req.Live,
	})
	if err != nil {
		s.audit(r, "operator_action", "failure", "action", "event_control", "user_id", user.ID, "event_id", eventID)
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "operator_action", "success",
		"action", "event_control",
		"user_id", user.ID,
		"event_id", eventID,
		"phase", res.Event.ManualPhase,
		"phase_changed", res.PhaseChanged,
		"live", res.Event.Live,
	)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	before, err := queryTime(r, "before")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msgs, err := s.app.ListChatMessages(r.Context(), r.PathValue("id"), before, limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type chatRequest struct {
	Body string `json:"body"`
}

func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := s.app.PostChatMessage(r.Context(), user, app.ChatInput{EventID: r.PathValue("id"), Body: req.Body})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleReactionSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.app.ReactionSummary(r.Context(), r.PathValue("id"), s.app.Now())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type reactionRequest struct {
	Kind    string `json:"kind"`
	PhaseID string `json:"phaseId"`
}

func (s *Server) handlePostReaction(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req reactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Kind == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}
	sum, err := s.app.PostReaction(r.Context(), user, app.ReactionInput{
		EventID: r.PathValue("id"),
		Kind:    domain.ReactionKind(req.Kind),
		PhaseID: req.PhaseID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := s.app.ListPolls(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"polls": polls})
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Active   *bool    `json:"active"`
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	eventID := r.PathValue("id")
	poll, err := s.app.CreatePoll(r.Context(), user, app.PollInput{
		EventID:  eventID,
		Question: req.Question,
		Options:  req.Options,
		Active:   req.Active,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "operator_action", "success", "action", "poll_create", "user_id", user.ID, "event_id", eventID, "poll_id", poll.ID)
	writeJSON(w, http.StatusCreated, poll)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := s.app.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

type pollStateRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) handleSetPollActive(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req pollStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}
	pollID := r.PathValue("id")
	poll, err := s.app.SetPollActive(r.Context(), user, pollID, *req.Active)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "operator_action", "success", "action", "poll_state", "user_id", user.ID, "poll_id", pollID, "active", poll.Active)
	writeJSON(w, http.StatusOK, poll)
}

type voteRequest struct {
	Option *int `json:"option"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Option == nil {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}
	poll, err := s.app.CastVote(r.Context(), user, r.PathValue("id"), app.VoteInput{Option: *req.Option})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}
