package httpserver

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	votinghttp "voteboard/contexts/elections/voting-service/transport/http"
)

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrMalformedBallot):
		writeVotingError(w, http.StatusBadRequest, "malformed_ballot", err.Error())
	case errors.Is(err, domainerrors.ErrSelfVote):
		writeVotingError(w, http.StatusBadRequest, "self_vote", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		writeVotingError(w, http.StatusBadRequest, "already_voted", err.Error())
	case errors.Is(err, domainerrors.ErrUnknownCandidate):
		writeVotingError(w, http.StatusBadRequest, "unknown_candidate", err.Error())
	case errors.Is(err, domainerrors.ErrUnknownVoter):
		writeVotingError(w, http.StatusUnauthorized, "unknown_voter", err.Error())
	case errors.Is(err, domainerrors.ErrDuplicateVoterID):
		writeVotingError(w, http.StatusBadRequest, "duplicate_voter_id", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidCandidateInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_candidate", err.Error())
	case errors.Is(err, domainerrors.ErrVoterIDRequired):
		writeVotingError(w, http.StatusBadRequest, "voter_id_required", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// requireVotingAdmin checks the bearer token on admin routes. It passes every
// request when no token is configured.
func (s *Server) requireVotingAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminToken == "" {
		return true
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		writeVotingError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	token := strings.TrimSpace(parts[1])
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		writeVotingError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
		return false
	}
	return true
}

func decodeVotingJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

// handleLogin godoc
// @Summary Log in as a voter
// @Tags voting
// @Accept json
// @Produce json
// @Param request body votinghttp.LoginRequest true "Voter id"
// @Success 200 {object} votinghttp.LoginResponse
// @Failure 400 {object} votinghttp.ErrorResponse
// @Failure 401 {object} votinghttp.ErrorResponse
// @Router /api/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.LoginRequest
	if !decodeVotingJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.LoginHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListCandidates godoc
// @Summary List candidates in registration order
// @Tags voting
// @Produce json
// @Success 200 {array} votinghttp.CandidateResponse
// @Router /api/candidates [get]
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListCandidatesHandler(r.Context())
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateCandidate godoc
// @Summary Register a candidate
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body votinghttp.CreateCandidateRequest true "Candidate"
// @Success 201 {object} votinghttp.CandidateResponse
// @Failure 400 {object} votinghttp.ErrorResponse
// @Failure 401 {object} votinghttp.ErrorResponse
// @Router /api/candidates [post]
func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	if !s.requireVotingAdmin(w, r) {
		return
	}
	var req votinghttp.CreateCandidateRequest
	if !decodeVotingJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.CreateCandidateHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleBulkCreateCandidates godoc
// @Summary Register a batch of candidates atomically
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body votinghttp.BulkCreateCandidatesRequest true "Candidates"
// @Success 201 {object} votinghttp.BulkCreateCandidatesResponse
// @Failure 400 {object} votinghttp.ErrorResponse
// @Failure 401 {object} votinghttp.ErrorResponse
// @Router /api/candidates/bulk [post]
func (s *Server) handleBulkCreateCandidates(w http.ResponseWriter, r *http.Request) {
	if !s.requireVotingAdmin(w, r) {
		return
	}
	var req votinghttp.BulkCreateCandidatesRequest
	if !decodeVotingJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.BulkCreateCandidatesHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleSubmitVotes godoc
// @Summary Submit a ballot of exactly three candidates
// @Tags voting
// @Accept json
// @Produce json
// @Param request body votinghttp.SubmitVotesRequest true "Ballot"
// @Success 200 {object} votinghttp.SubmitVotesResponse
// @Failure 400 {object} votinghttp.ErrorResponse
// @Failure 401 {object} votinghttp.ErrorResponse
// @Failure 500 {object} votinghttp.ErrorResponse
// @Router /api/votes [post]
func (s *Server) handleSubmitVotes(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.SubmitVotesRequest
	if !decodeVotingJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.SubmitVotesHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResults godoc
// @Summary Leaderboard with vote shares and participation stats
// @Tags results
// @Produce json
// @Success 200 {object} votinghttp.ResultsResponse
// @Router /api/results [get]
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ResultsHandler(r.Context())
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExportResults godoc
// @Summary Leaderboard as CSV
// @Tags results
// @Produce text/csv
// @Success 200 {string} string
// @Router /api/results/export [get]
func (s *Server) handleExportResults(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.voting.Handler.ExportResultsHandler(r.Context(), &buf); err != nil {
		writeVotingDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleStatus godoc
// @Summary Who has voted and who is pending
// @Tags results
// @Produce json
// @Success 200 {object} votinghttp.StatusResponse
// @Router /api/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.StatusHandler(r.Context())
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBallotReceipt godoc
// @Summary Votes cast by a voter
// @Tags voting
// @Produce json
// @Param voter_id path string true "Voter id"
// @Success 200 {object} votinghttp.BallotReceiptResponse
// @Failure 401 {object} votinghttp.ErrorResponse
// @Router /api/voters/{voter_id}/votes [get]
func (s *Server) handleBallotReceipt(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.BallotReceiptHandler(r.Context(), r.PathValue("voter_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
