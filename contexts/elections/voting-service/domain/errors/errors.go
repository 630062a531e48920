package errors

import "errors"

// Ballot and registration rejections. Messages are shown to voters as-is, so
// keep them stable.
var (
	ErrMalformedBallot       = errors.New("must select exactly 3 different candidates")
	ErrUnknownVoter          = errors.New("invalid voter")
	ErrAlreadyVoted          = errors.New("you have already voted")
	ErrUnknownCandidate      = errors.New("invalid candidate selected")
	ErrSelfVote              = errors.New("cannot vote for yourself")
	ErrDuplicateVoterID      = errors.New("voter id already exists")
	ErrInvalidCandidateInput = errors.New("candidate name and voter id are required")
	ErrVoterIDRequired       = errors.New("voter id is required")
	ErrStorageFailure        = errors.New("storage failure")
)

// IsRejection reports whether err is one of the domain rejections above,
// as opposed to an infrastructure fault.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedBallot),
		errors.Is(err, ErrUnknownVoter),
		errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrUnknownCandidate),
		errors.Is(err, ErrSelfVote),
		errors.Is(err, ErrDuplicateVoterID),
		errors.Is(err, ErrInvalidCandidateInput),
		errors.Is(err, ErrVoterIDRequired):
		return true
	default:
		return false
	}
}
