package ports

import (
	"context"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"
	"voteboard/internal/shared/events"
	"voteboard/internal/shared/outbox"
)

type EventEnvelope = events.Envelope

type OutboxMessage = outbox.Message

// CandidateRepository is the non-transactional side of the record store.
// Every method is atomic on its own; cross-call consistency is only
// guaranteed through BallotUnitOfWork.
type CandidateRepository interface {
	GetCandidate(ctx context.Context, id int64) (entities.Candidate, bool, error)
	GetCandidateByVoterID(ctx context.Context, voterID string) (entities.Candidate, bool, error)
	// CreateCandidate returns domainerrors.ErrDuplicateVoterID when voterID is
	// already registered; the store is left unchanged.
	CreateCandidate(ctx context.Context, input entities.NewCandidate, createdAt time.Time) (entities.Candidate, error)
	// CreateCandidates inserts the whole batch or nothing.
	CreateCandidates(ctx context.Context, inputs []entities.NewCandidate, createdAt time.Time) ([]entities.Candidate, error)
	ListCandidates(ctx context.Context) ([]entities.Candidate, error)
	ListCandidatesByVotesDesc(ctx context.Context) ([]entities.Candidate, error)
	ComputeVotingStats(ctx context.Context) (entities.VotingStats, error)
	// LeaderboardSnapshot returns ListCandidatesByVotesDesc and
	// ComputeVotingStats as seen by one consistent read.
	LeaderboardSnapshot(ctx context.Context) ([]entities.Candidate, entities.VotingStats, error)
	ListVotesByVoter(ctx context.Context, voterID int64) ([]entities.Vote, error)
	SetHasVoted(ctx context.Context, candidateID int64) error
	RecordVote(ctx context.Context, voterID int64, votedForID int64, createdAt time.Time) (entities.Vote, error)
}

// BallotTx is the store surface visible inside a ballot transaction. Nothing
// written through it is observable until the enclosing WithinBallotTx returns
// nil.
type BallotTx interface {
	// FindVoter resolves a login identifier to its candidate without locking.
	FindVoter(ctx context.Context, voterID string) (entities.Candidate, bool, error)
	// LockCandidates holds every listed candidate exclusively until the
	// transaction ends. Rows are locked in ascending id order whatever the
	// order of ids. Unknown ids are absent from the returned map.
	LockCandidates(ctx context.Context, ids []int64) (map[int64]entities.Candidate, error)
	RecordVote(ctx context.Context, voterID int64, votedForID int64, createdAt time.Time) (entities.Vote, error)
	// MarkVoted flips has_voted from false to true and returns
	// domainerrors.ErrAlreadyVoted when the flag was already set.
	MarkVoted(ctx context.Context, candidateID int64) error
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type BallotUnitOfWork interface {
	WithinBallotTx(ctx context.Context, fn func(ctx context.Context, tx BallotTx) error) error
}

// ResultsCache holds the most recent leaderboard view. Misses and expired
// entries both report found=false.
//
// Every InvalidateResults bumps a generation counter. A reader takes the
// generation before reading the store and hands it back to SetResults, which
// drops the write when an invalidation happened in between.
type ResultsCache interface {
	GetResults(ctx context.Context, now time.Time) (entities.Results, bool, error)
	Generation(ctx context.Context) (uint64, error)
	SetResults(ctx context.Context, results entities.Results, generation uint64, expiresAt time.Time) (bool, error)
	InvalidateResults(ctx context.Context) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
