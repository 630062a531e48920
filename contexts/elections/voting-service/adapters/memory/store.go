package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
	"voteboard/internal/shared/outbox"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq     int64
	message ports.OutboxMessage
}

// state is everything a ballot transaction may touch. WithinBallotTx works on
// a copy and swaps it in on success.
type state struct {
	candidates      map[int64]entities.Candidate
	byVoterID       map[string]int64
	votes           []entities.Vote
	outbox          map[string]outboxRecord
	nextCandidateID int64
	nextVoteID      int64
	nextOutboxSeq   int64
}

func (st state) clone() state {
	out := state{
		candidates:      make(map[int64]entities.Candidate, len(st.candidates)),
		byVoterID:       make(map[string]int64, len(st.byVoterID)),
		votes:           append([]entities.Vote(nil), st.votes...),
		outbox:          make(map[string]outboxRecord, len(st.outbox)),
		nextCandidateID: st.nextCandidateID,
		nextVoteID:      st.nextVoteID,
		nextOutboxSeq:   st.nextOutboxSeq,
	}
	for id, candidate := range st.candidates {
		out.candidates[id] = candidate
	}
	for voterID, id := range st.byVoterID {
		out.byVoterID[voterID] = id
	}
	for id, record := range st.outbox {
		out.outbox[id] = record
	}
	return out
}

// Store is the in-memory record store. A single mutex serializes writers, so
// tally increments and ballot transactions never interleave.
type Store struct {
	*ResultsCache

	mu sync.RWMutex

	state state

	recordVoteFailAfter int
	recordVoteFailErr   error
}

func NewStore(seed []entities.Candidate) *Store {
	s := &Store{ResultsCache: NewResultsCache()}
	s.state = state{
		candidates: make(map[int64]entities.Candidate, len(seed)),
		byVoterID:  make(map[string]int64, len(seed)),
		outbox:     make(map[string]outboxRecord),
	}
	for _, candidate := range seed {
		s.SetCandidate(candidate)
	}
	return s
}

// SetCandidate seeds a candidate as-is. ID 0 is replaced with the next id.
func (s *Store) SetCandidate(candidate entities.Candidate) entities.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if candidate.ID == 0 {
		s.state.nextCandidateID++
		candidate.ID = s.state.nextCandidateID
	} else if candidate.ID > s.state.nextCandidateID {
		s.state.nextCandidateID = candidate.ID
	}
	candidate.VoterID = strings.TrimSpace(candidate.VoterID)
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now().UTC()
	}
	s.state.candidates[candidate.ID] = candidate
	s.state.byVoterID[candidate.VoterID] = candidate.ID
	return candidate
}

// FailRecordVoteAfter makes the RecordVote call that follows n successful
// ones return err. The fault fires once.
func (s *Store) FailRecordVoteAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordVoteFailAfter = n
	s.recordVoteFailErr = err
}

func (s *Store) GetCandidate(_ context.Context, id int64) (entities.Candidate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidate, ok := s.state.candidates[id]
	return candidate, ok, nil
}

func (s *Store) GetCandidateByVoterID(_ context.Context, voterID string) (entities.Candidate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.lookupVoter(voterID)
}

func (s *Store) CreateCandidate(
	_ context.Context,
	input entities.NewCandidate,
	createdAt time.Time,
) (entities.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created, err := s.insertCandidates([]entities.NewCandidate{input}, createdAt)
	if err != nil {
		return entities.Candidate{}, err
	}
	return created[0], nil
}

func (s *Store) CreateCandidates(
	_ context.Context,
	inputs []entities.NewCandidate,
	createdAt time.Time,
) ([]entities.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCandidates(inputs, createdAt)
}

// insertCandidates validates the whole batch before writing anything.
func (s *Store) insertCandidates(inputs []entities.NewCandidate, createdAt time.Time) ([]entities.Candidate, error) {
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		voterID := strings.TrimSpace(input.VoterID)
		if _, exists := s.state.byVoterID[voterID]; exists {
			return nil, domainerrors.ErrDuplicateVoterID
		}
		if _, dup := seen[voterID]; dup {
			return nil, domainerrors.ErrDuplicateVoterID
		}
		seen[voterID] = struct{}{}
	}
	created := make([]entities.Candidate, 0, len(inputs))
	for _, input := range inputs {
		s.state.nextCandidateID++
		candidate := entities.Candidate{
			ID:        s.state.nextCandidateID,
			Name:      strings.TrimSpace(input.Name),
			VoterID:   strings.TrimSpace(input.VoterID),
			CreatedAt: createdAt.UTC(),
		}
		s.state.candidates[candidate.ID] = candidate
		s.state.byVoterID[candidate.VoterID] = candidate.ID
		created = append(created, candidate)
	}
	return created, nil
}

func (s *Store) ListCandidates(_ context.Context) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.sortedCandidates(), nil
}

func (s *Store) ListCandidatesByVotesDesc(_ context.Context) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.leaderboard(), nil
}

func (s *Store) ComputeVotingStats(_ context.Context) (entities.VotingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.stats(), nil
}

func (s *Store) LeaderboardSnapshot(_ context.Context) ([]entities.Candidate, entities.VotingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.leaderboard(), s.state.stats(), nil
}

func (s *Store) ListVotesByVoter(_ context.Context, voterID int64) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0, entities.BallotSize)
	for _, vote := range s.state.votes {
		if vote.VoterID == voterID {
			items = append(items, vote)
		}
	}
	return items, nil
}

func (s *Store) SetHasVoted(_ context.Context, candidateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate, ok := s.state.candidates[candidateID]
	if !ok {
		return domainerrors.ErrUnknownCandidate
	}
	candidate.HasVoted = true
	s.state.candidates[candidateID] = candidate
	return nil
}

func (s *Store) RecordVote(
	_ context.Context,
	voterID int64,
	votedForID int64,
	createdAt time.Time,
) (entities.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordVote(&s.state, voterID, votedForID, createdAt)
}

// recordVote must be called with mu held.
func (s *Store) recordVote(st *state, voterID int64, votedForID int64, createdAt time.Time) (entities.Vote, error) {
	if s.recordVoteFailErr != nil {
		if s.recordVoteFailAfter <= 0 {
			err := s.recordVoteFailErr
			s.recordVoteFailErr = nil
			return entities.Vote{}, err
		}
		s.recordVoteFailAfter--
	}
	recipient, ok := st.candidates[votedForID]
	if !ok {
		return entities.Vote{}, domainerrors.ErrUnknownCandidate
	}
	st.nextVoteID++
	vote := entities.Vote{
		ID:         st.nextVoteID,
		VoterID:    voterID,
		VotedForID: votedForID,
		CreatedAt:  createdAt.UTC(),
	}
	st.votes = append(st.votes, vote)
	recipient.VotesReceived++
	st.candidates[votedForID] = recipient
	return vote, nil
}

// WithinBallotTx runs fn against a private copy of the store while holding
// the write lock, then publishes the copy only if fn succeeds and ctx is
// still live.
func (s *Store) WithinBallotTx(ctx context.Context, fn func(ctx context.Context, tx ports.BallotTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, &ballotTx{store: s, state: &working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

type ballotTx struct {
	store *Store
	state *state
}

func (tx *ballotTx) FindVoter(_ context.Context, voterID string) (entities.Candidate, bool, error) {
	return tx.state.lookupVoter(voterID)
}

// LockCandidates reads from the transaction's copy. The store's write lock
// is already held for the whole transaction.
func (tx *ballotTx) LockCandidates(_ context.Context, ids []int64) (map[int64]entities.Candidate, error) {
	locked := make(map[int64]entities.Candidate, len(ids))
	for _, id := range ids {
		if candidate, ok := tx.state.candidates[id]; ok {
			locked[id] = candidate
		}
	}
	return locked, nil
}

func (tx *ballotTx) RecordVote(
	_ context.Context,
	voterID int64,
	votedForID int64,
	createdAt time.Time,
) (entities.Vote, error) {
	return tx.store.recordVote(tx.state, voterID, votedForID, createdAt)
}

func (tx *ballotTx) MarkVoted(_ context.Context, candidateID int64) error {
	candidate, ok := tx.state.candidates[candidateID]
	if !ok {
		return domainerrors.ErrUnknownVoter
	}
	if candidate.HasVoted {
		return domainerrors.ErrAlreadyVoted
	}
	candidate.HasVoted = true
	tx.state.candidates[candidateID] = candidate
	return nil
}

func (tx *ballotTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := tx.state.outbox[outboxID]; exists {
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tx.state.nextOutboxSeq++
	tx.state.outbox[outboxID] = outboxRecord{
		seq: tx.state.nextOutboxSeq,
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			Status:       outbox.StatusPending,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.state.outbox))
	for _, row := range s.state.outbox {
		if row.message.Status == outbox.StatusPending {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrStorageFailure
	}
	row.message.Status = outbox.StatusPublished
	s.state.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (st state) lookupVoter(voterID string) (entities.Candidate, bool, error) {
	id, ok := st.byVoterID[strings.TrimSpace(voterID)]
	if !ok {
		return entities.Candidate{}, false, nil
	}
	return st.candidates[id], true, nil
}

func (st state) leaderboard() []entities.Candidate {
	items := st.sortedCandidates()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].VotesReceived > items[j].VotesReceived
	})
	return items
}

func (st state) stats() entities.VotingStats {
	participated := 0
	for _, candidate := range st.candidates {
		if candidate.HasVoted {
			participated++
		}
	}
	return entities.NewVotingStats(len(st.candidates), participated, len(st.votes))
}

func (st state) sortedCandidates() []entities.Candidate {
	items := make([]entities.Candidate, 0, len(st.candidates))
	for _, candidate := range st.candidates {
		items = append(items, candidate)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
