package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
)

func TestStoreListsCandidatesByVotesWithStableTies(t *testing.T) {
	store := NewStore([]entities.Candidate{
		{Name: "A", VoterID: "a", VotesReceived: 1},
		{Name: "B", VoterID: "b", VotesReceived: 3},
		{Name: "C", VoterID: "c", VotesReceived: 1},
		{Name: "D", VoterID: "d", VotesReceived: 3},
	})

	items, err := store.ListCandidatesByVotesDesc(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []int64{2, 4, 1, 3}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, items[i].ID)
		}
	}
}

func TestStoreRejectsDuplicateVoterID(t *testing.T) {
	store := NewStore([]entities.Candidate{{Name: "A", VoterID: "a"}})
	ctx := context.Background()

	if _, err := store.CreateCandidate(ctx, entities.NewCandidate{Name: "Other", VoterID: "a"}, time.Now()); !errors.Is(err, domainerrors.ErrDuplicateVoterID) {
		t.Fatalf("expected duplicate voter id, got %v", err)
	}
	if _, err := store.CreateCandidates(ctx, []entities.NewCandidate{
		{Name: "B", VoterID: "b"},
		{Name: "A2", VoterID: "a"},
	}, time.Now()); !errors.Is(err, domainerrors.ErrDuplicateVoterID) {
		t.Fatalf("expected duplicate voter id in batch, got %v", err)
	}
	if _, found, _ := store.GetCandidateByVoterID(ctx, "b"); found {
		t.Fatalf("expected rejected batch to leave no rows")
	}
}

func TestStoreRecordVoteRejectsUnknownRecipient(t *testing.T) {
	store := NewStore([]entities.Candidate{{Name: "A", VoterID: "a"}})
	if _, err := store.RecordVote(context.Background(), 1, 42, time.Now()); !errors.Is(err, domainerrors.ErrUnknownCandidate) {
		t.Fatalf("expected unknown candidate, got %v", err)
	}
	stats, _ := store.ComputeVotingStats(context.Background())
	if stats.TotalVotes != 0 {
		t.Fatalf("expected no vote rows, got %d", stats.TotalVotes)
	}
}

func TestStoreBallotTxDiscardsWritesOnError(t *testing.T) {
	store := NewStore([]entities.Candidate{
		{Name: "A", VoterID: "a"},
		{Name: "B", VoterID: "b"},
	})
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinBallotTx(ctx, func(ctx context.Context, tx ports.BallotTx) error {
		if _, err := tx.RecordVote(ctx, 1, 2, time.Now()); err != nil {
			return err
		}
		if err := tx.MarkVoted(ctx, 1); err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-1", EventType: "ballot.submitted"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	b, _, _ := store.GetCandidate(ctx, 2)
	a, _, _ := store.GetCandidate(ctx, 1)
	if b.VotesReceived != 0 || a.HasVoted {
		t.Fatalf("expected rollback, got a=%+v b=%+v", a, b)
	}
	pending, _ := store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no outbox rows after rollback, got %d", len(pending))
	}
}

func TestStoreBallotTxDiscardsWritesOnCancelledContext(t *testing.T) {
	store := NewStore([]entities.Candidate{
		{Name: "A", VoterID: "a"},
		{Name: "B", VoterID: "b"},
	})
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithinBallotTx(ctx, func(ctx context.Context, tx ports.BallotTx) error {
		if _, err := tx.RecordVote(ctx, 1, 2, time.Now()); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	b, _, _ := store.GetCandidate(context.Background(), 2)
	if b.VotesReceived != 0 {
		t.Fatalf("expected cancelled transaction to be discarded, got %d votes", b.VotesReceived)
	}
}

func TestStoreMarkVotedIsConditional(t *testing.T) {
	store := NewStore([]entities.Candidate{{Name: "A", VoterID: "a", HasVoted: true}})

	err := store.WithinBallotTx(context.Background(), func(ctx context.Context, tx ports.BallotTx) error {
		return tx.MarkVoted(ctx, 1)
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestStoreOutboxLifecycle(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	err := store.WithinBallotTx(ctx, func(ctx context.Context, tx ports.BallotTx) error {
		for _, id := range []string{"evt-1", "evt-2", "evt-1"} {
			if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: id, EventType: "ballot.submitted", PartitionKey: "a"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 || pending[0].OutboxID != "evt-1" || pending[1].OutboxID != "evt-2" {
		t.Fatalf("unexpected pending rows %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-1", time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected only evt-2 pending, got %+v", pending)
	}
	if err := store.MarkOutboxPublished(ctx, "missing", time.Now()); !errors.Is(err, domainerrors.ErrStorageFailure) {
		t.Fatalf("expected storage failure for unknown row, got %v", err)
	}
}

func TestResultsCacheExpiry(t *testing.T) {
	cache := NewResultsCache()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, hit, _ := cache.GetResults(ctx, now); hit {
		t.Fatalf("expected miss on empty cache")
	}
	results := entities.Results{Stats: entities.VotingStats{TotalVotes: 9}}
	if stored, err := cache.SetResults(ctx, results, 0, now.Add(2*time.Second)); err != nil || !stored {
		t.Fatalf("set failed: stored=%v err=%v", stored, err)
	}
	got, hit, _ := cache.GetResults(ctx, now.Add(time.Second))
	if !hit || got.Stats.TotalVotes != 9 {
		t.Fatalf("expected hit with cached stats, got hit=%v %+v", hit, got.Stats)
	}
	if _, hit, _ := cache.GetResults(ctx, now.Add(2*time.Second)); hit {
		t.Fatalf("expected miss at expiry")
	}
	_ = cache.InvalidateResults(ctx)
	if _, hit, _ := cache.GetResults(ctx, now); hit {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestResultsCacheRejectsStaleGeneration(t *testing.T) {
	cache := NewResultsCache()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	generation, _ := cache.Generation(ctx)
	_ = cache.InvalidateResults(ctx)
	stored, err := cache.SetResults(ctx, entities.Results{}, generation, now.Add(time.Minute))
	if err != nil || stored {
		t.Fatalf("expected stale write to be dropped, got stored=%v err=%v", stored, err)
	}
	if _, hit, _ := cache.GetResults(ctx, now); hit {
		t.Fatalf("expected miss after dropped write")
	}
}

func TestStoreLeaderboardSnapshotAgreesWithTallies(t *testing.T) {
	store := NewStore([]entities.Candidate{
		{Name: "Alice", VoterID: "A"},
		{Name: "Bob", VoterID: "B"},
	})
	ctx := context.Background()
	if _, err := store.RecordVote(ctx, 1, 2, time.Now()); err != nil {
		t.Fatalf("record vote failed: %v", err)
	}

	leaderboard, stats, err := store.LeaderboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if leaderboard[0].VoterID != "B" || leaderboard[0].VotesReceived != 1 || stats.TotalVotes != 1 {
		t.Fatalf("unexpected snapshot %+v %+v", leaderboard, stats)
	}
}
