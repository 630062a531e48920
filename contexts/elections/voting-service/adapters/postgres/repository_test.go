package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"voteboard/contexts/elections/voting-service/application/commands"
	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRepository opens a private in-memory SQLite database. The schema
// and query shapes are the same ones used against PostgreSQL.
func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("resolve sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewRepository(db, nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return repo, db
}

func seedCandidates(t *testing.T, repo *Repository, voterIDs ...string) []entities.Candidate {
	t.Helper()
	inputs := make([]entities.NewCandidate, 0, len(voterIDs))
	for _, voterID := range voterIDs {
		inputs = append(inputs, entities.NewCandidate{Name: "Candidate " + voterID, VoterID: voterID})
	}
	created, err := repo.CreateCandidates(context.Background(), inputs, time.Now())
	if err != nil {
		t.Fatalf("seed candidates failed: %v", err)
	}
	return created
}

func ballotUseCase(repo *Repository) commands.BallotUseCase {
	return commands.BallotUseCase{
		Ballots: repo,
		Clock:   SystemClock{},
		IDGen:   UUIDGenerator{},
	}
}

func TestRepositoryCreateCandidateRejectsDuplicateVoterID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.CreateCandidate(ctx, entities.NewCandidate{Name: "Alice", VoterID: "A"}, time.Now()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, err := repo.CreateCandidate(ctx, entities.NewCandidate{Name: "Other", VoterID: "A"}, time.Now())
	if !errors.Is(err, domainerrors.ErrDuplicateVoterID) {
		t.Fatalf("expected duplicate voter id, got %v", err)
	}
}

func TestRepositoryCreateCandidatesRollsBackWholeBatch(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	seedCandidates(t, repo, "A")

	_, err := repo.CreateCandidates(ctx, []entities.NewCandidate{
		{Name: "Bob", VoterID: "B"},
		{Name: "Alice again", VoterID: "A"},
	}, time.Now())
	if !errors.Is(err, domainerrors.ErrDuplicateVoterID) {
		t.Fatalf("expected duplicate voter id, got %v", err)
	}
	if _, found, _ := repo.GetCandidateByVoterID(ctx, "B"); found {
		t.Fatalf("expected batch to be rolled back")
	}
}

func TestRepositoryLeaderboardOrdering(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A", "B", "C", "D")

	// B and D tie on two votes, A has one.
	for _, target := range []int{1, 1, 3, 3, 0} {
		if _, err := repo.RecordVote(ctx, created[2].ID, created[target].ID, time.Now()); err != nil {
			t.Fatalf("record vote failed: %v", err)
		}
	}

	items, err := repo.ListCandidatesByVotesDesc(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var order []string
	for _, item := range items {
		order = append(order, item.VoterID)
	}
	if strings.Join(order, ",") != "B,D,A,C" {
		t.Fatalf("unexpected order %v", order)
	}

	all, err := repo.ListCandidates(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if all[0].VoterID != "A" || all[3].VoterID != "D" {
		t.Fatalf("expected registration order, got %+v", all)
	}
}

func TestRepositoryRecordVoteRejectsUnknownRecipient(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A")

	_, err := repo.RecordVote(ctx, created[0].ID, 999, time.Now())
	if !errors.Is(err, domainerrors.ErrUnknownCandidate) {
		t.Fatalf("expected unknown candidate, got %v", err)
	}
	stats, _ := repo.ComputeVotingStats(ctx)
	if stats.TotalVotes != 0 {
		t.Fatalf("expected no vote rows, got %d", stats.TotalVotes)
	}
}

func TestRepositoryBallotLifecycle(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A", "B", "C", "D")
	uc := ballotUseCase(repo)

	result, err := uc.SubmitBallot(ctx, commands.SubmitBallotCommand{
		VoterID:              "A",
		SelectedCandidateIDs: []int64{created[1].ID, created[2].ID, created[3].ID},
	})
	if err != nil {
		t.Fatalf("submit ballot failed: %v", err)
	}
	if len(result.Votes) != 3 {
		t.Fatalf("expected 3 votes, got %d", len(result.Votes))
	}

	stats, err := repo.ComputeVotingStats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	want := entities.VotingStats{TotalVotes: 3, VotersParticipated: 1, RemainingVoters: 3, ParticipationRate: 25}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	votes, err := repo.ListVotesByVoter(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(votes) != 3 || votes[0].VotedForID != created[1].ID {
		t.Fatalf("unexpected receipt %+v", votes)
	}

	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != commands.EventBallotSubmitted || pending[0].PartitionKey != "A" {
		t.Fatalf("unexpected outbox rows %+v", pending)
	}
	if err := repo.MarkOutboxPublished(ctx, pending[0].OutboxID, time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, _ = repo.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d", len(pending))
	}
	if err := repo.MarkOutboxPublished(ctx, "missing", time.Now()); !errors.Is(err, domainerrors.ErrStorageFailure) {
		t.Fatalf("expected storage failure for unknown row, got %v", err)
	}

	_, err = uc.SubmitBallot(ctx, commands.SubmitBallotCommand{
		VoterID:              "A",
		SelectedCandidateIDs: []int64{created[1].ID, created[2].ID, created[3].ID},
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestRepositoryBallotRollsBackOnFailedInsert(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A", "B", "C", "D")

	var mu sync.Mutex
	voteInserts := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_third_vote", func(tx *gorm.DB) {
		if tx.Statement.Table != "votes" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		voteInserts++
		if voteInserts == 3 {
			_ = tx.AddError(errors.New("injected insert failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	_, err = ballotUseCase(repo).SubmitBallot(ctx, commands.SubmitBallotCommand{
		VoterID:              "A",
		SelectedCandidateIDs: []int64{created[1].ID, created[2].ID, created[3].ID},
	})
	if !errors.Is(err, domainerrors.ErrStorageFailure) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	candidates, _ := repo.ListCandidates(ctx)
	for _, candidate := range candidates {
		if candidate.HasVoted || candidate.VotesReceived != 0 {
			t.Fatalf("expected rollback, got %+v", candidate)
		}
	}
	stats, _ := repo.ComputeVotingStats(ctx)
	if stats.TotalVotes != 0 {
		t.Fatalf("expected no vote rows after rollback, got %d", stats.TotalVotes)
	}
	pending, _ := repo.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no outbox rows after rollback, got %d", len(pending))
	}
}

func TestRepositoryConcurrentBallotsForSameVoter(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A", "B", "C", "D")
	uc := ballotUseCase(repo)
	selection := []int64{created[1].ID, created[2].ID, created[3].ID}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.SubmitBallot(ctx, commands.SubmitBallotCommand{VoterID: "A", SelectedCandidateIDs: selection})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domainerrors.ErrAlreadyVoted):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted ballot, got %d", accepted)
	}
	for _, candidate := range created[1:] {
		got, _, _ := repo.GetCandidate(ctx, candidate.ID)
		if got.VotesReceived != 1 {
			t.Fatalf("expected one vote for %s, got %d", got.VoterID, got.VotesReceived)
		}
	}
}

func TestRepositoryAppendOutboxIsIdempotent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	err := repo.WithinBallotTx(ctx, func(ctx context.Context, tx ports.BallotTx) error {
		for i := 0; i < 2; i++ {
			if err := tx.AppendOutbox(ctx, ports.EventEnvelope{
				EventID:      "evt-1",
				EventType:    commands.EventBallotSubmitted,
				OccurredAt:   time.Now(),
				PartitionKey: "A",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	pending, _ := repo.ListPendingOutbox(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(pending))
	}
}

func TestLockOrderSortsAndDeduplicates(t *testing.T) {
	cases := map[string][]int64{
		"[1 2 3 4]": {2, 4, 1, 3},
		"[3 5 9]":   {9, 3, 5, 3},
		"[7]":       {7},
		"[]":        nil,
	}
	for want, ids := range cases {
		if got := fmt.Sprint(lockOrder(ids)); got != want {
			t.Fatalf("lockOrder(%v) = %s, want %s", ids, got, want)
		}
	}
}

func TestLockCandidatesQueryLocksInIDOrder(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=voteboard dbname=voteboard sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run postgres failed: %v", err)
	}

	var rows []candidateModel
	stmt := lockCandidatesQuery(db, lockOrder([]int64{4, 1, 3, 2})).Find(&rows).Statement
	query := stmt.SQL.String()
	for _, fragment := range []string{"ORDER BY id ASC", "FOR UPDATE"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in lock query, got %s", fragment, query)
		}
	}
	if strings.Index(query, "ORDER BY") > strings.Index(query, "FOR UPDATE") {
		t.Fatalf("expected rows to be locked in sorted order, got %s", query)
	}
	if got := fmt.Sprint(stmt.Vars); got != "[1 2 3 4]" {
		t.Fatalf("expected ascending ids as bind vars, got %s", got)
	}
}

func TestRepositoryCrossVotingBallotsAllSucceed(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A", "B", "C", "D")
	uc := ballotUseCase(repo)

	// Each voter picks the other three in a different order, so every pair of
	// ballots locks overlapping rows.
	ballots := map[string][]int64{
		"A": {created[1].ID, created[2].ID, created[3].ID},
		"B": {created[3].ID, created[0].ID, created[2].ID},
		"C": {created[1].ID, created[3].ID, created[0].ID},
		"D": {created[2].ID, created[1].ID, created[0].ID},
	}
	errs := make(chan error, len(ballots))
	var wg sync.WaitGroup
	for voterID, selection := range ballots {
		wg.Add(1)
		go func(voterID string, selection []int64) {
			defer wg.Done()
			_, err := uc.SubmitBallot(ctx, commands.SubmitBallotCommand{VoterID: voterID, SelectedCandidateIDs: selection})
			errs <- err
		}(voterID, selection)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("expected every ballot to succeed, got %v", err)
		}
	}

	leaderboard, stats, err := repo.LeaderboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if stats.TotalVotes != 12 || stats.VotersParticipated != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for _, candidate := range leaderboard {
		if candidate.VotesReceived != 3 {
			t.Fatalf("expected 3 votes for %s, got %d", candidate.VoterID, candidate.VotesReceived)
		}
	}
}

func TestRepositoryLeaderboardSnapshotMatchesStats(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	created := seedCandidates(t, repo, "A", "B", "C", "D")
	if _, err := ballotUseCase(repo).SubmitBallot(ctx, commands.SubmitBallotCommand{
		VoterID:              "B",
		SelectedCandidateIDs: []int64{created[3].ID, created[0].ID, created[2].ID},
	}); err != nil {
		t.Fatalf("submit ballot failed: %v", err)
	}

	leaderboard, stats, err := repo.LeaderboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	sum := 0
	var order []string
	for _, candidate := range leaderboard {
		sum += candidate.VotesReceived
		order = append(order, candidate.VoterID)
	}
	if sum != stats.TotalVotes || stats.TotalVotes != 3 {
		t.Fatalf("expected tallies to match vote count, got sum=%d stats=%+v", sum, stats)
	}
	if strings.Join(order, ",") != "A,C,D,B" {
		t.Fatalf("unexpected leaderboard order %v", order)
	}
}

func TestRepositoryOutboxRelaysInInsertionOrder(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	occurredAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	err := repo.WithinBallotTx(ctx, func(ctx context.Context, tx ports.BallotTx) error {
		for _, id := range []string{"evt-c", "evt-a", "evt-b"} {
			if err := tx.AppendOutbox(ctx, ports.EventEnvelope{
				EventID:    id,
				EventType:  commands.EventBallotSubmitted,
				OccurredAt: occurredAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	var order []string
	for _, row := range pending {
		order = append(order, row.OutboxID)
	}
	if strings.Join(order, ",") != "evt-c,evt-a,evt-b" {
		t.Fatalf("expected insertion order for rows with equal timestamps, got %v", order)
	}
}
