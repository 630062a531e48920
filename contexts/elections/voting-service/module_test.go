package votingservice_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	votingservice "voteboard/contexts/elections/voting-service"
	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	httptransport "voteboard/contexts/elections/voting-service/transport/http"
)

func seedABCD() []entities.Candidate {
	return []entities.Candidate{
		{Name: "Alice", VoterID: "A"},
		{Name: "Bob", VoterID: "B"},
		{Name: "Carol", VoterID: "C"},
		{Name: "Dave", VoterID: "D"},
	}
}

func TestFourCandidateScenario(t *testing.T) {
	ctx := context.Background()
	module := votingservice.NewInMemoryModule(seedABCD(), 0, nil)
	handler := module.Handler

	// Candidate ids follow seed order: A=1, B=2, C=3, D=4.
	resp, err := handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
		VoterID:            "A",
		SelectedCandidates: []int64{2, 3, 4},
	})
	if err != nil {
		t.Fatalf("submit ballot for A failed: %v", err)
	}
	if len(resp.Votes) != 3 {
		t.Fatalf("expected 3 votes, got %d", len(resp.Votes))
	}

	results, err := handler.ResultsHandler(ctx)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.Stats.TotalVotes != 3 || results.Stats.VotersParticipated != 1 ||
		results.Stats.RemainingVoters != 3 || results.Stats.ParticipationRate != 25 {
		t.Fatalf("unexpected stats after first ballot: %+v", results.Stats)
	}
	for _, item := range results.Candidates {
		wantVotes, wantShare := 1, 33.3
		if item.VoterID == "A" {
			wantVotes, wantShare = 0, 0
		}
		if item.VotesReceived != wantVotes || item.Percentage != wantShare {
			t.Fatalf("unexpected result for %s: %+v", item.VoterID, item)
		}
	}
	if results.Candidates[3].VoterID != "A" {
		t.Fatalf("expected A last on the leaderboard, got %s", results.Candidates[3].VoterID)
	}

	if _, err := handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
		VoterID:            "A",
		SelectedCandidates: []int64{2, 3, 4},
	}); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted on resubmission, got %v", err)
	}

	if _, err := handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
		VoterID:            "B",
		SelectedCandidates: []int64{2, 1, 3},
	}); !errors.Is(err, domainerrors.ErrSelfVote) {
		t.Fatalf("expected self vote rejection for B, got %v", err)
	}
	b, _, _ := module.Store.GetCandidateByVoterID(ctx, "B")
	if b.HasVoted {
		t.Fatalf("expected B to remain pending after rejected ballot")
	}

	if _, err := handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
		VoterID:            "B",
		SelectedCandidates: []int64{1, 3, 4},
	}); err != nil {
		t.Fatalf("submit ballot for B failed: %v", err)
	}

	results, err = handler.ResultsHandler(ctx)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.Stats.TotalVotes != 6 || results.Stats.VotersParticipated != 2 || results.Stats.ParticipationRate != 50 {
		t.Fatalf("unexpected stats after second ballot: %+v", results.Stats)
	}
	top := results.Candidates[:2]
	if top[0].VoterID != "C" || top[1].VoterID != "D" {
		t.Fatalf("expected C then D to lead on ties by registration order, got %s, %s", top[0].VoterID, top[1].VoterID)
	}
	for _, item := range results.Candidates {
		want := map[string]int{"A": 1, "B": 1, "C": 2, "D": 2}[item.VoterID]
		if item.VotesReceived != want {
			t.Fatalf("expected %s to have %d votes, got %d", item.VoterID, want, item.VotesReceived)
		}
	}

	status, err := handler.StatusHandler(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if len(status.Voted) != 2 || status.Voted[0].VoterID != "A" || status.Voted[1].VoterID != "B" {
		t.Fatalf("unexpected voted list: %+v", status.Voted)
	}
	if len(status.Pending) != 2 || status.Pending[0].VoterID != "C" || status.Pending[1].VoterID != "D" {
		t.Fatalf("unexpected pending list: %+v", status.Pending)
	}
}

func TestStatsStayConsistentAcrossBallots(t *testing.T) {
	ctx := context.Background()
	module := votingservice.NewInMemoryModule(seedABCD(), 0, nil)
	ballots := map[string][]int64{
		"A": {2, 3, 4},
		"B": {1, 3, 4},
		"C": {1, 2, 4},
	}
	for voterID, selection := range ballots {
		if _, err := module.Handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
			VoterID:            voterID,
			SelectedCandidates: selection,
		}); err != nil {
			t.Fatalf("ballot for %s failed: %v", voterID, err)
		}
	}

	results, err := module.Handler.ResultsHandler(ctx)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.Stats.TotalVotes != 3*results.Stats.VotersParticipated {
		t.Fatalf("expected total votes to be 3x participants, got %+v", results.Stats)
	}
	sum := 0
	for _, item := range results.Candidates {
		sum += item.VotesReceived
	}
	if sum != results.Stats.TotalVotes {
		t.Fatalf("expected tallies to sum to %d, got %d", results.Stats.TotalVotes, sum)
	}
}

func TestConcurrentBallotsForSameVoterAcceptExactlyOne(t *testing.T) {
	ctx := context.Background()
	module := votingservice.NewInMemoryModule(seedABCD(), 0, nil)

	const attempts = 16
	var wg sync.WaitGroup
	var accepted atomic.Int32
	var alreadyVoted atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := module.Handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
				VoterID:            "A",
				SelectedCandidates: []int64{2, 3, 4},
			})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domainerrors.ErrAlreadyVoted):
				alreadyVoted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Fatalf("expected exactly one accepted ballot, got %d", accepted.Load())
	}
	if alreadyVoted.Load() != attempts-1 {
		t.Fatalf("expected %d already-voted rejections, got %d", attempts-1, alreadyVoted.Load())
	}
	votes, err := module.Store.ListVotesByVoter(ctx, 1)
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(votes) != 3 {
		t.Fatalf("expected 3 stored votes for A, got %d", len(votes))
	}
}

func TestConcurrentBallotsFromDifferentVotersLoseNoTallies(t *testing.T) {
	ctx := context.Background()
	seed := make([]entities.Candidate, 0, 20)
	for i := 0; i < 20; i++ {
		seed = append(seed, entities.Candidate{Name: "voter", VoterID: string(rune('a' + i))})
	}
	module := votingservice.NewInMemoryModule(seed, 0, nil)

	// Voters 4..20 all pick candidates 1, 2 and 3.
	var wg sync.WaitGroup
	for i := 3; i < 20; i++ {
		wg.Add(1)
		go func(voterID string) {
			defer wg.Done()
			if _, err := module.Handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
				VoterID:            voterID,
				SelectedCandidates: []int64{1, 2, 3},
			}); err != nil {
				t.Errorf("ballot for %s failed: %v", voterID, err)
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	for id := int64(1); id <= 3; id++ {
		candidate, _, _ := module.Store.GetCandidate(ctx, id)
		if candidate.VotesReceived != 17 {
			t.Fatalf("expected candidate %d to have 17 votes, got %d", id, candidate.VotesReceived)
		}
	}
}

func TestResultsAreCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	module := votingservice.NewInMemoryModule(seedABCD(), time.Minute, nil)

	before, err := module.Handler.ResultsHandler(ctx)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if before.Stats.TotalVotes != 0 {
		t.Fatalf("expected no votes yet, got %d", before.Stats.TotalVotes)
	}

	// A write that bypasses the use cases is not visible until the entry
	// is invalidated.
	if _, err := module.Store.RecordVote(ctx, 1, 2, time.Now()); err != nil {
		t.Fatalf("record vote failed: %v", err)
	}
	cached, err := module.Handler.ResultsHandler(ctx)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if cached.Stats.TotalVotes != 0 {
		t.Fatalf("expected cached results, got %d votes", cached.Stats.TotalVotes)
	}

	if _, err := module.Handler.SubmitVotesHandler(ctx, httptransport.SubmitVotesRequest{
		VoterID:            "C",
		SelectedCandidates: []int64{1, 2, 4},
	}); err != nil {
		t.Fatalf("ballot failed: %v", err)
	}
	fresh, err := module.Handler.ResultsHandler(ctx)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if fresh.Stats.TotalVotes != 4 {
		t.Fatalf("expected ballot to invalidate cached results, got %d votes", fresh.Stats.TotalVotes)
	}
}
