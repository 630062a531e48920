package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
	"voteboard/internal/shared/outbox"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithinBallotTx runs fn inside one database transaction. Any error from fn,
// or a cancelled ctx, rolls back every write made through tx.
func (r *Repository) WithinBallotTx(ctx context.Context, fn func(ctx context.Context, tx ports.BallotTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &ballotTx{repo: r, db: db})
	})
}

type ballotTx struct {
	repo *Repository
	db   *gorm.DB
}

func (tx *ballotTx) FindVoter(ctx context.Context, voterID string) (entities.Candidate, bool, error) {
	var row candidateModel
	err := tx.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, false, nil
		}
		return entities.Candidate{}, false, tx.repo.logError("voting_repo_find_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), true, nil
}

// LockCandidates takes every row lock the ballot needs in a single
// SELECT ... ORDER BY id FOR UPDATE. Two ballots that share candidates, for
// example A voting for B while B votes for A, then queue on the lowest shared
// id instead of deadlocking. Later tally updates touch only rows held here.
func (tx *ballotTx) LockCandidates(ctx context.Context, ids []int64) (map[int64]entities.Candidate, error) {
	ordered := lockOrder(ids)
	var rows []candidateModel
	if err := lockCandidatesQuery(tx.db.WithContext(ctx), ordered).Find(&rows).Error; err != nil {
		return nil, tx.repo.logError("voting_repo_lock_candidates_failed", err, "candidate_ids", ordered)
	}
	locked := make(map[int64]entities.Candidate, len(rows))
	for _, row := range rows {
		locked[row.ID] = row.toEntity()
	}
	return locked, nil
}

func lockCandidatesQuery(db *gorm.DB, ordered []int64) *gorm.DB {
	return db.Model(&candidateModel{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ordered).
		Order("id ASC")
}

// lockOrder returns ids ascending without duplicates.
func lockOrder(ids []int64) []int64 {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	ordered := make([]int64, 0, len(sorted))
	for _, id := range sorted {
		if n := len(ordered); n == 0 || ordered[n-1] != id {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func (tx *ballotTx) RecordVote(
	ctx context.Context,
	voterID int64,
	votedForID int64,
	createdAt time.Time,
) (entities.Vote, error) {
	vote, err := insertVote(tx.db.WithContext(ctx), voterID, votedForID, createdAt)
	if err != nil && !errors.Is(err, domainerrors.ErrUnknownCandidate) {
		return entities.Vote{}, tx.repo.logError("voting_repo_tx_record_vote_failed", err,
			"candidate_id", voterID,
			"voted_for_id", votedForID,
		)
	}
	return vote, err
}

func (tx *ballotTx) MarkVoted(ctx context.Context, candidateID int64) error {
	result := tx.db.WithContext(ctx).
		Model(&candidateModel{}).
		Where("id = ? AND has_voted = ?", candidateID, false).
		UpdateColumn("has_voted", true)
	if result.Error != nil {
		return tx.repo.logError("voting_repo_mark_voted_failed", result.Error, "candidate_id", candidateID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAlreadyVoted
	}
	return nil
}

func (tx *ballotTx) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return tx.repo.logError("voting_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := tx.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return tx.repo.logError("voting_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}
