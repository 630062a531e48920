package postgresadapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the candidates, votes and outbox tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&candidateModel{}, &voteModel{}, &outboxModel{}); err != nil {
		return r.logError("voting_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) GetCandidate(ctx context.Context, id int64) (entities.Candidate, bool, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, false, nil
		}
		return entities.Candidate{}, false, r.logError("voting_repo_get_candidate_failed", err, "candidate_id", id)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetCandidateByVoterID(ctx context.Context, voterID string) (entities.Candidate, bool, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, false, nil
		}
		return entities.Candidate{}, false, r.logError("voting_repo_get_candidate_by_voter_id_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CreateCandidate(
	ctx context.Context,
	input entities.NewCandidate,
	createdAt time.Time,
) (entities.Candidate, error) {
	row := candidateModelFromInput(input, createdAt)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return entities.Candidate{}, domainerrors.ErrDuplicateVoterID
		}
		return entities.Candidate{}, r.logError("voting_repo_create_candidate_failed", err,
			"voter_id", row.VoterID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) CreateCandidates(
	ctx context.Context,
	inputs []entities.NewCandidate,
	createdAt time.Time,
) ([]entities.Candidate, error) {
	created := make([]entities.Candidate, 0, len(inputs))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, input := range inputs {
			row := candidateModelFromInput(input, createdAt)
			if err := tx.Create(&row).Error; err != nil {
				if isDuplicateKey(err) {
					return domainerrors.ErrDuplicateVoterID
				}
				return err
			}
			created = append(created, row.toEntity())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVoterID) {
			return nil, err
		}
		return nil, r.logError("voting_repo_create_candidates_failed", err, "batch_size", len(inputs))
	}
	return created, nil
}

func (r *Repository) ListCandidates(ctx context.Context) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_candidates_failed", err)
	}
	return toCandidateEntities(rows), nil
}

func (r *Repository) ListCandidatesByVotesDesc(ctx context.Context) ([]entities.Candidate, error) {
	items, err := listByVotesDesc(r.db.WithContext(ctx))
	if err != nil {
		return nil, r.logError("voting_repo_list_candidates_by_votes_failed", err)
	}
	return items, nil
}

func listByVotesDesc(db *gorm.DB) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := db.Order("votes_received DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toCandidateEntities(rows), nil
}

type votingCounts struct {
	TotalCandidates    int64 `gorm:"column:total_candidates"`
	VotersParticipated int64 `gorm:"column:voters_participated"`
	TotalVotes         int64 `gorm:"column:total_votes"`
}

// ComputeVotingStats reads all three counts in one statement so they come
// from the same snapshot.
func (r *Repository) ComputeVotingStats(ctx context.Context) (entities.VotingStats, error) {
	stats, err := computeStats(r.db.WithContext(ctx))
	if err != nil {
		return entities.VotingStats{}, r.logError("voting_repo_compute_stats_failed", err)
	}
	return stats, nil
}

func computeStats(db *gorm.DB) (entities.VotingStats, error) {
	var counts votingCounts
	err := db.Raw(`
		SELECT
			(SELECT COUNT(*) FROM candidates) AS total_candidates,
			(SELECT COUNT(*) FROM candidates WHERE has_voted = ?) AS voters_participated,
			(SELECT COUNT(*) FROM votes) AS total_votes`, true).
		Scan(&counts).Error
	if err != nil {
		return entities.VotingStats{}, err
	}
	return entities.NewVotingStats(
		int(counts.TotalCandidates),
		int(counts.VotersParticipated),
		int(counts.TotalVotes),
	), nil
}

// LeaderboardSnapshot runs both reads in one read-only transaction. On
// PostgreSQL it is REPEATABLE READ so both statements share a snapshot; SQLite
// transactions are serialized by the single pooled connection.
func (r *Repository) LeaderboardSnapshot(ctx context.Context) ([]entities.Candidate, entities.VotingStats, error) {
	var (
		leaderboard []entities.Candidate
		stats       entities.VotingStats
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if leaderboard, err = listByVotesDesc(tx); err != nil {
			return err
		}
		stats, err = computeStats(tx)
		return err
	}, r.snapshotTxOptions()...)
	if err != nil {
		return nil, entities.VotingStats{}, r.logError("voting_repo_leaderboard_snapshot_failed", err)
	}
	return leaderboard, stats, nil
}

func (r *Repository) snapshotTxOptions() []*sql.TxOptions {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

func (r *Repository) ListVotesByVoter(ctx context.Context, voterID int64) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("voter_id = ?", voterID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_votes_by_voter_failed", err, "candidate_id", voterID)
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SetHasVoted(ctx context.Context, candidateID int64) error {
	result := r.db.WithContext(ctx).
		Model(&candidateModel{}).
		Where("id = ?", candidateID).
		UpdateColumn("has_voted", true)
	if result.Error != nil {
		return r.logError("voting_repo_set_has_voted_failed", result.Error, "candidate_id", candidateID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrUnknownCandidate
	}
	return nil
}

// RecordVote inserts one vote and bumps the recipient's tally in its own
// transaction.
func (r *Repository) RecordVote(
	ctx context.Context,
	voterID int64,
	votedForID int64,
	createdAt time.Time,
) (entities.Vote, error) {
	var vote entities.Vote
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recorded, err := insertVote(tx, voterID, votedForID, createdAt)
		if err != nil {
			return err
		}
		vote = recorded
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrUnknownCandidate) {
			return entities.Vote{}, err
		}
		return entities.Vote{}, r.logError("voting_repo_record_vote_failed", err,
			"candidate_id", voterID,
			"voted_for_id", votedForID,
		)
	}
	return vote, nil
}

// insertVote increments the tally with a single UPDATE so concurrent
// increments never overwrite each other.
func insertVote(tx *gorm.DB, voterID int64, votedForID int64, createdAt time.Time) (entities.Vote, error) {
	update := tx.Model(&candidateModel{}).
		Where("id = ?", votedForID).
		UpdateColumn("votes_received", gorm.Expr("votes_received + ?", 1))
	if update.Error != nil {
		return entities.Vote{}, update.Error
	}
	if update.RowsAffected == 0 {
		return entities.Vote{}, domainerrors.ErrUnknownCandidate
	}
	row := voteModel{
		VoterID:    voterID,
		VotedForID: votedForID,
		CreatedAt:  createdAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return entities.Vote{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "elections/voting-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

type candidateModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string    `gorm:"column:name;not null"`
	VoterID       string    `gorm:"column:voter_id;not null;uniqueIndex:candidates_voter_id_key"`
	HasVoted      bool      `gorm:"column:has_voted;not null;default:false"`
	VotesReceived int       `gorm:"column:votes_received;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

func candidateModelFromInput(input entities.NewCandidate, createdAt time.Time) candidateModel {
	return candidateModel{
		Name:      strings.TrimSpace(input.Name),
		VoterID:   strings.TrimSpace(input.VoterID),
		CreatedAt: createdAt.UTC(),
	}
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		ID:            m.ID,
		Name:          m.Name,
		VoterID:       m.VoterID,
		HasVoted:      m.HasVoted,
		VotesReceived: m.VotesReceived,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

type voteModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	VoterID    int64     `gorm:"column:voter_id;not null;index:votes_voter_id_idx"`
	VotedForID int64     `gorm:"column:voted_for_id;not null;index:votes_voted_for_id_idx"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (voteModel) TableName() string {
	return "votes"
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		ID:         m.ID,
		VoterID:    m.VoterID,
		VotedForID: m.VotedForID,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func toCandidateEntities(rows []candidateModel) []entities.Candidate {
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

// isDuplicateKey covers both gorm's translated error and a raw PostgreSQL
// unique violation from connections opened without TranslateError.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
