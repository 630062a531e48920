package postgresadapter

import (
	"context"
	"strings"
	"time"

	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
	"voteboard/internal/shared/outbox"
)

// outboxModel rows are relayed in Seq order, which is insertion order.
// created_at comes from the application clock and can tie.
type outboxModel struct {
	Seq          int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	OutboxID     string     `gorm:"column:outbox_id;not null;uniqueIndex:voting_outbox_outbox_id_key"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;not null;index:voting_outbox_status_idx"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			Status:       row.Status,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrStorageFailure
	}
	return nil
}
