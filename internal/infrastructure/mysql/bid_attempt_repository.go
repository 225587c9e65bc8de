package mysql

import (
	"context"
	"database/sql"
	"time"

	"auction-bidgate/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// Schema:
//
//	CREATE TABLE bid_attempts (
//	    id               VARCHAR(64) PRIMARY KEY,
//	    lot_id           INT NOT NULL,
//	    telegram_id      BIGINT NOT NULL,
//	    amount           DOUBLE NOT NULL,
//	    outcome          VARCHAR(32) NOT NULL,
//	    reason           VARCHAR(255) NOT NULL DEFAULT '',
//	    minimum_required DOUBLE NOT NULL DEFAULT 0,
//	    current_bid      DOUBLE NOT NULL DEFAULT 0,
//	    attempted_at     DATETIME(3) NOT NULL,
//	    created_at       DATETIME(3) NOT NULL,
//	    INDEX idx_bid_attempts_user (telegram_id, attempted_at)
//	);
type MySQLBidAttemptRepository struct {
	db *sql.DB
}

func NewMySQLBidAttemptRepository(db *sql.DB) *MySQLBidAttemptRepository {
	return &MySQLBidAttemptRepository{db: db}
}

func (r *MySQLBidAttemptRepository) SaveAttempt(ctx context.Context, event *domain.BidAttemptEvent) error {
	query := `
        INSERT INTO bid_attempts (id, lot_id, telegram_id, amount, outcome, reason,
            minimum_required, current_bid, attempted_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE id = id
    `
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.LotID, event.TelegramID, event.Amount,
		string(event.Outcome), event.Reason, event.MinimumRequired,
		event.CurrentBid, event.Timestamp, time.Now())
	return err
}

func (r *MySQLBidAttemptRepository) ListAttempts(ctx context.Context, telegramID int64, limit int) ([]*domain.BidAttemptEvent, error) {
	query := `
        SELECT id, lot_id, telegram_id, amount, outcome, reason,
            minimum_required, current_bid, attempted_at
        FROM bid_attempts
        WHERE telegram_id = ?
        ORDER BY attempted_at DESC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, telegramID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.BidAttemptEvent
	for rows.Next() {
		var event domain.BidAttemptEvent
		var outcome string

		err := rows.Scan(&event.ID, &event.LotID, &event.TelegramID, &event.Amount,
			&outcome, &event.Reason, &event.MinimumRequired, &event.CurrentBid,
			&event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.Outcome = domain.BidAttemptOutcome(outcome)
		events = append(events, &event)
	}

	return events, rows.Err()
}
