package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/roxx/auction-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Account operations
	CreateUser(ctx context.Context, username, passwordHash string, balance int64) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	TopUsersByBalance(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	// Ledger operations. Each call is a single atomic transaction:
	// on any error the balance and bid state are left untouched.
	PlaceBid(ctx context.Context, userID, amount int64, itemTitle string) (bidID, newBalance int64, err error)
	CancelBid(ctx context.Context, bidID int64) (newBalance int64, err error)
	AdjustBalance(ctx context.Context, userID, delta int64) (newBalance int64, err error)

	// Settlement closes every bid that is ACTIVE at the moment the
	// sweep takes its locks. Bids placed afterwards belong to the
	// next epoch and are untouched.
	SettleActiveBids(ctx context.Context) (*models.SettlementReport, error)

	// Bid queries
	GetBid(ctx context.Context, bidID int64) (*models.Bid, error)
	GetBidsByUser(ctx context.Context, userID int64) ([]models.Bid, error)
	LastActiveBidID(ctx context.Context, userID int64) (int64, error)

	// WipeAll deletes all bids then all users. Admin/reset only.
	WipeAll(ctx context.Context) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Account repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, username, passwordHash string, balance int64) (int64, error) {
	query := `
		INSERT INTO users (username, password, balance)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, username, passwordHash, balance).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}

	return id, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) TopUsersByBalance(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT username, balance FROM users
		ORDER BY balance DESC, id ASC
		LIMIT $1
	`

	var entries []models.LeaderboardEntry
	err := r.db.SelectContext(ctx, &entries, query, limit)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Ledger repository methods

// PlaceBid debits amount from the user's balance and inserts an ACTIVE
// bid in the same transaction. The balance row is locked for the
// duration so two concurrent placements never read the same pre-debit
// balance.
func (r *PostgresRepository) PlaceBid(ctx context.Context, userID, amount int64, itemTitle string) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = $1 FOR UPDATE`,
		userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrAccountNotFound
		}
		return 0, 0, err
	}

	if balance < amount {
		err = ErrInsufficientFunds
		return 0, 0, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - $1 WHERE id = $2`,
		amount, userID)
	if err != nil {
		return 0, 0, err
	}

	var bidID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO bids (user_id, amount, created_at, status, profit, item_title)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING id`,
		userID, amount, time.Now().Unix(), models.BidStatusActive, itemTitle).Scan(&bidID)
	if err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}

	return bidID, balance - amount, nil
}

// CancelBid deletes an ACTIVE bid and refunds its amount to the owner.
// Completed bids are immutable history and are rejected.
func (r *PostgresRepository) CancelBid(ctx context.Context, bidID int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var (
		userID int64
		amount int64
		status string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, amount, status FROM bids WHERE id = $1 FOR UPDATE`,
		bidID).Scan(&userID, &amount, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrBidNotFound
		}
		return 0, err
	}

	if status != models.BidStatusActive {
		err = ErrInvalidBidState
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		amount, userID).Scan(&newBalance)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM bids WHERE id = $1`, bidID)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// AdjustBalance applies a signed delta to the user's balance as one
// locked read-modify-write. A delta that would drive the balance below
// zero is rejected without mutation.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, userID, delta int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = $1 FOR UPDATE`,
		userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrAccountNotFound
		}
		return 0, err
	}

	if balance+delta < 0 {
		err = ErrInsufficientFunds
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		delta, userID).Scan(&newBalance)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// SettleActiveBids closes all ACTIVE bids in one transaction. The
// highest amount wins, ties broken by lowest bid id. The winner gets
// its stake back plus half the stake as profit; every other bid gets
// its stake back with profit recorded as the full loss. Locking the
// bid rows up front means a concurrent CancelBid either completes
// before the sweep (bid gone) or observes COMPLETED after it.
func (r *PostgresRepository) SettleActiveBids(ctx context.Context) (*models.SettlementReport, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id, amount FROM bids
		WHERE status = $1
		ORDER BY amount DESC, id ASC
		FOR UPDATE`,
		models.BidStatusActive)
	if err != nil {
		return nil, err
	}

	type openBid struct {
		id     int64
		userID int64
		amount int64
	}

	var open []openBid
	for rows.Next() {
		var b openBid
		if err = rows.Scan(&b.id, &b.userID, &b.amount); err != nil {
			rows.Close()
			return nil, err
		}
		open = append(open, b)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	report := &models.SettlementReport{}
	if len(open) == 0 {
		if err = tx.Commit(); err != nil {
			return nil, err
		}
		return report, nil
	}

	for i, b := range open {
		profit := -b.amount
		credit := b.amount
		if i == 0 {
			profit = b.amount / 2
			credit = b.amount + profit
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE bids SET status = $1, profit = $2 WHERE id = $3`,
			models.BidStatusCompleted, profit, b.id)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET balance = balance + $1 WHERE id = $2`,
			credit, b.userID)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	winner := open[0]
	report.WinnerBidID = winner.id
	report.WinnerUserID = winner.userID
	report.WinnerAmount = winner.amount
	report.WinnerProfit = winner.amount / 2
	report.ClosedCount = len(open)

	return report, nil
}

// Bid query methods
func (r *PostgresRepository) GetBid(ctx context.Context, bidID int64) (*models.Bid, error) {
	query := `SELECT * FROM bids WHERE id = $1`

	var bid models.Bid
	err := r.db.GetContext(ctx, &bid, query, bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBidNotFound
		}
		return nil, err
	}

	return &bid, nil
}

func (r *PostgresRepository) GetBidsByUser(ctx context.Context, userID int64) ([]models.Bid, error) {
	query := `SELECT * FROM bids WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	var bids []models.Bid
	err := r.db.SelectContext(ctx, &bids, query, userID)
	if err != nil {
		return nil, err
	}

	return bids, nil
}

func (r *PostgresRepository) LastActiveBidID(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT id FROM bids
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var bidID int64
	err := r.db.GetContext(ctx, &bidID, query, userID, models.BidStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrBidNotFound
		}
		return 0, err
	}

	return bidID, nil
}

func (r *PostgresRepository) WipeAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Delete bids first due to the foreign key constraint
	_, err = tx.ExecContext(ctx, `DELETE FROM bids`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return err
	}

	return tx.Commit()
}
