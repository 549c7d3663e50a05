package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roxx/auction-server/internal/models"
)

// MemoryRepository is an in-memory Repository used for local
// development (STORE_DRIVER=memory) and in tests. A single mutex
// serializes every operation, which gives the same observable
// semantics as the per-row locking transactions of the Postgres
// implementation: no partial mutation is ever visible.
type MemoryRepository struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	byUsername map[string]int64
	bids       map[int64]*models.Bid
	nextUserID int64
	nextBidID  int64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[int64]*models.User),
		byUsername: make(map[string]int64),
		bids:       make(map[int64]*models.Bid),
		nextUserID: 1,
		nextBidID:  1,
	}
}

// Account repository methods
func (r *MemoryRepository) CreateUser(ctx context.Context, username, passwordHash string, balance int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[username]; exists {
		return 0, ErrUsernameTaken
	}

	id := r.nextUserID
	r.nextUserID++

	r.users[id] = &models.User{
		ID:       id,
		Username: username,
		Password: passwordHash,
		Balance:  balance,
	}
	r.byUsername[username] = id

	return id, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrAccountNotFound
	}

	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, ErrAccountNotFound
	}

	copied := *r.users[id]
	return &copied, nil
}

func (r *MemoryRepository) TopUsersByBalance(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].Balance != users[j].Balance {
			return users[i].Balance > users[j].Balance
		}
		return users[i].ID < users[j].ID
	})

	if limit < len(users) {
		users = users[:limit]
	}

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, models.LeaderboardEntry{
			Username: u.Username,
			Balance:  u.Balance,
		})
	}

	return entries, nil
}

// Ledger repository methods
func (r *MemoryRepository) PlaceBid(ctx context.Context, userID, amount int64, itemTitle string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return 0, 0, ErrAccountNotFound
	}

	if user.Balance < amount {
		return 0, 0, ErrInsufficientFunds
	}

	user.Balance -= amount

	id := r.nextBidID
	r.nextBidID++

	r.bids[id] = &models.Bid{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now().Unix(),
		Status:    models.BidStatusActive,
		Profit:    0,
		ItemTitle: itemTitle,
	}

	return id, user.Balance, nil
}

func (r *MemoryRepository) CancelBid(ctx context.Context, bidID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return 0, ErrBidNotFound
	}

	if bid.Status != models.BidStatusActive {
		return 0, ErrInvalidBidState
	}

	user := r.users[bid.UserID]
	user.Balance += bid.Amount
	delete(r.bids, bidID)

	return user.Balance, nil
}

func (r *MemoryRepository) AdjustBalance(ctx context.Context, userID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return 0, ErrAccountNotFound
	}

	if user.Balance+delta < 0 {
		return 0, ErrInsufficientFunds
	}

	user.Balance += delta
	return user.Balance, nil
}

func (r *MemoryRepository) SettleActiveBids(ctx context.Context) (*models.SettlementReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var open []*models.Bid
	for _, b := range r.bids {
		if b.Status == models.BidStatusActive {
			open = append(open, b)
		}
	}

	report := &models.SettlementReport{}
	if len(open) == 0 {
		return report, nil
	}

	// Highest amount wins, ties broken by lowest bid id
	sort.Slice(open, func(i, j int) bool {
		if open[i].Amount != open[j].Amount {
			return open[i].Amount > open[j].Amount
		}
		return open[i].ID < open[j].ID
	})

	for i, b := range open {
		profit := -b.Amount
		credit := b.Amount
		if i == 0 {
			profit = b.Amount / 2
			credit = b.Amount + profit
		}

		b.Status = models.BidStatusCompleted
		b.Profit = profit
		r.users[b.UserID].Balance += credit
	}

	winner := open[0]
	report.WinnerBidID = winner.ID
	report.WinnerUserID = winner.UserID
	report.WinnerAmount = winner.Amount
	report.WinnerProfit = winner.Profit
	report.ClosedCount = len(open)

	return report, nil
}

// Bid query methods
func (r *MemoryRepository) GetBid(ctx context.Context, bidID int64) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return nil, ErrBidNotFound
	}

	copied := *bid
	return &copied, nil
}

func (r *MemoryRepository) GetBidsByUser(ctx context.Context, userID int64) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bids []models.Bid
	for _, b := range r.bids {
		if b.UserID == userID {
			bids = append(bids, *b)
		}
	}

	sort.Slice(bids, func(i, j int) bool {
		if bids[i].CreatedAt != bids[j].CreatedAt {
			return bids[i].CreatedAt > bids[j].CreatedAt
		}
		return bids[i].ID > bids[j].ID
	})

	return bids, nil
}

func (r *MemoryRepository) LastActiveBidID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		found  bool
		bestID int64
		bestAt int64
	)
	for _, b := range r.bids {
		if b.UserID != userID || b.Status != models.BidStatusActive {
			continue
		}
		if !found || b.CreatedAt > bestAt || (b.CreatedAt == bestAt && b.ID > bestID) {
			found = true
			bestID = b.ID
			bestAt = b.CreatedAt
		}
	}

	if !found {
		return 0, ErrBidNotFound
	}

	return bestID, nil
}

func (r *MemoryRepository) WipeAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[int64]*models.User)
	r.byUsername = make(map[string]int64)
	r.bids = make(map[int64]*models.Bid)

	return nil
}
