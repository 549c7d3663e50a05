package models

// Bid status values. A bid is ACTIVE from placement until a settlement
// sweep closes it; cancellation deletes the row instead.
const (
	BidStatusActive    = "ACTIVE"
	BidStatusCompleted = "COMPLETED"
)

// User represents an account in the system
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"` // Password hash, not returned in JSON
	Balance  int64  `db:"balance" json:"balance"`
}

// Bid represents an escrowed bid owned by a user. Amount is debited
// from the owner's balance when the bid is created and stays escrowed
// until the bid is cancelled (refund) or settled (profit applied).
type Bid struct {
	ID        int64  `db:"id" json:"id"`
	UserID    int64  `db:"user_id" json:"userId"`
	Amount    int64  `db:"amount" json:"amount"`
	CreatedAt int64  `db:"created_at" json:"createdAt"` // epoch seconds
	Status    string `db:"status" json:"status"`
	Profit    int64  `db:"profit" json:"profit"`
	ItemTitle string `db:"item_title" json:"itemTitle"`
}

// LeaderboardEntry is a public view of a user for the top listing.
type LeaderboardEntry struct {
	Username string `db:"username" json:"username"`
	Balance  int64  `db:"balance" json:"balance"`
}

// SettlementReport summarizes one settlement sweep.
type SettlementReport struct {
	WinnerBidID  int64 `json:"winnerBidId"`
	WinnerUserID int64 `json:"winnerUserId"`
	WinnerAmount int64 `json:"winnerAmount"`
	WinnerProfit int64 `json:"winnerProfit"`
	ClosedCount  int   `json:"closedCount"`
}
