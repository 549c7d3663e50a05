package models

// Request models
type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=255"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type AdjustBalanceRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

type SearchUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    int64  `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Balance   int64  `json:"balance,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type PlaceBidResponse struct {
	Status  string `json:"status"`
	BidID   int64  `json:"bidId"`
	Balance int64  `json:"balance"`
}

type CancelBidResponse struct {
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

type BalanceResponse struct {
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

type BidsResponse struct {
	Status string `json:"status"`
	Bids   []Bid  `json:"bids"`
}

type LastBidResponse struct {
	Status    string `json:"status"`
	LastBidID int64  `json:"lastBidId"` // -1 when the user has no active bid
}

type LeaderboardResponse struct {
	Status string             `json:"status"`
	Users  []LeaderboardEntry `json:"users"`
}

type SettlementResponse struct {
	Status string           `json:"status"`
	Report SettlementReport `json:"report"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
