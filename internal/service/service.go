package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/roxx/auction-server/internal/cache"
	"github.com/roxx/auction-server/internal/models"
	"github.com/roxx/auction-server/internal/provider"
	"github.com/roxx/auction-server/internal/repository"
	"github.com/roxx/auction-server/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Starting balance range for new accounts, in abstract points.
const (
	minStartingBalance = 10000
	maxStartingBalance = 1000000
)

const leaderboardLimit = 10

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Account queries
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SearchUser(ctx context.Context, username string) (*models.User, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)

	// Ledger operations
	PlaceBid(ctx context.Context, userID, amount int64) (*models.PlaceBidResponse, error)
	CancelBid(ctx context.Context, bidID int64) (*models.CancelBidResponse, error)
	AdjustBalance(ctx context.Context, userID, delta int64) (int64, error)

	// Bid queries
	GetBid(ctx context.Context, bidID int64) (*models.Bid, error)
	UserBids(ctx context.Context, userID int64) ([]models.Bid, error)
	LastActiveBid(ctx context.Context, userID int64) (int64, error)

	// Settlement. Safe to call from any number of callers; a sweep
	// that finds no active bids is a no-op.
	Settle(ctx context.Context) (*models.SettlementReport, error)

	// Administration
	WipeAll(ctx context.Context) error
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	items         provider.ItemProvider
	leaderboard   *cache.LeaderboardCache
	logger        *utils.Logger
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService. items and
// leaderboard may be nil, in which case bids carry no item label and
// the top listing always hits the database.
func NewDefaultService(
	repo repository.Repository,
	items provider.ItemProvider,
	leaderboard *cache.LeaderboardCache,
	logger *utils.Logger,
	jwtSecret string,
) Service {
	return &DefaultService{
		repo:          repo,
		items:         items,
		leaderboard:   leaderboard,
		logger:        logger,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	balance := int64(minStartingBalance + rand.Intn(maxStartingBalance-minStartingBalance+1))

	userID, err := s.repo.CreateUser(ctx, req.Username, string(hashedPassword), balance)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.generateJWT(userID)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    userID,
		Username:  req.Username,
		Balance:   balance,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.New("invalid username or password")
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid username or password")
	}

	token, err := s.generateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Username:  user.Username,
		Balance:   user.Balance,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Account queries
func (s *DefaultService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *DefaultService) SearchUser(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

func (s *DefaultService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	if s.leaderboard != nil {
		if entries, ok := s.leaderboard.Get(ctx); ok {
			return entries, nil
		}
	}

	entries, err := s.repo.TopUsersByBalance(ctx, leaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("error loading leaderboard: %w", err)
	}

	if s.leaderboard != nil {
		s.leaderboard.Set(ctx, entries)
	}

	return entries, nil
}

// Ledger operations

// PlaceBid escrows amount from the user's balance into a new active
// bid. The item label is fetched before the ledger transaction and is
// best-effort: a provider failure never fails the bid.
func (s *DefaultService) PlaceBid(ctx context.Context, userID, amount int64) (*models.PlaceBidResponse, error) {
	itemTitle := ""
	if s.items != nil {
		item, err := s.items.DailyItem(ctx)
		if err != nil {
			s.logger.Info("daily item unavailable, placing bid without label", "error", err)
		} else {
			itemTitle = item.Title
		}
	}

	bidID, balance, err := s.repo.PlaceBid(ctx, userID, amount, itemTitle)
	if err != nil {
		return nil, err
	}

	return &models.PlaceBidResponse{
		Status:  "success",
		BidID:   bidID,
		Balance: balance,
	}, nil
}

func (s *DefaultService) CancelBid(ctx context.Context, bidID int64) (*models.CancelBidResponse, error) {
	balance, err := s.repo.CancelBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	return &models.CancelBidResponse{
		Status:  "success",
		Balance: balance,
	}, nil
}

func (s *DefaultService) AdjustBalance(ctx context.Context, userID, delta int64) (int64, error) {
	return s.repo.AdjustBalance(ctx, userID, delta)
}

// Bid queries
func (s *DefaultService) GetBid(ctx context.Context, bidID int64) (*models.Bid, error) {
	return s.repo.GetBid(ctx, bidID)
}

func (s *DefaultService) UserBids(ctx context.Context, userID int64) ([]models.Bid, error) {
	return s.repo.GetBidsByUser(ctx, userID)
}

// LastActiveBid returns the id of the user's most recent active bid,
// or -1 if the user has none.
func (s *DefaultService) LastActiveBid(ctx context.Context, userID int64) (int64, error) {
	bidID, err := s.repo.LastActiveBidID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBidNotFound) {
			return -1, nil
		}
		return 0, err
	}

	return bidID, nil
}

// Settlement
func (s *DefaultService) Settle(ctx context.Context) (*models.SettlementReport, error) {
	report, err := s.repo.SettleActiveBids(ctx)
	if err != nil {
		return nil, fmt.Errorf("error settling bids: %w", err)
	}

	if report.ClosedCount == 0 {
		s.logger.Info("settlement sweep found no active bids")
		return report, nil
	}

	// Balances moved in bulk, the cached top listing is stale now
	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}

	s.logger.Info("settlement complete",
		"winnerBidId", report.WinnerBidID,
		"winnerUserId", report.WinnerUserID,
		"winnerAmount", report.WinnerAmount,
		"closed", report.ClosedCount)

	return report, nil
}

// Administration
func (s *DefaultService) WipeAll(ctx context.Context) error {
	if err := s.repo.WipeAll(ctx); err != nil {
		return fmt.Errorf("error wiping data: %w", err)
	}

	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}

	return nil
}

// Helper methods
func (s *DefaultService) generateJWT(userID int64) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
