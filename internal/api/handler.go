package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/roxx/auction-server/internal/models"
	"github.com/roxx/auction-server/internal/repository"
	"github.com/roxx/auction-server/internal/service"
)

// Handler holds the API handlers and their dependencies
type Handler struct {
	svc        service.Service
	adminToken string
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, adminToken string) *Handler {
	return &Handler{
		svc:        svc,
		adminToken: adminToken,
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(RequestIDMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Business is business")
	})

	api := router.Group("/api")
	{
		api.POST("/users", h.SignUp)
		api.POST("/login", h.Login)
		api.GET("/top", h.Leaderboard)
		api.GET("/users/:id", h.GetUser)
		api.POST("/users/search", h.SearchUser)
	}

	me := api.Group("/me", AuthMiddleware())
	{
		me.GET("", h.Me)
		me.GET("/balance", h.Balance)
		me.GET("/bids", h.MyBids)
		me.GET("/bid/last", h.LastBid)
		me.POST("/bid", h.PlaceBid)
		me.DELETE("/bids/:id", h.CancelBid)
	}

	admin := api.Group("/admin", AdminMiddleware(h.adminToken))
	{
		admin.POST("/settle", h.ForceSettle)
		admin.POST("/accounts/:id/balance", h.AdjustBalance)
		admin.DELETE("/wipe", h.WipeAll)
	}
}

// Public handlers

func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Status:  "error",
				Code:    "USERNAME_TAKEN",
				Message: "Username already taken",
			})
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "UNAUTHORIZED",
			Message: "Invalid credentials",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	entries, err := h.svc.Leaderboard(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LeaderboardResponse{
		Status: "success",
		Users:  entries,
	})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid user id")
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) SearchUser(c *gin.Context) {
	var req models.SearchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.svc.SearchUser(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Authenticated handlers

func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	user, err := h.svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) Balance(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	user, err := h.svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		Status:  "success",
		Balance: user.Balance,
	})
}

func (h *Handler) MyBids(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	bids, err := h.svc.UserBids(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BidsResponse{
		Status: "success",
		Bids:   bids,
	})
}

func (h *Handler) LastBid(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	lastBidID, err := h.svc.LastActiveBid(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LastBidResponse{
		Status:    "success",
		LastBidID: lastBidID,
	})
}

func (h *Handler) PlaceBid(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	var req models.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Bid amount must be greater than zero")
		return
	}

	resp, err := h.svc.PlaceBid(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) CancelBid(c *gin.Context) {
	userID := c.MustGet("userId").(int64)

	bidID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid bid id")
		return
	}

	// Ownership check: only the bid's owner may cancel it
	bid, err := h.svc.GetBid(c.Request.Context(), bidID)
	if err != nil {
		respondError(c, err)
		return
	}

	if bid.UserID != userID {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Status:  "error",
			Code:    "FORBIDDEN",
			Message: "You can only cancel your own bids",
		})
		return
	}

	resp, err := h.svc.CancelBid(c.Request.Context(), bidID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Admin handlers

func (h *Handler) ForceSettle(c *gin.Context) {
	report, err := h.svc.Settle(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SettlementResponse{
		Status: "success",
		Report: *report,
	})
}

func (h *Handler) AdjustBalance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid user id")
		return
	}

	var req models.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	balance, err := h.svc.AdjustBalance(c.Request.Context(), id, req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		Status:  "success",
		Balance: balance,
	})
}

func (h *Handler) WipeAll(c *gin.Context) {
	if err := h.svc.WipeAll(c.Request.Context()); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Error translation

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "ACCOUNT_NOT_FOUND",
			Message: "Account not found",
		})
	case errors.Is(err, repository.ErrBidNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "BID_NOT_FOUND",
			Message: "Bid not found",
		})
	case errors.Is(err, repository.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INSUFFICIENT_FUNDS",
			Message: "Insufficient balance",
		})
	case errors.Is(err, repository.ErrInvalidBidState):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_STATE",
			Message: "Bid is not active",
		})
	default:
		internalError(c, err)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "BAD_REQUEST",
		Message: msg,
	})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "INTERNAL_ERROR",
		Message: err.Error(),
	})
}
