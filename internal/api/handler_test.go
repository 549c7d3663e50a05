package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/roxx/auction-server/internal/api"
	"github.com/roxx/auction-server/internal/models"
	"github.com/roxx/auction-server/internal/repository"
	"github.com/roxx/auction-server/internal/service"
	"github.com/roxx/auction-server/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret  = "test-secret-key"
	testAdminToken = "test-admin-token"
)

func setupRouter(t *testing.T) (*gin.Engine, *repository.MemoryRepository) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	svc := service.NewDefaultService(repo, nil, nil, utils.NewLogger(), testJWTSecret)
	handler := api.NewHandler(svc, testAdminToken)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})
	handler.SetupRoutes(router)

	return router, repo
}

func performRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

func adminHeaders() map[string]string {
	return map[string]string{
		"X-Admin-Token": testAdminToken,
	}
}

func signUp(t *testing.T, router *gin.Engine, username string) models.AuthResponse {
	t.Helper()

	w := performRequest(router, http.MethodPost, "/api/users",
		models.SignUpRequest{Username: username, Password: "password123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestSignUpAndLogin(t *testing.T) {
	router, _ := setupRouter(t)

	user := signUp(t, router, "alice")
	assert.NotZero(t, user.UserID)
	assert.GreaterOrEqual(t, user.Balance, int64(10000))

	// Duplicate username conflicts
	w := performRequest(router, http.MethodPost, "/api/users",
		models.SignUpRequest{Username: "alice", Password: "password123"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Login with the right password
	w = performRequest(router, http.MethodPost, "/api/login",
		models.LoginRequest{Username: "alice", Password: "password123"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Wrong password is unauthorized
	w = performRequest(router, http.MethodPost, "/api/login",
		models.LoginRequest{Username: "alice", Password: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignUpValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := performRequest(router, http.MethodPost, "/api/users",
		models.SignUpRequest{Username: "al", Password: "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	router, _ := setupRouter(t)

	w := performRequest(router, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(router, http.MethodGet, "/api/me", nil, authHeaders("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBidLifecycle(t *testing.T) {
	router, _ := setupRouter(t)
	user := signUp(t, router, "bob")

	// Place a bid
	w := performRequest(router, http.MethodPost, "/api/me/bid",
		models.PlaceBidRequest{Amount: 500}, authHeaders(user.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	var placed models.PlaceBidResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))
	assert.Equal(t, user.Balance-500, placed.Balance)

	// The bid shows up in the user's listing
	w = performRequest(router, http.MethodGet, "/api/me/bids", nil, authHeaders(user.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var bids models.BidsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bids))
	require.Len(t, bids.Bids, 1)
	assert.Equal(t, models.BidStatusActive, bids.Bids[0].Status)

	// And as the last active bid
	w = performRequest(router, http.MethodGet, "/api/me/bid/last", nil, authHeaders(user.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var last models.LastBidResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &last))
	assert.Equal(t, placed.BidID, last.LastBidID)

	// Cancel refunds the stake
	w = performRequest(router, http.MethodDelete,
		fmt.Sprintf("/api/me/bids/%d", placed.BidID), nil, authHeaders(user.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var cancelled models.CancelBidResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelled))
	assert.Equal(t, user.Balance, cancelled.Balance)

	// Cancelling again: the bid is gone
	w = performRequest(router, http.MethodDelete,
		fmt.Sprintf("/api/me/bids/%d", placed.BidID), nil, authHeaders(user.Token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceBidRejections(t *testing.T) {
	router, _ := setupRouter(t)
	user := signUp(t, router, "carol")

	// More than the balance
	w := performRequest(router, http.MethodPost, "/api/me/bid",
		models.PlaceBidRequest{Amount: user.Balance + 1}, authHeaders(user.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Non-positive amount fails validation
	w = performRequest(router, http.MethodPost, "/api/me/bid",
		map[string]int64{"amount": -5}, authHeaders(user.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelForeignBidForbidden(t *testing.T) {
	router, _ := setupRouter(t)
	owner := signUp(t, router, "dave")
	other := signUp(t, router, "erin")

	w := performRequest(router, http.MethodPost, "/api/me/bid",
		models.PlaceBidRequest{Amount: 100}, authHeaders(owner.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	var placed models.PlaceBidResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))

	w = performRequest(router, http.MethodDelete,
		fmt.Sprintf("/api/me/bids/%d", placed.BidID), nil, authHeaders(other.Token))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLeaderboard(t *testing.T) {
	router, _ := setupRouter(t)
	signUp(t, router, "frank")
	signUp(t, router, "gina")

	w := performRequest(router, http.MethodGet, "/api/top", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.LeaderboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 2)
	assert.GreaterOrEqual(t, resp.Users[0].Balance, resp.Users[1].Balance)
}

func TestAdminGuard(t *testing.T) {
	router, _ := setupRouter(t)

	w := performRequest(router, http.MethodPost, "/api/admin/settle", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(router, http.MethodDelete, "/api/admin/wipe", nil,
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminSettle(t *testing.T) {
	router, _ := setupRouter(t)
	a := signUp(t, router, "hank")
	b := signUp(t, router, "ivy")

	w := performRequest(router, http.MethodPost, "/api/me/bid",
		models.PlaceBidRequest{Amount: 100}, authHeaders(a.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(router, http.MethodPost, "/api/me/bid",
		models.PlaceBidRequest{Amount: 400}, authHeaders(b.Token))
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(router, http.MethodPost, "/api/admin/settle", nil, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SettlementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, b.UserID, resp.Report.WinnerUserID)
	assert.Equal(t, int64(400), resp.Report.WinnerAmount)
	assert.Equal(t, int64(200), resp.Report.WinnerProfit)
	assert.Equal(t, 2, resp.Report.ClosedCount)

	// Winner's balance reflects the stake plus profit
	w = performRequest(router, http.MethodGet, "/api/me/balance", nil, authHeaders(b.Token))
	require.Equal(t, http.StatusOK, w.Code)

	var balance models.BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
	assert.Equal(t, b.Balance+200, balance.Balance)
}

func TestAdminAdjustBalance(t *testing.T) {
	router, _ := setupRouter(t)
	user := signUp(t, router, "jack")

	w := performRequest(router, http.MethodPost,
		fmt.Sprintf("/api/admin/accounts/%d/balance", user.UserID),
		models.AdjustBalanceRequest{Delta: 1000}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.Balance+1000, resp.Balance)

	// Drive below zero is rejected
	w = performRequest(router, http.MethodPost,
		fmt.Sprintf("/api/admin/accounts/%d/balance", user.UserID),
		models.AdjustBalanceRequest{Delta: -(resp.Balance + 1)}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown account
	w = performRequest(router, http.MethodPost, "/api/admin/accounts/99999/balance",
		models.AdjustBalanceRequest{Delta: 10}, adminHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminWipe(t *testing.T) {
	router, _ := setupRouter(t)
	user := signUp(t, router, "kate")

	w := performRequest(router, http.MethodDelete, "/api/admin/wipe", nil, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodGet,
		fmt.Sprintf("/api/users/%d", user.UserID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserAndSearch(t *testing.T) {
	router, _ := setupRouter(t)
	user := signUp(t, router, "leo")

	w := performRequest(router, http.MethodGet,
		fmt.Sprintf("/api/users/%d", user.UserID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "leo", got.Username)
	assert.NotContains(t, w.Body.String(), "password", "hash never leaves the API")

	w = performRequest(router, http.MethodPost, "/api/users/search",
		models.SearchUserRequest{Username: "leo"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodPost, "/api/users/search",
		models.SearchUserRequest{Username: "nobody"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
