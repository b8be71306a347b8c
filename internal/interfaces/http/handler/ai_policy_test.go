package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	aiusageapp "github.com/propman/backend/internal/application/aiusage"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intPtr(n int) *int {
	return &n
}

func setupPolicyTestHandler() (*AIPolicyHandler, *fakePolicyRepo, *fakeBudgetRepo, *fakeSwitchRepo) {
	gin.SetMode(gin.TestMode)

	policyRepo := &fakePolicyRepo{}
	budgetRepo := &fakeBudgetRepo{}
	switchRepo := &fakeSwitchRepo{}
	service := aiusageapp.NewPolicyService(policyRepo, budgetRepo, switchRepo, zap.NewNop())
	return NewAIPolicyHandler(service), policyRepo, budgetRepo, switchRepo
}

func TestAIPolicyHandler_SetRateLimit_Creates(t *testing.T) {
	handler, policyRepo, _, _ := setupPolicyTestHandler()

	tenantID := uuid.New()
	callerID := uuid.New()

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/rate-limits", tenantID, uuid.New(), SetRateLimitRequest{
		CallerID:   callerID.String(),
		Feature:    "chat",
		MaxPerHour: intPtr(120),
		MaxPerDay:  intPtr(1000),
	})

	handler.SetRateLimit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, policyRepo.policies, 1)
	assert.Equal(t, 120, policyRepo.policies[0].MaxPerHour)
	require.NotNil(t, policyRepo.policies[0].Feature)
	assert.Equal(t, aiusage.FeatureChat, *policyRepo.policies[0].Feature)
}

func TestAIPolicyHandler_SetRateLimit_ReplacesSameScope(t *testing.T) {
	handler, policyRepo, _, _ := setupPolicyTestHandler()

	tenantID := uuid.New()
	callerID := uuid.New()

	policy, err := aiusage.NewRateLimitPolicy(tenantID, callerID, 60, 500)
	require.NoError(t, err)
	require.NoError(t, policyRepo.Save(context.Background(), policy))

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/rate-limits", tenantID, uuid.New(), SetRateLimitRequest{
		CallerID:   callerID.String(),
		MaxPerHour: intPtr(10),
		MaxPerDay:  intPtr(50),
	})

	handler.SetRateLimit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, policyRepo.policies, 1)
	assert.Equal(t, 10, policyRepo.policies[0].MaxPerHour)
	assert.Equal(t, 50, policyRepo.policies[0].MaxPerDay)
}

func TestAIPolicyHandler_SetRateLimit_ZeroCapBlocksCaller(t *testing.T) {
	handler, policyRepo, _, _ := setupPolicyTestHandler()

	tenantID := uuid.New()
	callerID := uuid.New()

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/rate-limits", tenantID, uuid.New(), SetRateLimitRequest{
		CallerID:   callerID.String(),
		MaxPerHour: intPtr(0),
		MaxPerDay:  intPtr(0),
	})

	handler.SetRateLimit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, policyRepo.policies, 1)
	assert.Equal(t, 0, policyRepo.policies[0].MaxPerHour)
	assert.Equal(t, 0, policyRepo.policies[0].MaxPerDay)
}

func TestAIPolicyHandler_SetRateLimit_RejectsNegativeCaps(t *testing.T) {
	handler, _, _, _ := setupPolicyTestHandler()

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/rate-limits", uuid.New(), uuid.New(), SetRateLimitRequest{
		CallerID:   uuid.NewString(),
		MaxPerHour: intPtr(-1),
		MaxPerDay:  intPtr(50),
	})

	handler.SetRateLimit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIPolicyHandler_SetRateLimit_RejectsMissingCaps(t *testing.T) {
	handler, _, _, _ := setupPolicyTestHandler()

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/rate-limits", uuid.New(), uuid.New(), SetRateLimitRequest{
		CallerID:  uuid.NewString(),
		MaxPerDay: intPtr(50),
	})

	handler.SetRateLimit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIPolicyHandler_ListRateLimits(t *testing.T) {
	handler, policyRepo, _, _ := setupPolicyTestHandler()

	tenantID := uuid.New()
	policy, err := aiusage.NewRateLimitPolicy(tenantID, uuid.New(), 60, 500)
	require.NoError(t, err)
	require.NoError(t, policyRepo.Save(context.Background(), policy))

	c, w := aiTestContext(t, http.MethodGet, "/ai/policies/rate-limits", tenantID, uuid.New(), nil)

	handler.ListRateLimits(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	policies := resp.Data.([]any)
	assert.Len(t, policies, 1)
}

func TestAIPolicyHandler_DeleteRateLimit_WrongTenant(t *testing.T) {
	handler, policyRepo, _, _ := setupPolicyTestHandler()

	policy, err := aiusage.NewRateLimitPolicy(uuid.New(), uuid.New(), 60, 500)
	require.NoError(t, err)
	require.NoError(t, policyRepo.Save(context.Background(), policy))

	c, w := aiTestContext(t, http.MethodDelete, "/ai/policies/rate-limits/"+policy.ID.String(), uuid.New(), uuid.New(), nil)
	c.Params = gin.Params{{Key: "id", Value: policy.ID.String()}}

	handler.DeleteRateLimit(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, policyRepo.policies, 1)
}

func TestAIPolicyHandler_SetBudget_Success(t *testing.T) {
	handler, _, budgetRepo, _ := setupPolicyTestHandler()

	tenantID := uuid.New()
	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/budgets", tenantID, uuid.New(), SetBudgetRequest{
		Feature:       "ocr",
		MonthlyBudget: "250.00",
	})

	handler.SetBudget(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, budgetRepo.budgets, 1)
	assert.True(t, budgetRepo.budgets[0].MonthlyBudget.Equal(decimal.RequireFromString("250.00")))
}

func TestAIPolicyHandler_SetBudget_ZeroMeansUnlimited(t *testing.T) {
	handler, _, _, _ := setupPolicyTestHandler()

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/budgets", uuid.New(), uuid.New(), SetBudgetRequest{
		Feature:       "chat",
		MonthlyBudget: "0",
	})

	handler.SetBudget(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["unlimited"])
}

func TestAIPolicyHandler_SetBudget_InvalidAmount(t *testing.T) {
	handler, _, _, _ := setupPolicyTestHandler()

	c, w := aiTestContext(t, http.MethodPut, "/ai/policies/budgets", uuid.New(), uuid.New(), SetBudgetRequest{
		Feature:       "ocr",
		MonthlyBudget: "lots",
	})

	handler.SetBudget(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIPolicyHandler_DeleteBudget(t *testing.T) {
	handler, _, budgetRepo, _ := setupPolicyTestHandler()

	tenantID := uuid.New()
	budget, err := aiusage.NewFeatureBudget(tenantID, aiusage.FeatureOCR, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, budgetRepo.Save(context.Background(), budget))

	router := gin.New()
	router.DELETE("/ai/policies/budgets/:id", handler.DeleteBudget)

	req := httptest.NewRequest(http.MethodDelete, "/ai/policies/budgets/"+budget.ID.String(), nil)
	req.Header.Set("X-Tenant-ID", tenantID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, budgetRepo.budgets)
}

func TestAIPolicyHandler_ListDisabledFeatures(t *testing.T) {
	handler, _, _, switchRepo := setupPolicyTestHandler()
	switchRepo.disabled = []aiusage.Feature{aiusage.FeatureChat, aiusage.FeatureOCR}

	c, w := aiTestContext(t, http.MethodGet, "/ai/features/disabled", uuid.New(), uuid.New(), nil)

	handler.ListDisabledFeatures(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	features := resp.Data.([]any)
	assert.Equal(t, []any{"chat", "ocr"}, features)
}

func TestAIPolicyHandler_EnableFeature(t *testing.T) {
	handler, _, _, switchRepo := setupPolicyTestHandler()
	switchRepo.disabled = []aiusage.Feature{aiusage.FeatureChat}

	router := gin.New()
	router.POST("/ai/features/:feature/enable", handler.EnableFeature)

	req := httptest.NewRequest(http.MethodPost, "/ai/features/chat/enable", nil)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, switchRepo.disabled)
}

func TestAIPolicyHandler_EnableFeature_UnknownFeature(t *testing.T) {
	handler, _, _, _ := setupPolicyTestHandler()

	router := gin.New()
	router.POST("/ai/features/:feature/enable", handler.EnableFeature)

	req := httptest.NewRequest(http.MethodPost, "/ai/features/telepathy/enable", nil)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
