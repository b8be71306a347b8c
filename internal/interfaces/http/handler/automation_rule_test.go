package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	automationapp "github.com/propman/backend/internal/application/automation"
	"github.com/propman/backend/internal/domain/automation"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementation for the automation rule repository

type fakeRuleRepo struct {
	rules map[uuid.UUID]*automation.AutomationRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*automation.AutomationRule)}
}

func (f *fakeRuleRepo) Save(ctx context.Context, rule *automation.AutomationRule) error {
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeRuleRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*automation.AutomationRule, error) {
	if rule, ok := f.rules[id]; ok && rule.TenantID == tenantID {
		return rule, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRuleRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*automation.AutomationRule, error) {
	var result []*automation.AutomationRule
	for _, rule := range f.rules {
		if rule.TenantID == tenantID {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (f *fakeRuleRepo) FindActive(ctx context.Context) ([]*automation.AutomationRule, error) {
	var result []*automation.AutomationRule
	for _, rule := range f.rules {
		if rule.IsActive {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (f *fakeRuleRepo) ClaimFiring(ctx context.Context, ruleID uuid.UUID, prev *time.Time, firedAt time.Time) (bool, error) {
	rule, ok := f.rules[ruleID]
	if !ok {
		return false, shared.ErrNotFound
	}
	if (rule.LastExecution == nil) != (prev == nil) {
		return false, nil
	}
	if prev != nil && !rule.LastExecution.Equal(*prev) {
		return false, nil
	}
	rule.LastExecution = &firedAt
	rule.ExecutionCount++
	return true, nil
}

func (f *fakeRuleRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if rule, ok := f.rules[id]; ok && rule.TenantID == tenantID {
		delete(f.rules, id)
		return nil
	}
	return shared.ErrNotFound
}

// Test helper functions

func setupRuleTestHandler() (*AutomationRuleHandler, *fakeRuleRepo) {
	gin.SetMode(gin.TestMode)

	repo := newFakeRuleRepo()
	service := automationapp.NewRuleService(repo, zap.NewNop())
	return NewAutomationRuleHandler(service), repo
}

func createTestRule(t *testing.T, repo *fakeRuleRepo, tenantID uuid.UUID) *automation.AutomationRule {
	t.Helper()

	trigger, err := automation.ParseTriggerConfig(automation.TriggerBudgetThreshold,
		json.RawMessage(`{"feature":"ocr","threshold_percent":80}`))
	require.NoError(t, err)
	action, err := automation.ParseActionConfig(automation.ActionWebhook,
		json.RawMessage(`{"url":"https://example.com/hook"}`))
	require.NoError(t, err)

	rule, err := automation.NewAutomationRule(tenantID, "Budget alert", "",
		automation.TriggerBudgetThreshold, trigger,
		automation.ActionWebhook, action, 60)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), rule))

	return rule
}

// Tests

func TestAutomationRuleHandler_Create_Success(t *testing.T) {
	handler, repo := setupRuleTestHandler()

	tenantID := uuid.New()
	c, w := aiTestContext(t, http.MethodPost, "/ai/automation/rules", tenantID, uuid.New(), CreateAutomationRuleRequest{
		Name:            "Budget alert",
		Description:     "Notify finance at 80% budget",
		TriggerType:     "budget_threshold",
		TriggerConfig:   json.RawMessage(`{"feature":"ocr","threshold_percent":80}`),
		ActionType:      "send_notification",
		ActionConfig:    json.RawMessage(`{"channel":"finance","message":"OCR spend is at 80%"}`),
		CooldownMinutes: 60,
	})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.rules, 1)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["is_active"])
	assert.Equal(t, string(automation.StateArmed), data["state"])
}

func TestAutomationRuleHandler_Create_InvalidTriggerType(t *testing.T) {
	handler, _ := setupRuleTestHandler()

	c, w := aiTestContext(t, http.MethodPost, "/ai/automation/rules", uuid.New(), uuid.New(), CreateAutomationRuleRequest{
		Name:          "Broken",
		TriggerType:   "bogus",
		TriggerConfig: json.RawMessage(`{}`),
		ActionType:    "webhook",
		ActionConfig:  json.RawMessage(`{"url":"https://example.com/hook"}`),
	})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutomationRuleHandler_Create_InvalidTriggerConfig(t *testing.T) {
	handler, _ := setupRuleTestHandler()

	c, w := aiTestContext(t, http.MethodPost, "/ai/automation/rules", uuid.New(), uuid.New(), CreateAutomationRuleRequest{
		Name:          "Broken",
		TriggerType:   "budget_threshold",
		TriggerConfig: json.RawMessage(`{"feature":"ocr","threshold_percent":150}`),
		ActionType:    "webhook",
		ActionConfig:  json.RawMessage(`{"url":"https://example.com/hook"}`),
	})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutomationRuleHandler_List(t *testing.T) {
	handler, repo := setupRuleTestHandler()

	tenantID := uuid.New()
	createTestRule(t, repo, tenantID)
	createTestRule(t, repo, uuid.New()) // another tenant

	c, w := aiTestContext(t, http.MethodGet, "/ai/automation/rules", tenantID, uuid.New(), nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	rules := resp.Data.([]any)
	assert.Len(t, rules, 1)
}

func TestAutomationRuleHandler_Update(t *testing.T) {
	handler, repo := setupRuleTestHandler()

	tenantID := uuid.New()
	rule := createTestRule(t, repo, tenantID)

	c, w := aiTestContext(t, http.MethodPut, "/ai/automation/rules/"+rule.ID.String(), tenantID, uuid.New(), UpdateAutomationRuleRequest{
		Name:            "Budget alert v2",
		TriggerType:     "budget_threshold",
		TriggerConfig:   json.RawMessage(`{"feature":"ocr","threshold_percent":90}`),
		ActionType:      "webhook",
		ActionConfig:    json.RawMessage(`{"url":"https://example.com/hook2"}`),
		CooldownMinutes: 30,
	})
	c.Params = gin.Params{{Key: "id", Value: rule.ID.String()}}

	handler.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Budget alert v2", data["name"])
	assert.Equal(t, float64(30), data["cooldown_minutes"])
}

func TestAutomationRuleHandler_Deactivate_Activate(t *testing.T) {
	handler, repo := setupRuleTestHandler()

	tenantID := uuid.New()
	rule := createTestRule(t, repo, tenantID)

	c, w := aiTestContext(t, http.MethodPost, "/ai/automation/rules/"+rule.ID.String()+"/deactivate", tenantID, uuid.New(), nil)
	c.Params = gin.Params{{Key: "id", Value: rule.ID.String()}}
	handler.Deactivate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, repo.rules[rule.ID].IsActive)

	c, w = aiTestContext(t, http.MethodPost, "/ai/automation/rules/"+rule.ID.String()+"/activate", tenantID, uuid.New(), nil)
	c.Params = gin.Params{{Key: "id", Value: rule.ID.String()}}
	handler.Activate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.rules[rule.ID].IsActive)
}

func TestAutomationRuleHandler_Delete_NotFound(t *testing.T) {
	handler, _ := setupRuleTestHandler()

	ruleID := uuid.NewString()
	c, w := aiTestContext(t, http.MethodDelete, "/ai/automation/rules/"+ruleID, uuid.New(), uuid.New(), nil)
	c.Params = gin.Params{{Key: "id", Value: ruleID}}

	handler.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
