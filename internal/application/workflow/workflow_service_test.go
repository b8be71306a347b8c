package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWorkflowRepository struct {
	mock.Mock
}

func (m *mockWorkflowRepository) Save(ctx context.Context, definition *workflow.Definition) error {
	args := m.Called(ctx, definition)
	return args.Error(0)
}

func (m *mockWorkflowRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*workflow.Definition, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Definition), args.Error(1)
}

func (m *mockWorkflowRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, templatesOnly bool) ([]*workflow.Definition, error) {
	args := m.Called(ctx, tenantID, templatesOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*workflow.Definition), args.Error(1)
}

func (m *mockWorkflowRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func testPrices() *aiusage.PriceTable {
	return aiusage.NewPriceTable(map[string]decimal.Decimal{
		"cheap":     decimal.RequireFromString("0.0008"),
		"expensive": decimal.RequireFromString("0.015"),
	}, decimal.RequireFromString("0.01"))
}

func TestWorkflowService_CreateWorkflow(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()

	t.Run("creates with steps and cost estimate", func(t *testing.T) {
		repo := new(mockWorkflowRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*workflow.Definition")).Return(nil)

		service := NewWorkflowService(repo, testPrices(), zap.NewNop())
		dto, err := service.CreateWorkflow(ctx, CreateWorkflowInput{
			TenantID: tenantID,
			Name:     "Lease intake",
			Steps: []StepInput{
				{Feature: aiusage.FeatureOCR, Model: "cheap", MaxTokens: 500},
				{Feature: aiusage.FeatureAnalysis, Model: "expensive", MaxTokens: 200},
			},
		})

		require.NoError(t, err)
		require.Len(t, dto.Steps, 2)
		assert.Equal(t, 1, dto.Steps[0].Order)
		assert.Equal(t, 2, dto.Steps[1].Order)
		assert.True(t, dto.EstimatedCostPerRun.Equal(decimal.RequireFromString("0.0034")),
			"got %s", dto.EstimatedCostPerRun)
		repo.AssertExpectations(t)
	})

	t.Run("invalid step aborts creation", func(t *testing.T) {
		repo := new(mockWorkflowRepository)
		service := NewWorkflowService(repo, testPrices(), zap.NewNop())

		_, err := service.CreateWorkflow(ctx, CreateWorkflowInput{
			TenantID: tenantID,
			Name:     "Broken",
			Steps:    []StepInput{{Feature: aiusage.FeatureOCR, Model: "", MaxTokens: 10}},
		})

		assert.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestWorkflowService_RemoveStep(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()
	prices := testPrices()

	definition, err := workflow.NewDefinition(tenantID, "Pipeline", "", false)
	require.NoError(t, err)
	require.NoError(t, definition.AddStep(aiusage.FeatureOCR, "cheap", 500, prices))
	require.NoError(t, definition.AddStep(aiusage.FeatureAnalysis, "expensive", 200, prices))

	repo := new(mockWorkflowRepository)
	repo.On("FindByID", ctx, tenantID, definition.ID).Return(definition, nil)
	repo.On("Save", ctx, definition).Return(nil)

	service := NewWorkflowService(repo, prices, zap.NewNop())
	dto, err := service.RemoveStep(ctx, tenantID, definition.ID, 1)

	require.NoError(t, err)
	require.Len(t, dto.Steps, 1)
	assert.Equal(t, 1, dto.Steps[0].Order, "remaining step renumbered to 1")
	assert.True(t, dto.EstimatedCostPerRun.Equal(decimal.RequireFromString("0.003")),
		"got %s", dto.EstimatedCostPerRun)
}

func TestWorkflowService_DuplicateWorkflow(t *testing.T) {
	tenantID := uuid.New()
	ctx := context.Background()
	prices := testPrices()

	template, err := workflow.NewDefinition(tenantID, "Standard intake", "", true)
	require.NoError(t, err)
	require.NoError(t, template.AddStep(aiusage.FeatureOCR, "cheap", 500, prices))

	repo := new(mockWorkflowRepository)
	repo.On("FindByID", ctx, tenantID, template.ID).Return(template, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*workflow.Definition")).Return(nil)

	service := NewWorkflowService(repo, prices, zap.NewNop())
	dto, err := service.DuplicateWorkflow(ctx, tenantID, template.ID, "March intake")

	require.NoError(t, err)
	assert.NotEqual(t, template.ID, dto.ID)
	assert.False(t, dto.IsTemplate)
	assert.Equal(t, "March intake", dto.Name)
	require.Len(t, dto.Steps, 1)
}
