package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"github.com/propman/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsageEventRepository implements the aiusage.UsageEventRepository interface.
// The ledger is append-only: there is no update or delete path.
type UsageEventRepository struct {
	db *gorm.DB
}

// NewUsageEventRepository creates a new usage event repository
func NewUsageEventRepository(db *gorm.DB) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

// Save appends a new usage event to the ledger
func (r *UsageEventRepository) Save(ctx context.Context, event *aiusage.UsageEvent) error {
	model := models.UsageEventModelFromDomain(event)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID retrieves a usage event by its ID
func (r *UsageEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*aiusage.UsageEvent, error) {
	var model models.UsageEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant retrieves usage events for a tenant matching the filter
func (r *UsageEventRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter aiusage.UsageEventFilter) ([]*aiusage.UsageEvent, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	var eventModels []models.UsageEventModel
	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]*aiusage.UsageEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = model.ToDomain()
	}
	return events, nil
}

// CountByCaller counts invocation attempts for a caller within [start, end),
// optionally scoped to a feature
func (r *UsageEventRepository) CountByCaller(ctx context.Context, tenantID, callerID uuid.UUID, feature *aiusage.Feature, start, end time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("tenant_id = ?", tenantID).
		Where("caller_id = ?", callerID).
		Where("occurred_at >= ?", start).
		Where("occurred_at < ?", end)
	if feature != nil {
		query = query.Where("feature = ?", string(*feature))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByFeature counts invocation attempts for a feature within [start, end)
func (r *UsageEventRepository) CountByFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("tenant_id = ?", tenantID).
		Where("feature = ?", string(feature)).
		Where("occurred_at >= ?", start).
		Where("occurred_at < ?", end).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountFailuresByFeature counts failed attempts within [start, end). A nil
// feature counts failures across all features.
func (r *UsageEventRepository) CountFailuresByFeature(ctx context.Context, tenantID uuid.UUID, feature *aiusage.Feature, start, end time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("tenant_id = ?", tenantID).
		Where("success = ?", false).
		Where("occurred_at >= ?", start).
		Where("occurred_at < ?", end)
	if feature != nil {
		query = query.Where("feature = ?", string(*feature))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumCostByFeature sums event cost for a feature within [start, end). When
// successOnly is true, failed attempts are excluded (budget semantics).
// Costs are summed in Go rather than with SQL SUM: drivers without a native
// numeric type accumulate the decimal column as float and lose exactness.
func (r *UsageEventRepository) SumCostByFeature(ctx context.Context, tenantID uuid.UUID, feature aiusage.Feature, successOnly bool, start, end time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("tenant_id = ?", tenantID).
		Where("feature = ?", string(feature)).
		Where("occurred_at >= ?", start).
		Where("occurred_at < ?", end)
	if successOnly {
		query = query.Where("success = ?", true)
	}
	return sumCosts(query)
}

// SumCost sums event cost across all features within [start, end)
func (r *UsageEventRepository) SumCost(ctx context.Context, tenantID uuid.UUID, successOnly bool, start, end time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("tenant_id = ?", tenantID).
		Where("occurred_at >= ?", start).
		Where("occurred_at < ?", end)
	if successOnly {
		query = query.Where("success = ?", true)
	}
	return sumCosts(query)
}

// sumCosts plucks the matching cost values and adds them as decimals
func sumCosts(query *gorm.DB) (decimal.Decimal, error) {
	var costs []decimal.Decimal
	if err := query.Pluck("cost", &costs).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, cost := range costs {
		total = total.Add(cost)
	}
	return total, nil
}

// AggregateByModel returns per-feature, per-model aggregates within [start, end).
// Token counts and invocations group in SQL; costs accumulate in Go so the
// totals stay exact decimals on every driver.
func (r *UsageEventRepository) AggregateByModel(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]aiusage.ModelAggregate, error) {
	type eventRow struct {
		Feature      string
		Model        string
		InputTokens  int64
		OutputTokens int64
		Cost         decimal.Decimal
	}

	var rows []eventRow
	err := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Select("feature, model, input_tokens, output_tokens, cost").
		Where("tenant_id = ?", tenantID).
		Where("occurred_at >= ?", start).
		Where("occurred_at < ?", end).
		Order("feature ASC, model ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var aggregates []aiusage.ModelAggregate
	for _, row := range rows {
		n := len(aggregates)
		if n == 0 || aggregates[n-1].Feature != aiusage.Feature(row.Feature) || aggregates[n-1].Model != row.Model {
			aggregates = append(aggregates, aiusage.ModelAggregate{
				Feature:   aiusage.Feature(row.Feature),
				Model:     row.Model,
				TotalCost: decimal.Zero,
			})
			n++
		}
		agg := &aggregates[n-1]
		agg.Invocations++
		agg.TotalTokens += row.InputTokens + row.OutputTokens
		agg.TotalCost = agg.TotalCost.Add(row.Cost)
	}
	return aggregates, nil
}

// applyFilter applies filter options to a ledger query
func (r *UsageEventRepository) applyFilter(query *gorm.DB, filter aiusage.UsageEventFilter) *gorm.DB {
	if filter.StartTime != nil {
		query = query.Where("occurred_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("occurred_at < ?", *filter.EndTime)
	}
	if filter.Feature != nil {
		query = query.Where("feature = ?", string(*filter.Feature))
	}
	if filter.CallerID != nil {
		query = query.Where("caller_id = ?", *filter.CallerID)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}

	// Apply ordering with validation to prevent SQL injection
	orderBy := ValidateSortField(filter.OrderBy, UsageEventSortFields, "occurred_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	// Apply pagination
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 1 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	return query
}

// UsageEventSortFields contains allowed sort fields for ledger queries
var UsageEventSortFields = map[string]bool{
	"id":          true,
	"occurred_at": true,
	"created_at":  true,
	"feature":     true,
	"model":       true,
	"cost":        true,
}

// Ensure UsageEventRepository implements the interface
var _ aiusage.UsageEventRepository = (*UsageEventRepository)(nil)
