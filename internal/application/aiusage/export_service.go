package aiusage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/propman/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ObjectStorageService abstracts the object store exports are written to
type ObjectStorageService interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ExportUsageInput contains input for a ledger export
type ExportUsageInput struct {
	TenantID uuid.UUID
	From     time.Time
	To       time.Time
	Feature  *aiusage.Feature
}

// ExportResultDTO describes a completed export
type ExportResultDTO struct {
	StorageKey  string    `json:"storage_key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	RowCount    int       `json:"row_count"`
}

// ExportService writes ledger extracts as CSV objects for finance teams.
// Reads are paged through the normal ledger filter so large tenants do not
// load the whole window at once.
type ExportService struct {
	usageRepo aiusage.UsageEventRepository
	storage   ObjectStorageService
	logger    *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	usageRepo aiusage.UsageEventRepository,
	storage ObjectStorageService,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		usageRepo: usageRepo,
		storage:   storage,
		logger:    logger,
	}
}

const exportPageSize = 1000

// ExportUsage extracts ledger entries for the given window into a CSV object
// and returns a presigned download link
func (s *ExportService) ExportUsage(ctx context.Context, input ExportUsageInput) (*ExportResultDTO, error) {
	if input.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !input.From.Before(input.To) {
		return nil, shared.NewDomainError("INVALID_RANGE", "Export range start must precede end")
	}
	if input.Feature != nil && !input.Feature.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Invalid AI feature")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{
		"occurred_at", "feature", "caller_id", "model",
		"input_tokens", "output_tokens", "cost", "success",
	}); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to build export")
	}

	rows := 0
	filter := aiusage.DefaultUsageEventFilter().WithTimeRange(input.From, input.To)
	filter.PageSize = exportPageSize
	filter.OrderDir = "asc"
	if input.Feature != nil {
		filter = filter.WithFeature(*input.Feature)
	}

	for page := 1; ; page++ {
		filter.Page = page
		events, err := s.usageRepo.FindByTenant(ctx, input.TenantID, filter)
		if err != nil {
			s.logger.Error("Failed to read ledger for export",
				zap.String("tenant_id", input.TenantID.String()),
				zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to read usage events")
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			record := []string{
				event.OccurredAt.UTC().Format(time.RFC3339),
				string(event.Feature),
				event.CallerID.String(),
				event.Model,
				strconv.FormatInt(event.InputTokens, 10),
				strconv.FormatInt(event.OutputTokens, 10),
				event.Cost.String(),
				strconv.FormatBool(event.Success),
			}
			if err := writer.Write(record); err != nil {
				return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to build export")
			}
			rows++
		}

		if len(events) < exportPageSize {
			break
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to build export")
	}

	key := fmt.Sprintf("exports/%s/usage-%s-%s.csv",
		input.TenantID,
		input.From.UTC().Format("20060102"),
		input.To.UTC().Format("20060102"))

	if err := s.storage.Upload(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		s.logger.Error("Failed to upload export", zap.String("key", key), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to store export")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, 0)
	if err != nil {
		s.logger.Error("Failed to presign export", zap.String("key", key), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to presign export")
	}

	s.logger.Info("Usage export completed",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("key", key),
		zap.Int("rows", rows))

	return &ExportResultDTO{
		StorageKey:  key,
		DownloadURL: url,
		ExpiresAt:   expiresAt,
		RowCount:    rows,
	}, nil
}
