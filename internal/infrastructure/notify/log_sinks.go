package notify

import (
	"context"

	"github.com/propman/backend/internal/domain/automation"
	"go.uber.org/zap"
)

// LogEmailSender is a placeholder implementation of automation.EmailSender.
// It records the delivery intent in the log.
// Use this for development until a real mail backend is wired.
type LogEmailSender struct {
	logger *zap.Logger
}

// NewLogEmailSender creates a new LogEmailSender
func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

// SendEmail logs the email that would have been sent
func (s *LogEmailSender) SendEmail(ctx context.Context, action automation.SendEmailAction, payload automation.FiringPayload) error {
	s.logger.Info("Email alert dispatched",
		zap.Strings("recipients", action.Recipients),
		zap.String("subject", action.Subject),
		zap.String("rule_name", payload.RuleName),
		zap.String("reason", payload.Reason))
	return nil
}

// LogTaskCreator is a placeholder implementation of automation.TaskCreator.
// It records the task that would have been opened.
// Use this for development until the task system integration is wired.
type LogTaskCreator struct {
	logger *zap.Logger
}

// NewLogTaskCreator creates a new LogTaskCreator
func NewLogTaskCreator(logger *zap.Logger) *LogTaskCreator {
	return &LogTaskCreator{logger: logger}
}

// CreateTask logs the task that would have been created
func (s *LogTaskCreator) CreateTask(ctx context.Context, action automation.CreateTaskAction, payload automation.FiringPayload) error {
	s.logger.Info("Task created from automation rule",
		zap.String("title", action.Title),
		zap.String("assignee_id", action.AssigneeID),
		zap.String("priority", action.Priority),
		zap.String("rule_name", payload.RuleName))
	return nil
}

// Ensure the log sinks implement their interfaces
var (
	_ automation.EmailSender = (*LogEmailSender)(nil)
	_ automation.TaskCreator = (*LogTaskCreator)(nil)
)
