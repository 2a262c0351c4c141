// Package jobs defines the background tasks shared between the API binary
// (which enqueues) and the worker binary (which processes).
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/flaketech/quotebuilder/internal/jobs"
	"github.com/flaketech/quotebuilder/internal/quotation"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeCRMExport mirrors a finalized quotation into the CRM.
	TaskTypeCRMExport = "crm:export"
	// TaskTypePasswordResetMail delivers a temporary password.
	TaskTypePasswordResetMail = "mail:password_reset"
)

// CRMExportPayload carries everything the export needs; the worker never
// reads session state.
type CRMExportPayload struct {
	Snapshot  quotation.Snapshot `json:"snapshot"`
	UserEmail string             `json:"user_email"`
}

// NewCRMExportTask constructs an Asynq task.
func NewCRMExportTask(payload CRMExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCRMExport, data), nil
}

// PasswordResetMailPayload carries the temporary credentials email.
type PasswordResetMailPayload struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	TempPassword string `json:"temp_password"`
}

// NewPasswordResetMailTask constructs an Asynq task.
func NewPasswordResetMailTask(payload PasswordResetMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePasswordResetMail, data), nil
}

// Exporter is implemented by the CRM exporter.
type Exporter interface {
	Export(ctx context.Context, snap quotation.Snapshot, userEmail string) ([]string, error)
}

// NewCRMExportHandler processes TaskTypeCRMExport tasks. Export failures are
// retried by Asynq; malformed payloads are not.
func NewCRMExportHandler(logger *slog.Logger, exporter Exporter, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("crm_export")
		var payload CRMExportPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("crm export payload malformed", slog.Any("error", err))
			return tracker.End(fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry))
		}

		warnings, err := exporter.Export(ctx, payload.Snapshot, payload.UserEmail)
		for _, warning := range warnings {
			logger.Warn("crm export warning",
				slog.String("company", payload.Snapshot.Details.CompanyName),
				slog.String("warning", warning))
		}
		if err != nil {
			logger.Error("crm export failed",
				slog.String("company", payload.Snapshot.Details.CompanyName),
				slog.Any("error", err))
		}
		return tracker.End(err)
	}
}

// Sender is implemented by the SMTP mailer.
type Sender interface {
	Send(to, subject, body string) error
}

// NewPasswordResetMailHandler processes TaskTypePasswordResetMail tasks.
func NewPasswordResetMailHandler(logger *slog.Logger, sender Sender, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("password_reset_mail")
		var payload PasswordResetMailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("password reset payload malformed", slog.Any("error", err))
			return tracker.End(fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry))
		}

		body := fmt.Sprintf(
			"Hello %s,\n\nYour password has been reset. Temporary password:\n\n    %s\n\nPlease sign in and change it immediately.\n",
			payload.Name, payload.TempPassword)
		err := sender.Send(payload.Email, "Your temporary password", body)
		if err != nil {
			logger.Error("password reset mail failed", slog.String("email", payload.Email), slog.Any("error", err))
		} else {
			logger.Info("password reset mail sent", slog.String("email", payload.Email))
		}
		return tracker.End(err)
	}
}
