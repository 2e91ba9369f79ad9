// Package notification turns engine events into operator alerts.
package notification

import (
	"context"
	"fmt"
	"strings"

	"callops_backend/internal/events"
	"callops_backend/internal/notification/email"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// AllocationGapSubscriber mails operations when an allocation pass leaves
// tasks without an eligible agent.
type AllocationGapSubscriber struct {
	sender email.Sender
	cfg    config.EmailConfig
	log    *logger.Logger
}

// NewAllocationGapSubscriber creates the subscriber.
func NewAllocationGapSubscriber(sender email.Sender, cfg config.EmailConfig, log *logger.Logger) *AllocationGapSubscriber {
	return &AllocationGapSubscriber{sender: sender, cfg: cfg, log: log}
}

// Handle processes one TasksUnallocatable event. Alert failures are logged,
// never propagated; a lost email must not fail an allocation pass.
func (s *AllocationGapSubscriber) Handle(ctx context.Context, event events.Event) error {
	gap, ok := event.(events.TasksUnallocatable)
	if !ok {
		return nil
	}

	if !s.cfg.GetEmailEnabled() || s.cfg.GetAlertRecipient() == "" {
		s.log.Debug("allocation gap alert skipped, email disabled", "runId", gap.RunID)
		return nil
	}

	subject := fmt.Sprintf("Allocation coverage gap: %d task(s) unassignable", gap.Unallocatable)
	body := fmt.Sprintf(
		"Allocation run %s left %d task(s) without an eligible agent.\n\n"+
			"Territories affected: %s\nLanguages affected: %s\n\n"+
			"Add agent language or territory coverage, then re-run allocation.",
		gap.RunID, gap.Unallocatable,
		joinOrDash(gap.Territories), joinOrDash(gap.Languages),
	)

	if err := s.sender.Send(ctx, s.cfg.GetAlertRecipient(), subject, body); err != nil {
		s.log.Error("failed to send allocation gap alert", "runId", gap.RunID, "error", err)
		return nil
	}

	s.log.Info("allocation gap alert sent", "runId", gap.RunID, "unallocatable", gap.Unallocatable)
	return nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
