package notification

import (
	"callops_backend/internal/events"
	"callops_backend/internal/notification/email"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// Module owns alerting. It registers bus subscriptions and exposes no routes.
type Module struct {
	Sender email.Sender
}

// New assembles the notification module and subscribes it to engine events.
func New(cfg config.EmailConfig, bus events.Bus, log *logger.Logger) *Module {
	sender := email.NewSMTPSender(
		cfg.GetSMTPHost(), cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
	)

	gapAlerts := NewAllocationGapSubscriber(sender, cfg, log)
	bus.Subscribe(events.TasksUnallocatable{}.EventName(), gapAlerts)

	return &Module{Sender: sender}
}
