package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransferSent tells a sender their wallet was debited.
	KindTransferSent = "transfer_sent"
	// KindTransferReceived tells a recipient their wallet was credited.
	KindTransferReceived = "transfer_received"
	// KindWalletFunded confirms an external top-up.
	KindWalletFunded = "wallet_funded"
	// KindOwnershipReceived tells a new owner a resource was transferred to them.
	KindOwnershipReceived = "ownership_received"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. Used when no broker is
// configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Contacts resolves where to reach a user. An empty result skips delivery.
type Contacts interface {
	Phone(ctx context.Context, userID string) string
}
