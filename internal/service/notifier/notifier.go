package notifier

import (
	"context"

	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/models"
)

// Publisher delivers transaction event to the event stream
// Delivery is at most once: failed events are not retried
type Publisher interface {
	Publish(ctx context.Context, event models.TransactionEvent) error
}

// LogPublisher only writes events to the log
// Used when no event stream is configured
type LogPublisher struct {
	logger logger.Logger
}

func NewLogPublisher(logger logger.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.TransactionEvent) error {
	p.logger.Info("Transaction event",
		"transaction_id", event.TransactionID,
		"user_id", event.UserID,
		"wallet_id", event.WalletID,
		"type", event.Type,
		"amount", event.Amount.String(),
		"timestamp", event.Timestamp,
	)
	return nil
}
