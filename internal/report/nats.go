package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/spounge-ai/sysaudit/internal/domain"
)

// MsgPublisher is satisfied by *nats.Conn.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// LedgerPublisher publishes each host ledger as JSON on
// <subject>.<sid>.
type LedgerPublisher struct {
	conn    MsgPublisher
	subject string
	logger  *slog.Logger
}

func NewLedgerPublisher(conn MsgPublisher, subject string, logger *slog.Logger) *LedgerPublisher {
	return &LedgerPublisher{conn: conn, subject: subject, logger: logger}
}

func (p *LedgerPublisher) Name() string { return "nats" }

func (p *LedgerPublisher) Publish(ctx context.Context, report *domain.PassReport) error {
	for _, l := range report.Ledgers {
		data, err := json.Marshal(newLedgerMessage(report, l))
		if err != nil {
			return fmt.Errorf("failed to marshal ledger %s: %w", l.Host.SID, err)
		}

		msg := nats.NewMsg(p.subject + "." + l.Host.SID)
		msg.Data = data
		msg.Header.Set(nats.MsgIdHdr, report.ID+"-"+l.Host.SID)
		msg.Header.Set("Content-Type", "application/json")
		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("failed to publish ledger %s: %w", l.Host.SID, err)
		}
	}

	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush ledgers: %w", err)
	}
	p.logger.DebugContext(ctx, "ledgers published", "subject", p.subject, "count", len(report.Ledgers))
	return nil
}
