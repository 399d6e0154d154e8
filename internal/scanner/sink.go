package scanner

import (
	"context"

	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

// Sink delivers scan results and progress notices to a chat. The Telegram
// module provides the production implementation; LogSink is the fallback
// when no bot token is configured.
type Sink interface {
	SendReport(ctx context.Context, tenant models.TenantID, report models.Report) error
	SendText(ctx context.Context, tenant models.TenantID, text string) error
}

// LogSink writes everything to the service log.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) SendReport(ctx context.Context, tenant models.TenantID, report models.Report) error {
	for _, s := range report.Buys {
		logger.Info("[report] chat=%s tf=%dm BUY %s close=%.8g", tenant, report.Timeframe, s.Snapshot.Pair, s.Snapshot.Close)
	}
	for _, s := range report.Sells {
		logger.Info("[report] chat=%s tf=%dm SELL %s close=%.8g", tenant, report.Timeframe, s.Snapshot.Pair, s.Snapshot.Close)
	}
	return nil
}

func (LogSink) SendText(ctx context.Context, tenant models.TenantID, text string) error {
	logger.Info("[notice] chat=%s %s", tenant, text)
	return nil
}

var _ Sink = LogSink{}
