package service

import (
	"context"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/scanner"
)

// SendReport delivers one tick's signals as an HTML message.
func (t *Telegram) SendReport(ctx context.Context, tenant models.TenantID, report models.Report) error {
	chatID, err := tenantChat(tenant)
	if err != nil {
		return err
	}
	text := formatReport(report)
	if text == "" {
		return nil
	}
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = tgbot.ModeHTML
	_, err = t.SendMessage(ctx, msg)
	return err
}

// SendText delivers a plain progress or status notice.
func (t *Telegram) SendText(ctx context.Context, tenant models.TenantID, text string) error {
	chatID, err := tenantChat(tenant)
	if err != nil {
		return err
	}
	_, err = t.Send(ctx, chatID, text)
	return err
}

var _ scanner.Sink = (*Telegram)(nil)
