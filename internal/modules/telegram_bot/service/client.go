package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bennert/crypto-scanner/internal/config"
	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/scanner"
	"github.com/bennert/crypto-scanner/internal/store"
)

// pollRef remembers what an open poll was asking so its answer can be
// routed back to the right setting.
type pollRef struct {
	chatID  int64
	kind    string
	options []string
}

// Telegram is the bot surface of the scanner: commands, setting polls and
// signal delivery.
type Telegram struct {
	bot      *tgbot.BotAPI
	cfg      *config.Config
	settings *store.Settings
	options  *Options

	// attached after construction, see Attach
	sched     *scanner.Scheduler
	generator *scanner.PairListGenerator
	market    exchange.MarketData

	mu          sync.Mutex
	polls       map[string]*pollRef
	curateFresh map[int64]bool
}

func NewTelegram(cfg *config.Config, settings *store.Settings, options *Options) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:         b,
		cfg:         cfg,
		settings:    settings,
		options:     options,
		polls:       make(map[string]*pollRef),
		curateFresh: make(map[int64]bool),
	}, nil
}

// Attach wires the scheduler, generator and market client in after the
// scanner module is built; they depend on the Telegram sink themselves.
func (t *Telegram) Attach(sched *scanner.Scheduler, generator *scanner.PairListGenerator, market exchange.MarketData) {
	t.sched = sched
	t.generator = generator
	t.market = market
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := t.bot.Request(edit)
	return err
}

func chatTenant(chatID int64) models.TenantID {
	return models.TenantID(strconv.FormatInt(chatID, 10))
}

func tenantChat(tenant models.TenantID) (int64, error) {
	return strconv.ParseInt(string(tenant), 10, 64)
}

// Start runs the long-polling update loop until the channel closes.
func (t *Telegram) Start(ctx context.Context) error {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for update := range updates {
		t.handleUpdate(ctx, update)
	}
	return nil
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}
