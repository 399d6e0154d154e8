package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/scanner"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

const (
	btnStart    = "▶️ Start signals"
	btnStop     = "⏹ Stop signals"
	btnStatus   = "📊 Status"
	btnSettings = "⚙️ Settings"
	btnPairs    = "🔄 Update pair list"
	btnShow     = "📋 Pair list"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	if ans := update.PollAnswer; ans != nil {
		t.handlePollAnswer(ctx, ans)
		return
	}

	if msg := update.Message; msg != nil {
		chatID := msg.Chat.ID

		if msg.IsCommand() {
			switch msg.Command() {
			case "start":
				if err := t.handleStart(ctx, chatID); err != nil {
					logger.Error("handleStart error: %v", err)
				}
			case "startsignals":
				t.handleStartSignals(ctx, chatID)
			case "stopsignals":
				t.handleStopSignals(ctx, chatID)
			case "status":
				t.handleStatus(ctx, chatID)
			case "updatepairlist":
				t.handleUpdatePairList(ctx, chatID)
			case "pairlist":
				t.handleShowPairList(ctx, chatID)
			case "settings":
				t.handleSettingsMenu(ctx, chatID)
			default:
				_, _ = t.Send(ctx, chatID, "Unknown command, try /start")
			}
			return
		}

		t.handleTextMessage(ctx, msg)
		return
	}

	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		t.handleCallback(ctx, cb.Message.Chat.ID, cb)
		return
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64) error {
	replyKb := tgbot.NewReplyKeyboard(
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnStart),
			tgbot.NewKeyboardButton(btnStop),
		),
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnSettings),
			tgbot.NewKeyboardButton(btnStatus),
		),
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnPairs),
			tgbot.NewKeyboardButton(btnShow),
		),
	)

	msgText := "Hi! I scan crypto pairs for indicator buy/sell signals.\n\n" +
		"1️⃣ Pick exchange, base coin, volume, timeframes and triggers in " + btnSettings + ".\n" +
		"2️⃣ Build your pair list with " + btnPairs + ".\n" +
		"3️⃣ Start scanning with " + btnStart + "."

	msg := tgbot.NewMessage(chatID, msgText)
	msg.ReplyMarkup = replyKb
	_, err := t.SendMessage(ctx, msg)
	return err
}

func (t *Telegram) handleTextMessage(ctx context.Context, msg *tgbot.Message) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case btnStart:
		t.handleStartSignals(ctx, chatID)
	case btnStop:
		t.handleStopSignals(ctx, chatID)
	case btnStatus:
		t.handleStatus(ctx, chatID)
	case btnSettings:
		t.handleSettingsMenu(ctx, chatID)
	case btnPairs:
		t.handleUpdatePairList(ctx, chatID)
	case btnShow:
		t.handleShowPairList(ctx, chatID)
	}
}

func (t *Telegram) handleStartSignals(ctx context.Context, chatID int64) {
	tenant := chatTenant(chatID)

	set, missing, err := t.settings.Load(ctx, tenant)
	if err != nil {
		logger.Error("startsignals: chat=%d load: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "❗️ Could not load your settings, try again later.")
		return
	}
	if len(missing) == 0 && len(set.Triggers) == 0 {
		_, _ = t.Send(ctx, chatID, "❗️ No trigger indicators selected. Pick at least one in "+btnSettings+".")
		return
	}

	if err := t.sched.Start(ctx, tenant); err != nil {
		if errors.Is(err, scanner.ErrConfigIncomplete) {
			_, _ = t.SendF(ctx, chatID, "⚠️ Configuration incomplete (%v).\nFill in the missing settings via %s.", missing, btnSettings)
			t.handleSettingsMenu(ctx, chatID)
			return
		}
		logger.Error("startsignals: chat=%d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "❌ Could not start scanning: "+err.Error())
		return
	}

	if len(set.Pairs) == 0 {
		_, _ = t.Send(ctx, chatID, "✅ Scanning started, but your pair list is empty. Run "+btnPairs+" first.")
		return
	}
	_, _ = t.SendF(ctx, chatID, "✅ Scanning started: %d pairs, every %ds.", len(set.Pairs), t.cfg.Scanner.IntervalSeconds)
}

func (t *Telegram) handleStopSignals(ctx context.Context, chatID int64) {
	if err := t.sched.Stop(ctx, chatTenant(chatID)); err != nil {
		logger.Error("stopsignals: chat=%d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "⚠️ Could not stop scanning: "+err.Error())
		return
	}
	_, _ = t.Send(ctx, chatID, "🛑 Scanning stopped.")
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	tenant := chatTenant(chatID)
	state, err := t.sched.Status(ctx, tenant)
	if err != nil {
		logger.Error("status: chat=%d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "❗️ Could not read status: "+err.Error())
		return
	}

	set, missing, err := t.settings.Load(ctx, tenant)
	if err != nil {
		logger.Error("status: chat=%d load: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "ℹ️ Status: "+state.String())
		return
	}
	text := formatSettings(set, state)
	if len(missing) > 0 {
		text += fmt.Sprintf("\n⚠️ Missing: %s", strings.Join(missing, ", "))
	}
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = tgbot.ModeHTML
	_, _ = t.SendMessage(ctx, msg)
}

func (t *Telegram) handleUpdatePairList(ctx context.Context, chatID int64) {
	tenant := chatTenant(chatID)
	done, err := t.generator.Trigger(context.Background(), tenant)
	if err != nil {
		if errors.Is(err, scanner.ErrConcurrentPairListUpdate) {
			_, _ = t.Send(ctx, chatID, "⏳ A pair list update is already running.")
			return
		}
		logger.Error("updatepairlist: chat=%d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "❌ Could not start pair list update: "+err.Error())
		return
	}
	_, _ = t.Send(ctx, chatID, "🔄 Updating pair list, this can take a while...")

	go func() {
		runErr := <-done
		bg := context.Background()
		switch {
		case runErr == nil:
			set, _, err := t.settings.Load(bg, tenant)
			if err != nil {
				_, _ = t.Send(bg, chatID, "✅ Pair list updated.")
				return
			}
			_, _ = t.SendF(bg, chatID, "✅ Pair list updated: %d pairs.", len(set.Pairs))
		case errors.Is(runErr, scanner.ErrPairListTooLarge):
			_, _ = t.SendF(bg, chatID, "⚠️ %v.\nThe list was saved but scanning will not auto-start. Raise the volume filter or pick the pairs to keep below.", runErr)
			t.startCuration(bg, chatID)
		case errors.Is(runErr, scanner.ErrConfigIncomplete):
			_, _ = t.SendF(bg, chatID, "⚠️ Configuration incomplete: %v. Fill in the settings first.", runErr)
		default:
			logger.Error("updatepairlist: chat=%d run: %v", chatID, runErr)
			_, _ = t.Send(bg, chatID, "❌ Pair list update failed: "+runErr.Error())
		}
	}()
}

func (t *Telegram) handleShowPairList(ctx context.Context, chatID int64) {
	set, _, err := t.settings.Load(ctx, chatTenant(chatID))
	if err != nil {
		logger.Error("pairlist: chat=%d load: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "❗️ Could not load your settings.")
		return
	}
	if len(set.Pairs) == 0 {
		_, _ = t.Send(ctx, chatID, "📭 Pair list is empty. Run "+btnPairs+".")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %d pairs:\n", len(set.Pairs))
	for _, pair := range set.Pairs {
		ticker, err := t.market.FetchTicker(ctx, pair)
		if err != nil {
			fmt.Fprintf(&b, "%s\n", pair)
			continue
		}
		fmt.Fprintf(&b, "%s  %sM\n", pair, f2(ticker.QuoteVolume/1e6))
	}
	_, _ = t.Send(ctx, chatID, b.String())
}

// curatePollSize is the Telegram poll option limit.
const curatePollSize = 10

// startCuration offers the oversized pair list back as a series of
// multi-answer polls. The first answered poll replaces the stored list,
// later answers add to it.
func (t *Telegram) startCuration(ctx context.Context, chatID int64) {
	set, _, err := t.settings.Load(ctx, chatTenant(chatID))
	if err != nil || len(set.Pairs) < 2 {
		return
	}

	t.mu.Lock()
	t.curateFresh[chatID] = true
	t.mu.Unlock()

	pairs := set.Pairs
	for len(pairs) > 0 {
		n := curatePollSize
		if len(pairs) < n {
			n = len(pairs)
		}
		// polls need at least two options, steal one from this chunk
		if rest := len(pairs) - n; rest == 1 {
			n--
		}
		chunk := pairs[:n]
		pairs = pairs[n:]
		t.sendPoll(ctx, chatID, "curate", fmt.Sprintf("Keep which of these %d pairs?", len(chunk)), chunk, nil, true)
	}
}

func (t *Telegram) handleSettingsMenu(ctx context.Context, chatID int64) {
	kb := tgbot.NewInlineKeyboardMarkup(
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("🏦 Exchange", "set_exchange"),
			tgbot.NewInlineKeyboardButtonData("💰 Base coin", "set_basecoin"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("📊 Min volume", "set_minvol"),
			tgbot.NewInlineKeyboardButtonData("⏱ Timeframes", "set_timeframes"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("🎯 Triggers", "set_triggers"),
			tgbot.NewInlineKeyboardButtonData("📐 StochRSI floor", "set_stochrsi"),
		),
	)
	msg := tgbot.NewMessage(chatID, "Pick a setting to change:")
	msg.ReplyMarkup = kb
	_, _ = t.SendMessage(ctx, msg)
}

func (t *Telegram) handleCallback(ctx context.Context, chatID int64, cb *tgbot.CallbackQuery) {
	// answer so the button stops showing the spinner, then retire the menu
	_, _ = t.bot.Request(tgbot.NewCallback(cb.ID, ""))
	if cb.Message != nil {
		_ = t.editReplyMarkupRemove(chatID, cb.Message.MessageID)
	}

	switch cb.Data {
	case "set_exchange":
		t.sendPoll(ctx, chatID, "exchange", "Which exchange?", t.options.Exchanges, nil, false)
	case "set_basecoin":
		t.sendPoll(ctx, chatID, "basecoin", "Which base coin?", t.options.BaseCoins, nil, false)
	case "set_minvol":
		display := make([]string, 0, len(t.options.MinQuoteVolume))
		values := make([]string, 0, len(t.options.MinQuoteVolume))
		for _, v := range t.options.MinQuoteVolume {
			display = append(display, fmt.Sprintf("%.1fM", v/1e6))
			values = append(values, strconv.FormatFloat(v, 'f', -1, 64))
		}
		t.sendPoll(ctx, chatID, "minvol", "Minimum 24h quote volume?", display, values, false)
	case "set_timeframes":
		display := make([]string, 0, len(t.options.Timeframes))
		values := make([]string, 0, len(t.options.Timeframes))
		for _, tf := range t.options.Timeframes {
			display = append(display, exchange.IntervalString(tf))
			values = append(values, strconv.Itoa(tf))
		}
		t.sendPoll(ctx, chatID, "timeframes", "Which timeframes to scan?", display, values, true)
	case "set_triggers":
		display := make([]string, 0, len(models.TriggerCapabilities))
		for _, ind := range models.TriggerCapabilities {
			display = append(display, string(ind))
		}
		t.sendPoll(ctx, chatID, "triggers", "Which indicators must all agree?", display, nil, true)
	case "set_stochrsi":
		display := make([]string, 0, len(t.options.MinStochRSI))
		values := make([]string, 0, len(t.options.MinStochRSI))
		for _, v := range t.options.MinStochRSI {
			display = append(display, f2(v))
			values = append(values, strconv.FormatFloat(v, 'f', -1, 64))
		}
		t.sendPoll(ctx, chatID, "stochrsi", "StochRSI buy floor?", display, values, false)
	}
}

// sendPoll opens a non-anonymous poll and remembers which setting its
// answer belongs to. values holds the canonical value per option; when nil
// the display strings are used as-is.
func (t *Telegram) sendPoll(ctx context.Context, chatID int64, kind, question string, display, values []string, multi bool) {
	if values == nil {
		values = display
	}
	poll := tgbot.NewPoll(chatID, question, display...)
	poll.IsAnonymous = false
	poll.AllowsMultipleAnswers = multi

	sent, err := t.bot.Send(poll)
	if err != nil || sent.Poll == nil {
		logger.Error("sendPoll: chat=%d kind=%s: %v", chatID, kind, err)
		return
	}

	t.mu.Lock()
	t.polls[sent.Poll.ID] = &pollRef{chatID: chatID, kind: kind, options: values}
	t.mu.Unlock()
}

func (t *Telegram) handlePollAnswer(ctx context.Context, ans *tgbot.PollAnswer) {
	t.mu.Lock()
	ref, ok := t.polls[ans.PollID]
	if ok {
		delete(t.polls, ans.PollID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	chosen := make([]string, 0, len(ans.OptionIDs))
	for _, id := range ans.OptionIDs {
		if id >= 0 && id < len(ref.options) {
			chosen = append(chosen, ref.options[id])
		}
	}
	if len(chosen) == 0 {
		return
	}

	tenant := chatTenant(ref.chatID)
	var err error
	switch ref.kind {
	case "exchange":
		err = t.settings.SetExchange(ctx, tenant, chosen[0])
	case "basecoin":
		err = t.settings.SetBaseCoin(ctx, tenant, chosen[0])
	case "minvol":
		var vol float64
		if vol, err = strconv.ParseFloat(chosen[0], 64); err == nil {
			err = t.settings.SetMinQuoteVolume(ctx, tenant, vol)
		}
	case "timeframes":
		tfs := make([]int, 0, len(chosen))
		for _, c := range chosen {
			if tf, convErr := strconv.Atoi(c); convErr == nil {
				tfs = append(tfs, tf)
			}
		}
		err = t.settings.SetTimeframes(ctx, tenant, tfs)
	case "triggers":
		triggers := make([]models.Indicator, 0, len(chosen))
		for _, c := range chosen {
			if ind := models.Indicator(c); models.ValidTrigger(ind) {
				triggers = append(triggers, ind)
			}
		}
		err = t.settings.SetTriggers(ctx, tenant, triggers)
	case "stochrsi":
		var floor float64
		if floor, err = strconv.ParseFloat(chosen[0], 64); err == nil {
			err = t.settings.SetMinStochRSI(ctx, tenant, floor)
		}
	case "curate":
		t.mu.Lock()
		fresh := t.curateFresh[ref.chatID]
		t.curateFresh[ref.chatID] = false
		t.mu.Unlock()
		if fresh {
			err = t.settings.SetPairList(ctx, tenant, chosen)
		} else {
			err = t.settings.AddPairs(ctx, tenant, chosen)
		}
	}
	if err != nil {
		logger.Error("pollAnswer: chat=%d kind=%s: %v", ref.chatID, ref.kind, err)
		_, _ = t.Send(ctx, ref.chatID, "❗️ Could not save the setting, try again.")
		return
	}
	_, _ = t.Send(ctx, ref.chatID, "✅ Saved.")
}
