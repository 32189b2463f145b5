package notify

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samimhm/simio-gateway/internal/model"
)

// Bot pushes operational alerts to the admin Telegram chat. A nil *Bot is a
// valid no-op notifier so callers do not have to branch on configuration.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewBot(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Printf("[Notify] Telegram bot @%s ready", api.Self.UserName)
	return &Bot{api: api, chatID: chatID}, nil
}

func (b *Bot) send(text string) {
	if b == nil || b.chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[Notify] Failed to send telegram message: %v", err)
	}
}

func (b *Bot) BackendUnreachable(err error) {
	b.send(fmt.Sprintf("⚠️ Raffle backend unreachable: %v", err))
}

func (b *Bot) BackendRecovered() {
	b.send("✅ Raffle backend reachable again")
}

func (b *Bot) RoundResolved(round model.RaffleRound) {
	b.send(fmt.Sprintf("🎉 Round %d resolved. Winners:\n%s",
		round.Round, strings.Join(round.Winners, "\n")))
}

func (b *Bot) JoinFailed(address, reason string) {
	b.send(fmt.Sprintf("❌ Join submission from %s failed: %s", address, reason))
}
