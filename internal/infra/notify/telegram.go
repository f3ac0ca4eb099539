package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkazakova/fabrika/internal/domain/materials"
)

// Notifier шлёт оповещения о низких остатках в админ-чат Telegram.
// Без токена работает как заглушка.
type Notifier struct {
	bot       *tgbotapi.BotAPI
	adminChat int64
	log       *slog.Logger
}

func New(token string, adminChat int64, log *slog.Logger) (*Notifier, error) {
	if token == "" {
		return &Notifier{log: log}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: bot, adminChat: adminChat, log: log}, nil
}

// LowStock Оповещение о материалах на пороге или ниже (после резерва под наряд).
func (n *Notifier) LowStock(mats []materials.Material) {
	if n.bot == nil || n.adminChat == 0 || len(mats) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("⚠️ Материалы заканчиваются:\n")
	for _, m := range mats {
		fmt.Fprintf(&b, "— %s: %.3f %s (порог %.3f)\n", m.Name, m.Qty, m.Unit, m.ReorderLevel)
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(n.adminChat, b.String())); err != nil {
		n.log.Error("low stock notify failed", "err", err)
	}
}
