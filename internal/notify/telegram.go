package notify

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"
)

// CallEvent describes a missed call or voicemail for notification purposes.
type CallEvent struct {
	FromDisplay   string // contact name plus number, or just the number
	ToDisplay     string // friendly line name plus number
	Time          time.Time
	Duration      time.Duration // voicemail length
	Transcription string
}

// TelegramNotifier sends missed-call and voicemail alerts to a Telegram
// chat.
type TelegramNotifier struct {
	bot    *tele.Bot
	chatID int64
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// MissedCall sends a missed-call alert.
func (n *TelegramNotifier) MissedCall(ev *CallEvent) error {
	if err := n.send(FormatMissedCall(ev)); err != nil {
		return fmt.Errorf("failed to send missed-call alert: %w", err)
	}
	return nil
}

// Voicemail sends a voicemail alert.
func (n *TelegramNotifier) Voicemail(ev *CallEvent) error {
	if err := n.send(FormatVoicemail(ev)); err != nil {
		return fmt.Errorf("failed to send voicemail alert: %w", err)
	}
	return nil
}

func (n *TelegramNotifier) send(text string) error {
	_, err := n.bot.Send(tele.ChatID(n.chatID), text, tele.ModeMarkdown)
	return err
}

// FormatMissedCall renders the Telegram text for a missed call.
func FormatMissedCall(ev *CallEvent) string {
	return fmt.Sprintf("📞 *Missed Call*\n*To:* %s\n*From:* %s\n*Time:* %s",
		orUnknown(ev.ToDisplay), orUnknown(ev.FromDisplay), formatClock(ev.Time))
}

// FormatVoicemail renders the Telegram text for a new voicemail, including
// the transcription when Dialpad provides one.
func FormatVoicemail(ev *CallEvent) string {
	text := fmt.Sprintf("📬 *New Voicemail*\n*To:* %s\n*From:* %s\n*Duration:* %ds",
		orUnknown(ev.ToDisplay), orUnknown(ev.FromDisplay), int(ev.Duration.Seconds()))
	if ev.Transcription != "" {
		text += fmt.Sprintf("\n\n*Transcription:*\n_\"%s\"_", ev.Transcription)
	}
	return text
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	clock := t.Format("3:04 PM")
	return clock
}
