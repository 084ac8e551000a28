package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// BotName is the destination name of the messaging bot.
const BotName = "bot"

// BotDestination posts critical messages to a chat through a Telegram-style bot API.
type BotDestination struct {
	client   *http.Client
	endpoint string
	chatID   string
}

type botRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      *struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// NewBotDestination creates a bot destination posting to {baseURL}/bot{token}/sendMessage.
func NewBotDestination(client *http.Client, baseURL, token, chatID string) *BotDestination {
	if client == nil {
		client = http.DefaultClient
	}

	return &BotDestination{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/bot" + token + "/sendMessage",
		chatID:   chatID,
	}
}

// Name implements Destination.
func (b *BotDestination) Name() string {
	return BotName
}

// Accepts implements Destination. Telemetry is not sent to the chat.
func (b *BotDestination) Accepts(kind alarm.Kind) bool {
	return kind != alarm.KindTelemetrySample
}

// Send implements Destination.
func (b *BotDestination) Send(ctx context.Context, msg alarm.Message) (*Ack, error) {
	result, err := postJSON(ctx, b.client, b.endpoint, nil, botRequest{ChatID: b.chatID, Text: msg.Text()})
	if err != nil {
		return nil, transportError(BotName, msg.Kind, err)
	}

	var resp botResponse
	if err = json.Unmarshal(result.body, &resp); err != nil {
		if !result.ok() {
			return nil, rejected(BotName, msg.Kind, http.StatusText(result.status))
		}

		return nil, malformed(BotName, msg.Kind, err)
	}

	if !result.ok() || !resp.OK {
		text := resp.Description
		if text == "" {
			text = http.StatusText(result.status)
		}

		return nil, rejected(BotName, msg.Kind, text)
	}

	detail := ""
	if resp.Result != nil {
		detail = strconv.FormatInt(resp.Result.MessageID, 10)
	}

	return newAck(BotName, detail), nil
}
