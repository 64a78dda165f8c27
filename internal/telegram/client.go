// Package telegram delivers alerts via the Telegram Bot API, enforcing the
// per-cycle send cap and inter-message delay.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/trendzbr/trendwatch/internal/logger"
	"github.com/trendzbr/trendwatch/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxPerCycle    int
	sendDelay      time.Duration
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxPerCycle int, sendDelay time.Duration, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxPerCycle <= 0 {
		maxPerCycle = 20
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxPerCycle:    maxPerCycle,
		sendDelay:      sendDelay,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMessage sends a plain-text message with linear-backoff retry.
func (c *Client) sendMessage(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendAlerts delivers the batch, capped at the per-cycle limit with the
// configured delay between messages. Individual failures are skipped, never
// fatal; the returned count is how many actually went out. When the cap
// truncates the batch, a single suppression notice follows.
func (c *Client) SendAlerts(ctx context.Context, alerts []models.Alert) int {
	sent := 0
	limit := len(alerts)
	if limit > c.maxPerCycle {
		limit = c.maxPerCycle
	}

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := c.sendMessage(alerts[i].Message); err != nil {
			logger.Error("Failed to send alert [%s] %s: %v", alerts[i].Type, alerts[i].PoolTitle, err)
		} else {
			sent++
			logger.Info("Alert sent: [%s] %s", alerts[i].Type, alerts[i].PoolTitle)
		}
		time.Sleep(c.sendDelay)
	}

	if len(alerts) > c.maxPerCycle {
		skipped := len(alerts) - c.maxPerCycle
		notice := fmt.Sprintf("⚠️ %d alertas adicionais foram suprimidos neste ciclo.", skipped)
		if err := c.sendMessage(notice); err != nil {
			logger.Warn("Failed to send suppression notice: %v", err)
		}
	}

	return sent
}

// SendStartup announces that the worker came up.
func (c *Client) SendStartup() error {
	return c.sendMessage("🟢 TrendWatch iniciado!\nMonitoramento ativo 24/7.")
}

// SendError sends a system error notification.
// The caller gates this behind the error-alert cooldown.
func (c *Client) SendError(cycleErr error) error {
	text := cycleErr.Error()
	if len(text) > 300 {
		text = text[:300]
	}
	return c.sendMessage(fmt.Sprintf("⚠️ Erro no sistema de alertas:\n%s", text))
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	return c.sendMessage(fmt.Sprintf("✅ Monitoramento recuperado apos %d falha(s) consecutivas.", failureCount))
}
