package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/store"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/version"
)

// fallbackDriverName is used when the display-name lookup fails.
const fallbackDriverName = "Driver"

// requestTimeout bounds a single delivery attempt. There is no retry:
// delivery is at-most-once.
const requestTimeout = 10 * time.Second

// messageRequest is the Telegram sendMessage payload.
type messageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// messageResponse is the subset of the Telegram API response we inspect.
type messageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notifier delivers emergency messages through the Telegram Bot API and
// records an alert for every fired episode. Auditability does not depend on
// delivery: the AlertRecord is persisted even when the send fails.
type Notifier struct {
	// client is the HTTP client for the Bot API.
	client *resty.Client
	// token authenticates the bot; empty disables delivery.
	token string
	// chatID receives the emergency messages.
	chatID string
	// repo resolves display names and records alerts, nil when
	// persistence is disabled.
	repo store.Repository
	// dwell names the escalation rule in messages and records.
	dwell time.Duration
}

// NewNotifier creates a notification sink from Telegram settings.
func NewNotifier(cfg config.TelegramConfig, repo store.Repository, dwell time.Duration) *Notifier {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	return &Notifier{
		client: client,
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
		repo:   repo,
		dwell:  dwell,
	}
}

// Alert resolves the driver's display name, attempts one delivery and records
// the alert. It matches monitor.AlertFunc and never returns an error:
// every failure is converted to a log entry at this boundary.
func (n *Notifier) Alert(ctx context.Context, driverID string, elapsed time.Duration) {
	ctx = logger.WithName(ctx, "notifier")

	name := n.resolveName(ctx, driverID)
	text := fmt.Sprintf(
		"URGENT: %s has been drowsy for over %ds. Please contact them immediately!",
		name, int(n.dwell.Seconds()),
	)

	if err := n.deliver(ctx, text); err != nil {
		logger.ErrorKV(ctx, "Emergency message not delivered", "error", err, "driver_id", driverID)
	} else {
		logger.InfoKV(ctx, "Emergency message delivered", "driver_id", driverID, "elapsed", elapsed.String())
	}

	n.record(ctx, driverID, name)
}

// resolveName looks up the driver's display name, falling back to a
// placeholder when the driver is unknown or the store is unreachable.
func (n *Notifier) resolveName(ctx context.Context, driverID string) string {
	if n.repo == nil || driverID == "" {
		return fallbackDriverName
	}

	name, err := n.repo.DriverName(ctx, driverID)
	if err != nil {
		logger.WarnKV(ctx, "Driver name lookup failed, using placeholder", "error", err, "driver_id", driverID)

		return fallbackDriverName
	}

	return name
}

// deliver performs one sendMessage attempt.
func (n *Notifier) deliver(ctx context.Context, text string) error {
	if n.token == "" || n.chatID == "" {
		logger.Warnf(ctx, "Telegram is not configured, skipping delivery: %s", text)

		return nil
	}

	var result messageResponse

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(messageRequest{
			ChatID: n.chatID,
			Text:   text,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram API rejected message: status %d, %s", resp.StatusCode(), result.Description)
	}

	return nil
}

// record persists the alert audit entry regardless of delivery outcome.
func (n *Notifier) record(ctx context.Context, driverID, name string) {
	if n.repo == nil {
		return
	}

	alert := &driver.AlertRecord{
		DriverID:   driverID,
		DriverName: name,
		Status:     driver.AlertStatus,
		AlertType:  driver.AlertType(n.dwell),
		Timestamp:  time.Now().UTC(),
	}

	if err := n.repo.SaveAlert(ctx, alert); err != nil {
		logger.ErrorKV(ctx, "Alert not recorded", "error", err, "driver_id", driverID)

		return
	}

	logger.InfoKV(ctx, "Alert recorded", "driver_id", driverID, "alert_type", alert.AlertType)
}
