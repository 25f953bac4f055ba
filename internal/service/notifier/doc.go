// Package notifier delivers emergency messages to a human contact through
// the Telegram Bot API.
//
// Delivery is at-most-once: a failure is logged and never retried. The alert
// audit record is written regardless of the delivery outcome.
package notifier
