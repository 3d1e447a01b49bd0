// Package notify is the delivery boundary for daily access codes. The
// transport is an external collaborator; everything behind Notifier is
// replaceable without touching code generation.
package notify

import (
	"context"

	"codegate/pkg/models"
)

// Notifier delivers a freshly minted daily code to one recipient.
type Notifier interface {
	DeliverDailyCode(ctx context.Context, name, email string, code *models.DailyCode) error
}
