// Package messaging connects the chat transport to the dialog engine.
package messaging

import (
	"context"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

const (
	// DefaultChannelBufferSize defines the buffer size of the inbound event channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds how long a converted event waits for a full channel
	DefaultChannelTimeout = 5 * time.Second
)

// Service defines a pluggable chat transport.
type Service interface {
	// Send renders an emission into chatID. EditPrior emissions replace
	// TargetMessageID when the transport supports it.
	Send(ctx context.Context, chatID int64, em models.Emission) error

	// SendAttachment forwards an attachment reference built by models.AttachmentRef.
	SendAttachment(ctx context.Context, chatID int64, ref, caption string) error

	// Acknowledge confirms a button press to the client.
	Acknowledge(ctx context.Context, callbackID string) error

	// Start begins receiving inbound events.
	Start(ctx context.Context) error

	// Stop stops receiving and closes the event channel.
	Stop() error

	// Events returns the channel of inbound events.
	Events() <-chan models.Event
}
