package connector

import (
	"context"

	"github.com/neville-freeman/log-classifier/internal/model"
)

// Ticketing defines the interface every ticketing-system connector implements.
type Ticketing interface {
	// Pending returns tickets awaiting classification, attachments included.
	Pending(ctx context.Context) ([]model.Ticket, error)

	// Download fetches the raw bytes of one attachment.
	Download(ctx context.Context, att model.Attachment) ([]byte, error)

	// Resolve posts the diagnosis comment and tags on the ticket and marks it processed.
	Resolve(ctx context.Context, ticketID int64, d model.Diagnosis) error
}

// Config holds provider-specific connection settings.
type Config struct {
	Provider     string
	Endpoint     string
	Email        string
	Token        string
	AssigneeID   int64
	Query        string
	ProcessedTag string
}
