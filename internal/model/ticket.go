package model

import "time"

// Ticket is a support ticket fetched from the ticketing system.
type Ticket struct {
	ID          int64
	Subject     string
	Attachments []Attachment
}

// Attachment is a file attached to a ticket comment.
type Attachment struct {
	ID          int64
	FileName    string
	ContentType string
	URL         string
	Size        int64
}

// Report records the outcome of processing one ticket or local archive.
type Report struct {
	TicketID    int64     `json:"ticket_id,omitempty"`
	Source      string    `json:"source"`
	Attachments []string  `json:"attachments,omitempty"`
	Diagnosis   Diagnosis `json:"diagnosis"`
	ProcessedAt time.Time `json:"processed_at"`
}
