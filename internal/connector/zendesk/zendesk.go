package zendesk

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/neville-freeman/log-classifier/internal/connector"
	"github.com/neville-freeman/log-classifier/internal/connector/httpclient"
	"github.com/neville-freeman/log-classifier/internal/model"
)

const defaultProcessedTag = "log-classified"

func init() {
	connector.Register("zendesk", func(cfg connector.Config) (connector.Ticketing, error) {
		return New(cfg)
	})
}

// Connector implements connector.Ticketing against the Zendesk Support API.
type Connector struct {
	client       *httpclient.Client
	query        string
	processedTag string
	assigneeID   int64
}

// New creates a Connector. Endpoint and Token are required. When Email is
// set the API token is sent with Basic auth as "email/token", otherwise as
// a Bearer (OAuth) token.
func New(cfg connector.Config) (*Connector, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("zendesk: endpoint is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("zendesk: token is required")
	}

	var opts []httpclient.Option
	if cfg.Email != "" {
		opts = append(opts, httpclient.WithBasicAuth(cfg.Email+"/token"))
	}

	tag := cfg.ProcessedTag
	if tag == "" {
		tag = defaultProcessedTag
	}
	query := cfg.Query
	if query == "" {
		query = "type:ticket status<solved -tags:" + tag
	}

	return &Connector{
		client:       httpclient.New(cfg.Endpoint, cfg.Token, opts...),
		query:        query,
		processedTag: tag,
		assigneeID:   cfg.AssigneeID,
	}, nil
}

// API response types.

type searchResponse struct {
	Results  []ticketResult `json:"results"`
	NextPage string         `json:"next_page"`
}

type ticketResult struct {
	ID      int64  `json:"id"`
	Subject string `json:"subject"`
}

type commentsResponse struct {
	Comments []comment `json:"comments"`
	NextPage string    `json:"next_page"`
}

type comment struct {
	ID          int64        `json:"id"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	ID          int64  `json:"id"`
	FileName    string `json:"file_name"`
	ContentURL  string `json:"content_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type ticketUpdate struct {
	Ticket updateBody `json:"ticket"`
}

type updateBody struct {
	Comment        updateComment `json:"comment"`
	AdditionalTags []string      `json:"additional_tags"`
	AssigneeID     int64         `json:"assignee_id,omitempty"`
}

type updateComment struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

// Pending searches for unprocessed tickets, following pagination, and
// attaches every file found on each ticket's comments.
func (c *Connector) Pending(ctx context.Context) ([]model.Ticket, error) {
	var tickets []model.Ticket

	path := "/api/v2/search.json"
	q := url.Values{"query": {c.query}}
	for path != "" {
		var resp searchResponse
		if err := c.client.GetJSON(ctx, path, q, &resp); err != nil {
			return nil, fmt.Errorf("zendesk: search: %w", err)
		}
		for _, r := range resp.Results {
			tickets = append(tickets, model.Ticket{ID: r.ID, Subject: r.Subject})
		}
		// next_page is absolute and already carries the query.
		path, q = resp.NextPage, nil
	}

	for i := range tickets {
		atts, err := c.attachments(ctx, tickets[i].ID)
		if err != nil {
			return nil, err
		}
		tickets[i].Attachments = atts
	}
	return tickets, nil
}

func (c *Connector) attachments(ctx context.Context, ticketID int64) ([]model.Attachment, error) {
	var out []model.Attachment
	path := fmt.Sprintf("/api/v2/tickets/%d/comments.json", ticketID)
	for path != "" {
		var resp commentsResponse
		if err := c.client.GetJSON(ctx, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("zendesk: comments for ticket %d: %w", ticketID, err)
		}
		for _, cm := range resp.Comments {
			for _, a := range cm.Attachments {
				out = append(out, model.Attachment{
					ID:          a.ID,
					FileName:    a.FileName,
					ContentType: a.ContentType,
					URL:         a.ContentURL,
					Size:        a.Size,
				})
			}
		}
		path = resp.NextPage
	}
	return out, nil
}

// Download fetches an attachment from its content URL. Credentials go along
// only when the URL is on the configured endpoint's host.
func (c *Connector) Download(ctx context.Context, att model.Attachment) ([]byte, error) {
	if att.URL == "" {
		return nil, fmt.Errorf("zendesk: attachment %d has no content url", att.ID)
	}
	data, err := c.client.GetBytes(ctx, att.URL)
	if err != nil {
		return nil, fmt.Errorf("zendesk: download %s: %w", att.FileName, err)
	}
	return data, nil
}

// Resolve posts the diagnosis as a private comment and adds its tags plus the
// processed marker so the ticket drops out of the pending search.
func (c *Connector) Resolve(ctx context.Context, ticketID int64, d model.Diagnosis) error {
	tags := make([]string, 0, len(d.Tags)+1)
	for _, t := range d.Tags {
		if t != c.processedTag {
			tags = append(tags, t)
		}
	}
	tags = append(tags, c.processedTag)

	body := ticketUpdate{Ticket: updateBody{
		Comment:        updateComment{Body: strings.TrimSpace(d.Comment), Public: false},
		AdditionalTags: tags,
		AssigneeID:     c.assigneeID,
	}}
	path := fmt.Sprintf("/api/v2/tickets/%d.json", ticketID)
	if err := c.client.PutJSON(ctx, path, body, nil); err != nil {
		return fmt.Errorf("zendesk: update ticket %d: %w", ticketID, err)
	}
	return nil
}
