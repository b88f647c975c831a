// Package gmail wraps the Gmail API calls mailrules needs: listing message
// IDs page by page, fetching and flattening full messages, and batch label
// modification.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/daviddao/mailrules/internal/types"
	"github.com/k3a/html2text"
	gm "google.golang.org/api/gmail/v1"
)

// MaxBatchModify is the most IDs Gmail accepts in one batchModify call.
const MaxBatchModify = 1000

// ListQuery selects messages to list.
type ListQuery struct {
	LabelIDs []string
	Query    string
	PageSize int
}

// ListPage is one page of message IDs.
type ListPage struct {
	IDs           []string
	NextPageToken string
}

// Client is the narrow Gmail surface used by fetch and apply.
type Client interface {
	List(ctx context.Context, q ListQuery, pageToken string) (ListPage, error)
	Get(ctx context.Context, id string) (*types.Email, error)
	BatchModify(ctx context.Context, ids []string, add, remove []string) error
}

type apiClient struct {
	svc *gm.Service
}

// NewClient adapts an authenticated Gmail service to Client.
func NewClient(svc *gm.Service) Client {
	return &apiClient{svc: svc}
}

func (c *apiClient) List(ctx context.Context, q ListQuery, pageToken string) (ListPage, error) {
	call := c.svc.Users.Messages.List("me").Context(ctx)
	if len(q.LabelIDs) > 0 {
		call = call.LabelIds(q.LabelIDs...)
	}
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if q.PageSize > 0 {
		call = call.MaxResults(int64(q.PageSize))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return ListPage{}, fmt.Errorf("list messages: %w", err)
	}

	page := ListPage{NextPageToken: resp.NextPageToken, IDs: make([]string, 0, len(resp.Messages))}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

func (c *apiClient) Get(ctx context.Context, id string) (*types.Email, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return Parse(msg)
}

func (c *apiClient) BatchModify(ctx context.Context, ids []string, add, remove []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchModify {
		return fmt.Errorf("batch modify: %d ids exceeds limit of %d", len(ids), MaxBatchModify)
	}
	req := &gm.BatchModifyMessagesRequest{
		Ids:            ids,
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	if err := c.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch modify %d messages: %w", len(ids), err)
	}
	return nil
}

// Parse flattens a full-format Gmail message into an Email.
func Parse(msg *gm.Message) (*types.Email, error) {
	if msg == nil || msg.Payload == nil {
		return nil, fmt.Errorf("message has no payload")
	}
	headers := headerMap(msg.Payload.Headers)

	return &types.Email{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		From:       extractAddress(headers["From"]),
		To:         extractAddress(headers["To"]),
		Subject:    headers["Subject"],
		Body:       extractBody(msg.Payload),
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC().Truncate(time.Second),
		Labels:     append([]string(nil), msg.LabelIds...),
	}, nil
}

var addressRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+`)

// extractAddress returns the first bare address in a header such as
// `"Jane Doe" <jane@example.com>`, or the header itself when none is found.
func extractAddress(header string) string {
	if m := addressRe.FindString(header); m != "" {
		return m
	}
	return strings.TrimSpace(header)
}

// extractBody concatenates every decodable text part of the payload,
// converting HTML to plain text, and collapses whitespace.
func extractBody(payload *gm.MessagePart) string {
	var content []string

	var walk func(part *gm.MessagePart)
	walk = func(part *gm.MessagePart) {
		if len(part.Parts) > 0 {
			for _, p := range part.Parts {
				walk(p)
			}
			return
		}
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		if part.MimeType != "" && !strings.HasPrefix(part.MimeType, "text/") {
			return
		}
		decoded, err := decodeBase64URL(part.Body.Data)
		if err != nil {
			// Undecodable parts are skipped.
			return
		}
		if part.MimeType == "text/html" {
			decoded = html2text.HTML2Text(decoded)
		}
		content = append(content, decoded)
	}
	walk(payload)

	return strings.Join(strings.Fields(strings.Join(content, " ")), " ")
}

// headerMap converts Gmail API headers into a simple key-value map.
func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

// decodeBase64URL decodes Gmail's base64url-encoded content, with or
// without padding.
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
