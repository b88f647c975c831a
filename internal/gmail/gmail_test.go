package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestParse(t *testing.T) {
	received := time.Date(2024, 3, 5, 9, 30, 15, 0, time.UTC)
	msg := &gm.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: received.UnixMilli() + 250,
		LabelIds:     []string{"INBOX", "UNREAD"},
		Payload: &gm.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gm.MessagePartHeader{
				{Name: "From", Value: `"Jane Doe" <jane.doe@example.com>`},
				{Name: "To", Value: "me@example.org"},
				{Name: "Subject", Value: "Quarterly invoice"},
			},
			Parts: []*gm.MessagePart{
				{MimeType: "text/plain", Body: &gm.MessagePartBody{Data: b64("Hello\n\n  there")}},
				{MimeType: "text/html", Body: &gm.MessagePartBody{Data: b64("<p>Pay <b>now</b></p>")}},
				{MimeType: "application/pdf", Filename: "invoice.pdf", Body: &gm.MessagePartBody{AttachmentId: "a1"}},
			},
		},
	}

	e, err := Parse(msg)
	require.NoError(t, err)

	assert.Equal(t, "m1", e.ID)
	assert.Equal(t, "t1", e.ThreadID)
	assert.Equal(t, "jane.doe@example.com", e.From)
	assert.Equal(t, "me@example.org", e.To)
	assert.Equal(t, "Quarterly invoice", e.Subject)
	assert.Equal(t, received, e.ReceivedAt)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, e.Labels)
	assert.Equal(t, "Hello there Pay now", e.Body)
}

func TestParse_SinglePart(t *testing.T) {
	msg := &gm.Message{
		Id: "m2",
		Payload: &gm.MessagePart{
			MimeType: "text/plain",
			Headers:  []*gm.MessagePartHeader{{Name: "From", Value: "undisclosed"}},
			Body:     &gm.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("short body?"))},
		},
	}

	e, err := Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, "undisclosed", e.From)
	assert.Equal(t, "short body?", e.Body)
	assert.Empty(t, e.Labels)
}

func TestParse_NoPayload(t *testing.T) {
	_, err := Parse(&gm.Message{Id: "x"})
	assert.Error(t, err)
}

func TestExtractAddress(t *testing.T) {
	tests := map[string]string{
		"a@b.com":                         "a@b.com",
		"Name <first.last+tag@mail.co>":   "first.last+tag@mail.co",
		"<x-y@sub.domain.io>, other@z.io": "x-y@sub.domain.io",
		"  no address  ":                  "no address",
		"":                                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractAddress(in), "input %q", in)
	}
}

func TestDecodeBase64URL(t *testing.T) {
	for _, enc := range []string{
		base64.URLEncoding.EncodeToString([]byte("?>?")),
		base64.RawURLEncoding.EncodeToString([]byte("?>?")),
	} {
		got, err := decodeBase64URL(enc)
		require.NoError(t, err)
		assert.Equal(t, "?>?", got)
	}

	_, err := decodeBase64URL("!!not base64!!")
	assert.Error(t, err)
}

// newTestClient points a Gmail service at an httptest server.
func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gm.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewClient(svc)
}

func TestClient_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, []string{"INBOX"}, q["labelIds"])
		assert.Equal(t, "50", q.Get("maxResults"))
		assert.Equal(t, "tok1", q.Get("pageToken"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages":      []map[string]string{{"id": "a"}, {"id": "b"}},
			"nextPageToken": "tok2",
		})
	})

	page, err := c.List(context.Background(), ListQuery{LabelIDs: []string{"INBOX"}, PageSize: 50}, "tok1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page.IDs)
	assert.Equal(t, "tok2", page.NextPageToken)
}

func TestClient_BatchModify(t *testing.T) {
	var got gm.BatchModifyMessagesRequest
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gmail/v1/users/me/messages/batchModify", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.BatchModify(context.Background(), []string{"a", "b"}, []string{"STARRED"}, []string{"UNREAD"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a", "b"}, got.Ids)
	assert.Equal(t, []string{"STARRED"}, got.AddLabelIds)
	assert.Equal(t, []string{"UNREAD"}, got.RemoveLabelIds)

	require.NoError(t, c.BatchModify(context.Background(), nil, []string{"STARRED"}, nil))
	assert.Equal(t, 1, calls, "empty id list must not call the API")

	err = c.BatchModify(context.Background(), make([]string, MaxBatchModify+1), nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_GetError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	})

	_, err := c.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get message missing")
}
