package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "hello w...", Truncate("hello world!", 10))
	assert.Equal(t, "héllo w...", Truncate("héllo wörld!", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestTimeAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "", TimeAgo(time.Time{}))
	assert.Equal(t, "just now", TimeAgo(now))
	assert.Equal(t, "5m ago", TimeAgo(now.Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "3h ago", TimeAgo(now.Add(-3*time.Hour-time.Second)))
	assert.Equal(t, "2d ago", TimeAgo(now.Add(-49*time.Hour)))

	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Format("Jan 2"), TimeAgo(old))
}

func TestLabelChanges(t *testing.T) {
	out := LabelChanges([]string{"TRASH"}, []string{"INBOX"})
	assert.Contains(t, out, "+TRASH")
	assert.Contains(t, out, "-INBOX")
	assert.Contains(t, LabelChanges(nil, nil), "no label changes")
}

func TestSuccessMsg(t *testing.T) {
	var buf bytes.Buffer
	SuccessMsg(&buf, "fetched %d", 3)
	assert.Contains(t, buf.String(), "fetched 3")
}

func TestErrorMsg(t *testing.T) {
	var buf bytes.Buffer
	ErrorMsg(&buf, "batch %d failed", 2)
	assert.Contains(t, buf.String(), "✗")
	assert.Contains(t, buf.String(), "batch 2 failed")
}
