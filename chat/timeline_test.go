package chat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/puyokura/odysseychat/model"
)

func TestTimelineResolvesNewestPending(t *testing.T) {
	tl := NewTimeline()
	tl.AppendSelf("first", "alice", "Athena")
	tl.AppendPendingPlaceholder()
	tl.AppendSelf("second", "alice", "Zeus")
	tl.AppendPendingPlaceholder()

	tl.ResolveOrAppend(model.Decode([]byte(`{"type":"ai","text":"from zeus"}`)), "alice")
	tl.ResolveOrAppend(model.Decode([]byte(`{"type":"ai","text":"from athena"}`)), "alice")
	tl.ResolveOrAppend(model.Decode([]byte(`{"type":"message","text":"hey","username":"bob","request_id":"r9"}`)), "alice")

	want := []Entry{
		{ID: 1, Sender: model.SenderSelf, Username: "alice", Text: "first", TargetPersona: "Athena"},
		{ID: 2, Sender: model.SenderAI, Text: "from athena"},
		{ID: 3, Sender: model.SenderSelf, Username: "alice", Text: "second", TargetPersona: "Zeus"},
		{ID: 4, Sender: model.SenderAI, Text: "from zeus"},
		{ID: 5, Sender: model.SenderUser, Username: "bob", Text: "hey", RequestID: "r9"},
	}
	if diff := cmp.Diff(want, tl.Entries()); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, tl.PendingCount())
}

func TestTimelineIDsNeverReused(t *testing.T) {
	tl := NewTimeline()
	seen := map[uint64]bool{}
	for i := 0; i < 5; i++ {
		p := tl.AppendPendingPlaceholder()
		r := tl.ResolveOrAppend(model.Decode([]byte("notice")), "alice")
		assert.Equal(t, p.ID, r.ID)
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}
	assert.Equal(t, 5, tl.Len())
}

func TestTimelineEntriesIsCopy(t *testing.T) {
	tl := NewTimeline()
	tl.AppendSelf("hi", "alice", "")
	got := tl.Entries()
	got[0].Text = "changed"
	assert.Equal(t, "hi", tl.Entries()[0].Text)
}
