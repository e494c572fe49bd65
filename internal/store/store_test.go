package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/normanking/aide/pkg/types"
)

func testBlobs(t *testing.T) *Blobs {
	t.Helper()
	blobs, err := Open(filepath.Join(t.TempDir(), "aide.db"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	t.Cleanup(func() { blobs.Close() })
	return blobs
}

func TestEvents_AddDefaultsEnd(t *testing.T) {
	events := NewEvents(testBlobs(t))

	added := events.Add(types.CalendarEvent{Title: "Standup", Start: 1_700_000_000_000})
	if added.ID == "" {
		t.Fatal("expected assigned id")
	}
	if added.End != added.Start+3_600_000 {
		t.Errorf("expected end defaulted to start+1h, got %d", added.End)
	}

	list := events.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 event, got %d", len(list))
	}
	if list[0].End < list[0].Start {
		t.Error("end must not precede start")
	}
}

func TestEvents_AddAllDayNoEndDefault(t *testing.T) {
	events := NewEvents(testBlobs(t))

	added := events.Add(types.CalendarEvent{Title: "Holiday", Start: 1_700_000_000_000, AllDay: true})
	if added.End != 0 {
		t.Errorf("all-day event should keep zero end, got %d", added.End)
	}
}

func TestEvents_DeleteSemantics(t *testing.T) {
	events := NewEvents(testBlobs(t))
	ev := events.Add(types.CalendarEvent{Title: "Dentist", Start: 1})

	if !events.Delete(ev.ID) {
		t.Fatal("expected delete of existing id to succeed")
	}
	for _, got := range events.List() {
		if got.ID == ev.ID {
			t.Error("deleted id still present")
		}
	}

	// Deleting a non-existent id signals not-found and leaves state alone.
	before := len(events.List())
	if events.Delete("no-such-id") {
		t.Error("expected not-found for unknown id")
	}
	if len(events.List()) != before {
		t.Error("collection changed by no-op delete")
	}
}

func TestEvents_UpdateIdempotent(t *testing.T) {
	events := NewEvents(testBlobs(t))
	ev := events.Add(types.CalendarEvent{Title: "Review", Start: 10, End: 20})

	title := "Design review"
	loc := "Room 4"
	patch := EventPatch{Title: &title, Location: &loc}

	first, ok := events.Update(ev.ID, patch)
	if !ok {
		t.Fatal("update of existing id failed")
	}
	second, ok := events.Update(ev.ID, patch)
	if !ok {
		t.Fatal("second update failed")
	}
	if first != second {
		t.Errorf("update not idempotent: %+v vs %+v", first, second)
	}

	if _, ok := events.Update("missing", patch); ok {
		t.Error("expected not-found for unknown id")
	}
}

func TestEvents_RangeOverlap(t *testing.T) {
	events := NewEvents(testBlobs(t))
	events.Add(types.CalendarEvent{Title: "inside", Start: 150, End: 160})
	events.Add(types.CalendarEvent{Title: "spans", Start: 50, End: 300})
	events.Add(types.CalendarEvent{Title: "before", Start: 10, End: 20})

	got := events.RangeOverlap(100, 200)
	if len(got) != 2 {
		t.Fatalf("expected 2 overlapping events, got %d", len(got))
	}
}

func TestBookmarks_SearchMatchesTags(t *testing.T) {
	bookmarks := NewBookmarks(testBlobs(t))
	bookmarks.Add(types.Bookmark{Title: "Go blog", URL: "https://go.dev/blog", Tags: []string{"golang", "news"}})
	bookmarks.Add(types.Bookmark{Title: "Recipes", URL: "https://example.com"})

	got := bookmarks.Search("golang")
	if len(got) != 1 || got[0].Title != "Go blog" {
		t.Fatalf("tag search failed: %+v", got)
	}

	if all := bookmarks.Search(""); len(all) != 2 {
		t.Errorf("empty query should return everything, got %d", len(all))
	}
}

func TestBookmarks_AddStampsCreatedAt(t *testing.T) {
	bookmarks := NewBookmarks(testBlobs(t))
	bm := bookmarks.Add(types.Bookmark{Title: "Docs", URL: "https://pkg.go.dev"})
	if bm.CreatedAt == 0 {
		t.Error("expected CreatedAt to be stamped")
	}
}

func TestCollection_CorruptBlobQuarantined(t *testing.T) {
	blobs := testBlobs(t)
	if err := blobs.Put(eventsKey, []byte("{not json")); err != nil {
		t.Fatalf("seed corrupt blob: %v", err)
	}

	events := NewEvents(blobs)
	if got := events.List(); len(got) != 0 {
		t.Fatalf("corrupt blob should read as empty, got %d records", len(got))
	}

	// The corrupt payload is preserved aside, not lost.
	quarantined, err := blobs.Get(eventsKey + ".corrupt")
	if err != nil || string(quarantined) != "{not json" {
		t.Errorf("expected quarantined copy, got %q err=%v", quarantined, err)
	}

	// The collection is usable again afterwards.
	events.Add(types.CalendarEvent{Title: "Fresh", Start: 1})
	if len(events.List()) != 1 {
		t.Error("collection not writable after quarantine")
	}
}

func TestPrefs_RoundTripAndDefaults(t *testing.T) {
	prefs := NewPrefs(testBlobs(t))

	if got := prefs.Load(); got.DefaultLocation != "" || got.AIProvider != "" || len(got.PreferredTopics) != 0 {
		t.Errorf("missing blob should load zero preferences, got %+v", got)
	}

	prefs.SetLocation("Paris")
	prefs.AddTopic("jazz")
	prefs.AddTopic("jazz") // once only
	prefs.SetAIProvider("playai")
	prefs.SetSearchProvider("exa")

	got := prefs.Load()
	if got.DefaultLocation != "Paris" || got.AIProvider != "playai" || got.SearchProvider != "exa" {
		t.Errorf("unexpected preferences: %+v", got)
	}
	if len(got.PreferredTopics) != 1 {
		t.Errorf("topic should be recorded once, got %v", got.PreferredTopics)
	}
}

func TestWriteICS(t *testing.T) {
	var sb strings.Builder
	err := WriteICS(&sb, []types.CalendarEvent{
		{ID: "ev-1", Title: "Standup", Start: 1_700_000_000_000, End: 1_700_003_600_000},
	})
	if err != nil {
		t.Fatalf("WriteICS: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "SUMMARY:Standup", "END:VCALENDAR"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in ICS output", want)
		}
	}
}
