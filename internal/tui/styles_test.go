package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/dupeforge/dupeforge/models"
)

func TestPriorityStyleMapsEachPriority(t *testing.T) {
	cases := []struct {
		priority models.Priority
		want     lipgloss.Style
	}{
		{models.PriorityCritical, criticalStyle},
		{models.PriorityHigh, highStyle},
		{models.PriorityMedium, mediumStyle},
		{models.PriorityLow, lowStyle},
		{models.Priority("unknown"), lowStyle},
	}
	for _, c := range cases {
		got := priorityStyle(c.priority)
		if got.GetForeground() != c.want.GetForeground() {
			t.Errorf("priorityStyle(%q) foreground = %v, want %v", c.priority, got.GetForeground(), c.want.GetForeground())
		}
	}
}

func TestEventTypeStyleMapsFailuresToCritical(t *testing.T) {
	for _, typ := range []models.EventType{models.EventJobFailed, models.EventScanFailed} {
		got := eventTypeStyle(typ)
		if got.GetForeground() != criticalStyle.GetForeground() {
			t.Errorf("eventTypeStyle(%q) should use the critical palette", typ)
		}
	}
}

func TestEventTypeStyleMapsCompletionsToOK(t *testing.T) {
	for _, typ := range []models.EventType{models.EventScanCompleted, models.EventJobCompleted} {
		got := eventTypeStyle(typ)
		if got.GetForeground() != okStyle.GetForeground() {
			t.Errorf("eventTypeStyle(%q) should use the ok palette", typ)
		}
	}
}

func TestTruncateLeavesShortStringsUntouched(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate = %q, want hello", got)
	}
}

func TestTruncateShortensLongStrings(t *testing.T) {
	long := "a-very-long-repository-name-indeed"
	got := truncate(long, 10)
	if !strings.HasPrefix(got, "…") {
		t.Errorf("truncate(%q, 10) = %q, want it prefixed with an ellipsis", long, got)
	}
	if got == long {
		t.Errorf("truncate should shorten a string longer than maxLen")
	}
}
