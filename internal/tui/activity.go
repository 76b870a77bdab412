package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/models"
)

// maxActivityRows bounds how many recent events are kept on screen.
const maxActivityRows = 200

// ActivityModel shows a live feed of Event Bus activity: job lifecycle
// transitions and scan progress/completion.
type ActivityModel struct {
	sub    *eventbus.Subscription
	events []models.Event
	width  int
	height int
}

// activityEventMsg wraps one event read off the subscription channel.
type activityEventMsg models.Event

// NewActivityModel subscribes to every topic on bus.
func NewActivityModel(bus *eventbus.Bus) ActivityModel {
	return ActivityModel{sub: bus.Subscribe(eventbus.AllTopics)}
}

func (m ActivityModel) Init() tea.Cmd {
	return waitForEvent(m.sub)
}

// waitForEvent blocks on the subscription channel and resolves to the next
// event; the caller must re-issue it after handling each message to keep
// listening (the standard bubbletea external-channel pattern).
func waitForEvent(sub *eventbus.Subscription) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-sub.Events
		if !ok {
			return nil
		}
		return activityEventMsg(evt)
	}
}

func (m ActivityModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityEventMsg:
		m.events = append(m.events, models.Event(msg))
		if len(m.events) > maxActivityRows {
			m.events = m.events[len(m.events)-maxActivityRows:]
		}
		return m, waitForEvent(m.sub)
	}
	return m, nil
}

func (m *ActivityModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m ActivityModel) View() string {
	lineLimit := m.height - 4
	if lineLimit < 5 {
		lineLimit = 5
	}

	rows := ""
	start := 0
	if len(m.events) > lineLimit {
		start = len(m.events) - lineLimit
	}
	for _, evt := range m.events[start:] {
		rows += lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(10).Foreground(slate).Render(evt.Timestamp.Format("15:04:05")),
			eventTypeStyle(evt.Type).Width(20).Render(string(evt.Type)),
			dimStyle.Render(truncate(fmt.Sprintf("%v", evt.Payload), 60)),
		) + "\n"
	}
	if rows == "" {
		rows = dimStyle.Render("No activity yet. Events appear here as scans run.\n")
	}

	return panelStyle.Width(max(20, m.width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			panelHeaderStyle.Render("Activity"),
			dimStyle.Render("Time        Event                Details"),
			rows,
			dimStyle.Render(fmt.Sprintf("dropped: %d", m.sub.Dropped())),
		),
	)
}

func eventTypeStyle(t models.EventType) lipgloss.Style {
	switch t {
	case models.EventJobFailed, models.EventScanFailed:
		return criticalStyle
	case models.EventJobRetrying:
		return highStyle
	case models.EventScanCompleted, models.EventJobCompleted:
		return okStyle
	case models.EventScanDuplicate:
		return mediumStyle
	default:
		return lipgloss.NewStyle().Foreground(slate)
	}
}
