package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dupeforge/dupeforge/internal/registry"
	"github.com/dupeforge/dupeforge/models"
)

// RepositoriesModel shows the registry: every enabled repository and group,
// its scan cadence, and when it was last scanned.
type RepositoriesModel struct {
	reg      *registry.Registry
	repos    []models.Repository
	groups   []models.RepositoryGroup
	width    int
	height   int
	lastLoad time.Time
	loading  bool
}

// reposLoadedMsg carries a fresh registry snapshot.
type reposLoadedMsg struct {
	repos  []models.Repository
	groups []models.RepositoryGroup
}

// NewRepositoriesModel creates a RepositoriesModel.
func NewRepositoriesModel(reg *registry.Registry) RepositoriesModel {
	return RepositoriesModel{reg: reg, loading: true}
}

func (m RepositoriesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RepositoriesModel) loadCmd() tea.Cmd {
	reg := m.reg
	return func() tea.Msg {
		return reposLoadedMsg{repos: reg.GetEnabled(), groups: reg.Groups()}
	}
}

func (m RepositoriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reposLoadedMsg:
		m.repos = msg.repos
		m.groups = msg.groups
		m.loading = false
		m.lastLoad = time.Now()
		return m, tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
			return m.loadCmd()()
		})
	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadCmd()
		}
	}
	return m, nil
}

func (m *RepositoriesModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m RepositoriesModel) View() string {
	if m.loading && len(m.repos) == 0 && len(m.groups) == 0 {
		return panelStyle.Width(max(20, m.width-2)).Render("Loading registry...")
	}

	var critical, high, medium, low int
	for _, r := range m.repos {
		switch r.Priority {
		case models.PriorityCritical:
			critical++
		case models.PriorityHigh:
			high++
		case models.PriorityMedium:
			medium++
		case models.PriorityLow:
			low++
		}
	}

	cardW := 18
	if m.width >= 100 {
		cardW = 20
	}
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCounter("Critical", critical, criticalStyle, cardW),
		renderCounter("High", high, highStyle, cardW),
		renderCounter("Medium", medium, mediumStyle, cardW),
		renderCounter("Low", low, lowStyle, cardW),
	)

	lineLimit := m.height - 14
	if lineLimit < 5 {
		lineLimit = 5
	}
	rows := ""
	for i, r := range m.repos {
		if i >= lineLimit {
			break
		}
		last := "never"
		if r.LastScannedAt != nil {
			last = r.LastScannedAt.Format("2006-01-02 15:04")
		}
		groupCount := 0
		if n := len(r.ScanHistory); n > 0 {
			groupCount = r.ScanHistory[n-1].GroupCount
		}
		name := truncate(r.Name, 28)
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(30).Foreground(ink).Render(name),
			priorityStyle(r.Priority).Width(12).Render(string(r.Priority)),
			lipgloss.NewStyle().Width(12).Foreground(slate).Render(string(r.ScanFrequency)),
			dimStyle.Render(fmt.Sprintf("last: %-17s groups: %d", last, groupCount)),
		)
		rows += line + "\n"
	}
	if len(m.repos) == 0 {
		rows = dimStyle.Render("No enabled repositories. Run: dupeforge repo add <name> --path <local-path>\n")
	}

	var groupLines string
	for _, g := range m.groups {
		groupLines += lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(30).Foreground(ink).Render(truncate(g.Name, 28)),
			dimStyle.Render(strings.Join(g.Repositories, ", ")),
		) + "\n"
	}
	if groupLines == "" {
		groupLines = dimStyle.Render("No enabled repository groups.\n")
	}

	updated := "never"
	if !m.lastLoad.IsZero() {
		updated = m.lastLoad.Format("15:04:05")
	}
	refreshInfo := lipgloss.JoinHorizontal(lipgloss.Left,
		keycapStyle.Render("r"), " ", dimStyle.Render("refresh"),
		"   ", dimStyle.Render("updated "+updated),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(max(20, m.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Repositories"),
				dimStyle.Render("Name                          Priority    Frequency   Status"),
				rows,
				panelHeaderStyle.Render("Groups"),
				groupLines,
				refreshInfo,
			),
		),
	)
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Bold(true).Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(strings.ToUpper(label)),
		),
	) + "  "
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "…" + s[len(s)-maxLen+1:]
}
