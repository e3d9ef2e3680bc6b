// Package ui renders scan progress as a bubbletea program.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackvity/codelens/pkg/codelens"
)

const (
	listHeightMargin = 4
	// refreshInterval bounds how often the file list is rebuilt.
	refreshInterval = 50 * time.Millisecond
)

const (
	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning..."
	phaseAnalyzing    = "Analyzing..."
	phaseComplete     = "Complete"
)

// Model is the TUI state. Update is only called from the bubbletea event
// loop, so no locking is needed.
type Model struct {
	list    list.Model
	spinner spinner.Model
	version string

	width, height int
	initialized   bool
	quitting      bool

	items      []listItem
	index      map[string]int
	started    map[string]time.Time
	refreshing bool
	summary    Summary
	languages  map[string]int
	phase      string
	fatalError string
}

type listItem struct {
	path     string
	status   codelens.Status
	message  string
	duration time.Duration
}

// Summary holds the counts shown in the footer.
type Summary struct {
	Discovered int
	Processed  int
	Cached     int
	Skipped    int
	Failed     int
	Degraded   int
	StartTime  time.Time
}

// NewModel creates the initial model. version is shown in the header.
func NewModel(version string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	if version == "" {
		version = "dev"
	}
	return Model{
		list:    l,
		spinner: s,
		version: version,
		index:   make(map[string]int),
		started: make(map[string]time.Time),
		summary: Summary{StartTime: time.Now()},
		phase:   phaseInitializing,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width, max(m.height-listHeightMargin, 1))
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if m.quitting || m.phase == phaseComplete {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case FileDiscoveredMsg:
		if _, ok := m.index[msg.Path]; !ok {
			m.add(listItem{path: msg.Path, status: codelens.StatusPending})
			cmds = append(cmds, m.scheduleRefresh())
		}
		if m.phase == phaseInitializing {
			m.phase = phaseScanning
		}

	case FileStatusUpdateMsg:
		m.setStatus(msg)
		cmds = append(cmds, m.scheduleRefresh())
		if msg.Status == codelens.StatusProcessing && m.phase != phaseComplete {
			m.phase = phaseAnalyzing
		}

	case RunCompleteMsg:
		m.complete(msg.Report)
		cmds = append(cmds, m.scheduleRefresh())

	case refreshListMsg:
		m.refreshing = false
		items := make([]list.Item, len(m.items))
		for i, item := range m.items {
			items[i] = item
		}
		cmds = append(cmds, m.list.SetItems(items))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) add(item listItem) {
	m.items = append(m.items, item)
	m.index[item.path] = len(m.items) - 1
	m.summary.Discovered++
}

// setStatus applies a status change. Files reported before discovery, such
// as walker skips, are added on the fly.
func (m *Model) setStatus(msg FileStatusUpdateMsg) {
	idx, ok := m.index[msg.Path]
	if !ok {
		m.add(listItem{path: msg.Path, status: codelens.StatusPending})
		idx = len(m.items) - 1
	}
	item := &m.items[idx]

	switch {
	case msg.Status == codelens.StatusProcessing:
		m.started[msg.Path] = time.Now()
		item.duration = 0
	case isFinalStatus(msg.Status):
		item.duration = msg.Duration
		if start, found := m.started[msg.Path]; found && item.duration == 0 {
			item.duration = time.Since(start)
		}
		delete(m.started, msg.Path)
	}

	wasFinal, nowFinal := isFinalStatus(item.status), isFinalStatus(msg.Status)
	if wasFinal {
		m.count(item.status, -1)
	}
	if nowFinal {
		m.count(msg.Status, 1)
	}
	item.status = msg.Status
	item.message = msg.Message
}

func (m *Model) count(status codelens.Status, delta int) {
	switch status {
	case codelens.StatusSuccess:
		m.summary.Processed += delta
	case codelens.StatusCached:
		m.summary.Processed += delta
		m.summary.Cached += delta
	case codelens.StatusSkipped:
		m.summary.Skipped += delta
	case codelens.StatusFailed:
		m.summary.Failed += delta
	}
}

// complete replaces the running counts with the verified report totals.
func (m *Model) complete(report codelens.Report) {
	s := report.Summary
	m.phase = phaseComplete
	m.summary.Processed = s.ProcessedCount
	m.summary.Cached = s.CachedCount
	m.summary.Skipped = s.SkippedCount
	m.summary.Failed = s.ErrorCount
	m.summary.Degraded = s.DegradedCount
	m.languages = s.Languages
	if s.FatalErrorOccurred {
		m.fatalError = "Scan halted by a fatal error."
		for _, e := range report.Errors {
			if e.IsFatal {
				m.fatalError = fmt.Sprintf("Fatal error: %s (%s)", e.Error, e.Path)
				break
			}
		}
	}
}

// scheduleRefresh coalesces list rebuilds into one per refreshInterval.
func (m *Model) scheduleRefresh() tea.Cmd {
	if m.refreshing {
		return nil
	}
	m.refreshing = true
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshListMsg{} })
}

func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	headerLeft := "codelens " + m.version
	headerRight := m.phase
	if m.phase != phaseComplete && m.phase != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phase
	}
	header := HeaderStyle.Width(m.width).Render(spread(m.width, headerLeft, headerRight))

	footerLeft := fmt.Sprintf("Analyzed: %d (Cached: %d) | Skipped: %d | Failed: %d | Found: %d | Elapsed: %s",
		m.summary.Processed, m.summary.Cached, m.summary.Skipped, m.summary.Failed, m.summary.Discovered,
		time.Since(m.summary.StartTime).Round(time.Millisecond))
	footer := FooterStyle.Width(m.width).Render(spread(m.width, footerLeft, "q: quit"))

	parts := []string{header, m.list.View()}
	if langs := m.languageLine(); langs != "" {
		parts = append(parts, langs)
	}
	if m.fatalError != "" {
		parts = append(parts, StatusStyleFailed.Render(m.fatalError))
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// languageLine lists per-language totals once the scan is complete.
func (m *Model) languageLine() string {
	if len(m.languages) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.languages))
	for name := range m.languages {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", name, m.languages[name])
	}
	line := "Languages: " + strings.Join(parts, ", ")
	if m.summary.Degraded > 0 {
		line += fmt.Sprintf(" | Template-only explanations: %d", m.summary.Degraded)
	}
	return line
}

func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func isFinalStatus(status codelens.Status) bool {
	switch status {
	case codelens.StatusSuccess, codelens.StatusFailed, codelens.StatusSkipped, codelens.StatusCached:
		return true
	}
	return false
}

func (i listItem) FilterValue() string { return i.path }

func (i listItem) Title() string { return i.path }

func (i listItem) Description() string {
	style, icon := StatusStylePending, " "
	switch i.status {
	case codelens.StatusSuccess:
		style, icon = StatusStyleSuccess, "✓"
	case codelens.StatusFailed:
		style, icon = StatusStyleFailed, "✗"
	case codelens.StatusSkipped:
		style, icon = StatusStyleSkipped, "S"
	case codelens.StatusCached:
		style, icon = StatusStyleCached, "C"
	case codelens.StatusProcessing:
		style, icon = StatusStyleProcessing, "…"
	}

	details := ""
	switch i.status {
	case codelens.StatusFailed, codelens.StatusSkipped:
		details = i.message
	case codelens.StatusSuccess, codelens.StatusCached:
		details = formatDuration(i.duration)
	}
	return strings.TrimRight(style.Render("["+icon+"]")+" "+details, " ")
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
