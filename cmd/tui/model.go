// Package tui provides an interactive web search console for rango.
// It uses the Charm Bubble Tea framework.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/z-Shi/TangoWithDjango/library/search"
)

// DefaultSearchTimeout bounds one search issued from the console.
const DefaultSearchTimeout = 10 * time.Second

var regexpHTMLTag = regexp.MustCompile(`<[^>]*>`)

// ViewState represents the current view state of the TUI
type ViewState int

const (
	// ViewInput is the query prompt
	ViewInput ViewState = iota
	// ViewRunning is shown while the engine works
	ViewRunning
	// ViewResult lists the hits of the last query
	ViewResult
)

// ResultItem is one search hit in the result list.
type ResultItem struct {
	result search.SearchResult
}

// Title returns the hit title without markup (implements list.Item)
func (i ResultItem) Title() string { return stripTags(i.result.Title) }

// Description returns the hit link (implements list.Item)
func (i ResultItem) Description() string { return i.result.Link }

// FilterValue returns the filter value (implements list.Item)
func (i ResultItem) FilterValue() string { return i.Title() }

// searchDoneMsg carries the outcome of one engine call.
type searchDoneMsg struct {
	query   string
	results []search.SearchResult
	err     error
}

// Model is the search console following the Bubble Tea architecture
type Model struct {
	state   ViewState
	engine  search.Engine
	timeout time.Duration

	input   textinput.Model
	results list.Model
	spinner spinner.Model

	query string
	err   error

	quitting bool
}

type keyMap struct {
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
	// QuitAnywhere also works while typing a query.
	QuitAnywhere key.Binding
}

var keys = keyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "search"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "new search"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	QuitAnywhere: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// NewModel creates a console that searches with engine.
func NewModel(engine search.Engine) Model {
	input := textinput.New()
	input.Placeholder = "Search for..."
	input.Focus()
	input.CharLimit = 256
	input.Width = 50
	input.Prompt = "🔍 "
	input.PromptStyle = inputLabelStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).
		BorderForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(secondaryColor)

	results := list.New(nil, delegate, 0, 0)
	results.SetShowStatusBar(false)
	results.SetFilteringEnabled(false)
	results.Styles.Title = headerStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = progressStyle

	return Model{
		state:   ViewInput,
		engine:  engine,
		timeout: DefaultSearchTimeout,
		input:   input,
		results: results,
		spinner: sp,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.results.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.QuitAnywhere) {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.state {
		case ViewInput:
			return m.handleInputView(msg)
		case ViewResult:
			return m.handleResultView(msg)
		case ViewRunning:
			return m, nil
		}

	case spinner.TickMsg:
		if m.state == ViewRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case searchDoneMsg:
		m.state = ViewResult
		m.err = msg.err
		items := make([]list.Item, 0, len(msg.results))
		for _, r := range msg.results {
			items = append(items, ResultItem{result: r})
		}
		m.results.Title = fmt.Sprintf("Result: %d for %q", len(msg.results), msg.query)
		return m, m.results.SetItems(items)
	}

	return m, nil
}

func (m Model) handleInputView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Enter) {
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			return m, nil
		}
		m.query = query
		m.err = nil
		m.state = ViewRunning
		return m, tea.Batch(m.spinner.Tick, m.runSearch(query))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResultView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.state = ViewInput
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

// runSearch calls the engine off the UI loop.
func (m Model) runSearch(query string) tea.Cmd {
	engine, timeout := m.engine, m.timeout
	return func() tea.Msg {
		if engine == nil {
			return searchDoneMsg{query: query, err: &search.ConfigurationError{Reason: "no search engine configured"}}
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		results, err := engine.Search(ctx, query)
		return searchDoneMsg{query: query, results: results, err: err}
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return subtitleStyle.Render("Goodbye! 👋\n")
	}

	switch m.state {
	case ViewInput:
		return m.renderInput()
	case ViewRunning:
		return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.spinner.View()+" Searching...",
			subtitleStyle.Render(m.query),
		))
	case ViewResult:
		return m.renderResult()
	default:
		return "Unknown state"
	}
}

func (m Model) renderInput() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Rango Search") + "\n\n")
	sb.WriteString(inputLabelStyle.Render("Query:") + "\n")
	sb.WriteString(m.input.View() + "\n")
	sb.WriteString(helpStyle.Render("enter: search • ctrl+c: quit"))
	return boxStyle.Render(sb.String())
}

func (m Model) renderResult() string {
	help := helpStyle.Render("↑/↓ navigate • esc: new search • q: quit")
	if m.err != nil {
		return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("❌ "+describeError(m.err)),
			"",
			help,
		))
	}

	var summary string
	if item, ok := m.results.SelectedItem().(ResultItem); ok {
		summary = subtitleStyle.Render(stripTags(item.result.Summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.results.View(),
		summary,
		help,
	)
}

// describeError renders engine failures for people.
func describeError(err error) string {
	if search.IsConfigurationError(err) {
		return "Search is not configured: " + err.Error()
	}
	if upstream, ok := search.AsUpstreamError(err); ok && upstream.StatusCode != 0 {
		return fmt.Sprintf("Search upstream failed with status %d", upstream.StatusCode)
	}
	return "Search failed: " + err.Error()
}

func stripTags(s string) string {
	return strings.TrimSpace(regexpHTMLTag.ReplaceAllString(s, ""))
}
