package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2)

	searchHighlight = lipgloss.NewStyle().
			Background(lipgloss.Color("228")). // yellow
			Foreground(lipgloss.Color("0"))    // black

	currentMatchHighlight = lipgloss.NewStyle().
				Background(lipgloss.Color("196")). // red
				Foreground(lipgloss.Color("15"))   // white
)

// match is one search hit, as byte offsets within a content line.
type match struct {
	line       int
	start, end int
}

type searchState struct {
	active  bool
	input   textinput.Model
	matches []match
	current int
}

// pagerModel shows a rendered chapter with less-like navigation and
// incremental search.
type pagerModel struct {
	viewport viewport.Model
	title    string
	lines    []string
	ready    bool
	search   searchState
}

func newPager(title, content string) *pagerModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return &pagerModel{
		title:  title,
		lines:  strings.Split(content, "\n"),
		search: searchState{input: ti},
	}
}

func (m *pagerModel) Init() tea.Cmd {
	return nil
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.search.active {
			switch msg.Type {
			case tea.KeyEscape:
				m.search.active = false
				m.search.input.Reset()
				m.clearSearch()
			case tea.KeyEnter:
				m.search.active = false
				m.performSearch(m.search.input.Value())
			default:
				var cmd tea.Cmd
				m.search.input, cmd = m.search.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.search.input.Reset()
			m.clearSearch()
		case "j", "down":
			m.viewport.ScrollDown(1)
		case "k", "up":
			m.viewport.ScrollUp(1)
		case "f", "pgdown", " ":
			m.viewport.ScrollDown(m.viewport.Height)
		case "b", "pgup":
			m.viewport.ScrollUp(m.viewport.Height)
		case "g", "home":
			m.viewport.GotoTop()
		case "G", "end":
			m.viewport.GotoBottom()
		case "/":
			m.search.active = true
			m.search.input.Focus()
			return m, textinput.Blink
		case "n":
			m.nextMatch()
		case "N":
			m.previousMatch()
		}
		return m, nil

	case tea.WindowSizeMsg:
		// One line each for the title bar and the help line.
		height := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.render())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\nInitializing..."
	}

	var footer string
	switch {
	case m.search.active:
		footer = m.search.input.View()
	case len(m.search.matches) > 0:
		footer = helpStyle.Render(fmt.Sprintf("match %d/%d • n next • N previous • esc clear • q quit",
			m.search.current+1, len(m.search.matches)))
	default:
		footer = helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/k ↓/j scroll • f/b page • g/G top/bottom • / search • q quit",
			m.viewport.ScrollPercent()*100))
	}
	return titleStyle.Render(m.title) + "\n" + m.viewport.View() + "\n" + footer
}

// performSearch finds every occurrence of query. The search ignores case
// unless query contains an upper-case letter.
func (m *pagerModel) performSearch(query string) {
	m.search.matches = nil
	m.search.current = 0
	if query == "" {
		m.viewport.SetContent(m.render())
		return
	}

	pattern := regexp.QuoteMeta(query)
	if strings.ToLower(query) == query {
		pattern = "(?i)" + pattern
	}
	re := regexp.MustCompile(pattern)
	for i, line := range m.lines {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			m.search.matches = append(m.search.matches, match{line: i, start: loc[0], end: loc[1]})
		}
	}
	if len(m.search.matches) == 0 {
		m.viewport.SetContent(m.render())
		return
	}

	// Start from the first match at or below the top of the screen.
	m.search.current = m.firstMatchFrom(m.viewport.YOffset)
	m.showCurrent()
}

func (m *pagerModel) firstMatchFrom(line int) int {
	for i, mt := range m.search.matches {
		if mt.line >= line {
			return i
		}
	}
	return 0
}

func (m *pagerModel) lastMatchBefore(line int) int {
	for i := len(m.search.matches) - 1; i >= 0; i-- {
		if m.search.matches[i].line < line {
			return i
		}
	}
	return len(m.search.matches) - 1
}

func (m *pagerModel) visible(line int) bool {
	return line >= m.viewport.YOffset && line < m.viewport.YOffset+m.viewport.Height
}

func (m *pagerModel) nextMatch() {
	n := len(m.search.matches)
	if n == 0 {
		return
	}
	if m.visible(m.search.matches[m.search.current].line) {
		m.search.current = (m.search.current + 1) % n
	} else {
		m.search.current = m.firstMatchFrom(m.viewport.YOffset)
	}
	m.showCurrent()
}

func (m *pagerModel) previousMatch() {
	n := len(m.search.matches)
	if n == 0 {
		return
	}
	if m.visible(m.search.matches[m.search.current].line) {
		m.search.current = (m.search.current - 1 + n) % n
	} else {
		m.search.current = m.lastMatchBefore(m.viewport.YOffset + m.viewport.Height)
	}
	m.showCurrent()
}

func (m *pagerModel) showCurrent() {
	m.viewport.SetContent(m.render())
	line := m.search.matches[m.search.current].line
	if !m.visible(line) {
		m.viewport.SetYOffset(max(line-m.viewport.Height/3, 0))
	}
}

func (m *pagerModel) clearSearch() {
	m.search.matches = nil
	m.search.current = 0
	m.viewport.SetContent(m.render())
}

// render joins the content lines, highlighting search matches.
func (m *pagerModel) render() string {
	if len(m.search.matches) == 0 {
		return strings.Join(m.lines, "\n")
	}

	var b strings.Builder
	next := 0
	for i, line := range m.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		pos := 0
		for next < len(m.search.matches) && m.search.matches[next].line == i {
			mt := m.search.matches[next]
			style := searchHighlight
			if next == m.search.current {
				style = currentMatchHighlight
			}
			b.WriteString(line[pos:mt.start])
			b.WriteString(style.Render(line[mt.start:mt.end]))
			pos = mt.end
			next++
		}
		b.WriteString(line[pos:])
	}
	return b.String()
}

// RunPager shows content in a full-screen pager titled title.
func RunPager(title, content string) error {
	p := tea.NewProgram(
		newPager(title, content),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
