// Package tui plays a stored session in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storynexus/internal/alignment"
	"storynexus/internal/session"
	"storynexus/internal/store"
	"storynexus/internal/story"
)

type Store interface {
	store.NodeStore
	store.PlayerStore
	store.SessionStore
}

type playState int

const (
	stateLoading playState = iota
	statePlaying
	stateError
)

type model struct {
	state     playState
	db        Store
	machine   *session.Machine
	sessionID string

	session *story.Session
	node    *story.StoryNode
	player  *story.Player
	cursor  int
	notice  string
	err     error

	viewport viewport.Model
	width    int
	height   int
}

var (
	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(db Store, machine *session.Machine, sessionID string) model {
	return model{
		state:     stateLoading,
		db:        db,
		machine:   machine,
		sessionID: sessionID,
		viewport:  viewport.New(60, 10),
	}
}

type loadedMsg struct {
	session *story.Session
	node    *story.StoryNode
	player  *story.Player
	notice  string
}

type errMsg struct {
	err error
}

func (m model) Init() tea.Cmd {
	return m.load("")
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
		if m.state != statePlaying {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.node.Choices)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.node.Choices) > 0 {
				return m, m.choose(m.node.Choices[m.cursor].ID)
			}
		case "b", "backspace":
			return m, m.goBack()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		default:
			if idx, ok := choiceIndex(msg.String(), len(m.node.Choices)); ok {
				m.cursor = idx
				return m, m.choose(m.node.Choices[idx].ID)
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = int(float64(msg.Width) * 0.7)
		m.viewport.Height = msg.Height - 8
		m.refresh()

	case loadedMsg:
		m.state = statePlaying
		m.session = msg.session
		m.node = msg.node
		m.player = msg.player
		m.notice = msg.notice
		m.cursor = 0
		m.refresh()
		m.viewport.GotoTop()

	case errMsg:
		switch {
		case errors.Is(msg.err, story.ErrCannotGoBack):
			m.notice = "There is no way back from here."
		case errors.Is(msg.err, story.ErrInvalidChoice):
			m.notice = "That choice is not available."
		default:
			m.err = msg.err
			m.state = stateError
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	switch m.state {
	case stateLoading:
		return "\n  Loading session...\n"
	case stateError:
		return fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.\n", m.err)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
	parts := []string{body, "", m.renderChoices()}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	parts = append(parts, helpStyle.Render("1-9 or enter to choose, b to go back, q to quit"))
	return "\n" + lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m *model) refresh() {
	if m.node == nil {
		return
	}
	m.viewport.SetContent(contentStyle.Width(m.viewport.Width).Render(m.node.Content))
}

func (m model) renderChoices() string {
	if len(m.node.Choices) == 0 {
		return helpStyle.Render("The story ends here.")
	}
	var b strings.Builder
	for i, c := range m.node.Choices {
		line := fmt.Sprintf("%d. %s", i+1, c.Text)
		if c.NextNodeID == "" {
			line += " (stay)"
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(choiceStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) renderState() string {
	if m.player == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(m.player.Name)) + "\n")
	if m.session.Title != "" {
		b.WriteString(m.session.Title + "\n")
	}
	b.WriteString(fmt.Sprintf("Visited: %d\n\n", len(m.session.VisitedNodes)))

	overall := m.player.PoliticalAlignment.OverallAlignment
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(alignment.HexColor(overall))).Render("■")
	b.WriteString(titleStyle.Render("ALIGNMENT") + "\n")
	b.WriteString(fmt.Sprintf("%s %.1f\n\n", swatch, overall))

	b.WriteString(titleStyle.Render("STATS") + "\n")
	if len(m.player.Stats) == 0 {
		b.WriteString("(none)\n")
	}
	for _, k := range sortedKeys(m.player.Stats) {
		b.WriteString(fmt.Sprintf("%s: %g\n", k, m.player.Stats[k]))
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("INVENTORY") + "\n")
	if len(m.player.Inventory) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, item := range m.player.Inventory {
		b.WriteString("- " + item + "\n")
	}

	width := int(float64(m.width) * 0.25)
	return stateStyle.Width(width).Height(m.viewport.Height).Render(b.String())
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// choiceIndex maps "1".."9" onto a zero-based choice index.
func choiceIndex(key string, count int) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	idx := int(key[0] - '1')
	return idx, idx < count
}

func (m model) load(notice string) tea.Cmd {
	return func() tea.Msg {
		return m.fetch(context.Background(), notice)
	}
}

func (m model) fetch(ctx context.Context, notice string) tea.Msg {
	sess, err := m.db.GetSession(ctx, m.sessionID)
	if err != nil {
		return errMsg{err}
	}
	node, err := m.db.GetNode(ctx, sess.CurrentNodeID)
	if err != nil {
		return errMsg{err}
	}
	player, err := m.db.GetPlayer(ctx, sess.PlayerID)
	if err != nil {
		return errMsg{err}
	}
	return loadedMsg{session: sess, node: node, player: player, notice: notice}
}

func (m model) choose(choiceID string) tea.Cmd {
	current := m.node.ID
	return func() tea.Msg {
		ctx := context.Background()
		sess, err := m.machine.MakeChoice(ctx, m.sessionID, choiceID)
		if err != nil {
			return errMsg{err}
		}
		notice := ""
		if sess.CurrentNodeID == current {
			notice = "Nothing changes around you."
		}
		return m.fetch(ctx, notice)
	}
}

func (m model) goBack() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := m.machine.GoBack(ctx, m.sessionID); err != nil {
			return errMsg{err}
		}
		return m.fetch(ctx, "")
	}
}

func Run(db Store, machine *session.Machine, sessionID string) error {
	p := tea.NewProgram(NewModel(db, machine, sessionID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
