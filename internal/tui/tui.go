// Package tui is the local terminal front end for a single quizwar game.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/match"
)

type inputState int

const (
	stateCommand inputState = iota
	stateTroops
	stateThinking
)

const (
	defaultWidth  = 100
	defaultHeight = 30
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// Model is the bubbletea model for one game.
type Model struct {
	state      inputState
	engine     *match.Engine
	snap       match.Snapshot
	troops     textinput.Model
	viewport   viewport.Model
	thinkDelay time.Duration
	logger     *zap.Logger
	notice     string
	width      int
	height     int
}

// aiTurnMsg carries the result of the computer side's move.
type aiTurnMsg struct {
	turn match.AITurn
	err  error
}

// NewModel wraps eng for display.
//
// Precondition: eng and logger must be non-nil; thinkDelay must not be negative.
func NewModel(eng *match.Engine, thinkDelay time.Duration, logger *zap.Logger) Model {
	if eng == nil || logger == nil {
		panic("tui.NewModel: eng and logger must not be nil")
	}
	ti := textinput.New()
	ti.Placeholder = "troops to send"
	ti.CharLimit = 4
	ti.Width = 20

	m := Model{
		state:      stateCommand,
		engine:     eng,
		troops:     ti,
		viewport:   viewport.New(defaultWidth*3/5, defaultHeight-14),
		thinkDelay: thinkDelay,
		logger:     logger,
		width:      defaultWidth,
		height:     defaultHeight,
	}
	m.refresh()
	return m
}

// Snapshot returns the state last rendered.
func (m Model) Snapshot() match.Snapshot { return m.snap }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.state {
		case stateTroops:
			return m.updateTroops(msg)
		case stateThinking:
			return m, nil
		}
		return m.updateCommand(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width * 3 / 5
		m.viewport.Height = max(msg.Height-14, 3)
		m.refresh()
		return m, nil

	case aiTurnMsg:
		m.state = stateCommand
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.logger.Warn("ai turn failed", zap.Error(msg.err))
		} else {
			m.notice = fmt.Sprintf("Computer chose to %s.", msg.turn.Strategy)
		}
		m.refresh()
		return m, nil
	}

	if m.state == stateTroops {
		var cmd tea.Cmd
		m.troops, cmd = m.troops.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch key := msg.String(); key {
	case "q", "esc":
		return m, tea.Quit
	case "1", "2", "3", "4":
		option := int(key[0] - '1')
		_, err := m.engine.AnswerQuestion(option)
		return m.afterMove(err)
	case "a":
		if m.snap.State.GameOver {
			m.notice = match.ErrGameOver.Error()
			return m, nil
		}
		m.state = stateTroops
		m.troops.Reset()
		cmd := m.troops.Focus()
		return m, cmd
	case "d":
		_, err := m.engine.DefendHouse()
		return m.afterMove(err)
	case "e":
		m.report(m.engine.EndGame())
	case "r":
		m.engine.Init()
	case "x":
		m.engine.SwapSides()
	case "s":
		m.report(m.engine.SetControlledSide(m.snap.State.ControlledSide.Other()))
	case "c":
		next := m.snap.State.Difficulty%match.Hard + 1
		m.report(m.engine.SetDifficulty(next))
	}
	m.refresh()
	return m, nil
}

func (m Model) updateTroops(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = stateCommand
		m.troops.Blur()
		return m, nil
	case tea.KeyEnter:
		m.state = stateCommand
		m.troops.Blur()
		n, err := strconv.Atoi(strings.TrimSpace(m.troops.Value()))
		if err != nil {
			m.notice = "enter a whole number of troops"
			return m, nil
		}
		_, err = m.engine.SendTroops(n)
		return m.afterMove(err)
	}
	var cmd tea.Cmd
	m.troops, cmd = m.troops.Update(msg)
	return m, cmd
}

// afterMove refreshes the view after a human action and, if the computer is
// now to act, schedules its move after the think delay.
func (m Model) afterMove(err error) (tea.Model, tea.Cmd) {
	m.report(err)
	m.refresh()
	if err != nil || m.snap.State.GameOver || m.snap.State.ActiveSide != match.Away {
		return m, nil
	}
	m.state = stateThinking
	return m, m.aiTurn()
}

func (m Model) aiTurn() tea.Cmd {
	eng := m.engine
	play := func() tea.Msg {
		turn, err := eng.AITakeTurn()
		return aiTurnMsg{turn: turn, err: err}
	}
	if m.thinkDelay <= 0 {
		return play
	}
	return tea.Tick(m.thinkDelay, func(time.Time) tea.Msg { return play() })
}

func (m *Model) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, match.ErrNoTroops):
		m.notice = "You have no troops to send."
	case errors.Is(err, match.ErrNotYourTurn):
		m.notice = "Wait for your turn."
	case errors.Is(err, match.ErrGameOver):
		m.notice = "The game is over. Press r to play again."
	default:
		m.notice = err.Error()
		m.logger.Warn("action failed", zap.Error(err))
	}
}

func (m *Model) refresh() {
	m.snap = m.engine.Snapshot()
	m.viewport.SetContent(strings.Join(m.snap.LogLines(), "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderQuestion(),
		"",
		titleStyle.Render("BATTLE LOG"),
		m.viewport.View(),
	)
	main := lipgloss.JoinHorizontal(lipgloss.Top, left, m.renderStatus())

	var footer string
	switch m.state {
	case stateTroops:
		footer = "Send how many troops? " + m.troops.View()
	case stateThinking:
		footer = "Computer is thinking..."
	default:
		footer = errorStyle.Render(m.notice)
	}
	help := helpStyle.Render("1-4 answer  a attack  d defend  e end  r restart  x swap  s side  c difficulty  q quit")
	return "\n" + lipgloss.JoinVertical(lipgloss.Left, main, "", footer, help) + "\n"
}

func (m Model) renderQuestion() string {
	if sum := m.snap.Summary; sum != nil {
		var b strings.Builder
		b.WriteString(titleStyle.Render("GAME OVER") + "\n")
		switch sum.Winner {
		case match.WinnerDraw:
			b.WriteString("It's a draw!\n")
		default:
			fmt.Fprintf(&b, "%s wins by %d%%\n", strings.ToUpper(sum.Winner.String()), sum.WinMargin)
		}
		fmt.Fprintf(&b, "Home rating: %d\nAway rating: %d\n", sum.HomeRating, sum.AwayRating)
		return b.String()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("QUESTION (turn %d/%d)", m.snap.State.CurrentTurn, m.snap.State.MaxTurns)) + "\n")
	b.WriteString(questionStyle.Width(m.viewport.Width).Render(m.snap.Question.Text) + "\n")
	for i, opt := range m.snap.Question.Options {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, opt)
	}
	return b.String()
}

func (m Model) renderStatus() string {
	st := m.snap.State
	var b strings.Builder

	b.WriteString(titleStyle.Render("STATUS") + "\n")
	fmt.Fprintf(&b, "Difficulty: %s\n", st.Difficulty)
	if !st.GameOver {
		b.WriteString("To act: " + activeStyle.Render(strings.ToUpper(st.ActiveSide.String())) + "\n")
	}
	b.WriteString("\n")

	for _, side := range []match.Side{match.Home, match.Away} {
		name := strings.ToUpper(side.String())
		if side == st.ControlledSide {
			name += " (you)"
		}
		rec := m.snap.Record(side)
		b.WriteString(titleStyle.Render(name) + "\n")
		fmt.Fprintf(&b, "Score: %g\nHealth: %d\nDefense: %d\nTroops: %d\nKnowledge: %d\n",
			rec.Score, rec.DisplayHealth(), rec.Defense, rec.Troops, rec.Knowledge)
		if rec.HouseDefended {
			b.WriteString("House fortified\n")
		}
		b.WriteString("\n")
	}

	sv := m.snap.Strategy
	b.WriteString(titleStyle.Render("COMPUTER STRATEGY") + "\n")
	fmt.Fprintf(&b, "Answer: %3.0f%%\nAttack: %3.0f%%\nDefend: %3.0f%%\n",
		sv.Weights.Answer*100, sv.Weights.Attack*100, sv.Weights.Defend*100)
	fmt.Fprintf(&b, "Leaning: %s\n", sv.Dominant)
	if sv.LastRule != "" {
		fmt.Fprintf(&b, "Override: %s\n", sv.LastRule)
	}

	width := max(m.width-m.viewport.Width-4, 24)
	return panelStyle.Width(width).Render(b.String())
}

// Run plays eng in the terminal until the user quits.
func Run(eng *match.Engine, thinkDelay time.Duration, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(eng, thinkDelay, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
