package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/fahmaliyi/otpguard/otp"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

type tickMsg time.Time

type advancedMsg struct {
	name string
	code string
	err  error
}

type clearedMsg struct{}

type entry struct {
	secret otp.Secret
	code   string
	err    error
}

type model struct {
	ctx      context.Context
	app      *App
	password []byte
	pin      string

	entries []entry
	cursor  int
	filter  textinput.Model
	now     time.Time
	msg     string
}

func (a *App) interactive(ctx context.Context, pw []byte, pin string) error {
	secrets, err := a.store.Load(ctx, pw)
	if err != nil {
		return err
	}
	names := lo.Keys(secrets)
	slices.Sort(names)

	m := newModel(ctx, a, pw, pin, lo.Map(names, func(name string, _ int) otp.Secret {
		return secrets[name]
	}))
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newModel(ctx context.Context, a *App, pw []byte, pin string, secrets []otp.Secret) model {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/ "

	m := model{
		ctx:      ctx,
		app:      a,
		password: pw,
		pin:      pin,
		filter:   ti,
		entries: lo.Map(secrets, func(s otp.Secret, _ int) entry {
			return entry{secret: s}
		}),
	}
	now := time.Now()
	if a.gen.Clock != nil {
		now = a.gen.Clock.Now()
	}
	m.refresh(now)
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh(time.Time(msg))
		return m, tick()
	case advancedMsg:
		return m.advanced(msg), nil
	case clearedMsg:
		m.msg = ""
		return m, nil
	case tea.KeyMsg:
		if m.filter.Focused() {
			return m.updateFilter(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.filter.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visible()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "/":
		return m, m.filter.Focus()
	case "c":
		if len(visible) == 0 {
			return m, nil
		}
		return m.copySelected(visible[m.cursor])
	case "n":
		if len(visible) == 0 || visible[m.cursor].secret.Algorithm != otp.HOTP {
			return m, nil
		}
		return m, m.advance(visible[m.cursor].secret.Name)
	}
	return m, nil
}

func (m model) copySelected(e entry) (tea.Model, tea.Cmd) {
	if e.code == "" {
		m.msg = "No code to copy"
		return m, nil
	}
	if err := m.app.clipboard.WriteAll(e.code); err != nil {
		m.msg = "Copy failed: " + err.Error()
		return m, nil
	}
	m.msg = fmt.Sprintf("Copied %s (clears in %s)", e.secret.Name, m.app.clipboardTTL.Round(time.Second))

	ctx, cb, code, ttl := m.ctx, m.app.clipboard, e.code, m.app.clipboardTTL
	return m, func() tea.Msg {
		clearAfter(ctx, cb, code, ttl)
		return clearedMsg{}
	}
}

// advance persists the next HOTP counter and reports the code it produced.
func (m model) advance(name string) tea.Cmd {
	ctx, app, pw, pin := m.ctx, m.app, m.password, m.pin
	return func() tea.Msg {
		code, err := app.store.Code(ctx, pw, app.gen, name, pin)
		return advancedMsg{name: name, code: code, err: presentable(err)}
	}
}

func (m model) advanced(msg advancedMsg) model {
	entries := slices.Clone(m.entries)
	for i := range entries {
		if entries[i].secret.Name != msg.name {
			continue
		}
		entries[i].err = msg.err
		if msg.err == nil {
			entries[i].code = msg.code
			entries[i].secret = entries[i].secret.Advanced()
		}
	}
	m.entries = entries
	return m
}

// refresh recomputes time-based codes. HOTP codes only change on request.
func (m *model) refresh(now time.Time) {
	m.now = now
	entries := slices.Clone(m.entries)
	for i, e := range entries {
		if e.secret.Algorithm == otp.HOTP {
			continue
		}
		entries[i].code, entries[i].err = m.app.gen.Generate(e.secret, m.pin)
	}
	m.entries = entries
}

func (m model) visible() []entry {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		return m.entries
	}
	return lo.Filter(m.entries, func(e entry, _ int) bool {
		return strings.Contains(strings.ToLower(e.secret.Name), q)
	})
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("otpguard") + "\n\n")
	b.WriteString(m.filter.View() + "\n\n")

	visible := m.visible()
	if len(visible) == 0 {
		b.WriteString(dimStyle.Render("no matching secrets") + "\n")
	}
	for i, e := range visible {
		line := m.row(e)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.msg != "" {
		b.WriteString("\n" + msgStyle.Render(m.msg) + "\n")
	}
	b.WriteString(dimStyle.Render("\nj/k move  / filter  c copy  n next hotp  q quit"))
	return b.String()
}

func (m model) row(e entry) string {
	name := fmt.Sprintf("%-24s %-5s", e.secret.Name, e.secret.Algorithm)
	switch {
	case e.err != nil:
		return name + " " + errStyle.Render(e.err.Error())
	case e.secret.Algorithm == otp.HOTP && e.code == "":
		return name + " " + dimStyle.Render("press n")
	case e.secret.Algorithm == otp.HOTP:
		return fmt.Sprintf("%s %s", name, e.code)
	}
	return fmt.Sprintf("%s %s %3ds", name, e.code, int(otp.Remaining(e.secret.Algorithm, m.now).Seconds()))
}
