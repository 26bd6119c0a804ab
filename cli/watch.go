package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/cereal"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/utils"
)

type TickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Every(settings.CONTROL_PUBLISH_PERIOD, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

type watchModel struct {
	read      func() (cereal.ControlState, bool)
	state     cereal.ControlState
	valid     bool
	lastSeen  time.Time
	speed     progress.Model
	direction progress.Model
}

func newWatchModel(read func() (cereal.ControlState, bool)) watchModel {
	return watchModel{
		read:      read,
		speed:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		direction: progress.New(progress.WithSolidFill("39"), progress.WithoutPercentage()),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tickEvery()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" || msg.String() == "esc" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, _ := docStyle.GetFrameSize()
		width := max(10, min(60, msg.Width-h-16))
		m.speed.Width = width
		m.direction.Width = width
	case TickMsg:
		for {
			state, ok := m.read()
			if !ok {
				break
			}
			m.state = state
			m.valid = true
			m.lastSeen = time.Time(msg)
		}
		return m, tickEvery()
	}
	return m, nil
}

// bar maps a [-1, 1] value to a [0, 1] fill with zero at the middle.
func bar(v float64) float64 {
	return (v + 1) / 2
}

func channelLine(name string, out chassis.Output, p progress.Model) string {
	return fmt.Sprintf("%-9s %s %+.2f → %+.2f  pin %2d  pulse %4d",
		name, p.ViewAs(bar(out.State.Current)), out.State.Target, out.State.Current, out.Pin, out.Pulse)
}

func (m watchModel) View() string {
	if !m.valid {
		return docStyle.Render(dimStyle.Render("waiting for a running car...") + "\n")
	}
	s := m.state
	estimate := "none"
	if s.Command.Estimated {
		estimate = fmt.Sprintf("%.1f (%d admitted, %d ignored)",
			s.Command.Convergence.X, s.Command.Convergence.Admitted, s.Command.Convergence.Ignored)
	}
	return docStyle.Render(fmt.Sprintf(
		"%s\n\n%s\n%s\n\ntrace: %.2f\nconvergence: %s\ncurvature: %.2f\ncommand: direction %+.2f speed %+.2f\nframe rate: %.1f fps\n\n%s",
		titleStyle.Render(fmt.Sprintf("%s (%s mode)", s.Profile, s.Mode)),
		channelLine("speed", s.Speed, m.speed),
		channelLine("direction", s.Direction, m.direction),
		s.Speed.State.Trace,
		estimate,
		s.Command.Curvature,
		s.Command.Direction,
		s.Command.Speed,
		s.FrameRate,
		dimStyle.Render("q to quit"),
	) + "\n")
}

func watch() error {
	sub, err := cereal.NewSubscriber(settings.CONTROL_QUEUE, cereal.DecodeControlState, true)
	if err != nil {
		return err
	}
	defer func() { utils.Loge(sub.Close()) }()

	p := tea.NewProgram(newWatchModel(sub.Read), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "watch ui failed")
	}
	return nil
}
