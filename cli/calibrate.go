package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/actuator"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/utils"
)

const PULSE_STEP = 5

var (
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type calibrateKeys struct {
	Down   key.Binding
	Up     key.Binding
	Accept key.Binding
	Quit   key.Binding
}

func (k calibrateKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Accept, k.Quit}
}

func (k calibrateKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var calibrateKeyMap = calibrateKeys{
	Down:   key.NewBinding(key.WithKeys("q", "left"), key.WithHelp("q/←", fmt.Sprintf("-%d", PULSE_STEP))),
	Up:     key.NewBinding(key.WithKeys("d", "right"), key.WithHelp("d/→", fmt.Sprintf("+%d", PULSE_STEP))),
	Accept: key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s/enter", "accept")),
	Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "abort")),
}

// calibrationStep is one pulse to adjust: a channel and one point of its
// calibration triple.
type calibrationStep struct {
	kind  chassis.Kind
	point string
}

var calibrationSteps = []calibrationStep{
	{chassis.Direction, "mid"},
	{chassis.Direction, "low"},
	{chassis.Direction, "high"},
	{chassis.Speed, "mid"},
	{chassis.Speed, "low"},
	{chassis.Speed, "high"},
}

type calibrateModel struct {
	profile  chassis.Profile
	setPulse func(pin, pulse int) error
	step     int
	pulse    int
	err      error
	done     bool
	aborted  bool
	help     help.Model
}

func newCalibrateModel(profile chassis.Profile, setPulse func(pin, pulse int) error) calibrateModel {
	m := calibrateModel{profile: profile, setPulse: setPulse, help: help.New()}
	m.pulse = *m.point()
	m.write()
	return m
}

func (m *calibrateModel) spec() *chassis.ChannelSpec {
	if calibrationSteps[m.step].kind == chassis.Speed {
		return &m.profile.Speed
	}
	return &m.profile.Direction
}

func (m *calibrateModel) point() *int {
	c := &m.spec().Calibration
	switch calibrationSteps[m.step].point {
	case "low":
		return &c.Low
	case "high":
		return &c.High
	}
	return &c.Mid
}

// rest is the idle pulse of the current channel.
func (m *calibrateModel) rest() int {
	if calibrationSteps[m.step].kind == chassis.Speed {
		return m.spec().Calibration.Low
	}
	return m.spec().Calibration.Mid
}

func (m *calibrateModel) write() {
	m.err = m.setPulse(m.spec().Pin, m.pulse)
}

func (m calibrateModel) Init() tea.Cmd {
	return nil
}

func (m calibrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, calibrateKeyMap.Quit):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, calibrateKeyMap.Down):
		m.pulse = max(0, m.pulse-PULSE_STEP)
		m.write()
	case key.Matches(keyMsg, calibrateKeyMap.Up):
		m.pulse = min(4095, m.pulse+PULSE_STEP)
		m.write()
	case key.Matches(keyMsg, calibrateKeyMap.Accept):
		*m.point() = m.pulse
		// leave the channel at rest before moving on
		m.pulse = m.rest()
		m.write()
		m.step++
		if m.step == len(calibrationSteps) {
			m.step--
			m.done = true
			return m, tea.Quit
		}
		m.pulse = *m.point()
		m.write()
	}
	return m, nil
}

func (m calibrateModel) View() string {
	b := strings.Builder{}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Calibrating profile %s", m.profile.Name)))
	b.WriteString("\n\n")
	for i, s := range calibrationSteps {
		line := fmt.Sprintf("%-9s %-4s", s.kind, s.point)
		switch {
		case i == m.step && !m.done:
			b.WriteString(activeStyle.Render(fmt.Sprintf("> %s %4d", line, m.pulse)))
		case i < m.step || m.done:
			b.WriteString(fmt.Sprintf("  %s %4d", line, m.value(i)))
		default:
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %s %4d", line, m.value(i))))
		}
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.help.View(calibrateKeyMap))
	return docStyle.Render(b.String())
}

func (m calibrateModel) value(i int) int {
	s := calibrationSteps[i]
	c := m.profile.Direction.Calibration
	if s.kind == chassis.Speed {
		c = m.profile.Speed.Calibration
	}
	switch s.point {
	case "low":
		return c.Low
	case "high":
		return c.High
	}
	return c.Mid
}

func calibrate(s settings.CarSettings) error {
	profile, err := chassis.LoadProfile(s.Profile)
	if err != nil {
		return err
	}
	a := actuator.Open(s, profile.Frequency)
	defer func() { utils.Loge(a.Close()) }()

	final, err := tea.NewProgram(newCalibrateModel(profile, a.SetPulse)).Run()
	if err != nil {
		return errors.Wrap(err, "calibration ui failed")
	}
	result := final.(calibrateModel)

	speed, direction, err := profile.Channels()
	if err == nil {
		for _, c := range []*chassis.Channel{speed, direction} {
			out := c.Idle()
			utils.Loge(a.SetPulse(out.Pin, out.Pulse))
		}
	}

	if !result.done {
		fmt.Println("calibration aborted, nothing saved")
		return nil
	}
	if err := chassis.SaveProfile(result.profile); err != nil {
		return errors.Wrap(err, "calibration not saved")
	}
	fmt.Printf("saved calibration for %s: speed %v, direction %v\n",
		result.profile.Name, result.profile.Speed.Calibration, result.profile.Direction.Calibration)
	return nil
}
