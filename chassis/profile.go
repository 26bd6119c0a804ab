package chassis

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/params"
	"github.com/Koyaani/titaniumcar/settings"
)

type ChannelSpec struct {
	Pin         int         `json:"pin"`
	Calibration Calibration `json:"calibration"`
	Policy      PolicySpec  `json:"policy"`
}

type Profile struct {
	Name      string      `json:"name"`
	Frequency float64     `json:"frequency"`
	Speed     ChannelSpec `json:"speed"`
	Direction ChannelSpec `json:"direction"`
}

func Presets() map[string]Profile {
	return map[string]Profile{
		"chassis": {
			Name:      "chassis",
			Frequency: settings.PWM_FREQUENCY,
			Speed: ChannelSpec{
				Pin:         5,
				Calibration: Calibration{375, 409, 413},
				Policy:      PolicySpec{Type: POLICY_IMMEDIATE},
			},
			Direction: ChannelSpec{
				Pin:         15,
				Calibration: Calibration{315, 410, 530},
				Policy:      PolicySpec{Type: POLICY_IMMEDIATE},
			},
		},
		"car": {
			Name:      "car",
			Frequency: settings.PWM_FREQUENCY,
			Speed: ChannelSpec{
				Pin:         5,
				Calibration: Calibration{390, 407, 414},
				Policy:      PolicySpec{Type: POLICY_INERTIA, Inertia: 0.8},
			},
			Direction: ChannelSpec{
				Pin:         10,
				Calibration: Calibration{315, 410, 530},
				Policy:      PolicySpec{Type: POLICY_INERTIA, Inertia: 0.7},
			},
		},
		"f1": {
			Name:      "f1",
			Frequency: settings.PWM_FREQUENCY,
			Speed: ChannelSpec{
				Pin:         5,
				Calibration: Calibration{375, 409, 413},
				Policy:      PolicySpec{Type: POLICY_HYSTERESIS, Hysteresis: DefaultHysteresis()},
			},
			Direction: ChannelSpec{
				Pin:         15,
				Calibration: Calibration{315, 410, 530},
				Policy:      PolicySpec{Type: POLICY_INERTIA, Inertia: 0.7},
			},
		},
	}
}

func PresetNames() []string {
	names := []string{}
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Preset(name string) (Profile, error) {
	p, ok := Presets()[name]
	if !ok {
		return Profile{}, errors.Errorf("unknown profile %q", name)
	}
	return p, nil
}

func (p Profile) Validate() error {
	if p.Frequency <= 0 {
		return errors.Errorf("pwm frequency must be positive, got %v", p.Frequency)
	}
	if p.Speed.Pin == p.Direction.Pin {
		return errors.Errorf("speed and direction share pin %d", p.Speed.Pin)
	}
	for _, c := range []struct {
		kind Kind
		spec ChannelSpec
	}{{Speed, p.Speed}, {Direction, p.Direction}} {
		if c.spec.Pin < 0 || c.spec.Pin > 15 {
			return errors.Errorf("%s pin %d out of range 0..15", c.kind, c.spec.Pin)
		}
		if err := c.spec.Calibration.Validate(); err != nil {
			return errors.Wrapf(err, "%s channel", c.kind)
		}
		if _, err := c.spec.Policy.Build(); err != nil {
			return errors.Wrapf(err, "%s channel", c.kind)
		}
	}
	return nil
}

// Channels validates the profile and builds its two channels.
func (p Profile) Channels() (speed, direction *Channel, err error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	speed, err = NewChannel(Speed, p.Speed)
	if err != nil {
		return nil, nil, err
	}
	direction, err = NewChannel(Direction, p.Direction)
	if err != nil {
		return nil, nil, err
	}
	return speed, direction, nil
}

// LoadProfile returns the named preset with any saved calibration override
// applied on top.
func LoadProfile(name string) (Profile, error) {
	p, err := Preset(name)
	if err != nil {
		return Profile{}, err
	}

	overrides, err := loadOverrides()
	if err != nil {
		return Profile{}, err
	}
	if raw, ok := overrides[name]; ok {
		if err := json.Unmarshal(raw, &p); err != nil {
			return Profile{}, errors.Wrapf(err, "could not parse calibration override for %s", name)
		}
		p.Name = name
	}

	if err := p.Validate(); err != nil {
		return Profile{}, errors.Wrapf(err, "profile %s", name)
	}
	return p, nil
}

// SaveProfile stores p as the calibration override for its name.
func SaveProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "could not encode profile")
	}
	overrides[p.Name] = data

	data, err = json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode calibration overrides")
	}
	params.EnsureParamDirectories()
	return params.PutParam(params.CHASSIS_CALIBRATION, data)
}

func ResetProfile(name string) error {
	overrides, err := loadOverrides()
	if err != nil {
		return err
	}
	if _, ok := overrides[name]; !ok {
		return nil
	}
	delete(overrides, name)
	if len(overrides) == 0 {
		return params.RemoveParam(params.CHASSIS_CALIBRATION)
	}
	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode calibration overrides")
	}
	return params.PutParam(params.CHASSIS_CALIBRATION, data)
}

func loadOverrides() (map[string]json.RawMessage, error) {
	overrides := map[string]json.RawMessage{}
	data, err := params.GetParam(params.CHASSIS_CALIBRATION)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return overrides, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, errors.Wrap(err, "could not parse calibration overrides")
	}
	return overrides, nil
}
