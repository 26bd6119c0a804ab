package cli

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/settings"
)

const (
	actionCalibrate = "Calibrate"
	actionWatch     = "Watch"
	actionStop      = "Stop the car"
	actionProfile   = "Switch profile"
	actionReset     = "Reset calibration"
	actionProfiles  = "Show profiles"
	actionParams    = "Show params"
	actionPlot      = "Plot last drive"
)

func interactive(s settings.CarSettings) error {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Select Action (profile %s)", s.Profile),
		Items: []string{actionCalibrate, actionWatch, actionStop, actionProfile, actionReset, actionProfiles, actionParams, actionPlot},
	}

	_, result, err := prompt.Run()
	if err != nil {
		return errors.Wrap(err, "prompt failed")
	}

	switch result {
	case actionCalibrate:
		return calibrate(s)
	case actionWatch:
		return watch()
	case actionStop:
		return stop(s)
	case actionProfile:
		return switchProfile(s)
	case actionReset:
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Reset saved calibration of %s", s.Profile),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			return nil
		}
		return chassis.ResetProfile(s.Profile)
	case actionProfiles:
		return printProfiles(os.Stdout)
	case actionParams:
		return printParams(os.Stdout)
	case actionPlot:
		out := promptui.Prompt{Label: "Output file", Default: "drive.png"}
		path, err := out.Run()
		if err != nil {
			return errors.Wrap(err, "prompt failed")
		}
		return plotSession(s.RecordPath, "", path)
	}
	return nil
}

func switchProfile(s settings.CarSettings) error {
	names := chassis.PresetNames()
	prompt := promptui.Select{Label: "Profile", Items: names}
	_, name, err := prompt.Run()
	if err != nil {
		return errors.Wrap(err, "prompt failed")
	}
	s.Profile = name
	s.Save()
	fmt.Printf("profile set to %s\n", name)
	return nil
}
