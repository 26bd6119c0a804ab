package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/Koyaani/titaniumcar/actuator"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/params"
	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/telemetry"
)

// DriveFunc runs the full pipeline until ctx is done.
type DriveFunc func(ctx context.Context, s settings.CarSettings) error

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Category: "Configuration",
			Name:     "settings",
			Usage:    "Read settings from a JSON file instead of the params directory",
			Sources:  cli.EnvVars("TITANIUM_SETTINGS"),
		},
		&cli.StringFlag{
			Category: "Configuration",
			Name:     "profile",
			Aliases:  []string{"p"},
			Usage:    fmt.Sprintf("Chassis profile, one of %v", chassis.PresetNames()),
			Sources:  cli.EnvVars("TITANIUM_PROFILE"),
		},
		&cli.StringFlag{
			Category: "Configuration",
			Name:     "log-level",
			Usage:    "debug, info, warn or error",
			Sources:  cli.EnvVars("TITANIUM_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Category: "Hardware",
			Name:     "actuator",
			Usage:    "pca9685, serial or null",
			Sources:  cli.EnvVars("TITANIUM_ACTUATOR"),
		},
		&cli.StringFlag{
			Category: "Hardware",
			Name:     "source",
			Usage:    "Camera device index, video file or stream URL",
			Sources:  cli.EnvVars("TITANIUM_SOURCE"),
		},
		&cli.StringFlag{
			Category: "Driving",
			Name:     "mode",
			Usage:    "Steer from detected lines (line) or the steering model (model)",
		},
		&cli.BoolFlag{
			Category: "Driving",
			Name:     "record",
			Usage:    "Log every frame and actuation tick to the drive database",
		},
		&cli.StringFlag{
			Category: "Driving",
			Name:     "status-addr",
			Usage:    "Serve the status API on this address, e.g. :8080",
			Sources:  cli.EnvVars("TITANIUM_STATUS_ADDR"),
		},
	}
}

// loadSettings reads persisted settings and applies flag overrides on top.
func loadSettings(cmd *cli.Command) (settings.CarSettings, error) {
	s := settings.CarSettings{}
	if path := cmd.String("settings"); path != "" {
		if err := s.LoadFile(path); err != nil {
			return s, err
		}
	} else {
		s.LoadWithRetries(1)
	}

	if cmd.IsSet("profile") {
		s.Profile = cmd.String("profile")
	}
	if cmd.IsSet("actuator") {
		s.Actuator = cmd.String("actuator")
	}
	if cmd.IsSet("source") {
		s.Source = cmd.String("source")
	}
	if cmd.IsSet("mode") {
		s.Mode = cmd.String("mode")
	}
	if cmd.IsSet("record") {
		s.Record = cmd.Bool("record")
	}
	if cmd.IsSet("status-addr") {
		s.StatusAddr = cmd.String("status-addr")
	}
	if cmd.IsSet("log-level") {
		s.SetLogLevel(cmd.String("log-level"))
	}
	return s, nil
}

func Command(drive DriveFunc) *cli.Command {
	driveAction := func(ctx context.Context, cmd *cli.Command) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		return drive(ctx, s)
	}

	return &cli.Command{
		Name:  "titaniumcar",
		Usage: "Drive a small autonomous car around a track",
		Flags: flags(),
		Commands: []*cli.Command{
			{
				Name:   "drive",
				Usage:  "Run the perception and actuation pipeline",
				Action: driveAction,
			},
			{
				Name:  "stop",
				Usage: "Write the idle pulses of the profile and exit",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return stop(s)
				},
			},
			{
				Name:    "calibrate",
				Aliases: []string{"c"},
				Usage:   "Nudge the raw pulses of each channel and save them to the profile",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return calibrate(s)
				},
			},
			{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Watch the live control state of a running car",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return watch()
				},
			},
			{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Pick an action from a menu",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return interactive(s)
				},
			},
			{
				Name:  "plot",
				Usage: "Render a recorded drive to a PNG",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id, defaults to the latest drive",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "drive.png",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := loadSettings(cmd)
					if err != nil {
						return err
					}
					return plotSession(s.RecordPath, cmd.String("session"), cmd.String("output"))
				},
			},
			{
				Name:  "profiles",
				Usage: "Print the chassis profiles with saved calibration applied",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return printProfiles(os.Stdout)
				},
			},
			{
				Name:  "params",
				Usage: "Print the stored params",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return printParams(os.Stdout)
				},
			},
		},
		Action: driveAction,
	}
}

func Handle(ctx context.Context, drive DriveFunc) {
	if err := Command(drive).Run(ctx, os.Args); err != nil {
		slog.Error("titaniumcar failed", "error", err)
		os.Exit(1)
	}
}

// stop drives both channels of the profile to idle and releases the
// hardware.
func stop(s settings.CarSettings) error {
	profile, err := chassis.LoadProfile(s.Profile)
	if err != nil {
		return err
	}
	speed, direction, err := profile.Channels()
	if err != nil {
		return err
	}
	a := actuator.Open(s, profile.Frequency)
	return chassis.NewScheduler(a, speed, direction).Shutdown()
}

func plotSession(dbPath, session, output string) error {
	r, err := telemetry.OpenRecorder(dbPath)
	if err != nil {
		return err
	}
	defer r.Close()

	if session == "" {
		session, err = r.LatestSession()
		if err != nil {
			return err
		}
	}
	frames, err := r.Frames(session)
	if err != nil {
		return err
	}
	ticks, err := r.Ticks(session)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return errors.Wrap(err, "could not create plot directory")
	}
	if err := telemetry.RenderSession(output, frames, ticks); err != nil {
		return err
	}
	slog.Info("plot written", "session", session, "output", output, "frames", len(frames), "ticks", len(ticks))
	return nil
}

func printProfiles(w io.Writer) error {
	profiles := []chassis.Profile{}
	for _, name := range chassis.PresetNames() {
		p, err := chassis.LoadProfile(name)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(profiles), "could not print profiles")
}

// printParams lists every param. Binary values are shown by size only.
func printParams(w io.Writer) error {
	names, err := params.GetParams()
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := params.GetParam(name)
		if err != nil {
			return err
		}
		if params.IsString(data) {
			fmt.Fprintf(w, "%s: %s\n", name, data)
		} else {
			fmt.Fprintf(w, "%s: <%d bytes>\n", name, len(data))
		}
	}
	return nil
}
