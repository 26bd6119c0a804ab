package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Koyaani/titaniumcar/actuator"
	"github.com/Koyaani/titaniumcar/cereal"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
	"github.com/Koyaani/titaniumcar/params"
	"github.com/Koyaani/titaniumcar/server"
	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/telemetry"
	"github.com/Koyaani/titaniumcar/utils"
	"github.com/Koyaani/titaniumcar/vision"
)

type frameSource interface {
	Read() (gocv.Mat, bool)
	Close() error
}

var openCamera = func(s settings.CarSettings) (frameSource, error) {
	camera, err := vision.OpenCamera(s.Source, s.Width, s.Height, s.FPS)
	if err != nil {
		return nil, err
	}
	return camera, nil
}

func drive(ctx context.Context, s settings.CarSettings) error {
	profile, err := chassis.LoadProfile(s.Profile)
	if err != nil {
		return err
	}
	speed, direction, err := profile.Channels()
	if err != nil {
		return err
	}

	camera, err := openCamera(s)
	if err != nil {
		return errors.Wrap(err, "could not open camera")
	}
	defer func() { utils.Loge(camera.Close()) }()

	p, err := newPerception(s)
	if err != nil {
		return err
	}
	defer func() { utils.Loge(p.Close()) }()

	scheduler := chassis.NewScheduler(actuator.Open(s, profile.Frequency), speed, direction)
	feed := &controlFeed{
		Profile: profile.Name,
		Mode:    s.Mode,
		Period:  settings.CONTROL_PUBLISH_PERIOD,
	}
	scheduler.Observe(feed.Observe)

	live := &server.Live{}
	feed.Sinks = append(feed.Sinks, live.Update)

	if s.Publish {
		pub, err := cereal.NewPublisher(settings.CONTROL_QUEUE, cereal.EncodeControlState)
		if err != nil {
			utils.Logwe(errors.Wrap(err, "control state will not be published"))
		} else {
			defer func() { utils.Loge(pub.Close()) }()
			feed.Sinks = append(feed.Sinks, func(state cereal.ControlState) {
				utils.Logde(pub.Send(state))
			})
		}
	}

	var recorder *telemetry.Recorder
	if s.Record {
		recorder, err = telemetry.OpenRecorder(s.RecordPath)
		if err == nil {
			var session string
			session, err = recorder.StartSession(profile.Name, s.Mode)
			if err == nil {
				utils.Logwe(params.PutParam(params.LAST_SESSION, []byte(session)))
			} else {
				utils.Loge(recorder.Close())
				recorder = nil
			}
		}
		if err != nil {
			utils.Logwe(errors.Wrap(err, "drive will not be recorded"))
		} else {
			defer func() { utils.Loge(recorder.Close()) }()
			scheduler.Observe(recorder.RecordTick)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var schedulerErr, serverErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		schedulerErr = scheduler.Run(ctx)
	}()

	if s.StatusAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serverErr = server.New(profile, live).Run(ctx, s.StatusAddr)
			if serverErr != nil {
				cancel()
			}
		}()
	}

	slog.Info("driving", "profile", profile.Name, "mode", s.Mode, "source", s.Source)
	perceiveErr := perceive(ctx, camera, p, func(cmd lane.Command, rate float64) {
		apply(cmd, speed, direction)
		feed.SetCommand(cmd, rate)
		if recorder != nil {
			recorder.RecordFrame(time.Now(), cmd)
		}
	})
	cancel()
	wg.Wait()

	if perceiveErr != nil {
		return perceiveErr
	}
	if schedulerErr != nil {
		return schedulerErr
	}
	return serverErr
}

// perceive reads frames until ctx is done or the source dries up.
func perceive(ctx context.Context, source frameSource, p perception, onCommand func(lane.Command, float64)) error {
	var rate utils.UpdateTracker
	rate.Init(settings.WINDOW_SIZE)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, ok := source.Read()
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("camera stopped delivering frames")
		}
		cmd := p.Steer(frame)
		rate.Update()
		onCommand(cmd, rate.Rate())
	}
}
