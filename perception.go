package main

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/Koyaani/titaniumcar/cereal"
	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/utils"
	"github.com/Koyaani/titaniumcar/vision"
)

const (
	MODE_LINE  = "line"
	MODE_MODEL = "model"
)

// perception turns one frame into a driving command.
type perception interface {
	Steer(frame gocv.Mat) lane.Command
	Close() error
}

type linePerception struct {
	detector *vision.Detector
	pilot    *lane.Pilot
}

func (p *linePerception) Steer(frame gocv.Mat) lane.Command {
	return p.pilot.Steer(p.detector.Detect(frame))
}

func (p *linePerception) Close() error {
	return p.detector.Close()
}

type modelPerception struct {
	pre    *vision.Preprocessor
	client *cereal.InferenceClient
	pilot  *lane.ModelPilot
}

func (p *modelPerception) Steer(frame gocv.Mat) lane.Command {
	tensor, err := p.pre.Tensor(frame)
	if err != nil {
		utils.Logwe(errors.Wrap(err, "could not preprocess frame"))
		return p.pilot.Hold()
	}
	rows, cols := p.pre.Shape()
	return p.pilot.Steer(tensor, rows, cols)
}

func (p *modelPerception) Close() error {
	err := p.pre.Close()
	utils.Loge(p.client.Close())
	return err
}

func newPerception(s settings.CarSettings) (perception, error) {
	switch s.Mode {
	case MODE_LINE, "":
		return &linePerception{
			detector: vision.NewDetector(s.Detector, s.Width, s.Height),
			pilot:    lane.NewPilot(s),
		}, nil
	case MODE_MODEL:
		client, err := cereal.OpenInferenceClient()
		if err != nil {
			return nil, errors.Wrap(err, "could not connect to the steering model")
		}
		return &modelPerception{
			pre:    vision.NewPreprocessor(s.Model, s.Width, s.Height),
			client: client,
			pilot:  lane.NewModelPilot(client, s),
		}, nil
	}
	return nil, errors.Errorf("unknown mode %q", s.Mode)
}

// apply forwards a command to the channels. A frame without an estimate
// leaves the direction target alone.
func apply(cmd lane.Command, speed, direction *chassis.Channel) {
	if cmd.HasDirection {
		direction.SetTarget(cmd.Direction)
	}
	speed.SetTarget(cmd.Speed)
}
