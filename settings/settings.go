package settings

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/params"
	"github.com/Koyaani/titaniumcar/utils"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type DetectorSettings struct {
	BlurSize         int     `json:"blur_size"`
	CannyLow         float32 `json:"canny_low"`
	CannyHigh        float32 `json:"canny_high"`
	HoughRho         float32 `json:"hough_rho"`
	HoughThreshold   int     `json:"hough_threshold"`
	HoughMinLength   int     `json:"hough_min_length"`
	HoughMaxGap      int     `json:"hough_max_gap"`
	RegionOfInterest []Point `json:"region_of_interest"`
}

type EstimatorSettings struct {
	Margin           float64 `json:"margin"`
	MinIgnoredLength float64 `json:"min_ignored_length"`
	IgnoredDivisor   float64 `json:"ignored_divisor"`
}

type SmootherSettings struct {
	Gain          float64 `json:"gain"`
	WindowSize    int     `json:"window_size"`
	Damping       float64 `json:"damping"`
	FallbackSpeed float64 `json:"fallback_speed"`
}

type ModelSettings struct {
	BlurSize         int     `json:"blur_size"`
	RegionOfInterest []Point `json:"region_of_interest"`
	CropTop          int     `json:"crop_top"`
	CropRight        int     `json:"crop_right"`
	SpeedScale       float64 `json:"speed_scale"`
	SpeedOffset      float64 `json:"speed_offset"`
}

type CarSettings struct {
	LogLevel   string `json:"log_level"`
	Profile    string `json:"profile"`
	Mode       string `json:"mode"`
	Source     string `json:"source"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	Actuator   string `json:"actuator"`
	I2CBus     string `json:"i2c_bus"`
	SerialPort string `json:"serial_port"`
	SerialBaud int    `json:"serial_baud"`
	Record     bool   `json:"record"`
	RecordPath string `json:"record_path"`
	StatusAddr string `json:"status_addr"`
	Publish    bool   `json:"publish"`

	Detector  DetectorSettings  `json:"detector"`
	Estimator EstimatorSettings `json:"estimator"`
	Smoother  SmootherSettings  `json:"smoother"`
	Model     ModelSettings     `json:"model"`
}

func (s *CarSettings) Default() {
	s.LogLevel = "info"
	s.Profile = "car"
	s.Mode = "line"
	s.Source = "0"
	s.Width = FRAME_WIDTH
	s.Height = FRAME_HEIGHT
	s.FPS = 30
	s.Actuator = "pca9685"
	s.I2CBus = ""
	s.SerialPort = "/dev/ttyACM0"
	s.SerialBaud = 115200
	s.Record = false
	s.RecordPath = params.BasePath + "/drives.db"
	s.StatusAddr = ""
	s.Publish = true

	s.Detector = DetectorSettings{
		BlurSize:       3,
		CannyLow:       20,
		CannyHigh:      100,
		HoughRho:       3,
		HoughThreshold: 100,
		HoughMinLength: 37,
		HoughMaxGap:    37,
		RegionOfInterest: []Point{
			{0, 131}, {0, FRAME_HEIGHT}, {454, FRAME_HEIGHT}, {454, 131}, {300, 94}, {150, 94},
		},
	}
	s.Estimator = EstimatorSettings{
		Margin:           300,
		MinIgnoredLength: 75,
		IgnoredDivisor:   3,
	}
	s.Smoother = SmootherSettings{
		Gain:          2.5,
		WindowSize:    WINDOW_SIZE,
		Damping:       0.9,
		FallbackSpeed: 0.33,
	}
	s.Model = ModelSettings{
		BlurSize: 5,
		RegionOfInterest: []Point{
			{0, 131}, {0, FRAME_HEIGHT}, {450, FRAME_HEIGHT}, {450, 131}, {300, 94}, {150, 94},
		},
		CropTop:     45,
		CropRight:   5,
		SpeedScale:  1.2,
		SpeedOffset: -0.2,
	}
}

func (s *CarSettings) Load() (success bool) {
	s.Default() // set defaults so settings not already in param are defaulted
	data, err := params.GetParam(params.CAR_SETTINGS)
	if err != nil {
		utils.Logde(err)
		s.setLogLevel()
		return false
	}

	err = json.Unmarshal(data, s)
	if err != nil {
		utils.Loge(errors.Wrap(err, "could not parse car settings"))
		s.setLogLevel()
		return false
	}

	s.setLogLevel()

	return true
}

// LoadFile reads settings from an explicit JSON file instead of the params
// directory. Fields missing from the file keep their defaults.
func (s *CarSettings) LoadFile(path string) error {
	s.Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "could not read settings file")
	}
	err = json.Unmarshal(data, s)
	if err != nil {
		return errors.Wrap(err, "could not parse settings file")
	}
	s.setLogLevel()
	return nil
}

func (s *CarSettings) LoadWithRetries(tries int) {
	for range tries {
		if s.Load() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.Save()
}

func (s *CarSettings) Save() {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		utils.Loge(err)
		return
	}
	params.EnsureParamDirectories()
	err = params.PutParam(params.CAR_SETTINGS, data)
	if err != nil {
		utils.Loge(err)
		return
	}
}

func (s *CarSettings) SetLogLevel(level string) {
	s.LogLevel = level
	s.setLogLevel()
}

func (s *CarSettings) setLogLevel() {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case "info":
		slog.SetLogLoggerLevel(slog.LevelInfo)
	case "warn":
		slog.SetLogLoggerLevel(slog.LevelWarn)
	case "error":
		slog.SetLogLoggerLevel(slog.LevelError)
	default:
		slog.SetLogLoggerLevel(slog.LevelInfo)
	}
}
