package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/next-exp/acreco_go/pkg/topology"
	"github.com/next-exp/acreco_go/pkg/waveform"
	"gopkg.in/yaml.v3"
)

type ChannelConfig struct {
	Channel         int `json:"channel" yaml:"channel"`
	waveform.Config `yaml:",inline"`
}

// PadConfig places the pad read by Channel on the grid. Without Column the
// pad is appended to the right of the first row.
type PadConfig struct {
	Channel int     `json:"channel" yaml:"channel"`
	Pad     int     `json:"pad" yaml:"pad"`
	Column  *int    `json:"column,omitempty" yaml:"column,omitempty"`
	Row     int     `json:"row" yaml:"row"`
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
}

type Configuration struct {
	MaxEvents  int    `json:"max_events" yaml:"max_events"`
	Skip       int    `json:"skip" yaml:"skip"`
	Verbosity  int    `json:"verbosity" yaml:"verbosity"`
	NumWorkers int    `json:"num_workers" yaml:"num_workers"`
	InputDir   string `json:"input_dir" yaml:"input_dir"`
	TraceMid   string `json:"trace_mid" yaml:"trace_mid"`
	TraceExt   string `json:"trace_ext" yaml:"trace_ext"`
	Decimate   int    `json:"decimate" yaml:"decimate"`
	RunNumber  int    `json:"run_number" yaml:"run_number"`

	FileOut          string       `json:"file_out" yaml:"file_out"`
	OutputFormat     OutputFormat `json:"output_format" yaml:"output_format"`
	CompressionLevel int          `json:"compression_level" yaml:"compression_level"`
	WriteWaveforms   bool         `json:"write_waveforms" yaml:"write_waveforms"`

	Channels           []ChannelConfig `json:"channels" yaml:"channels"`
	RequireAllChannels bool            `json:"require_all_channels" yaml:"require_all_channels"`
	Pads               []PadConfig     `json:"pads" yaml:"pads"`
	PadWidth           float64         `json:"pad_width" yaml:"pad_width"`
	PadHeight          float64         `json:"pad_height" yaml:"pad_height"`
	NormFactors        map[int]float64 `json:"norm_factors" yaml:"norm_factors"`
	Reconstruct        bool            `json:"reconstruct" yaml:"reconstruct"`

	Draw       bool   `json:"draw" yaml:"draw"`
	PlotPrefix string `json:"plot_prefix" yaml:"plot_prefix"`

	NoDB     bool   `json:"no_db" yaml:"no_db"`
	DBDriver string `json:"db_driver" yaml:"db_driver"`
	Host     string `json:"host" yaml:"host"`
	User     string `json:"user" yaml:"user"`
	Passwd   string `json:"pass" yaml:"pass"`
	DBName   string `json:"dbname" yaml:"dbname"`
	DBFile   string `json:"db_file" yaml:"db_file"`
}

func Default() Configuration {
	var config Configuration
	config.MaxEvents = 1000000000
	config.Skip = 0
	config.Verbosity = 0
	config.NumWorkers = 1
	config.TraceMid = "--Trace--"
	config.TraceExt = ".trc"
	config.FileOut = "features.h5"
	config.OutputFormat = OutputHDF5
	config.CompressionLevel = 4
	config.Reconstruct = true
	config.PlotPrefix = "plots/wf"
	config.DBDriver = "mysql"
	config.Host = "localhost"
	config.User = "acreader"
	config.Passwd = "readonly"
	config.DBName = "ACRECO"
	config.DBFile = "calibration.db"
	return config
}

// Load reads a JSON configuration, or YAML when the extension is .yaml or
// .yml, on top of the defaults.
func Load(filename string) (Configuration, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return config, config.Validate()
}

func (c Configuration) Validate() error {
	var errs []error
	if c.NumWorkers < 1 {
		errs = append(errs, fmt.Errorf("num_workers must be at least 1, got %d", c.NumWorkers))
	}
	if c.Skip < 0 || c.MaxEvents < 0 {
		errs = append(errs, fmt.Errorf("skip and max_events must not be negative"))
	}
	if c.Decimate < 0 {
		errs = append(errs, fmt.Errorf("decimate must not be negative, got %d", c.Decimate))
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("compression_level must be in [0, 9], got %d", c.CompressionLevel))
	}
	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("no channels configured"))
	}
	seen := make(map[int]bool)
	for _, ch := range c.Channels {
		if seen[ch.Channel] {
			errs = append(errs, fmt.Errorf("channel %d configured twice", ch.Channel))
		}
		seen[ch.Channel] = true
	}
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown db_driver %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

// ChannelConfigs returns the extraction settings keyed by channel.
func (c Configuration) ChannelConfigs() map[int]waveform.Config {
	configs := make(map[int]waveform.Config, len(c.Channels))
	for _, ch := range c.Channels {
		configs[ch.Channel] = ch.Config
	}
	return configs
}

func (c Configuration) ChannelNumbers() []int {
	channels := make([]int, 0, len(c.Channels))
	for _, ch := range c.Channels {
		channels = append(channels, ch.Channel)
	}
	return channels
}

// Topology builds the data topology from the pads section. It returns nil
// when no pads are configured.
func (c Configuration) Topology() (*topology.Topology, error) {
	if len(c.Pads) == 0 {
		return nil, nil
	}
	topo := topology.New()
	for _, p := range c.Pads {
		var err error
		if p.Column == nil {
			err = topo.AddMapping(topology.Channel(p.Channel), topology.Pad(p.Pad))
		} else {
			err = topo.AddMappingAt(topology.Channel(p.Channel), topology.Pad(p.Pad), *p.Column, p.Row)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := c.ApplyPadSizes(topo); err != nil {
		return nil, err
	}
	topo.Finalize()
	return topo, nil
}

// ApplyPadSizes sets the configured uniform and per-pad sizes on topo,
// overriding the sizes it already has. Pads topo does not hold are skipped.
func (c Configuration) ApplyPadSizes(topo *topology.Topology) error {
	if c.PadWidth != 0 || c.PadHeight != 0 {
		if err := topo.SetUniformPadSize(c.PadWidth, c.PadHeight); err != nil {
			return err
		}
	}
	for _, p := range c.Pads {
		pad := topology.Pad(p.Pad)
		if (p.Width == 0 && p.Height == 0) || topo.Channel(pad) == topology.NoChannel {
			continue
		}
		if err := topo.SetPadSize(pad, p.Width, p.Height); err != nil {
			return err
		}
	}
	return nil
}

// PadNormFactors converts norm_factors to pad keys. Empty means the factors
// stored with the calibration are used.
func (c Configuration) PadNormFactors() map[topology.Pad]float64 {
	factors := make(map[topology.Pad]float64, len(c.NormFactors))
	for pad, f := range c.NormFactors {
		factors[topology.Pad(pad)] = f
	}
	return factors
}
