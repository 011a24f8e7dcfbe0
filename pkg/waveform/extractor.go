package waveform

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/next-exp/acreco_go/pkg/logging"
	"golang.org/x/exp/maps"
)

// Samples is one channel waveform in seconds and volts.
type Samples struct {
	Time      []float64
	Amplitude []float64
}

// Plotter renders a diagnostic picture of an extracted pulse.
type Plotter interface {
	PlotPulse(name string, p Pulse, f Features, cfg Config) error
}

// ErrMissingChannels is returned by ExtractEvent when every channel is
// required and some have no waveform.
type ErrMissingChannels struct {
	Channels []int
}

func (e *ErrMissingChannels) Error() string {
	return fmt.Sprintf("channels %v have no waveform", e.Channels)
}

// Extractor extracts the features of every configured channel of an event.
// Configure it before sharing it between goroutines; ExtractEvent is safe
// for concurrent use.
type Extractor struct {
	configs    map[int]Config
	plotter    Plotter
	plotPrefix string
	logger     logging.Logger
	extracted  atomic.Int64
}

func NewExtractor(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Extractor{
		configs: make(map[int]Config),
		logger:  logger,
	}
}

// SetChannelConfig registers a channel. Only registered channels are extracted.
func (e *Extractor) SetChannelConfig(channel int, cfg Config) error {
	if channel <= 0 {
		return fmt.Errorf("invalid channel %d", channel)
	}
	if cfg.WindowLo >= cfg.WindowHi {
		return fmt.Errorf("channel %d: empty search window [%g, %g] ns", channel, cfg.WindowLo, cfg.WindowHi)
	}
	e.configs[channel] = cfg
	return nil
}

// SetChannelConfigs registers several channels and returns how many were accepted.
func (e *Extractor) SetChannelConfigs(configs map[int]Config) int {
	accepted := 0
	for _, channel := range e.sorted(configs) {
		if err := e.SetChannelConfig(channel, configs[channel]); err != nil {
			e.logger.Error(err.Error())
			continue
		}
		accepted++
	}
	return accepted
}

func (e *Extractor) ChannelConfig(channel int) (Config, bool) {
	cfg, ok := e.configs[channel]
	return cfg, ok
}

// Channels returns the registered channels in ascending order.
func (e *Extractor) Channels() []int {
	return e.sorted(e.configs)
}

// EnablePlots makes every extraction render a diagnostic plot named
// <prefix>_counter_<event>_ch<channel>.
func (e *Extractor) EnablePlots(plotter Plotter, prefix string) {
	e.plotter = plotter
	e.plotPrefix = prefix
}

// Extracted returns the number of events extracted so far.
func (e *Extractor) Extracted() int {
	return int(e.extracted.Load())
}

// ExtractEvent extracts every registered channel. A channel absent from
// traces gets a NoWaveform record, unless requireAll is set, in which case
// nothing is extracted and *ErrMissingChannels is returned.
func (e *Extractor) ExtractEvent(traces map[int]Samples, requireAll bool) (map[int]Features, error) {
	channels := e.Channels()
	var absent []int
	for _, channel := range channels {
		s, ok := traces[channel]
		if !ok || len(s.Time) == 0 {
			absent = append(absent, channel)
		}
	}
	if requireAll && len(absent) > 0 {
		return nil, &ErrMissingChannels{Channels: absent}
	}

	counter := e.extracted.Add(1) - 1
	features := make(map[int]Features, len(channels))
	for _, channel := range channels {
		cfg := e.configs[channel]
		s := traces[channel]
		p, ok := NewPulse(s.Time, s.Amplitude, len(s.Time))
		if !ok {
			f := NewFeatures()
			f.Valid = NoWaveform
			features[channel] = f
			continue
		}
		f := p.Extract(cfg)
		features[channel] = f

		if e.plotter != nil {
			name := fmt.Sprintf("%s_counter_%d_ch%d", e.plotPrefix, counter, channel)
			if err := e.plotter.PlotPulse(name, p, f, cfg); err != nil {
				e.logger.Error(fmt.Sprintf("plotting %s: %v", name, err))
			}
		}
	}
	return features, nil
}

func (e *Extractor) sorted(configs map[int]Config) []int {
	channels := maps.Keys(configs)
	slices.Sort(channels)
	return channels
}
