package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/trc"
	"github.com/next-exp/acreco_go/pkg/waveform"
)

var ErrNoTraces = errors.New("no trace file for any channel")

// ReconstructionError is returned by ProcessEvent together with an event
// that has features but no hit.
type ReconstructionError struct {
	Event int
	Err   error
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("reconstructing event %d: %v", e.Event, e.Err)
}

func (e *ReconstructionError) Unwrap() error { return e.Err }

// TraceReader loads one trace file; trc.ReadFile in production.
type TraceReader func(path string, decimate int) (*trc.Trace, error)

type Options struct {
	InputDir      string
	TraceMid      string
	TraceExt      string
	Decimate      int
	NumWorkers    int
	RequireAll    bool
	KeepWaveforms bool
	Verbosity     int
	ReadTrace     TraceReader
	Reconstructor *reco.Reconstructor
	Logger        logging.Logger
}

// Summary counts what happened to the events of a Run.
type Summary struct {
	Events     int
	Written    int
	Failed     int
	Hits       int
	RecoFailed int
	Duration   time.Duration
}

// Processor decodes, extracts and reconstructs events on a fixed pool of
// workers and hands them to a single sink.
type Processor struct {
	opts      Options
	extractor *waveform.Extractor
	logger    logging.Logger
}

func NewProcessor(extractor *waveform.Extractor, opts Options) *Processor {
	if opts.ReadTrace == nil {
		opts.ReadTrace = trc.ReadFile
	}
	if opts.TraceMid == "" {
		opts.TraceMid = trc.DefaultMid
	}
	if opts.TraceExt == "" {
		opts.TraceExt = trc.DefaultExt
	}
	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Processor{opts: opts, extractor: extractor, logger: logger}
}

type result struct {
	number int
	event  *Event
	err    error
}

func (p *Processor) worker(id int, jobs <-chan int, results chan<- result) {
	for number := range jobs {
		if p.opts.Verbosity > 1 {
			p.logger.Info(fmt.Sprintf("Worker %d processing event %d", id, number), "pipeline")
		}
		results <- p.safeProcess(number)
	}
}

func (p *Processor) safeProcess(number int) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{number: number, err: fmt.Errorf("recovered from panic: %v", r)}
		}
	}()
	event, err := p.ProcessEvent(number)
	return result{number: number, event: event, err: err}
}

// Run processes events and writes them to sink from the calling goroutine.
// Failed events are logged and counted; Run itself does not fail on them.
func (p *Processor) Run(events []int, sink Sink) Summary {
	start := time.Now()
	jobs := make(chan int, 100)
	results := make(chan result, 100)

	var wg sync.WaitGroup
	for w := 1; w <= p.opts.NumWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(id, jobs, results)
		}(w)
	}
	go func() {
		for _, number := range events {
			jobs <- number
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := Summary{Events: len(events)}
	for res := range results {
		var recoErr *ReconstructionError
		switch {
		case errors.As(res.err, &recoErr):
			summary.RecoFailed++
			p.logger.Error(recoErr.Error())
		case res.err != nil:
			summary.Failed++
			p.logger.Error(fmt.Errorf("discarding event %d: %w", res.number, res.err).Error())
			continue
		}
		if err := sink.WriteEvent(res.event); err != nil {
			summary.Failed++
			p.logger.Error(fmt.Errorf("error writing event %d: %w", res.number, err).Error())
			continue
		}
		summary.Written++
		if res.event.Hit != nil {
			summary.Hits++
		}
		if p.opts.Verbosity > 1 {
			p.logger.Info(fmt.Sprintf("Written event %d", res.number), "pipeline")
		}
	}
	summary.Duration = time.Since(start)
	return summary
}

// ProcessEvent reads every configured channel of one acquisition, extracts
// its features and, with a Reconstructor, the hit. When only the
// reconstruction fails, the event is returned along with a
// *ReconstructionError.
func (p *Processor) ProcessEvent(number int) (*Event, error) {
	traces := make(map[int]waveform.Samples)
	event := &Event{Number: number}
	if p.opts.KeepWaveforms {
		event.Waveforms = make(map[int]trc.Waveform)
	}

	for _, channel := range p.extractor.Channels() {
		path := filepath.Join(p.opts.InputDir, trc.ScopeFileName(channel, p.opts.TraceMid, number, p.opts.TraceExt))
		trace, err := p.opts.ReadTrace(path, p.opts.Decimate)
		if errors.Is(err, trc.ErrFileNotFound) {
			if p.opts.Verbosity > 2 {
				p.logger.Info(fmt.Sprintf("Event %d: no file for channel %d", number, channel), "pipeline")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if event.TriggerTime == "" {
			event.TriggerTime = trace.Header.TriggerTime
		}
		traces[channel] = waveform.Samples{Time: trace.Waveform.Time, Amplitude: trace.Waveform.Amplitude}
		if p.opts.KeepWaveforms {
			event.Waveforms[channel] = trace.Waveform
		}
	}
	if len(traces) == 0 {
		return nil, ErrNoTraces
	}

	features, err := p.extractor.ExtractEvent(traces, p.opts.RequireAll)
	if err != nil {
		return nil, err
	}
	event.Features = features

	if p.opts.Reconstructor == nil {
		return event, nil
	}
	hit, err := p.opts.Reconstructor.ReconstructFromFeatures(features)
	if err != nil {
		return event, &ReconstructionError{Event: number, Err: err}
	}
	event.Hit = &hit
	return event, nil
}
