package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/topology"
	"github.com/next-exp/acreco_go/pkg/trc"
	"github.com/next-exp/acreco_go/pkg/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events map[int]*Event
	fail   map[int]bool
}

func newMemorySink() *memorySink {
	return &memorySink{events: make(map[int]*Event), fail: make(map[int]bool)}
}

func (m *memorySink) WriteEvent(event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[event.Number] {
		return fmt.Errorf("sink rejected event %d", event.Number)
	}
	m.events[event.Number] = event
	return nil
}

func (m *memorySink) Close() error { return nil }

// triangleTrace rises from 0 to 100 mV over [-5, 0] ns and falls back over [0, 5] ns.
func triangleTrace() *trc.Trace {
	w := trc.Waveform{}
	for i := -5; i <= 5; i++ {
		w.Time = append(w.Time, float64(i)*1e-9)
		w.Amplitude = append(w.Amplitude, (100-20*float64(max(i, -i)))*1e-3)
	}
	return &trc.Trace{Header: trc.Header{TriggerTime: "2024-03-21 13:07:42.12"}, Waveform: w}
}

// fakeReader serves a triangle for the listed files. Names containing
// "panic" or "broken" misbehave.
func fakeReader(files ...string) TraceReader {
	known := make(map[string]bool)
	for _, f := range files {
		known[f] = true
	}
	return func(path string, decimate int) (*trc.Trace, error) {
		name := filepath.Base(path)
		switch {
		case known[name] && strings.HasPrefix(name, "C1--Trace--00002"):
			panic("corrupted buffer")
		case known[name] && strings.HasPrefix(name, "C1--Trace--00003"):
			return nil, fmt.Errorf("%w: %s", trc.ErrRead, path)
		case known[name]:
			return triangleTrace(), nil
		}
		return nil, fmt.Errorf("%w: %s", trc.ErrFileNotFound, path)
	}
}

func newExtractor(t *testing.T) *waveform.Extractor {
	t.Helper()
	e := waveform.NewExtractor(nil)
	cfg := waveform.Config{WindowLo: -5, WindowHi: 5, Threshold: 50}
	require.NoError(t, e.SetChannelConfig(1, cfg))
	require.NoError(t, e.SetChannelConfig(2, cfg))
	return e
}

// newReconstructor pairs pads (2, 1) read by channels (1, 2) and any extra
// channels given, appended to the right.
func newReconstructor(t *testing.T, extra ...topology.Channel) *reco.Reconstructor {
	t.Helper()
	build := func() *topology.Topology {
		topo := topology.New()
		require.NoError(t, topo.AddMapping(1, 2))
		require.NoError(t, topo.AddMapping(2, 1))
		for i, ch := range extra {
			require.NoError(t, topo.AddMapping(ch, topology.Pad(10+i)))
		}
		return topo
	}
	calibration, data := build(), build()
	sections := []reco.Section{{Pads: topology.PadPair{First: 2, Second: 1}, A0: 1, A1: -0.1, EdgeLeft: 0, EdgeRight: 10}}
	for i := range extra {
		left := topology.Pad(10 + i - 1)
		if i == 0 {
			left = 1
		}
		sections = append(sections, reco.Section{Pads: topology.PadPair{First: left, Second: topology.Pad(10 + i)}, A0: 1, A1: -0.1})
	}
	r, err := reco.New(calibration, data, sections)
	require.NoError(t, err)
	factors := make(map[topology.Pad]float64)
	for _, pad := range data.Pads() {
		factors[pad] = 1
	}
	require.NoError(t, r.SetNormFactors(factors))
	require.NoError(t, r.Validate())
	return r
}

func TestRun(t *testing.T) {
	files := []string{
		"C1--Trace--00000.trc", "C2--Trace--00000.trc",
		"C1--Trace--00001.trc",
		"C1--Trace--00002.trc",
		"C1--Trace--00003.trc",
	}
	p := NewProcessor(newExtractor(t), Options{
		NumWorkers:    3,
		ReadTrace:     fakeReader(files...),
		Reconstructor: newReconstructor(t),
		KeepWaveforms: true,
		Logger:        logging.Nop{},
	})
	sink := newMemorySink()

	summary := p.Run([]int{0, 1, 2, 3}, sink)
	assert.Equal(t, 4, summary.Events)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Hits)
	assert.Zero(t, summary.RecoFailed)

	require.Contains(t, sink.events, 0)
	evt := sink.events[0]
	assert.Equal(t, "2024-03-21 13:07:42.12", evt.TriggerTime)
	require.Len(t, evt.Features, 2)
	assert.InDelta(t, -2.5, evt.Features[2].TOA, 1e-6)
	require.NotNil(t, evt.Hit)
	assert.Equal(t, reco.Linear, evt.Hit.Status)
	assert.InDelta(t, 5.0, evt.Hit.X, 1e-6)
	assert.Len(t, evt.Waveforms, 2)

	require.Contains(t, sink.events, 1)
	evt = sink.events[1]
	assert.Equal(t, waveform.NoWaveform, evt.Features[2].Valid)
	require.NotNil(t, evt.Hit)
	assert.Equal(t, reco.ClampedLeft, evt.Hit.Status)
}

func TestRunRequireAll(t *testing.T) {
	p := NewProcessor(newExtractor(t), Options{
		RequireAll: true,
		ReadTrace:  fakeReader("C1--Trace--00000.trc", "C2--Trace--00000.trc", "C1--Trace--00001.trc"),
	})
	sink := newMemorySink()

	summary := p.Run([]int{0, 1, 5}, sink)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 2, summary.Failed)
	assert.Contains(t, sink.events, 0)
	assert.Nil(t, sink.events[0].Hit, "no reconstructor")
	assert.Nil(t, sink.events[0].Waveforms)
}

func TestRunReconstructionFailure(t *testing.T) {
	// channel 3 belongs to the data topology but is never extracted
	p := NewProcessor(newExtractor(t), Options{
		ReadTrace:     fakeReader("C1--Trace--00000.trc", "C2--Trace--00000.trc"),
		Reconstructor: newReconstructor(t, 3),
	})
	sink := newMemorySink()

	summary := p.Run([]int{0}, sink)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.RecoFailed)
	assert.Zero(t, summary.Hits)
	assert.Nil(t, sink.events[0].Hit)

	_, err := p.ProcessEvent(0)
	var recoErr *ReconstructionError
	require.ErrorAs(t, err, &recoErr)
	assert.ErrorIs(t, err, reco.ErrMissingChannel)
}

func TestRunSinkFailure(t *testing.T) {
	p := NewProcessor(newExtractor(t), Options{
		ReadTrace: fakeReader("C1--Trace--00000.trc", "C1--Trace--00001.trc"),
	})
	sink := newMemorySink()
	sink.fail[1] = true

	summary := p.Run([]int{0, 1}, sink)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Failed)
}

func TestProcessEventNoTraces(t *testing.T) {
	p := NewProcessor(newExtractor(t), Options{ReadTrace: fakeReader()})
	_, err := p.ProcessEvent(0)
	assert.ErrorIs(t, err, ErrNoTraces)
}

func TestScanEvents(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"C1--Trace--00000.trc",
		"C2--Trace--00000.trc",
		"C2--Trace--00003.trc",
		"C3--Trace--00007.trc",
		"C1--Trace--abc.trc",
		"C12--Trace--00009.trc",
		"C1--Trace--00004.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "C1--Trace--00005.trc"), 0o755))

	events, err := ScanEvents(dir, []int{1, 2}, trc.DefaultMid, trc.DefaultExt)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, events)

	_, err = ScanEvents(filepath.Join(dir, "missing"), []int{1}, trc.DefaultMid, trc.DefaultExt)
	assert.Error(t, err)
}

func TestScanEventsShortNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"C1--", "C1-", "C1--7--", "C2----"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	events, err := ScanEvents(dir, []int{1, 2}, "--", "--")
	require.NoError(t, err)
	assert.Equal(t, []int{7}, events)

	_, ok := parseIndex("C1--", 1, "--", "--")
	assert.False(t, ok)
}

func TestSelectEvents(t *testing.T) {
	events := []int{0, 1, 2, 3, 4}
	tests := []struct {
		name      string
		skip, max int
		want      []int
	}{
		{"all", 0, 100, []int{0, 1, 2, 3, 4}},
		{"skip", 2, 100, []int{2, 3, 4}},
		{"max", 1, 2, []int{1, 2}},
		{"skip everything", 5, 10, nil},
		{"zero max", 0, 0, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectEvents(events, tt.skip, tt.max))
		})
	}
}

func TestNewRunInfo(t *testing.T) {
	a := NewRunInfo(7, "/data")
	b := NewRunInfo(7, "/data")
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 7, a.RunNumber)
}
