package hdf5sink

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmbenlloch/go-hdf5"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/pipeline"
	"github.com/next-exp/acreco_go/pkg/topology"
	"github.com/next-exp/acreco_go/pkg/waveform"
)

// Writer stores events in an HDF5 file:
//
//	/Run/runInfo, /Run/events
//	/Channels/mapping
//	/Features/features   one row per channel per event
//	/Reco/hits           one row per reconstructed event
//	/RD/waveforms, /RD/time  only when waveforms are kept
type Writer struct {
	File           *hdf5.File
	Filename       string
	RunGroup       *hdf5.Group
	ChannelsGroup  *hdf5.Group
	FeaturesGroup  *hdf5.Group
	RecoGroup      *hdf5.Group
	RDGroup        *hdf5.Group
	RunInfoTable   *hdf5.Dataset
	EventTable     *hdf5.Dataset
	MappingTable   *hdf5.Dataset
	FeaturesTable  *hdf5.Dataset
	HitsTable      *hdf5.Dataset
	Waveforms      *hdf5.Dataset
	TimeAxis       *hdf5.Dataset
	EvtCounter     int
	WaveformEvents int

	channels    []int
	nSamples    int
	compression int
	keepRaw     bool
	logger      logging.Logger
}

type Options struct {
	Channels         []int
	Topology         *topology.Topology
	CompressionLevel int
	WriteWaveforms   bool
	Logger           logging.Logger
}

func NewWriter(filename string, run pipeline.RunInfo, opts Options) (*Writer, error) {
	w := &Writer{
		Filename:    filename,
		channels:    opts.Channels,
		compression: opts.CompressionLevel,
		keepRaw:     opts.WriteWaveforms,
		logger:      opts.Logger,
	}
	if w.logger == nil {
		w.logger = logging.Nop{}
	}
	if err := w.create(); err != nil {
		return nil, errors.Join(err, w.Close())
	}

	info := runInfoHDF5{
		run_id:     convertToHdf5String(run.ID),
		run_number: int32(run.RunNumber),
		started_at: convertToHdf5String(run.StartedAt.Format(time.RFC3339)),
	}
	if err := writeEntryToTable(w.RunInfoTable, info); err != nil {
		return nil, errors.Join(fmt.Errorf("error writing run info: %w", err), w.Close())
	}
	if opts.Topology != nil {
		mapping := channelMapping(opts.Topology)
		if err := writeArrayToTable(w.MappingTable, &mapping); err != nil {
			return nil, errors.Join(fmt.Errorf("error writing channel mapping: %w", err), w.Close())
		}
	}
	w.logger.Info(fmt.Sprintf("Creating file %s", filename), "hdf5")
	return w, nil
}

func (w *Writer) create() error {
	var err error
	if w.File, err = openFile(w.Filename); err != nil {
		return err
	}
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.ChannelsGroup, err = createGroup(w.File, "Channels"); err != nil {
		return err
	}
	if w.FeaturesGroup, err = createGroup(w.File, "Features"); err != nil {
		return err
	}
	if w.RecoGroup, err = createGroup(w.File, "Reco"); err != nil {
		return err
	}
	if w.RunInfoTable, err = createTable(w.RunGroup, "runInfo", runInfoHDF5{}, w.compression); err != nil {
		return err
	}
	if w.EventTable, err = createTable(w.RunGroup, "events", eventHDF5{}, w.compression); err != nil {
		return err
	}
	if w.MappingTable, err = createTable(w.ChannelsGroup, "mapping", channelMappingHDF5{}, w.compression); err != nil {
		return err
	}
	if w.FeaturesTable, err = createTable(w.FeaturesGroup, "features", featuresHDF5{}, w.compression); err != nil {
		return err
	}
	if w.HitsTable, err = createTable(w.RecoGroup, "hits", hitHDF5{}, w.compression); err != nil {
		return err
	}
	if w.keepRaw {
		if w.RDGroup, err = createGroup(w.File, "RD"); err != nil {
			return err
		}
	}
	return nil
}

func channelMapping(topo *topology.Topology) []channelMappingHDF5 {
	// The slice must be allocated up front, HDF5 reads it as a block
	mapping := make([]channelMappingHDF5, 0, topo.Len())
	for _, channel := range topo.Channels() {
		pad := topo.Pad(channel)
		pos, _ := topo.Position(pad)
		mapping = append(mapping, channelMappingHDF5{
			channel: int32(channel),
			pad:     int32(pad),
			column:  int32(pos.Column),
			row:     int32(pos.Row),
		})
	}
	return mapping
}

func newFeaturesRow(evt int, channel int, f waveform.Features) featuresHDF5 {
	return featuresHDF5{
		evt_number:        int32(evt),
		channel:           int32(channel),
		valid:             uint32(f.Valid),
		nsamples:          int32(f.NSamples),
		ped_start:         f.PedStart,
		ped_start_std_dev: f.PedStartStdDev,
		ped_end:           f.PedEnd,
		ped_end_std_dev:   f.PedEndStdDev,
		amp:               f.Amp,
		t_amp:             f.TAmp,
		t1:                f.T1,
		t1_10:             f.T1At10,
		t1_50:             f.T1At50,
		t1_90:             f.T1At90,
		toa:               f.TOA,
		charge:            f.Charge,
		t2:                f.T2,
		t2_10:             f.T2At10,
		t2_50:             f.T2At50,
		t2_90:             f.T2At90,
		q_10:              f.Q10,
		q_50:              f.Q50,
		q_90:              f.Q90,
		q_pm2ns:           f.QPm2ns,
		q_full:            f.QFull,
	}
}

func (w *Writer) WriteEvent(event *pipeline.Event) error {
	err := writeEntryToTable(w.EventTable, eventHDF5{
		evt_number:   int32(event.Number),
		trigger_time: convertToHdf5String(event.TriggerTime),
	})
	if err != nil {
		return fmt.Errorf("error writing event %d: %w", event.Number, err)
	}

	rows := make([]featuresHDF5, 0, len(event.Features))
	for _, channel := range w.channels {
		f, ok := event.Features[channel]
		if !ok {
			continue
		}
		rows = append(rows, newFeaturesRow(event.Number, channel, f))
	}
	if err := writeArrayToTable(w.FeaturesTable, &rows); err != nil {
		return fmt.Errorf("error writing features of event %d: %w", event.Number, err)
	}

	if hit := event.Hit; hit != nil {
		err := writeEntryToTable(w.HitsTable, hitHDF5{
			evt_number:    int32(event.Number),
			pad_left:      int32(hit.Pads.First),
			pad_right:     int32(hit.Pads.Second),
			channel_left:  int32(hit.Channels.First),
			channel_right: int32(hit.Channels.Second),
			signal_left:   hit.SignalLeft,
			signal_right:  hit.SignalRight,
			x:             hit.X,
			y:             hit.Y,
			status:        int32(hit.Status),
		})
		if err != nil {
			return fmt.Errorf("error writing hit of event %d: %w", event.Number, err)
		}
	}

	if w.keepRaw && len(event.Waveforms) > 0 {
		if err := w.writeWaveforms(event); err != nil {
			return fmt.Errorf("error writing waveforms of event %d: %w", event.Number, err)
		}
	}
	w.EvtCounter++
	return nil
}

// writeWaveforms stores amplitudes in channel order. The sample count is
// fixed by the first event; longer waveforms are truncated, missing channels
// and shorter waveforms are zero padded.
func (w *Writer) writeWaveforms(event *pipeline.Event) error {
	var timeAxis []float64
	for _, channel := range w.channels {
		if wf, ok := event.Waveforms[channel]; ok {
			timeAxis = wf.Time
			break
		}
	}
	if w.Waveforms == nil {
		if len(timeAxis) == 0 {
			return nil
		}
		w.nSamples = len(timeAxis)
		var err error
		if w.Waveforms, err = createWaveformArray(w.RDGroup, "waveforms", len(w.channels), w.nSamples, w.compression); err != nil {
			return err
		}
		if w.TimeAxis, err = createWaveformArray(w.RDGroup, "time", 1, w.nSamples, w.compression); err != nil {
			return err
		}
	}

	data := make([]float32, len(w.channels)*w.nSamples)
	for i, channel := range w.channels {
		wf, ok := event.Waveforms[channel]
		if !ok {
			continue
		}
		for j := 0; j < w.nSamples && j < len(wf.Amplitude); j++ {
			data[i*w.nSamples+j] = float32(wf.Amplitude[j])
		}
	}
	times := make([]float32, w.nSamples)
	for j := 0; j < w.nSamples && j < len(timeAxis); j++ {
		times[j] = float32(timeAxis[j])
	}

	if err := writeWaveformBlock(w.Waveforms, &data, w.WaveformEvents, len(w.channels), w.nSamples); err != nil {
		return err
	}
	if err := writeWaveformBlock(w.TimeAxis, &times, w.WaveformEvents, 1, w.nSamples); err != nil {
		return err
	}
	w.WaveformEvents++
	return nil
}

func (w *Writer) Close() error {
	w.logger.Info(fmt.Sprintf("Closing file %s after %d events", w.Filename, w.EvtCounter), "hdf5")
	var errs []error

	datasets := []struct {
		name string
		dset *hdf5.Dataset
	}{
		{"run info table", w.RunInfoTable},
		{"event table", w.EventTable},
		{"channel mapping table", w.MappingTable},
		{"features table", w.FeaturesTable},
		{"hits table", w.HitsTable},
		{"waveforms", w.Waveforms},
		{"time axis", w.TimeAxis},
	}
	for _, d := range datasets {
		if d.dset == nil {
			continue
		}
		if err := d.dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", d.name, err))
		}
	}

	groups := []struct {
		name  string
		group *hdf5.Group
	}{
		{"run", w.RunGroup},
		{"channels", w.ChannelsGroup},
		{"features", w.FeaturesGroup},
		{"reco", w.RecoGroup},
		{"RD", w.RDGroup},
	}
	for _, g := range groups {
		if g.group == nil {
			continue
		}
		if err := g.group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", g.name, err))
		}
	}

	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}
	return errors.Join(errs...)
}
