package database

import (
	"errors"
	"path/filepath"
	"testing"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/pipeline"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/topology"
	"github.com/next-exp/acreco_go/pkg/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "acreco.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *sqlx.DB, statements ...string) {
	t.Helper()
	for _, s := range statements {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
}

// Calibration setup of runs 1-100: channels 1..4 read pads 4,3,2,1 on one
// row. Data taking uses channels 1..3 on pads 4,3,2.
func seedCalibration(t *testing.T, db *sqlx.DB) {
	seed(t, db,
		`INSERT INTO ChannelPadMapping (MinRun, MaxRun, Role, Channel, Pad, PadColumn, PadRow) VALUES
			(1, 100, 'calibration', 1, 4, NULL, 0),
			(1, 100, 'calibration', 2, 3, NULL, 0),
			(1, 100, 'calibration', 3, 2, NULL, 0),
			(1, 100, 'calibration', 4, 1, NULL, 0),
			(1, 100, 'data', 1, 4, 0, 0),
			(1, 100, 'data', 2, 3, 1, 0),
			(1, 100, 'data', 3, 2, 2, 0),
			(101, 200, 'data', 1, 9, NULL, 0)`,
		`INSERT INTO PadSize (MinRun, MaxRun, Pad, Width, Height) VALUES
			(1, 100, 1, 2, 3), (1, 100, 2, 2, 3), (1, 100, 3, 2, 3), (1, 100, 4, 2.5, 3)`,
		`INSERT INTO CalibrationSections (MinRun, MaxRun, LeftChannel, RightChannel, A0, A1, LeftEdge, RightEdge) VALUES
			(1, 100, 1, 2, 1, -0.1, 0, 10),
			(1, 100, 3, 2, 2, -0.1, 10, 20),
			(1, 100, 3, 4, 3, -0.1, 20, 30)`,
		`INSERT INTO CalibrationFactors (MinRun, MaxRun, LeftChannel, RightChannel, Idx, Factor) VALUES
			(1, 100, 3, 4, 1, 2.0),
			(1, 100, 3, 4, 0, 1.0),
			(1, 100, 3, 4, 3, 1.5),
			(1, 100, 3, 4, 2, 0.5),
			(1, 100, 1, 2, 0, 9.0)`,
		`INSERT INTO NormFactors (MinRun, MaxRun, Pad, Factor) VALUES
			(1, 100, 4, 1.1), (1, 100, 3, 0.9), (101, 200, 4, 7)`,
	)
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, Migrate(db), "migrating twice is a no-op")
}

func TestLoaderTopology(t *testing.T) {
	db := openTestDB(t)
	seedCalibration(t, db)
	loader := Loader{DB: db, RunNumber: 50, Logger: logging.Nop{}, Verbosity: 3}

	calibration, err := loader.Topology(RoleCalibration)
	require.NoError(t, err)
	assert.True(t, calibration.Finalized())
	assert.Equal(t, []topology.PadPair{{First: 2, Second: 1}, {First: 3, Second: 2}, {First: 4, Second: 3}}, calibration.PairsX())
	size, ok := calibration.PadSize(4)
	require.True(t, ok)
	assert.Equal(t, topology.Size{Width: 2.5, Height: 3}, size)

	data, err := loader.Topology(RoleData)
	require.NoError(t, err)
	assert.Equal(t, []topology.Pad{2, 3, 4}, data.Pads())
	assert.True(t, data.SubsetOf(calibration))

	_, err = Loader{DB: db, RunNumber: 500}.Topology(RoleData)
	assert.ErrorIs(t, err, ErrNoMapping)
}

func TestLoaderCalibration(t *testing.T) {
	db := openTestDB(t)
	seedCalibration(t, db)
	loader := Loader{DB: db, RunNumber: 50}

	calibration, err := loader.Topology(RoleCalibration)
	require.NoError(t, err)
	sections, err := loader.Calibration(calibration)
	require.NoError(t, err)
	require.Len(t, sections, 3)

	// pads (3, 2) are read by channels (2, 3), stored reversed
	assert.Equal(t, topology.PadPair{First: 3, Second: 2}, sections[1].Pads)
	assert.Equal(t, 2.0, sections[1].A0)
	assert.Equal(t, 10.0, sections[1].EdgeLeft)

	assert.Equal(t, topology.PadPair{First: 2, Second: 1}, sections[0].Pads)
	assert.Equal(t, []float64{1.0, 2.0, 0.5, 1.5}, sections[0].Factors)
	assert.Equal(t, []float64{9.0}, sections[2].Factors)

	data, err := loader.Topology(RoleData)
	require.NoError(t, err)
	r, err := reco.New(calibration, data, sections)
	require.NoError(t, err)
	require.NoError(t, r.NormFactorsFromCalibration())
	require.NoError(t, r.Validate())
	f, _ := r.NormFactor(3)
	assert.Equal(t, 2.0, f)
}

func TestLoaderCalibrationMissing(t *testing.T) {
	db := openTestDB(t)
	seedCalibration(t, db)
	seed(t, db, "DELETE FROM CalibrationSections WHERE LeftChannel = 3 AND RightChannel = 4")
	loader := Loader{DB: db, RunNumber: 50}

	calibration, err := loader.Topology(RoleCalibration)
	require.NoError(t, err)
	_, err = loader.Calibration(calibration)
	var missing *MissingCalibrationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, topology.PadPair{First: 2, Second: 1}, missing.Pads)
	assert.Equal(t, topology.ChannelPair{First: 3, Second: 4}, missing.Channels)

	single := topology.New()
	require.NoError(t, single.AddMapping(1, 1))
	_, err = loader.Calibration(single)
	assert.ErrorIs(t, err, reco.ErrNoSections)
}

func TestLoaderNormFactors(t *testing.T) {
	db := openTestDB(t)
	seedCalibration(t, db)

	factors, err := Loader{DB: db, RunNumber: 50}.NormFactors()
	require.NoError(t, err)
	assert.Equal(t, map[topology.Pad]float64{4: 1.1, 3: 0.9}, factors)

	factors, err = Loader{DB: db, RunNumber: 300}.NormFactors()
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestSQLSink(t *testing.T) {
	db := openTestDB(t)
	run := pipeline.NewRunInfo(12, "/data/run12")
	sink, err := NewSQLSink(db, run)
	require.NoError(t, err)

	valid := waveform.NewFeatures()
	valid.Amp = 100
	valid.Charge = 480
	missing := waveform.NewFeatures()
	missing.Valid = waveform.NoWaveform

	require.NoError(t, sink.WriteEvent(&pipeline.Event{
		Number:   0,
		Features: map[int]waveform.Features{1: valid, 2: missing},
		Hit: &reco.Hit{
			Pads:       topology.PadPair{First: 4, Second: 3},
			Channels:   topology.ChannelPair{First: 1, Second: 2},
			SignalLeft: 480,
			X:          -1.25,
			Status:     reco.ClampedLeft,
		},
	}))
	require.NoError(t, sink.WriteEvent(&pipeline.Event{
		Number:   1,
		Features: map[int]waveform.Features{1: valid},
	}))
	require.NoError(t, sink.Close())

	var rows []struct {
		Event   int           `db:"event"`
		Channel int           `db:"channel"`
		Valid   waveform.Flag `db:"valid"`
		Charge  float64       `db:"charge"`
		T1      float64       `db:"t1"`
	}
	require.NoError(t, db.Select(&rows, "SELECT event, channel, valid, charge, t1 FROM features WHERE run_id = ? ORDER BY event, channel", run.ID))
	require.Len(t, rows, 3)
	assert.Equal(t, waveform.NoWaveform, rows[1].Valid)
	assert.Equal(t, 480.0, rows[0].Charge)
	assert.Equal(t, waveform.NotFoundTime, rows[0].T1)

	var status string
	var x float64
	require.NoError(t, db.QueryRowx("SELECT status, x FROM hits WHERE run_id = ?", run.ID).Scan(&status, &x))
	assert.Equal(t, "clamped_left", status)
	assert.Equal(t, -1.25, x)

	var events int
	require.NoError(t, db.Get(&events, "SELECT events FROM runs WHERE run_id = ?", run.ID))
	assert.Equal(t, 2, events)

	err = sink.WriteEvent(&pipeline.Event{Number: 1, Features: map[int]waveform.Features{1: valid}})
	assert.Error(t, err, "an event is written once per run")
}
