package main

import (
	"path/filepath"
	"testing"

	"github.com/next-exp/acreco_go/pkg/config"
	"github.com/next-exp/acreco_go/pkg/database"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calibrationDB holds channels 1..3 on pads 4,3,2 and no pad sizes.
func calibrationDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.db")
	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	for _, s := range []string{
		`INSERT INTO ChannelPadMapping (MinRun, MaxRun, Role, Channel, Pad, PadColumn, PadRow) VALUES
			(1, 100, 'calibration', 1, 4, NULL, 0),
			(1, 100, 'calibration', 2, 3, NULL, 0),
			(1, 100, 'calibration', 3, 2, NULL, 0)`,
		`INSERT INTO CalibrationSections (MinRun, MaxRun, LeftChannel, RightChannel, A0, A1, LeftEdge, RightEdge) VALUES
			(1, 100, 1, 2, 1, -0.1, 0, 10),
			(1, 100, 2, 3, 2, -0.1, 10, 20)`,
	} {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return path
}

func testConfiguration(t *testing.T) config.Configuration {
	configuration := config.Default()
	configuration.DBDriver = "sqlite"
	configuration.DBFile = calibrationDB(t)
	configuration.RunNumber = 50
	configuration.Pads = []config.PadConfig{
		{Channel: 1, Pad: 4},
		{Channel: 2, Pad: 3},
		{Channel: 3, Pad: 2},
	}
	configuration.NormFactors = map[int]float64{4: 1, 3: 1, 2: 1}
	return configuration
}

func TestSetupClampUsesConfiguredPadWidth(t *testing.T) {
	configuration := testConfiguration(t)
	configuration.PadWidth = 2
	configuration.PadHeight = 1

	s, err := newSetup(configuration, logging.Nop{})
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.reconstructor)

	pads := topology.PadPair{First: 4, Second: 3}
	got, err := s.reconstructor.Reconstruct(pads, 5, 1000)
	require.NoError(t, err)
	assert.Equal(t, reco.ClampedRight, got.Status)
	assert.InDelta(t, 11.0, got.X, 1e-9)

	got, err = s.reconstructor.Reconstruct(pads, 1000, 5)
	require.NoError(t, err)
	assert.Equal(t, reco.ClampedLeft, got.Status)
	assert.InDelta(t, -1.0, got.X, 1e-9)
}

func TestSetupClampUsesPerPadWidth(t *testing.T) {
	configuration := testConfiguration(t)
	configuration.Pads[1].Width = 3
	configuration.Pads[1].Height = 1

	s, err := newSetup(configuration, logging.Nop{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.reconstructor.Reconstruct(topology.PadPair{First: 4, Second: 3}, 5, 1000)
	require.NoError(t, err)
	assert.Equal(t, reco.ClampedRight, got.Status)
	assert.InDelta(t, 11.5, got.X, 1e-9)
}

func TestSetupWithoutDatabase(t *testing.T) {
	configuration := testConfiguration(t)
	configuration.NoDB = true

	s, err := newSetup(configuration, logging.Nop{})
	require.NoError(t, err)
	defer s.Close()
	assert.Nil(t, s.reconstructor)
	require.NotNil(t, s.topology)
	assert.Equal(t, 3, s.topology.Len())
}
