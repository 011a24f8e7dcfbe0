package trc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFileName(t *testing.T) {
	assert.Equal(t, "C2--Trace--00017.trc", ScopeFileName(2, DefaultMid, 17, DefaultExt))
	assert.Equal(t, "C12_run_123456.bin", ScopeFileName(12, "_run_", 123456, ".bin"))
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "C1--Trace--00000.trc"), 0)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, CodeFileNotFound, Code(err))
}

func TestReadGroup(t *testing.T) {
	dir := t.TempDir()
	for ch := 1; ch <= 3; ch++ {
		spec := defaultSpec(binary.LittleEndian)
		spec.offset = float32(-ch)
		name := filepath.Join(dir, ScopeFileName(ch, DefaultMid, 4, DefaultExt))
		require.NoError(t, os.WriteFile(name, buildTrace(spec), 0o644))
	}
	other := filepath.Join(dir, ScopeFileName(1, DefaultMid, 5, DefaultExt))
	require.NoError(t, os.WriteFile(other, []byte("unrelated"), 0o644))

	group, err := ReadGroup(filepath.Join(dir, ScopeFileName(2, DefaultMid, 4, DefaultExt)), 0)
	require.NoError(t, err)

	require.Len(t, group.Files, 3)
	assert.Equal(t, "C1--Trace--00004.trc", filepath.Base(group.Files[0]))
	assert.Equal(t, "C3--Trace--00004.trc", filepath.Base(group.Files[2]))
	require.Len(t, group.Amplitudes, 3)
	assert.Len(t, group.Time, 8)
	for i, amps := range group.Amplitudes {
		assert.InDelta(t, float64(i+1), amps[0], 1e-9)
	}
}

func TestReadGroupRejectsNonChannelNames(t *testing.T) {
	_, err := ReadGroup(filepath.Join(t.TempDir(), "waveform.trc"), 0)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
