package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/trc"
	"github.com/next-exp/acreco_go/pkg/waveform"
)

// RunInfo identifies one processing run in the output.
type RunInfo struct {
	ID        string    `db:"run_id"`
	RunNumber int       `db:"run_number"`
	InputDir  string    `db:"input_dir"`
	StartedAt time.Time `db:"started_at"`
}

func NewRunInfo(runNumber int, inputDir string) RunInfo {
	return RunInfo{
		ID:        uuid.New().String(),
		RunNumber: runNumber,
		InputDir:  inputDir,
		StartedAt: time.Now().UTC(),
	}
}

// Event is the processed content of one trace ordinal.
type Event struct {
	Number      int
	TriggerTime string
	Features    map[int]waveform.Features
	// Waveforms is only filled when raw waveforms are kept.
	Waveforms map[int]trc.Waveform
	// Hit is nil when no reconstruction was done.
	Hit *reco.Hit
}

// Sink stores processed events. WriteEvent is only called from the
// aggregation goroutine.
type Sink interface {
	WriteEvent(event *Event) error
	Close() error
}
