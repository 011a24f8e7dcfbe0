package database

import (
	"fmt"
	"slices"
	"time"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/acreco_go/pkg/pipeline"
	"github.com/next-exp/acreco_go/pkg/waveform"
	"golang.org/x/exp/maps"
)

type featureRow struct {
	RunID   string `db:"run_id"`
	Event   int    `db:"event"`
	Channel int    `db:"channel"`
	waveform.Features
}

type hitRow struct {
	RunID        string  `db:"run_id"`
	Event        int     `db:"event"`
	PadLeft      int     `db:"pad_left"`
	PadRight     int     `db:"pad_right"`
	ChannelLeft  int     `db:"channel_left"`
	ChannelRight int     `db:"channel_right"`
	SignalLeft   float64 `db:"signal_left"`
	SignalRight  float64 `db:"signal_right"`
	X            float64 `db:"x"`
	Y            float64 `db:"y"`
	Status       string  `db:"status"`
}

const insertRun = `INSERT INTO runs (run_id, run_number, input_dir, started_at)
VALUES (:run_id, :run_number, :input_dir, :started_at)`

const insertFeatures = `INSERT INTO features (run_id, event, channel, valid, nsamples,
ped_start, ped_start_std_dev, ped_end, ped_end_std_dev, amp, t_amp,
t1, t1_10, t1_50, t1_90, toa, charge, t2, t2_10, t2_50, t2_90,
q_10, q_50, q_90, q_pm2ns, q_full)
VALUES (:run_id, :event, :channel, :valid, :nsamples,
:ped_start, :ped_start_std_dev, :ped_end, :ped_end_std_dev, :amp, :t_amp,
:t1, :t1_10, :t1_50, :t1_90, :toa, :charge, :t2, :t2_10, :t2_50, :t2_90,
:q_10, :q_50, :q_90, :q_pm2ns, :q_full)`

const insertHit = `INSERT INTO hits (run_id, event, pad_left, pad_right, channel_left, channel_right,
signal_left, signal_right, x, y, status)
VALUES (:run_id, :event, :pad_left, :pad_right, :channel_left, :channel_right,
:signal_left, :signal_right, :x, :y, :status)`

// SQLSink writes features and hits to the tables created by Migrate. One
// transaction per event.
type SQLSink struct {
	db     *sqlx.DB
	run    pipeline.RunInfo
	events int
}

func NewSQLSink(db *sqlx.DB, run pipeline.RunInfo) (*SQLSink, error) {
	if _, err := db.NamedExec(insertRun, run); err != nil {
		return nil, fmt.Errorf("error inserting run %s: %w", run.ID, err)
	}
	return &SQLSink{db: db, run: run}, nil
}

func (s *SQLSink) WriteEvent(event *pipeline.Event) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	channels := maps.Keys(event.Features)
	slices.Sort(channels)
	for _, channel := range channels {
		row := featureRow{
			RunID:    s.run.ID,
			Event:    event.Number,
			Channel:  channel,
			Features: event.Features[channel],
		}
		if _, err := tx.NamedExec(insertFeatures, row); err != nil {
			return fmt.Errorf("error inserting features of event %d channel %d: %w", event.Number, channel, err)
		}
	}

	if hit := event.Hit; hit != nil {
		row := hitRow{
			RunID:        s.run.ID,
			Event:        event.Number,
			PadLeft:      int(hit.Pads.First),
			PadRight:     int(hit.Pads.Second),
			ChannelLeft:  int(hit.Channels.First),
			ChannelRight: int(hit.Channels.Second),
			SignalLeft:   hit.SignalLeft,
			SignalRight:  hit.SignalRight,
			X:            hit.X,
			Y:            hit.Y,
			Status:       hit.Status.String(),
		}
		if _, err := tx.NamedExec(insertHit, row); err != nil {
			return fmt.Errorf("error inserting hit of event %d: %w", event.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing event %d: %w", event.Number, err)
	}
	s.events++
	return nil
}

// Close records the number of events written. The database stays open.
func (s *SQLSink) Close() error {
	_, err := s.db.Exec("UPDATE runs SET finished_at = ?, events = ? WHERE run_id = ?",
		time.Now().UTC(), s.events, s.run.ID)
	if err != nil {
		return fmt.Errorf("error closing run %s: %w", s.run.ID, err)
	}
	return nil
}
