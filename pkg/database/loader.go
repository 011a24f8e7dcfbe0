package database

import (
	"database/sql"
	"errors"
	"fmt"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/topology"
)

type Role string

const (
	RoleCalibration Role = "calibration"
	RoleData        Role = "data"
)

var ErrNoMapping = errors.New("no channel to pad mapping")

// MissingCalibrationError is returned when neither channel order of a
// calibration pad pair has a section in the database.
type MissingCalibrationError struct {
	Pads     topology.PadPair
	Channels topology.ChannelPair
}

func (e *MissingCalibrationError) Error() string {
	return fmt.Sprintf("no calibration section for pads (%d, %d), channels (%d, %d)",
		e.Pads.First, e.Pads.Second, e.Channels.First, e.Channels.Second)
}

// Loader reads the tables valid for one run: MinRun <= run <= MaxRun.
type Loader struct {
	DB        *sqlx.DB
	RunNumber int
	Logger    logging.Logger
	Verbosity int
}

type mappingEntry struct {
	Channel int           `db:"Channel"`
	Pad     int           `db:"Pad"`
	Column  sql.NullInt64 `db:"PadColumn"`
	Row     int           `db:"PadRow"`
}

type padSizeEntry struct {
	Pad    int     `db:"Pad"`
	Width  float64 `db:"Width"`
	Height float64 `db:"Height"`
}

type sectionEntry struct {
	LeftChannel  int     `db:"LeftChannel"`
	RightChannel int     `db:"RightChannel"`
	A0           float64 `db:"A0"`
	A1           float64 `db:"A1"`
	LeftEdge     float64 `db:"LeftEdge"`
	RightEdge    float64 `db:"RightEdge"`
}

type factorEntry struct {
	LeftChannel  int     `db:"LeftChannel"`
	RightChannel int     `db:"RightChannel"`
	Idx          int     `db:"Idx"`
	Factor       float64 `db:"Factor"`
}

func (l Loader) logQuery(message string, query string) {
	if l.Logger == nil {
		return
	}
	if l.Verbosity > 0 {
		l.Logger.Info(message, "database")
	}
	if l.Verbosity > 2 {
		l.Logger.Info(fmt.Sprintf("Query: %s (run %d)", query, l.RunNumber), "database")
	}
}

// Topology builds the finalized topology of role, with the pad sizes of the run.
func (l Loader) Topology(role Role) (*topology.Topology, error) {
	query := "SELECT Channel, Pad, PadColumn, PadRow FROM ChannelPadMapping WHERE Role = ? AND MinRun <= ? AND MaxRun >= ? ORDER BY Channel"
	l.logQuery(fmt.Sprintf("Reading %s channel mapping from database", role), query)

	rows, err := l.DB.Queryx(query, string(role), l.RunNumber, l.RunNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	topo := topology.New()
	for rows.Next() {
		result := mappingEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		channel, pad := topology.Channel(result.Channel), topology.Pad(result.Pad)
		if result.Column.Valid {
			err = topo.AddMappingAt(channel, pad, int(result.Column.Int64), result.Row)
		} else {
			err = topo.AddMapping(channel, pad)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if topo.Len() == 0 {
		return nil, fmt.Errorf("%w for role %s in run %d", ErrNoMapping, role, l.RunNumber)
	}

	if err := l.loadPadSizes(topo); err != nil {
		return nil, err
	}
	topo.Finalize()
	return topo, nil
}

func (l Loader) loadPadSizes(topo *topology.Topology) error {
	query := "SELECT Pad, Width, Height FROM PadSize WHERE MinRun <= ? AND MaxRun >= ? ORDER BY Pad"
	l.logQuery("Reading pad sizes from database", query)

	var sizes []padSizeEntry
	if err := l.DB.Select(&sizes, query, l.RunNumber, l.RunNumber); err != nil {
		return fmt.Errorf("error querying database: %w", err)
	}
	for _, s := range sizes {
		if topo.Channel(topology.Pad(s.Pad)) == topology.NoChannel {
			continue
		}
		if err := topo.SetPadSize(topology.Pad(s.Pad), s.Width, s.Height); err != nil {
			return err
		}
	}
	return nil
}

// Calibration returns one section per right-neighbor pair of the calibration
// topology. A section stored under the reversed channel order is accepted.
func (l Loader) Calibration(calibration *topology.Topology) ([]reco.Section, error) {
	query := "SELECT LeftChannel, RightChannel, A0, A1, LeftEdge, RightEdge FROM CalibrationSections WHERE MinRun <= ? AND MaxRun >= ?"
	l.logQuery("Reading calibration sections from database", query)
	var entries []sectionEntry
	if err := l.DB.Select(&entries, query, l.RunNumber, l.RunNumber); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	query = "SELECT LeftChannel, RightChannel, Idx, Factor FROM CalibrationFactors WHERE MinRun <= ? AND MaxRun >= ? ORDER BY LeftChannel, RightChannel, Idx"
	l.logQuery("Reading calibration factors from database", query)
	var factorRows []factorEntry
	if err := l.DB.Select(&factorRows, query, l.RunNumber, l.RunNumber); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	byChannels := make(map[topology.ChannelPair]sectionEntry, len(entries))
	for _, e := range entries {
		byChannels[topology.ChannelPair{First: topology.Channel(e.LeftChannel), Second: topology.Channel(e.RightChannel)}] = e
	}
	factors := make(map[topology.ChannelPair][]float64)
	for _, f := range factorRows {
		key := topology.ChannelPair{First: topology.Channel(f.LeftChannel), Second: topology.Channel(f.RightChannel)}
		factors[key] = append(factors[key], f.Factor)
	}

	calibration.Finalize()
	sections := make([]reco.Section, 0, len(entries))
	for _, pair := range calibration.PairsX() {
		channels, _ := calibration.ChannelPairX(pair)
		key := channels
		entry, ok := byChannels[key]
		if !ok {
			key = topology.ChannelPair{First: channels.Second, Second: channels.First}
			entry, ok = byChannels[key]
		}
		if !ok {
			return nil, &MissingCalibrationError{Pads: pair, Channels: channels}
		}
		sections = append(sections, reco.Section{
			Pads:      pair,
			A0:        entry.A0,
			A1:        entry.A1,
			EdgeLeft:  entry.LeftEdge,
			EdgeRight: entry.RightEdge,
			Factors:   factors[key],
		})
	}
	if len(sections) == 0 {
		return nil, reco.ErrNoSections
	}
	if l.Logger != nil && l.Verbosity > 0 {
		l.Logger.Info(fmt.Sprintf("Loaded %d calibration sections", len(sections)), "database")
	}
	return sections, nil
}

// NormFactors returns the per-pad normalization factors of the run, which
// may be empty.
func (l Loader) NormFactors() (map[topology.Pad]float64, error) {
	query := "SELECT Pad, Factor FROM NormFactors WHERE MinRun <= ? AND MaxRun >= ?"
	l.logQuery("Reading normalization factors from database", query)

	rows, err := l.DB.Queryx(query, l.RunNumber, l.RunNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	factors := make(map[topology.Pad]float64)
	for rows.Next() {
		var pad int
		var factor float64
		if err := rows.Scan(&pad, &factor); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		factors[topology.Pad(pad)] = factor
	}
	return factors, rows.Err()
}
