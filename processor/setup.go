package main

import (
	"errors"
	"fmt"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/next-exp/acreco_go/pkg/config"
	"github.com/next-exp/acreco_go/pkg/database"
	"github.com/next-exp/acreco_go/pkg/hdf5sink"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/pipeline"
	"github.com/next-exp/acreco_go/pkg/reco"
	"github.com/next-exp/acreco_go/pkg/topology"
)

// setup holds what is loaded once before processing: the calibration
// database, the data topology and the reconstructor built on them.
type setup struct {
	configuration config.Configuration
	logger        logging.Logger
	db            *sqlx.DB
	topology      *topology.Topology
	reconstructor *reco.Reconstructor
}

func newSetup(configuration config.Configuration, logger logging.Logger) (*setup, error) {
	s := &setup{configuration: configuration, logger: logger}

	var err error
	if !configuration.NoDB {
		if s.db, err = connect(configuration); err != nil {
			return nil, fmt.Errorf("Error connection to database: %w", err)
		}
	}

	if s.topology, err = configuration.Topology(); err != nil {
		s.Close()
		return nil, fmt.Errorf("Error building pad topology: %w", err)
	}
	loader := database.Loader{
		DB:        s.db,
		RunNumber: configuration.RunNumber,
		Logger:    logger,
		Verbosity: configuration.Verbosity,
	}
	if s.topology == nil && s.db != nil {
		s.topology, err = loader.Topology(database.RoleData)
		if err != nil && !errors.Is(err, database.ErrNoMapping) {
			s.Close()
			return nil, err
		}
	}

	if !configuration.Reconstruct {
		return s, nil
	}
	if s.db == nil || s.topology == nil {
		logger.Info("No calibration database or pad topology, hits will not be reconstructed", "main")
		return s, nil
	}
	if s.reconstructor, err = s.newReconstructor(loader); err != nil {
		s.Close()
		return nil, fmt.Errorf("Error loading calibration: %w", err)
	}
	return s, nil
}

func connect(configuration config.Configuration) (*sqlx.DB, error) {
	switch configuration.DBDriver {
	case "sqlite":
		return database.OpenSQLite(configuration.DBFile)
	default:
		return database.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
	}
}

// newReconstructor loads the calibration topology and sections of the run.
// Normalization factors come from the configuration, then the database,
// then the factors stored with the first calibration section.
func (s *setup) newReconstructor(loader database.Loader) (*reco.Reconstructor, error) {
	calibration, err := loader.Topology(database.RoleCalibration)
	if err != nil {
		return nil, err
	}
	// the clamp reads pad widths from the calibration topology
	if err := s.configuration.ApplyPadSizes(calibration); err != nil {
		return nil, err
	}
	sections, err := loader.Calibration(calibration)
	if err != nil {
		return nil, err
	}
	r, err := reco.New(calibration, s.topology, sections)
	if err != nil {
		return nil, err
	}

	factors := s.configuration.PadNormFactors()
	if len(factors) == 0 {
		if factors, err = loader.NormFactors(); err != nil {
			return nil, err
		}
	}
	if len(factors) > 0 {
		err = r.SetNormFactors(factors)
	} else {
		err = r.NormFactorsFromCalibration()
	}
	if err != nil {
		return nil, err
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	if s.configuration.Verbosity > 1 {
		s.logger.Info(calibration.String(), "main")
		s.logger.Info(r.String(), "main")
	}
	return r, nil
}

// openSink creates the HDF5 file, or for the sql format a SQLite file at
// file_out holding the feature schema.
func (s *setup) openSink(run pipeline.RunInfo, channels []int) (pipeline.Sink, error) {
	configuration := s.configuration
	switch configuration.OutputFormat {
	case config.OutputSQL:
		out, err := database.OpenSQLite(configuration.FileOut)
		if err != nil {
			return nil, err
		}
		sink, err := database.NewSQLSink(out, run)
		if err != nil {
			return nil, errors.Join(err, out.Close())
		}
		return &closingSink{Sink: sink, db: out}, nil
	default:
		return hdf5sink.NewWriter(configuration.FileOut, run, hdf5sink.Options{
			Channels:         channels,
			Topology:         s.topology,
			CompressionLevel: configuration.CompressionLevel,
			WriteWaveforms:   configuration.WriteWaveforms,
			Logger:           s.logger,
		})
	}
}

func (s *setup) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// closingSink closes the output database after the sink.
type closingSink struct {
	pipeline.Sink
	db *sqlx.DB
}

func (c *closingSink) Close() error {
	return errors.Join(c.Sink.Close(), c.db.Close())
}
