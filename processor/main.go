package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/next-exp/acreco_go/pkg/config"
	"github.com/next-exp/acreco_go/pkg/diagplot"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/pipeline"
	"github.com/next-exp/acreco_go/pkg/waveform"
)

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	logger := logging.New(os.Stdout, os.Stderr, slog.LevelDebug)
	if err := run(*configFilename, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configFilename string, logger logging.Logger) error {
	configuration, err := config.Load(configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	verbosity := configuration.Verbosity
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading configuration file: %s", configFilename), "main")
		config.Print(configuration, logger)
	}

	setup, err := newSetup(configuration, logger)
	if err != nil {
		return err
	}
	defer setup.Close()

	extractor := waveform.NewExtractor(logger)
	if accepted := extractor.SetChannelConfigs(configuration.ChannelConfigs()); accepted != len(configuration.Channels) {
		logger.Error(fmt.Sprintf("%d of %d channel configurations rejected", len(configuration.Channels)-accepted, len(configuration.Channels)))
	}
	if configuration.Draw {
		extractor.EnablePlots(diagplot.New(), configuration.PlotPrefix)
	}

	events, err := pipeline.ScanEvents(configuration.InputDir, extractor.Channels(), configuration.TraceMid, configuration.TraceExt)
	if err != nil {
		return err
	}
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Number of events: %d", len(events)), "main")
	}
	events = pipeline.SelectEvents(events, configuration.Skip, configuration.MaxEvents)

	runInfo := pipeline.NewRunInfo(configuration.RunNumber, configuration.InputDir)
	sink, err := setup.openSink(runInfo, extractor.Channels())
	if err != nil {
		return fmt.Errorf("Error opening output: %w", err)
	}

	processor := pipeline.NewProcessor(extractor, pipeline.Options{
		InputDir:      configuration.InputDir,
		TraceMid:      configuration.TraceMid,
		TraceExt:      configuration.TraceExt,
		Decimate:      configuration.Decimate,
		NumWorkers:    configuration.NumWorkers,
		RequireAll:    configuration.RequireAllChannels,
		KeepWaveforms: configuration.WriteWaveforms && configuration.OutputFormat == config.OutputHDF5,
		Verbosity:     verbosity,
		Reconstructor: setup.reconstructor,
		Logger:        logger,
	})
	summary := processor.Run(events, sink)
	closeErr := sink.Close()

	logger.Info(fmt.Sprintf("Events processed: %d, written: %d, failed: %d", summary.Events, summary.Written, summary.Failed), "main")
	if setup.reconstructor != nil {
		logger.Info(fmt.Sprintf("Hits reconstructed: %d, reconstruction failures: %d", summary.Hits, summary.RecoFailed), "main")
	}
	logger.Info(fmt.Sprintf("Total time: %d ms", summary.Duration.Milliseconds()), "main")

	if closeErr != nil {
		return fmt.Errorf("Error closing output: %w", closeErr)
	}
	if summary.Events > 0 && summary.Written == 0 {
		return errors.New("no event could be processed")
	}
	return nil
}
