package config

import (
	"fmt"

	"github.com/next-exp/acreco_go/pkg/logging"
)

func Print(config Configuration, logger logging.Logger) {
	logger.Info(fmt.Sprintf("Input dir: %s", config.InputDir), "config")
	logger.Info(fmt.Sprintf("Trace name: C<ch>%s<index>%s", config.TraceMid, config.TraceExt), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Output format: %s", config.OutputFormat), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Write waveforms: %t", config.WriteWaveforms), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Decimate: %d", config.Decimate), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	for _, ch := range config.Channels {
		logger.Info(fmt.Sprintf("Channel %d: window [%g, %g] ns, threshold %g mV",
			ch.Channel, ch.WindowLo, ch.WindowHi, ch.Threshold), "config")
	}
	logger.Info(fmt.Sprintf("Require all channels: %t", config.RequireAllChannels), "config")
	logger.Info(fmt.Sprintf("Configured pads: %d", len(config.Pads)), "config")
	logger.Info(fmt.Sprintf("Reconstruct: %t", config.Reconstruct), "config")
	logger.Info(fmt.Sprintf("Draw: %t", config.Draw), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	if config.DBDriver == "sqlite" {
		logger.Info(fmt.Sprintf("DB file: %s", config.DBFile), "config")
	} else {
		logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
		logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	}
}
