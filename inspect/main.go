package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/next-exp/acreco_go/pkg/diagplot"
	"github.com/next-exp/acreco_go/pkg/logging"
	"github.com/next-exp/acreco_go/pkg/trc"
	"github.com/next-exp/acreco_go/pkg/waveform"
)

func main() {
	filename := flag.String("file", "", "Trace file path")
	decimate := flag.Int("decimate", 0, "Keep at most this number of samples (0 keeps all)")
	group := flag.Bool("group", false, "Read every channel file of the acquisition")
	extract := flag.Bool("extract", false, "Extract pulse features")
	windowLo := flag.Float64("window-lo", waveform.DefaultConfig().WindowLo, "Search window start (ns)")
	windowHi := flag.Float64("window-hi", waveform.DefaultConfig().WindowHi, "Search window end (ns)")
	threshold := flag.Float64("threshold", waveform.DefaultConfig().Threshold, "Absolute threshold (mV)")
	plot := flag.String("plot", "", "Write a diagnostic plot with this name (.png is appended)")
	flag.Parse()

	logger := logging.New(os.Stdout, os.Stderr, slog.LevelDebug)
	if *filename == "" {
		logger.Error("missing -file")
		os.Exit(2)
	}

	cfg := waveform.Config{WindowLo: *windowLo, WindowHi: *windowHi, Threshold: *threshold}
	var err error
	if *group {
		err = inspectGroup(*filename, *decimate, cfg, *extract, *plot, logger)
	} else {
		err = inspectFile(*filename, *decimate, cfg, *extract, *plot, logger)
	}
	if err != nil {
		logger.Error(fmt.Errorf("Error inspecting %s: %w (code %d)", *filename, err, trc.Code(err)).Error())
		os.Exit(1)
	}
}

func inspectFile(filename string, decimate int, cfg waveform.Config, extract bool, plot string, logger logging.Logger) error {
	trace, err := trc.ReadFile(filename, decimate)
	if err != nil {
		return err
	}
	fmt.Print(trace.Header.String())
	fmt.Printf("Samples read: %d\n", trace.Waveform.Len())

	if extract || plot != "" {
		return analyze(plot, trace.Waveform.Time, trace.Waveform.Amplitude, cfg, logger)
	}
	return nil
}

func inspectGroup(filename string, decimate int, cfg waveform.Config, extract bool, plot string, logger logging.Logger) error {
	group, err := trc.ReadGroup(filename, decimate)
	if err != nil {
		return err
	}
	fmt.Print(group.Header.String())
	for i, file := range group.Files {
		fmt.Printf("%s: %d samples\n", file, len(group.Amplitudes[i]))
		if !extract && plot == "" {
			continue
		}
		name := ""
		if plot != "" {
			name = fmt.Sprintf("%s_%d", plot, i)
		}
		if err := analyze(name, group.Time, group.Amplitudes[i], cfg, logger); err != nil {
			return err
		}
	}
	return nil
}

func analyze(plot string, time []float64, amplitude []float64, cfg waveform.Config, logger logging.Logger) error {
	pulse, ok := waveform.NewPulse(time, amplitude, len(amplitude))
	if !ok {
		logger.Info("Empty waveform", "inspect")
		return nil
	}
	features := pulse.Extract(cfg)
	printFeatures(features)

	if plot == "" {
		return nil
	}
	if err := diagplot.New().PlotPulse(plot, pulse, features, cfg); err != nil {
		return fmt.Errorf("error plotting: %w", err)
	}
	logger.Info(fmt.Sprintf("Plot written to %s.png", plot), "inspect")
	return nil
}

func printFeatures(f waveform.Features) {
	var b strings.Builder
	fmt.Fprintf(&b, "Flags: %s\n", f.Valid)
	fmt.Fprintf(&b, "Pedestal start: %g +- %g mV\n", f.PedStart, f.PedStartStdDev)
	fmt.Fprintf(&b, "Pedestal end:   %g +- %g mV\n", f.PedEnd, f.PedEndStdDev)
	fmt.Fprintf(&b, "Amplitude: %g mV at %g ns\n", f.Amp, f.TAmp)
	fmt.Fprintf(&b, "Rising:  t1 %g, t1_10 %g, t1_50 %g, t1_90 %g ns\n", f.T1, f.T1At10, f.T1At50, f.T1At90)
	fmt.Fprintf(&b, "Falling: t2 %g, t2_10 %g, t2_50 %g, t2_90 %g ns\n", f.T2, f.T2At10, f.T2At50, f.T2At90)
	fmt.Fprintf(&b, "TOA: %g ns\n", f.TOA)
	fmt.Fprintf(&b, "Charge: q_10 %g, q_50 %g, q_90 %g, q_pm2ns %g, q_full %g\n", f.Q10, f.Q50, f.Q90, f.QPm2ns, f.QFull)
	fmt.Print(b.String())
}
