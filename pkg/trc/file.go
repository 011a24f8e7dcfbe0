package trc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DefaultMid = "--Trace--"
	DefaultExt = ".trc"
)

// ScopeFileName builds the name the oscilloscope gives to the index-th
// acquisition of a channel, e.g. C2--Trace--00017.trc.
func ScopeFileName(channel int, mid string, index int, ext string) string {
	return fmt.Sprintf("C%d%s%05d%s", channel, mid, index, ext)
}

// ReadFile reads and decodes one trace file.
func ReadFile(path string, decimate int) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
	}
	trace, err := Decode(data, decimate)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return trace, nil
}

// Group is a set of traces recorded in the same acquisition by different
// channels. Time is taken from the first file.
type Group struct {
	Files      []string
	Header     Header
	Time       []float64
	Amplitudes [][]float64
}

// ReadGroup decodes every channel file sharing the acquisition suffix of
// path: for .../C2--Trace--00017.trc it reads C1--Trace--00017.trc,
// C2--Trace--00017.trc and so on, in name order.
func ReadGroup(path string, decimate int) (*Group, error) {
	files, err := groupFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no channel files for %s", ErrFileNotFound, path)
	}

	group := &Group{Files: files}
	for i, file := range files {
		trace, err := ReadFile(file, decimate)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			group.Header = trace.Header
			group.Time = trace.Waveform.Time
		}
		group.Amplitudes = append(group.Amplitudes, trace.Waveform.Amplitude)
	}
	return group, nil
}

func groupFiles(path string) ([]string, error) {
	dir, name := filepath.Split(path)
	suffix := channelSuffix(name)
	if suffix == "" {
		return nil, fmt.Errorf("%w: %s is not a channel file name", ErrInvalidFormat, name)
	}

	candidates, err := filepath.Glob(filepath.Join(dir, "C*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	files := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if channelSuffix(filepath.Base(c)) == suffix {
			files = append(files, c)
		}
	}
	sort.Strings(files)
	return files, nil
}

// channelSuffix returns what follows "C<digits>" in a scope file name.
func channelSuffix(name string) string {
	if !strings.HasPrefix(name, "C") {
		return ""
	}
	rest := name[1:]
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return ""
	}
	return rest[digits:]
}
