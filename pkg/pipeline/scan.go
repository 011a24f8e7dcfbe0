package pipeline

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

// ScanEvents returns the sorted acquisition indexes of dir for which at least
// one of channels has a file named C<channel><mid><index><ext>.
func ScanEvents(dir string, channels []int, mid string, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading input dir: %w", err)
	}

	found := make(map[int]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, channel := range channels {
			if index, ok := parseIndex(entry.Name(), channel, mid, ext); ok {
				found[index] = struct{}{}
				break
			}
		}
	}
	events := maps.Keys(found)
	slices.Sort(events)
	return events, nil
}

func parseIndex(name string, channel int, mid string, ext string) (int, bool) {
	prefix := "C" + strconv.Itoa(channel) + mid
	if len(name) < len(prefix)+len(ext) || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	digits := name[len(prefix) : len(name)-len(ext)]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// SelectEvents drops the first skip events and keeps at most maxEvents.
func SelectEvents(events []int, skip int, maxEvents int) []int {
	if skip >= len(events) {
		return nil
	}
	events = events[skip:]
	if maxEvents >= 0 && maxEvents < len(events) {
		events = events[:maxEvents]
	}
	return events
}
