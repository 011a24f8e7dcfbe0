package topology

import (
	"fmt"
	"strings"
)

func (t *Topology) String() string {
	var sb strings.Builder
	if t.finalized {
		sb.WriteString("Topology is finalized.\n")
	} else {
		sb.WriteString("Topology is open for insertion.\n")
	}

	sb.WriteString("Channel to pad:\n")
	for _, channel := range t.Channels() {
		fmt.Fprintf(&sb, " Channel %d -> Pad %d\n", channel, t.padOf[channel])
	}

	fmt.Fprintf(&sb, "Pad matrix (%d x %d):\n", len(t.grid), t.columns)
	for _, row := range t.grid {
		for _, pad := range row {
			if pad <= 0 {
				sb.WriteString("[   -   ] ")
				continue
			}
			fmt.Fprintf(&sb, "[P%d, C%d] ", pad, t.channelOf[pad])
		}
		sb.WriteString("\n")
	}

	if len(t.pairsX) == 0 && len(t.pairsY) == 0 {
		sb.WriteString("No neighbor pads.\n")
		return sb.String()
	}
	writePairs := func(name string, pairs []PadPair, channels map[PadPair]ChannelPair) {
		if len(pairs) == 0 {
			return
		}
		fmt.Fprintf(&sb, "Neighbor pads (%s):\n", name)
		for _, pair := range pairs {
			ch := channels[pair]
			fmt.Fprintf(&sb, " Pads (%d, %d) -> Channels (%d, %d)\n", pair.First, pair.Second, ch.First, ch.Second)
		}
	}
	writePairs("X", t.pairsX, t.channelsX)
	writePairs("Y", t.pairsY, t.channelsY)
	return sb.String()
}
