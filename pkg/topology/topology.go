package topology

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Channel is an electronics readout channel; Pad is a physical sensor segment.
type Channel int
type Pad int

const (
	NoChannel Channel = -1
	NoPad     Pad     = -1
)

// Position locates a pad on the grid. Columns grow to the right, rows grow
// downwards.
type Position struct {
	Column int
	Row    int
}

// PadPair is an ordered pair of neighbor pads: (left, right) along X and
// (up, down) along Y.
type PadPair struct {
	First  Pad
	Second Pad
}

// ChannelPair holds the channels read out by a PadPair, in the same order.
type ChannelPair struct {
	First  Channel
	Second Channel
}

func comparePairs(a PadPair, b PadPair) int {
	if a.First != b.First {
		return int(a.First) - int(b.First)
	}
	return int(a.Second) - int(b.Second)
}

// Topology maps channels to pads laid out on a 2-D grid. After Finalize no
// mapping can be added and the neighbor pairs are fixed.
type Topology struct {
	padOf     map[Channel]Pad
	channelOf map[Pad]Channel
	position  map[Pad]Position
	grid      [][]Pad
	columns   int
	finalized bool

	pairsX    []PadPair
	pairsY    []PadPair
	channelsX map[PadPair]ChannelPair
	channelsY map[PadPair]ChannelPair

	sizes   map[Pad]Size
	uniform *Size
}

func New() *Topology {
	return &Topology{
		padOf:     make(map[Channel]Pad),
		channelOf: make(map[Pad]Channel),
		position:  make(map[Pad]Position),
		channelsX: make(map[PadPair]ChannelPair),
		channelsY: make(map[PadPair]ChannelPair),
		sizes:     make(map[Pad]Size),
	}
}

// AddMapping appends pad to the right of the first row.
func (t *Topology) AddMapping(channel Channel, pad Pad) error {
	return t.AddMappingAt(channel, pad, len(t.padOf), 0)
}

func (t *Topology) AddMappingAt(channel Channel, pad Pad, column int, row int) error {
	fail := func(err error) error {
		return &MappingError{Channel: channel, Pad: pad, Err: err}
	}
	switch {
	case t.finalized:
		return fail(ErrFinalized)
	case channel <= 0 || pad <= 0:
		return fail(ErrInvalidID)
	case column < 0 || row < 0:
		return fail(ErrInvalidPosition)
	}
	if other, ok := t.padOf[channel]; ok {
		return fail(fmt.Errorf("%w to pad %d", ErrDuplicateChannel, other))
	}
	if other, ok := t.channelOf[pad]; ok {
		return fail(fmt.Errorf("%w to channel %d", ErrDuplicatePad, other))
	}
	if row < len(t.grid) && column < t.columns && t.grid[row][column] > 0 {
		return fail(fmt.Errorf("%w %d at column %d, row %d", ErrCellOccupied, t.grid[row][column], column, row))
	}

	t.padOf[channel] = pad
	t.channelOf[pad] = channel
	t.position[pad] = Position{Column: column, Row: row}
	t.place(pad, column, row)
	if t.uniform != nil {
		t.sizes[pad] = *t.uniform
	}
	return nil
}

// place grows the grid as needed. Empty cells hold 0.
func (t *Topology) place(pad Pad, column int, row int) {
	if column >= t.columns {
		t.columns = column + 1
		for r := range t.grid {
			t.grid[r] = append(t.grid[r], make([]Pad, t.columns-len(t.grid[r]))...)
		}
	}
	for len(t.grid) <= row {
		t.grid = append(t.grid, make([]Pad, t.columns))
	}
	t.grid[row][column] = pad
}

// Finalize freezes the topology and computes the neighbor pairs.
func (t *Topology) Finalize() {
	if t.finalized {
		return
	}
	rows := len(t.grid)
	for r := 0; r < rows; r++ {
		for c := 0; c < t.columns; c++ {
			pad := t.grid[r][c]
			if pad <= 0 {
				continue
			}
			if c+1 < t.columns {
				if right := t.grid[r][c+1]; right > 0 {
					pair := PadPair{First: pad, Second: right}
					t.pairsX = append(t.pairsX, pair)
					t.channelsX[pair] = ChannelPair{First: t.channelOf[pad], Second: t.channelOf[right]}
				}
			}
			if r+1 < rows {
				if down := t.grid[r+1][c]; down > 0 {
					pair := PadPair{First: pad, Second: down}
					t.pairsY = append(t.pairsY, pair)
					t.channelsY[pair] = ChannelPair{First: t.channelOf[pad], Second: t.channelOf[down]}
				}
			}
		}
	}
	slices.SortFunc(t.pairsX, comparePairs)
	slices.SortFunc(t.pairsY, comparePairs)
	t.finalized = true
}

func (t *Topology) Finalized() bool {
	return t.finalized
}

func (t *Topology) Len() int {
	return len(t.padOf)
}

// Pad returns the pad read by channel, or NoPad.
func (t *Topology) Pad(channel Channel) Pad {
	if pad, ok := t.padOf[channel]; ok {
		return pad
	}
	return NoPad
}

// Channel returns the channel reading pad, or NoChannel.
func (t *Topology) Channel(pad Pad) Channel {
	if channel, ok := t.channelOf[pad]; ok {
		return channel
	}
	return NoChannel
}

func (t *Topology) Position(pad Pad) (Position, bool) {
	p, ok := t.position[pad]
	return p, ok
}

func (t *Topology) Pads() []Pad {
	pads := maps.Keys(t.channelOf)
	slices.Sort(pads)
	return pads
}

func (t *Topology) Channels() []Channel {
	channels := maps.Keys(t.padOf)
	slices.Sort(channels)
	return channels
}

func (t *Topology) Rows() int {
	return len(t.grid)
}

func (t *Topology) Columns() int {
	return t.columns
}

// Matrix returns a copy of the grid indexed [row][column].
func (t *Topology) Matrix() [][]Pad {
	m := make([][]Pad, len(t.grid))
	for r := range t.grid {
		m[r] = slices.Clone(t.grid[r])
	}
	return m
}

func (t *Topology) LeftPad(pad Pad) (Pad, error)  { return t.neighbor(pad, -1, 0) }
func (t *Topology) RightPad(pad Pad) (Pad, error) { return t.neighbor(pad, 1, 0) }
func (t *Topology) UpPad(pad Pad) (Pad, error)    { return t.neighbor(pad, 0, -1) }
func (t *Topology) DownPad(pad Pad) (Pad, error)  { return t.neighbor(pad, 0, 1) }

func (t *Topology) neighbor(pad Pad, dc int, dr int) (Pad, error) {
	p, ok := t.position[pad]
	if !ok {
		return NoPad, fmt.Errorf("pad %d: %w", pad, ErrPadNotFound)
	}
	c, r := p.Column+dc, p.Row+dr
	if c < 0 || r < 0 || c >= t.columns || r >= len(t.grid) || t.grid[r][c] <= 0 {
		return NoPad, ErrNoNeighbor
	}
	return t.grid[r][c], nil
}

// PairsX returns the (left, right) neighbor pairs, sorted. Empty before Finalize.
func (t *Topology) PairsX() []PadPair {
	return slices.Clone(t.pairsX)
}

// PairsY returns the (up, down) neighbor pairs, sorted. Empty before Finalize.
func (t *Topology) PairsY() []PadPair {
	return slices.Clone(t.pairsY)
}

func (t *Topology) ChannelPairX(pair PadPair) (ChannelPair, bool) {
	c, ok := t.channelsX[pair]
	return c, ok
}

func (t *Topology) ChannelPairY(pair PadPair) (ChannelPair, bool) {
	c, ok := t.channelsY[pair]
	return c, ok
}
