package waveform

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Flag is the validity bitmask of a feature record. Zero means every
// crossing was found.
type Flag uint32

const (
	Valid      Flag = 0
	NoWaveform Flag = 1 << (iota - 1)
	NoT1Found
	NoT1At10
	NoT1At50
	NoT1At90
	NoT2Found
	NoT2At10
	NoT2At50
	NoT2At90
	RangeError
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{NoWaveform, "NO_WAVEFORM"},
	{NoT1Found, "NO_T1_FOUND"},
	{NoT1At10, "NO_T1_10_FOUND"},
	{NoT1At50, "NO_T1_50_FOUND"},
	{NoT1At90, "NO_T1_90_FOUND"},
	{NoT2Found, "NO_T2_FOUND"},
	{NoT2At10, "NO_T2_10_FOUND"},
	{NoT2At50, "NO_T2_50_FOUND"},
	{NoT2At90, "NO_T2_90_FOUND"},
	{RangeError, "RANGE_ERROR"},
}

func (f Flag) Has(bit Flag) bool {
	return f&bit != 0
}

func (f Flag) String() string {
	if f == Valid {
		return "VALID"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// Value stores the mask as an integer column.
func (f Flag) Value() (driver.Value, error) {
	return int64(f), nil
}

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*f = Flag(v)
	case nil:
		*f = Valid
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
	return nil
}
