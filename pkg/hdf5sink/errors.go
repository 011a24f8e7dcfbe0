package hdf5sink

import "fmt"

// Operations reported by OpError.
const (
	OpCreateFile  = "create file"
	OpCreateGroup = "create group"
	OpCreateTable = "create table"
	OpCreateArray = "create array"
)

// OpError reports the HDF5 call that failed and the file, group or dataset
// it was called for.
type OpError struct {
	Op     string
	Object string
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("hdf5: cannot %s %q: %v", e.Op, e.Object, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
