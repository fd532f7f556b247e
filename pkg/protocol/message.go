package protocol

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	msgVarGet   = "VAR_GET"
	msgVarSetMD = "VAR_SET_MD"
	msgVarValue = "VAR_VALUE"

	// RecordVar is the shared variable carrying the best known objective value
	RecordVar = "record"

	// unsetSentinel marks a shared variable that has never been set
	unsetSentinel = "NULL"

	// stopSuffix terminates every per-instance stop variable name
	stopSuffix = "_stopped"

	// stopValue is the only legal value of a stop variable once set
	stopValue = "1"
)

// ErrProtocol marks fatal protocol violations. A session that produced one
// cannot continue; callers test with errors.Is.
var ErrProtocol = errors.New("protocol violation")

// VarValue is one inbound shared-variable update
type VarValue struct {
	Name string
	Raw  string
}

// ParseVarValue parses an inbound frame. The only legal inbound message is
// a three-field VAR_VALUE; any other shape is a protocol violation.
func ParseVarValue(frame []byte) (VarValue, error) {
	fields := strings.Fields(string(frame))
	if len(fields) != 3 || fields[0] != msgVarValue {
		return VarValue{}, fmt.Errorf("%w: unexpected frame %q", ErrProtocol, string(frame))
	}
	return VarValue{Name: fields[1], Raw: fields[2]}, nil
}

// IsUnset reports whether the update carries the never-set sentinel
func (v VarValue) IsUnset() bool {
	return v.Raw == unsetSentinel
}

// IsStopSignal reports whether the update sets a stop variable to its one
// legal value
func (v VarValue) IsStopSignal() bool {
	return v.Raw == stopValue
}

// StopVarName derives the per-instance stop variable from an instance stub:
// the basename with its extension stripped, plus "_stopped"
// (foo.nl -> foo_stopped)
func StopVarName(stub string) string {
	base := filepath.Base(stub)
	return strings.TrimSuffix(base, filepath.Ext(base)) + stopSuffix
}

// IsStopVar reports whether a variable name is some instance's stop variable
func IsStopVar(name string) bool {
	return strings.HasSuffix(name, stopSuffix)
}
