package scan

import "errors"

// Decision classifies a materialization failure.
type Decision int

const (
	// Stop fails the stream with the original error.
	Stop Decision = iota
	// Resume skips the failing record and continues with the next one.
	Resume
)

// FaultPolicy maps a materialization error to a Decision. It is consulted
// only for decode failures; probe and connectivity errors are always fatal.
type FaultPolicy func(error) Decision

// StopAll fails fast on any materialization error. This is the default.
func StopAll(error) Decision { return Stop }

// ResumeAll skips every failing record. A record that fails permanently is
// skipped once per probe, so a scan under ResumeAll always advances.
func ResumeAll(error) Decision { return Resume }

// ResumeOn skips records whose error matches any of targets (per errors.Is)
// and stops on everything else.
func ResumeOn(targets ...error) FaultPolicy {
	return func(err error) Decision {
		for _, t := range targets {
			if errors.Is(err, t) {
				return Resume
			}
		}
		return Stop
	}
}
