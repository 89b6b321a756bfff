// Package catalogsync ingests the supplier's bulk export into the products
// table through a persisted, staged job.
package catalogsync

import (
	"time"

	"textilepro/internal/config"
)

// Policy bounds the export polling. The zero value is not usable; start
// from DefaultPolicy.
type Policy struct {
	// InitialWait is slept after each export request before the first poll.
	InitialWait time.Duration
	// RetryWait is slept between polls of the same link.
	RetryWait time.Duration
	// PollAttempts per export link.
	PollAttempts int
	// ExportCycles is the number of export requests before giving up.
	ExportCycles int
	// MinFileSize below which a 2xx body is treated as still being written.
	MinFileSize int64
	BatchSize   int
}

func DefaultPolicy() Policy {
	return Policy{
		InitialWait:  5 * time.Minute,
		RetryWait:    time.Minute,
		PollAttempts: 5,
		ExportCycles: 3,
		MinFileSize:  50 << 20,
		BatchSize:    100,
	}
}

// PolicyFromConfig overlays the positive configured values on the defaults.
func PolicyFromConfig(c config.SyncConfig) Policy {
	p := DefaultPolicy()
	if c.InitialWait > 0 {
		p.InitialWait = c.InitialWait
	}
	if c.RetryWait > 0 {
		p.RetryWait = c.RetryWait
	}
	if c.PollAttempts > 0 {
		p.PollAttempts = c.PollAttempts
	}
	if c.ExportCycles > 0 {
		p.ExportCycles = c.ExportCycles
	}
	if c.MinFileBytes > 0 {
		p.MinFileSize = c.MinFileBytes
	}
	if c.BatchSize > 0 {
		p.BatchSize = c.BatchSize
	}
	return p
}
