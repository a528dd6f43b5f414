package bridge

import (
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/pcpboard/internal/plan"
)

// CoverageSource says where a coverage value came from. Higher values win
// when merging.
type CoverageSource int

const (
	CoverageNone CoverageSource = iota
	// CoverageHydrated was fetched from storage and sent to the document.
	CoverageHydrated
	// CoverageBroadcast was absorbed from an ambient document broadcast.
	CoverageBroadcast
	// CoverageExplicit came inside a captured state.
	CoverageExplicit
)

func (s CoverageSource) String() string {
	switch s {
	case CoverageHydrated:
		return "hydrated"
	case CoverageBroadcast:
		return "broadcast"
	case CoverageExplicit:
		return "explicit"
	default:
		return "none"
	}
}

// Coverage is one versioned coverage value.
type Coverage struct {
	Data    json.RawMessage
	Source  CoverageSource
	Version uint64
}

// CoverageCache keeps the latest hydrated and broadcast coverage of one
// session. Every update bumps a session-wide version.
type CoverageCache struct {
	mu        sync.Mutex
	version   uint64
	hydrated  Coverage
	broadcast Coverage
}

// Set records data from src and returns its version. Absent data and
// CoverageExplicit are ignored and return 0.
func (c *CoverageCache) Set(src CoverageSource, data json.RawMessage) uint64 {
	if !plan.Present(data) {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var slot *Coverage
	switch src {
	case CoverageHydrated:
		slot = &c.hydrated
	case CoverageBroadcast:
		slot = &c.broadcast
	default:
		return 0
	}
	c.version++
	*slot = Coverage{Data: data, Source: src, Version: c.version}
	return c.version
}

// Merge picks the coverage to save: explicit if present, else the cached
// broadcast, else the hydrated value.
func (c *CoverageCache) Merge(explicit json.RawMessage) Coverage {
	if plan.Present(explicit) {
		return Coverage{Data: explicit, Source: CoverageExplicit}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broadcast.Source != CoverageNone {
		return c.broadcast
	}
	return c.hydrated
}
