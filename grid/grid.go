package grid

import (
	"sync"

	"github.com/picklecourt/courtdesk/metrics"
)

// Grid is the selection state of one date. It is safe for concurrent use.
type Grid struct {
	date    string
	metrics *metrics.Metrics

	mu     sync.RWMutex
	courts []Court
}

// New builds a grid for date from the courts the server returned. A missing status is
// AVAILABLE, and so is a server status of SELECTED since selection is local state.
func New(date string, courts []Court) *Grid {
	g := &Grid{date: date, courts: make([]Court, len(courts))}
	for i, c := range courts {
		g.courts[i] = c.clone()
		for j := range g.courts[i].Slots {
			st := ParseStatus(string(g.courts[i].Slots[j].Status))
			if st == Selected {
				st = Available
			}
			g.courts[i].Slots[j].Status = st
		}
	}
	return g
}

func (g *Grid) Date() string { return g.date }

// Courts returns a copy of the grid.
func (g *Grid) Courts() []Court {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Court, len(g.courts))
	for i, c := range g.courts {
		out[i] = c.clone()
	}
	return out
}

// Status reports the slot's status; ok is false for out-of-range indexes.
func (g *Grid) Status(courtIndex, slotIndex int) (Status, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.slot(courtIndex, slotIndex)
	if s == nil {
		return "", false
	}
	return s.Status, true
}

func (g *Grid) slot(courtIndex, slotIndex int) *Slot {
	if courtIndex < 0 || courtIndex >= len(g.courts) {
		return nil
	}
	slots := g.courts[courtIndex].Slots
	if slotIndex < 0 || slotIndex >= len(slots) {
		return nil
	}
	return &slots[slotIndex]
}

// Toggle flips an AVAILABLE slot to SELECTED and back. BOOKED, LOCKED and
// out-of-range slots are left alone. It returns the resulting status and whether
// anything changed.
func (g *Grid) Toggle(courtIndex, slotIndex int) (Status, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slot(courtIndex, slotIndex)
	if s == nil {
		return "", false
	}
	switch s.Status {
	case Available:
		s.Status = Selected
	case Selected:
		s.Status = Available
	default:
		return s.Status, false
	}
	g.metrics.Inc(metrics.SlotToggles)
	return s.Status, true
}

// Select marks the slot at courtID/startTime selected if it is available.
func (g *Grid) Select(courtID, startTime string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.find(courtID, startTime)
	if s == nil || s.Status != Available {
		return false
	}
	s.Status = Selected
	return true
}

func (g *Grid) find(courtID, startTime string) *Slot {
	for i := range g.courts {
		if g.courts[i].ID != courtID {
			continue
		}
		for j := range g.courts[i].Slots {
			if g.courts[i].Slots[j].StartTime == startTime {
				return &g.courts[i].Slots[j]
			}
		}
	}
	return nil
}

// Commit returns the selected slots in court then slot order.
func (g *Grid) Commit() []Selection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Selection
	for _, c := range g.courts {
		for _, s := range c.Slots {
			if s.Status != Selected {
				continue
			}
			out = append(out, Selection{
				Date:         g.date,
				CourtID:      c.ID,
				CourtName:    c.Name,
				StartTime:    s.StartTime,
				EndTime:      s.EndTime,
				DailyPrice:   s.DailyPrice,
				StudentPrice: s.StudentPrice,
			})
		}
	}
	return out
}

// ClearSelection returns every selected slot to AVAILABLE.
func (g *Grid) ClearSelection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.courts {
		for j := range g.courts[i].Slots {
			if g.courts[i].Slots[j].Status == Selected {
				g.courts[i].Slots[j].Status = Available
			}
		}
	}
}

// ApplyUpdate applies a pushed status change. LOCKED and BOOKED overwrite a local
// selection; AVAILABLE does not clear one. Updates for another date or an unknown slot
// are ignored and reported as false.
func (g *Grid) ApplyUpdate(u Update) bool {
	if u.Date != "" && u.Date != g.date {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.find(u.CourtID, u.StartTime)
	if s == nil {
		return false
	}
	switch u.Status {
	case Available:
		if s.Status == Selected {
			return false
		}
		s.Status = Available
	case Selected:
		return false
	default:
		s.Status = u.Status
	}
	g.metrics.Inc(metrics.SlotUpdates)
	return true
}
