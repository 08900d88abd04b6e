package grid

import (
	"errors"
	"sort"
	"sync"

	"github.com/picklecourt/courtdesk/metrics"
)

// ErrUnknownDate is returned for a date the planner holds no grid for.
var ErrUnknownDate = errors.New("grid: no grid for date")

// Planner groups the grids of every date in one checkout.
type Planner struct {
	metrics *metrics.Metrics

	mu    sync.RWMutex
	grids map[string]*Grid
}

// NewPlanner returns an empty planner. m may be nil.
func NewPlanner(m *metrics.Metrics) *Planner {
	return &Planner{metrics: m, grids: make(map[string]*Grid)}
}

// AddDate installs the grid for date. A grid already present is kept with its
// selections, matching the behaviour of re-opening a date already loaded.
func (p *Planner) AddDate(date string, courts []Court) *Grid {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.grids[date]; ok {
		return g
	}
	g := New(date, courts)
	g.metrics = p.metrics
	p.grids[date] = g
	return g
}

// RemoveDate drops a date and every selection on it.
func (p *Planner) RemoveDate(date string) {
	p.mu.Lock()
	delete(p.grids, date)
	p.mu.Unlock()
}

// Grid returns the grid for date.
func (p *Planner) Grid(date string) (*Grid, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.grids[date]
	if !ok {
		return nil, ErrUnknownDate
	}
	return g, nil
}

// Dates returns the planned dates in ascending order.
func (p *Planner) Dates() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	dates := make([]string, 0, len(p.grids))
	for d := range p.grids {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func (p *Planner) Toggle(date string, courtIndex, slotIndex int) (Status, bool, error) {
	g, err := p.Grid(date)
	if err != nil {
		return "", false, err
	}
	st, changed := g.Toggle(courtIndex, slotIndex)
	return st, changed, nil
}

// Commit returns the selections of every date, ordered by date.
func (p *Planner) Commit() []Selection {
	var out []Selection
	for _, d := range p.Dates() {
		g, err := p.Grid(d)
		if err != nil {
			continue
		}
		out = append(out, g.Commit()...)
	}
	return out
}

// ApplyUpdate routes a pushed change to its date's grid.
func (p *Planner) ApplyUpdate(u Update) bool {
	g, err := p.Grid(u.Date)
	if err != nil {
		return false
	}
	return g.ApplyUpdate(u)
}

// Restore re-selects staged selections on loaded grids. It returns how many were
// restored; selections whose slot is gone or no longer available are skipped.
func (p *Planner) Restore(selections []Selection) int {
	n := 0
	for _, s := range selections {
		g, err := p.Grid(s.Date)
		if err != nil {
			continue
		}
		if g.Select(s.CourtID, s.StartTime) {
			n++
		}
	}
	return n
}
