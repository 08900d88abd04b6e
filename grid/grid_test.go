package grid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/remote"
	"github.com/picklecourt/courtdesk/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = "2026-10-20"

func sampleCourts() []Court {
	return []Court{
		{ID: "c1", Name: "Court 1", Slots: []Slot{
			{StartTime: "06:00", EndTime: "07:00", DailyPrice: 100, StudentPrice: 80, Status: Available},
			{StartTime: "07:00", EndTime: "08:00", DailyPrice: 120, StudentPrice: 90, Status: Booked},
			{StartTime: "08:00", EndTime: "09:00", DailyPrice: 120, StudentPrice: 90, Status: Locked},
		}},
		{ID: "c2", Name: "Court 2", Slots: []Slot{
			{StartTime: "06:00", EndTime: "07:00", DailyPrice: 150, StudentPrice: 100, Status: Available},
			{StartTime: "07:00", EndTime: "08:00", DailyPrice: 150, StudentPrice: 100, Status: Available},
		}},
	}
}

func TestToggleAvailableTwiceRestores(t *testing.T) {
	g := New(day, sampleCourts())

	st, changed := g.Toggle(0, 0)
	assert.True(t, changed)
	assert.Equal(t, Selected, st)

	st, changed = g.Toggle(0, 0)
	assert.True(t, changed)
	assert.Equal(t, Available, st)
}

func TestToggleBookedAndLockedIsNoOp(t *testing.T) {
	g := New(day, sampleCourts())

	for _, idx := range []int{1, 2} {
		before, _ := g.Status(0, idx)
		st, changed := g.Toggle(0, idx)
		assert.False(t, changed)
		assert.Equal(t, before, st)
		after, _ := g.Status(0, idx)
		assert.Equal(t, before, after)
	}

	for _, ix := range [][2]int{{-1, 0}, {2, 0}, {0, 3}, {1, -1}} {
		_, changed := g.Toggle(ix[0], ix[1])
		assert.False(t, changed)
	}
	assert.Empty(t, g.Commit())
}

func TestCommitOrderAndFields(t *testing.T) {
	g := New(day, sampleCourts())
	g.Toggle(1, 1)
	g.Toggle(0, 0)
	g.Toggle(1, 0)

	sel := g.Commit()
	require.Len(t, sel, 3)
	assert.Equal(t, Selection{Date: day, CourtID: "c1", CourtName: "Court 1", StartTime: "06:00", EndTime: "07:00", DailyPrice: 100, StudentPrice: 80}, sel[0])
	assert.Equal(t, "c2", sel[1].CourtID)
	assert.Equal(t, "06:00", sel[1].StartTime)
	assert.Equal(t, "07:00", sel[2].StartTime)

	g.ClearSelection()
	assert.Empty(t, g.Commit())
}

func TestGridCopiesInput(t *testing.T) {
	courts := sampleCourts()
	g := New(day, courts)
	g.Toggle(0, 0)
	assert.Equal(t, Available, courts[0].Slots[0].Status)

	out := g.Courts()
	out[0].Slots[0].Status = Booked
	st, _ := g.Status(0, 0)
	assert.Equal(t, Selected, st)
}

func TestApplyUpdateDropsSelection(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true})
	p := NewPlanner(m)
	g := p.AddDate(day, sampleCourts())
	g.Toggle(1, 0)

	assert.True(t, p.ApplyUpdate(Update{CourtID: "c2", Date: day, StartTime: "06:00", Status: Locked}))
	st, _ := g.Status(1, 0)
	assert.Equal(t, Locked, st)
	assert.Empty(t, p.Commit())

	assert.True(t, p.ApplyUpdate(Update{CourtID: "c2", Date: day, StartTime: "06:00", Status: Available}))
	_, changed := g.Toggle(1, 0)
	assert.True(t, changed)

	// An AVAILABLE push must not discard what the user picked.
	assert.False(t, p.ApplyUpdate(Update{CourtID: "c2", Date: day, StartTime: "06:00", Status: Available}))
	st, _ = g.Status(1, 0)
	assert.Equal(t, Selected, st)

	assert.False(t, p.ApplyUpdate(Update{CourtID: "c9", Date: day, StartTime: "06:00", Status: Booked}))
	assert.False(t, p.ApplyUpdate(Update{CourtID: "c2", Date: "2026-10-21", StartTime: "06:00", Status: Booked}))

	assert.Equal(t, uint64(2), m.Value(metrics.SlotUpdates))
	assert.Equal(t, uint64(2), m.Value(metrics.SlotToggles))
}

func TestPlannerAcrossDates(t *testing.T) {
	p := NewPlanner(nil)
	p.AddDate("2026-10-21", sampleCourts())
	p.AddDate(day, sampleCourts())
	assert.Equal(t, []string{day, "2026-10-21"}, p.Dates())

	_, _, err := p.Toggle("2026-10-21", 0, 0)
	require.NoError(t, err)
	_, _, err = p.Toggle(day, 1, 1)
	require.NoError(t, err)
	_, _, err = p.Toggle("2027-01-01", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownDate)

	sel := p.Commit()
	require.Len(t, sel, 2)
	assert.Equal(t, day, sel[0].Date)
	assert.Equal(t, "2026-10-21", sel[1].Date)

	again := p.AddDate(day, nil)
	assert.Len(t, again.Commit(), 1)

	p.RemoveDate(day)
	assert.Len(t, p.Commit(), 1)

	fresh := NewPlanner(nil)
	fresh.AddDate("2026-10-21", sampleCourts())
	assert.Equal(t, 1, fresh.Restore(sel))
}

func TestStatusParsing(t *testing.T) {
	var courts []Court
	body := `[{"courtSlotId":"c1","courtSlotName":"A","bookingSlots":[
		{"startTime":"06:00","status":"available"},
		{"startTime":"07:00","status":"BOOKED"},
		{"startTime":"08:00","status":"MAINTENANCE"},
		{"startTime":"09:00"}]}]`
	require.NoError(t, json.Unmarshal([]byte(body), &courts))
	got := []Status{}
	for _, s := range courts[0].Slots {
		got = append(got, s.Status)
	}
	assert.Equal(t, []Status{Available, Booked, Locked, ""}, got)
	assert.Equal(t, Available, ParseStatus(""))
}

func TestQuote(t *testing.T) {
	sel := func(prices ...float64) []Selection {
		out := make([]Selection, len(prices))
		for i, p := range prices {
			out[i] = Selection{DailyPrice: p, StudentPrice: p / 2}
		}
		return out
	}

	cases := []struct {
		name   string
		sel    []Selection
		tier   Tier
		method Method
		want   Price
	}{
		{"empty", nil, TierDaily, MethodFull, Price{Method: MethodFull}},
		{"single slot forces full", sel(100), TierDaily, MethodDeposit, Price{Total: 100, Payment: 100, Deposit: 100, Method: MethodFull}},
		{"full pays everything", sel(100, 150), TierDaily, MethodFull, Price{Total: 250, Payment: 250, Deposit: 150, Method: MethodFull}},
		{"deposit 3 slots", sel(150, 100, 120), TierDaily, MethodDeposit, Price{Total: 370, Payment: 100, Deposit: 100, Method: MethodDeposit}},
		{"deposit 4 slots", sel(150, 100, 120, 90), TierDaily, MethodDeposit, Price{Total: 460, Payment: 190, Deposit: 190, Method: MethodDeposit}},
		{"deposit 7 slots", sel(10, 20, 30, 40, 50, 60, 70), TierDaily, MethodDeposit, Price{Total: 280, Payment: 60, Deposit: 60, Method: MethodDeposit}},
		{"deposit 10 slots", sel(10, 10, 10, 10, 10, 10, 10, 10, 10, 10), TierDaily, MethodDeposit, Price{Total: 100, Payment: 100, Deposit: 100, Method: MethodDeposit}},
		{"student prices", sel(100, 200), TierStudent, MethodDeposit, Price{Total: 150, Payment: 50, Deposit: 50, Method: MethodDeposit}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Quote(tc.sel, tc.tier, tc.method))
		})
	}
}

func TestTierAndMethod(t *testing.T) {
	assert.Equal(t, TierStudent, TierFor([]string{"USER", "student"}))
	assert.Equal(t, TierDaily, TierFor([]string{"USER"}))

	m, err := ParseMethod(" Deposit ")
	require.NoError(t, err)
	assert.Equal(t, MethodDeposit, m)
	_, err = ParseMethod("card")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestStager(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := NewStager(mem)

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	g := New(day, sampleCourts())
	g.Toggle(0, 0)
	require.NoError(t, s.Stage(ctx, Checkout{Selections: g.Commit(), Tier: TierDaily, Method: MethodFull}))
	assert.Equal(t, []string{CheckoutKey}, mem.Keys())

	c, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, c.Selections, 1)
	assert.False(t, c.SavedAt.IsZero())

	require.NoError(t, s.Clear(ctx))
	_, ok, _ = s.Load(ctx)
	assert.False(t, ok)

	require.NoError(t, mem.Set(ctx, CheckoutKey, []byte("{broken")))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, mem.Keys())
}

func TestFetchSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SlotsPath, r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("courtId"))
		assert.Equal(t, day, r.URL.Query().Get("dateBooking"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(sampleCourts())
	}))
	defer srv.Close()

	client, err := remote.New(remote.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	date, _ := time.Parse(remote.DateLayout, day)
	courts, err := FetchSlots(context.Background(), publicGetter{client}, "42", date)
	require.NoError(t, err)
	require.Len(t, courts, 2)
	assert.Equal(t, Booked, courts[0].Slots[1].Status)
}

type publicGetter struct{ c *remote.Client }

func (p publicGetter) Get(ctx context.Context, path string, params remote.Params, out any) error {
	return p.c.Do(ctx, http.MethodGet, path, remote.Request{Params: params}, out)
}
