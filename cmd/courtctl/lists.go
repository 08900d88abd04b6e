package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/picklecourt/courtdesk"
	"github.com/picklecourt/courtdesk/grid"
	"github.com/picklecourt/courtdesk/remote"
	"github.com/picklecourt/courtdesk/search"
)

const (
	// OrdersPath is the dashboard order list.
	OrdersPath = "/identity/admin/dashboard/orders"
	// CourtsPath is the public paged court directory.
	CourtsPath = "/court/public/getAllPageable"
)

type orderRow struct {
	ID            string  `json:"id"`
	CustomerName  string  `json:"customerName"`
	BookingDate   string  `json:"bookingDate"`
	OrderStatus   string  `json:"orderStatus"`
	PaymentStatus string  `json:"paymentStatus"`
	TotalAmount   float64 `json:"totalAmount"`
}

var orderColumns = []search.Column[orderRow]{
	{Key: "id", Title: "Order", Value: func(o orderRow) string { return o.ID }},
	{Key: "customerName", Title: "Customer", Value: func(o orderRow) string { return o.CustomerName }},
	{Key: "bookingDate", Title: "Date", Value: func(o orderRow) string { return o.BookingDate }},
	{Key: "orderStatus", Title: "Status", Value: func(o orderRow) string { return o.OrderStatus }},
	{Key: "paymentStatus", Title: "Payment", Value: func(o orderRow) string { return o.PaymentStatus }},
	{Key: "totalAmount", Title: "Amount", Value: func(o orderRow) string {
		return strconv.FormatFloat(o.TotalAmount, 'f', 0, 64)
	}},
}

type courtRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

var courtColumns = []search.Column[courtRow]{
	{Key: "id", Title: "ID", Value: func(c courtRow) string { return c.ID }},
	{Key: "name", Title: "Court", Value: func(c courtRow) string { return c.Name }},
	{Key: "address", Title: "Address", Value: func(c courtRow) string { return c.Address }},
	{Key: "active", Title: "Active", Value: func(c courtRow) string { return strconv.FormatBool(c.Active) }},
}

// pageArgs reads the optional [page] [size] arguments.
func pageArgs(args []string) (page, size int, err error) {
	page, size = 1, search.DefaultPageSize
	if len(args) > 0 {
		if page, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, fmt.Errorf("page: %w", err)
		}
	}
	if len(args) > 1 {
		if size, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("size: %w", err)
		}
	}
	return page, size, nil
}

func listOrders(ctx context.Context, d *courtdesk.Desk, args []string, out io.Writer) error {
	page, size, err := pageArgs(args)
	if err != nil {
		return err
	}
	c, err := courtdesk.NewSearch(d, OrdersPath, search.Config[orderRow]{
		Filters: []search.Filter{
			{Name: "customerName", Kind: search.Text, Placeholder: "Customer"},
			{Name: "bookingDate", Kind: search.Date},
		},
		Columns: orderColumns,
	})
	if err != nil {
		return err
	}
	if err := c.ChangePage(ctx, page, size); err != nil {
		return err
	}
	return printList(out, c)
}

// listCourts pages the court directory, optionally narrowed by a name search.
func listCourts(ctx context.Context, d *courtdesk.Desk, args []string, out io.Writer) error {
	var term string
	if len(args) > 0 {
		if _, err := strconv.Atoi(args[0]); err != nil {
			term, args = args[0], args[1:]
		}
	}
	page, size, err := pageArgs(args)
	if err != nil {
		return err
	}
	c, err := courtdesk.NewSearch(d, CourtsPath, search.Config[courtRow]{
		Filters: []search.Filter{
			{Name: "search", Kind: search.Text, Placeholder: "Court name"},
			{Name: "location", Kind: search.Text, Placeholder: "Location"},
		},
		Columns: courtColumns,
	})
	if err != nil {
		return err
	}
	if term != "" {
		if err := c.ApplyFilters(ctx, map[string]any{"search": term}); err != nil {
			return err
		}
	}
	if page != 1 || size != search.DefaultPageSize || term == "" {
		if err := c.ChangePage(ctx, page, size); err != nil {
			return err
		}
	}
	return printList(out, c)
}

func printList[T any](out io.Writer, c *search.Controller[T]) error {
	table := c.Table()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	p := c.Pagination()
	fmt.Fprintf(tw, "page %d/%d\t%d total\n", p.Page, max(p.LastPage(), 1), p.TotalElements)
	if sum, ok := c.Summary(); ok {
		fmt.Fprintf(tw, "revenue\t%.0f\trefunds\t%.0f\tnet\t%.0f\n", sum.TotalAmount, sum.RefundAmount, sum.NetAmount)
	}
	return tw.Flush()
}

func loadGrid(ctx context.Context, d *courtdesk.Desk, courtID, day string) (*grid.Grid, error) {
	date, err := time.Parse(remote.DateLayout, day)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	return d.FetchSlots(ctx, d.NewPlanner(), courtID, date)
}

func printGrid(out io.Writer, g *grid.Grid) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, court := range g.Courts() {
		fmt.Fprintf(tw, "%s (%s)\n", court.Name, court.ID)
		for _, s := range court.Slots {
			fmt.Fprintf(tw, "  %s-%s\t%s\t%.0f\t%.0f\n", s.StartTime, s.EndTime, s.Status, s.DailyPrice, s.StudentPrice)
		}
	}
	_ = tw.Flush()
}

// quote selects the given start times on every court of the grid that has them free,
// stages the checkout and prints the price.
func quote(ctx context.Context, d *courtdesk.Desk, args []string, out io.Writer) error {
	method, err := grid.ParseMethod(args[2])
	if err != nil {
		return err
	}
	planner := d.NewPlanner()
	date, err := time.Parse(remote.DateLayout, args[1])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	g, err := d.FetchSlots(ctx, planner, args[0], date)
	if err != nil {
		return err
	}
	for _, start := range args[3:] {
		picked := false
		for _, court := range g.Courts() {
			if g.Select(court.ID, start) {
				picked = true
				break
			}
		}
		if !picked {
			return fmt.Errorf("no free slot starts at %s", start)
		}
	}

	selections := planner.Commit()
	var roles []string
	if user, err := d.User(); err == nil {
		for _, r := range user.RoleNames() {
			roles = append(roles, string(r))
		}
	}
	tier := grid.TierFor(roles)
	price := grid.Quote(selections, tier, method)
	if err := d.Stager().Stage(ctx, grid.Checkout{Selections: selections, Tier: tier, Method: price.Method}); err != nil {
		return err
	}

	for _, s := range selections {
		fmt.Fprintf(out, "%s\t%s\t%s-%s\n", s.Date, s.CourtName, s.StartTime, s.EndTime)
	}
	fmt.Fprintf(out, "tier %s\tmethod %s\ttotal %.0f\tpay now %.0f\tdeposit %.0f\n",
		tier, price.Method, price.Total, price.Payment, price.Deposit)
	return nil
}
