package search

import "strconv"

// Column describes one table column.
type Column[T any] struct {
	Key   string
	Title string
	Value func(T) string
}

// Table is the plain-text rendition of the current page: a running index column
// followed by the declared columns.
type Table struct {
	Headers []string
	Rows    [][]string
}

// IndexHeader titles the running row number column.
const IndexHeader = "No."

// Table renders the current results through the column schema.
func (c *Controller[T]) Table() Table {
	c.mu.Lock()
	rows := make([]T, len(c.results))
	copy(rows, c.results)
	p := c.pagination
	c.mu.Unlock()

	t := Table{Headers: make([]string, 0, len(c.columns)+1)}
	t.Headers = append(t.Headers, IndexHeader)
	for _, col := range c.columns {
		title := col.Title
		if title == "" {
			title = col.Key
		}
		t.Headers = append(t.Headers, title)
	}

	offset := (p.Page - 1) * p.Size
	for i, item := range rows {
		row := make([]string, 0, len(c.columns)+1)
		row = append(row, strconv.Itoa(offset+i+1))
		for _, col := range c.columns {
			row = append(row, col.Value(item))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
