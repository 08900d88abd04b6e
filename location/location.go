// Package location reads the administrative divisions (provinces, districts, wards)
// from the secondary location service used by the address forms.
package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/picklecourt/courtdesk/remote"
	"github.com/picklecourt/courtdesk/search"
)

// Doer is satisfied by *remote.Client.
type Doer interface {
	Do(ctx context.Context, method, path string, req remote.Request, out any) error
}

// Place is one province, district or ward.
type Place struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts the id and name spellings the location services use.
func (p *Place) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.ID = firstString(raw, "id", "code", "province_id", "district_id", "ward_id")
	p.Name = firstString(raw, "name", "full_name", "province_name", "district_name", "ward_name")
	if p.ID == "" {
		return fmt.Errorf("location: place without id: %s", b)
	}
	return nil
}

func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		var s string
		if json.Unmarshal(v, &s) == nil && s != "" {
			return s
		}
		var n json.Number
		if json.Unmarshal(v, &n) == nil {
			return n.String()
		}
	}
	return ""
}

// Client caches every list it has read; divisions do not change during a session.
type Client struct {
	doer     Doer
	pageSize int

	mu    sync.Mutex
	cache map[string][]Place
}

// New returns a client reading through doer, whose base URL must be the location
// service.
func New(doer Doer) *Client {
	return &Client{doer: doer, pageSize: 100, cache: make(map[string][]Place)}
}

func (c *Client) Provinces(ctx context.Context) ([]Place, error) {
	return c.list(ctx, "/provinces", remote.Params{"page": "0", "size": strconv.Itoa(c.pageSize)})
}

func (c *Client) Districts(ctx context.Context, provinceID string) ([]Place, error) {
	return c.list(ctx, "/districts/"+provinceID, nil)
}

func (c *Client) Wards(ctx context.Context, districtID string) ([]Place, error) {
	return c.list(ctx, "/wards/"+districtID, nil)
}

func (c *Client) list(ctx context.Context, path string, params remote.Params) ([]Place, error) {
	c.mu.Lock()
	cached, ok := c.cache[path]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var raw json.RawMessage
	if err := c.doer.Do(ctx, http.MethodGet, path, remote.Request{Params: params}, &raw); err != nil {
		return nil, err
	}
	page, err := search.Normalize[Place](raw, false)
	if err != nil {
		return nil, fmt.Errorf("location: %s: %w", path, err)
	}

	c.mu.Lock()
	c.cache[path] = page.Items
	c.mu.Unlock()
	return page.Items, nil
}
