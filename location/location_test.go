package location

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/picklecourt/courtdesk/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationLists(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/provinces":
			assert.Equal(t, "0", r.URL.Query().Get("page"))
			assert.Equal(t, "100", r.URL.Query().Get("size"))
			_, _ = io.WriteString(w, `{"data":[{"id":"01","name":"Ha Noi"},{"id":79,"name":"Ho Chi Minh"}],"totalElements":2}`)
		case "/districts/79":
			_, _ = io.WriteString(w, `[{"code":760,"full_name":"Quan 1"}]`)
		case "/wards/760":
			_, _ = io.WriteString(w, `{"result":[{"ward_id":"26734","ward_name":"Ben Nghe"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
		}
	}))
	defer srv.Close()

	rc, err := remote.New(remote.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	c := New(rc)
	ctx := context.Background()

	provinces, err := c.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Place{{ID: "01", Name: "Ha Noi"}, {ID: "79", Name: "Ho Chi Minh"}}, provinces)

	districts, err := c.Districts(ctx, "79")
	require.NoError(t, err)
	assert.Equal(t, []Place{{ID: "760", Name: "Quan 1"}}, districts)

	wards, err := c.Wards(ctx, "760")
	require.NoError(t, err)
	assert.Equal(t, []Place{{ID: "26734", Name: "Ben Nghe"}}, wards)

	_, err = c.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())

	_, err = c.Wards(ctx, "1")
	re, ok := remote.AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, "not found", re.Message)
}
