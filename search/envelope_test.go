package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePriority(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		ids   []int
		total int64
	}{
		{"data", `{"data":[{"id":1}],"totalElements":9}`, []int{1}, 9},
		{"orders", `{"orders":[{"id":2}],"totalElements":4}`, []int{2}, 4},
		{"transactions", `{"transactions":[{"id":3}]}`, []int{3}, 0},
		{"users", `{"users":[{"id":4}],"totalElements":1}`, []int{4}, 1},
		{"result", `{"result":[{"id":5}]}`, []int{5}, 0},
		{"bare array", `[{"id":6},{"id":7}]`, []int{6, 7}, 0},
		{"data beats orders", `{"orders":[{"id":2}],"data":[{"id":1}]}`, []int{1}, 0},
		{"orders beats result", `{"result":[{"id":5}],"orders":[{"id":2}]}`, []int{2}, 0},
		{"non-array key is skipped", `{"data":{"id":1},"users":[{"id":4}]}`, []int{4}, 0},
		{"empty data", `{"data":[],"totalElements":0}`, []int{}, 0},
		{"null orders", `{"orders":null,"totalElements":0}`, []int{}, 0},
		{"null data still wins", `{"data":null,"orders":[{"id":2}]}`, []int{}, 0},
		{"numeric string total", `{"users":[{"id":4}],"totalElements":"25"}`, []int{4}, 25},
		{"null total", `{"result":[{"id":5}],"totalElements":null}`, []int{5}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := Normalize[order]([]byte(tc.body), false)
			require.NoError(t, err)
			ids := []int{}
			for _, o := range page.Items {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tc.ids, ids)
			assert.Equal(t, tc.total, page.TotalElements)
		})
	}
}

func TestNormalizeRejectsBadTotal(t *testing.T) {
	for _, body := range []string{
		`{"data":[],"totalElements":"many"}`,
		`{"data":[],"totalElements":2.5}`,
		`{"data":[],"totalElements":-1}`,
		`{"data":[],"totalElements":{}}`,
	} {
		_, err := Normalize[order]([]byte(body), false)
		assert.Error(t, err, body)
		assert.NotErrorIs(t, err, ErrUnrecognizedEnvelope, body)
	}
}

func TestNormalizeStrict(t *testing.T) {
	_, err := Normalize[order]([]byte(`{"data":[{"id":1}]}`), true)
	require.NoError(t, err)

	for _, body := range []string{`[{"id":1}]`, `{"orders":[{"id":1}]}`} {
		_, err := Normalize[order]([]byte(body), true)
		assert.ErrorIs(t, err, ErrUnrecognizedEnvelope, body)
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, body := range []string{``, `  `, `{"message":"ok"}`, `"text"`, `{"data":null}`} {
		_, err := Normalize[order]([]byte(body), false)
		assert.ErrorIs(t, err, ErrUnrecognizedEnvelope, body)
	}
	_, err := Normalize[order]([]byte(`{"data":[{"id":"x"}]}`), false)
	assert.Error(t, err)
}

func TestNormalizeSummaryNeedsAllThree(t *testing.T) {
	page, err := Normalize[order]([]byte(`{"data":[],"totalAmount":10,"netAmount":10}`), false)
	require.NoError(t, err)
	assert.Nil(t, page.Summary)

	page, err = Normalize[order]([]byte(`{"data":[],"totalAmount":10,"refundAmount":0,"netAmount":10}`), false)
	require.NoError(t, err)
	require.NotNil(t, page.Summary)
	assert.Equal(t, 10.0, page.Summary.TotalAmount)
}

func TestLastPage(t *testing.T) {
	assert.Equal(t, 0, Pagination{Size: 10}.LastPage())
	assert.Equal(t, 3, Pagination{Size: 10, TotalElements: 25}.LastPage())
	assert.Equal(t, 2, Pagination{Size: 10, TotalElements: 20}.LastPage())
}
