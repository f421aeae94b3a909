package items

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []Item{
	{ID: 1, Name: "Laptop Pro", Category: "Electronics", Price: 2499},
	{ID: 2, Name: "Noise Cancelling Headphones", Category: "Electronics", Price: 399},
	{ID: 3, Name: "Ultra-Wide Monitor", Category: "Electronics", Price: 999},
}

func ids(list []Item) []int64 {
	out := make([]int64, 0, len(list))
	for _, item := range list {
		out = append(out, item.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		q    string
		want []int64
	}{
		{name: "no filter", want: []int64{1, 2, 3}},
		{name: "case insensitive", q: "LAPTOP", want: []int64{1}},
		{name: "substring", q: "on", want: []int64{2, 3}},
		{name: "no match", q: "tablet", want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(sample, tt.q)))
		})
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want []int64
	}{
		{name: "truncates", n: 2, want: []int64{1, 2}},
		{name: "larger than list", n: 10, want: []int64{1, 2, 3}},
		{name: "zero", n: 0, want: []int64{}},
		{name: "negative drops from end", n: -1, want: []int64{1, 2}},
		{name: "negative past start", n: -5, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Limit(sample, tt.n)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterThenLimit(t *testing.T) {
	assert.Equal(t, []int64{1}, ids(Limit(Filter(sample, "o"), 1)))
}

func TestFind(t *testing.T) {
	item, ok := Find(sample, 2)
	require.True(t, ok)
	assert.Equal(t, "Noise Cancelling Headphones", item.Name)

	_, ok = Find(sample, 999)
	assert.False(t, ok)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, int64(1000), NextID(sample, 1000))
	assert.Equal(t, int64(4), NextID(sample, 2))
	assert.Equal(t, int64(5), NextID(nil, 5))
}

func TestValidate(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{"name": "Test Product", "category": "Test", "price": 100.0}
	}

	t.Run("accepts valid payload", func(t *testing.T) {
		item, err := Validate(valid())
		require.NoError(t, err)
		assert.Equal(t, NewItem{Name: "Test Product", Category: "Test", Price: 100}, item)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		raw := valid()
		raw["name"] = "  Test Product  "
		raw["category"] = "  Test  "
		item, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "Test Product", item.Name)
		assert.Equal(t, "Test", item.Category)
	})

	t.Run("rounds price", func(t *testing.T) {
		raw := valid()
		raw["price"] = 99.999
		item, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, 100.0, item.Price)

		raw["price"] = 12.344
		item, err = Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, 12.34, item.Price)
	})

	t.Run("accepts boundary values", func(t *testing.T) {
		raw := valid()
		raw["name"] = strings.Repeat("A", 100)
		raw["category"] = strings.Repeat("B", 50)
		raw["price"] = 1000000.0
		_, err := Validate(raw)
		require.NoError(t, err)

		raw["price"] = 0.0
		_, err = Validate(raw)
		require.NoError(t, err)
	})

	rejects := []struct {
		name  string
		field string
		value any
		drop  bool
	}{
		{name: "missing name", field: "name", drop: true},
		{name: "blank name", field: "name", value: "   "},
		{name: "numeric name", field: "name", value: 123.0},
		{name: "long name", field: "name", value: strings.Repeat("A", 101)},
		{name: "missing category", field: "category", drop: true},
		{name: "empty category", field: "category", value: ""},
		{name: "long category", field: "category", value: strings.Repeat("A", 51)},
		{name: "missing price", field: "price", drop: true},
		{name: "string price", field: "price", value: "100"},
		{name: "negative price", field: "price", value: -10.0},
		{name: "price over limit", field: "price", value: 1000001.0},
	}

	for _, tt := range rejects {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			raw := valid()
			if tt.drop {
				delete(raw, tt.field)
			} else {
				raw[tt.field] = tt.value
			}

			_, err := Validate(raw)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	t.Run("reports every invalid field", func(t *testing.T) {
		_, err := Validate(map[string]any{})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Fields, 3)
		assert.Contains(t, err.Error(), "name: is required")
	})
}
