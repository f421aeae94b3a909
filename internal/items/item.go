package items

import "strings"

// Item is a single inventory entry
type Item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// NewItem is a validated create payload that has not been assigned an ID yet
type NewItem struct {
	Name     string
	Category string
	Price    float64
}

// WithID returns the stored form of the payload
func (n NewItem) WithID(id int64) Item {
	return Item{
		ID:       id,
		Name:     n.Name,
		Category: n.Category,
		Price:    n.Price,
	}
}

// Filter applies a case-insensitive substring match on the item name
func Filter(list []Item, q string) []Item {
	if q == "" {
		return list
	}

	needle := strings.ToLower(q)
	results := make([]Item, 0, len(list))
	for _, item := range list {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			results = append(results, item)
		}
	}
	return results
}

// Limit truncates list to its first n items. A negative n drops that many
// items from the end instead.
func Limit(list []Item, n int) []Item {
	end := n
	if n < 0 {
		end = len(list) + n
	}
	end = max(0, min(end, len(list)))
	return list[:end:end]
}

// Find returns the item with the given ID
func Find(list []Item, id int64) (Item, bool) {
	for _, item := range list {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// NextID returns an ID that is unique within list. IDs are millisecond
// timestamps, bumped past any existing ID so they never collide.
func NextID(list []Item, nowMillis int64) int64 {
	next := nowMillis
	for _, item := range list {
		if item.ID >= next {
			next = item.ID + 1
		}
	}
	return next
}
