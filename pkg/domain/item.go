package domain

import (
	"encoding/json"
)

// Item is one unit of data flowing along a workflow edge.
type Item map[string]any

// Clone returns a deep copy of the item. Items are copied, never aliased,
// when they cross an edge, so a node cannot observe mutations made by a
// downstream node.
func (i Item) Clone() Item {
	if i == nil {
		return nil
	}

	data, err := json.Marshal(i)
	if err != nil {
		return Item{}
	}

	clone := Item{}
	if err := json.Unmarshal(data, &clone); err != nil {
		return Item{}
	}

	return clone
}

// CloneItems deep-copies a slice of items preserving order.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}

	cloned := make([]Item, 0, len(items))
	for _, item := range items {
		cloned = append(cloned, item.Clone())
	}

	return cloned
}

type Payload []byte

func (p Payload) IsEmpty() bool {
	return len(p) == 0
}

func (p Payload) ToItems() ([]Item, error) {
	items := []Item{}

	if len(p) == 0 {
		return items, nil
	}

	err := json.Unmarshal(p, &items)
	if err != nil {
		return nil, err
	}

	return items, nil
}

func NewPayloadFromItems(items []Item) (Payload, error) {
	if items == nil {
		items = []Item{}
	}

	return json.Marshal(items)
}

// BinaryRef points at an out-of-band binary payload attached to an item.
type BinaryRef struct {
	FileID      string `json:"file_id"`
	Name        string `json:"name"`
	SizeInBytes int64  `json:"size_in_bytes"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}
