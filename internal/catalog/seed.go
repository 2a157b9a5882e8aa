package catalog

// DefaultItems is the collection a fresh backing file is seeded with.
func DefaultItems() []Item {
	return []Item{
		{ID: 1, Name: "Laptop Pro", Category: "Electronics", Price: 2499},
		{ID: 2, Name: "Noise Cancelling Headphones", Category: "Electronics", Price: 399},
		{ID: 3, Name: "Ultra-Wide Monitor", Category: "Displays", Price: 999},
		{ID: 4, Name: "Ergonomic Chair", Category: "Furniture", Price: 799},
		{ID: 5, Name: "Standing Desk", Category: "Furniture", Price: 1199},
	}
}
