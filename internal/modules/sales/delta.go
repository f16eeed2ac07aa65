package sales

// StockDelta returns the signed quantity change per product needed to move
// stock from existing to incoming in one adjustment. Products only in
// existing are fully reversed, products only in incoming are taken in full and
// products in both change by the difference. Zero entries are kept; callers
// prune them before calling inventory.
func StockDelta(existing map[int64]LineItem, incoming []LineItem) map[int64]int {
	next := itemMap(incoming)
	delta := make(map[int64]int, len(existing)+len(next))
	for id, old := range existing {
		if nu, ok := next[id]; ok {
			delta[id] = nu.Quantity - old.Quantity
			continue
		}
		delta[id] = -old.Quantity
	}
	for id, nu := range next {
		if _, ok := existing[id]; !ok {
			delta[id] = nu.Quantity
		}
	}
	return delta
}

// Negate returns the reversal of delta.
func Negate(delta map[int64]int) map[int64]int {
	out := make(map[int64]int, len(delta))
	for id, q := range delta {
		out[id] = -q
	}
	return out
}

// fullDelta is the adjustment for a brand new sale.
func fullDelta(items map[int64]LineItem) map[int64]int {
	return StockDelta(nil, mapValues(items))
}

func mapValues(items map[int64]LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}
