package inventory

// NextSubProductSold returns the sub product's sold counter after quantity
// units of one of its sizes were sold. sizesSold is the sum of the sizes' sold
// counters before the sale.
//
// A zero counter starts at quantity. A counter that differs from the sizes'
// sum is tracked on its own and is incremented. A counter equal to the sum is
// treated as derived from the sizes and left alone.
func NextSubProductSold(current, sizesSold, quantity int) int {
	switch {
	case current <= 0:
		return quantity
	case current != sizesSold:
		return current + quantity
	default:
		return current
	}
}

func sumSold(sizes []Size) int {
	total := 0
	for _, s := range sizes {
		total += s.Sold
	}
	return total
}
