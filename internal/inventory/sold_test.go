package inventory

import "testing"

func TestNextSubProductSold(t *testing.T) {
	tests := map[string]struct {
		current, sizesSold, quantity int
		want                         int
	}{
		"unset counter starts at quantity":     {current: 0, sizesSold: 7, quantity: 2, want: 2},
		"negative counter treated as unset":    {current: -1, sizesSold: 0, quantity: 3, want: 3},
		"independent counter is incremented":   {current: 10, sizesSold: 4, quantity: 2, want: 12},
		"derived counter is left untouched":    {current: 4, sizesSold: 4, quantity: 2, want: 4},
		"single unit on independent counter":   {current: 1, sizesSold: 0, quantity: 1, want: 2},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := NextSubProductSold(tt.current, tt.sizesSold, tt.quantity); got != tt.want {
				t.Fatalf("NextSubProductSold(%d, %d, %d) = %d, want %d", tt.current, tt.sizesSold, tt.quantity, got, tt.want)
			}
		})
	}
}
