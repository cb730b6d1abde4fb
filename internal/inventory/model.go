package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrVariantNotFound   = errors.New("inventory: size variant not found")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be positive")
	ErrVersionConflict   = errors.New("inventory: concurrent stock update")
)

// Size is a sellable size of a sub product. Version is bumped on every write.
type Size struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Qty     int    `json:"qty"`
	Sold    int    `json:"sold"`
	Version int64  `json:"version"`
}

type SubProduct struct {
	ID    string `json:"id"`
	Sold  int    `json:"sold"`
	Sizes []Size `json:"sizes"`
}

type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	SubProducts []SubProduct `json:"subProducts"`
}

// InsufficientStockError names the line that could not be served.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Size        string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s (size %s): requested %d, available %d", name, e.Size, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type VariantNotFoundError struct {
	ProductID string
	Size      string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("size %q not found for product %s", e.Size, e.ProductID)
}

func (e *VariantNotFoundError) Unwrap() error { return ErrVariantNotFound }
