package service

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/cartcraft/storefront/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is exclusive: inventory below it is low stock.
const LowStockThreshold = 20

// StockStatus classifies inventory for display.
type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	LowStock   StockStatus = "low_stock"
	OutOfStock StockStatus = "out_of_stock"
)

// StockStatusOf returns OutOfStock for zero, LowStock below LowStockThreshold, InStock otherwise.
func StockStatusOf(inventory int) StockStatus {
	switch {
	case inventory <= 0:
		return OutOfStock
	case inventory < LowStockThreshold:
		return LowStock
	default:
		return InStock
	}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Category    string      `json:"category"`
	Inventory   int         `json:"inventory"`
	Image       string      `json:"image,omitempty"`
	LastUpdated time.Time   `json:"lastUpdated"`
	StockStatus StockStatus `json:"stockStatus"`
}

// IsLowStock reports inventory strictly below LowStockThreshold, zero included.
func (p ProductDto) IsLowStock() bool {
	return p.Inventory < LowStockThreshold
}

func (p ProductDto) IsOutOfStock() bool {
	return p.Inventory == 0
}

// Number accepts a JSON number or a string holding one, e.g. 19.99 or "19.99".
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		unquoted, err := strconv.Unquote(string(raw))
		if err != nil {
			return fmt.Errorf("invalid numeric string %s: %w", raw, err)
		}
		raw = bytes.TrimSpace([]byte(unquoted))
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = Number(f)
	return nil
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name        string  `json:"name"        validate:"required,max=200"`
	Slug        string  `json:"slug"        validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=5000"`
	Price       *Number `json:"price"       validate:"required,gte=0"`
	Category    string  `json:"category"    validate:"required,max=100"`
	Inventory   *Number `json:"inventory"   validate:"required,gte=0,integral"`
	Image       string  `json:"image"       validate:"max=2048"`
}

// ProductUpdateDto holds the fields to change. Absent fields keep their value;
// id and lastUpdated are owned by the store and ignored if sent.
type ProductUpdateDto struct {
	Name        *string `json:"name"        validate:"omitnil,min=1,max=200"`
	Slug        *string `json:"slug"        validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,min=1,max=5000"`
	Price       *Number `json:"price"       validate:"omitnil,gte=0"`
	Category    *string `json:"category"    validate:"omitnil,min=1,max=100"`
	Inventory   *Number `json:"inventory"   validate:"omitnil,gte=0,integral"`
	Image       *string `json:"image"       validate:"omitnil,max=2048"`
}

// UpdatedProduct is the result of an update together with the slug the product had before it.
type UpdatedProduct struct {
	ProductDto
	PreviousSlug string `json:"-"`
}

// SlugChanged reports whether the update moved the product to a new page path.
func (u UpdatedProduct) SlugChanged() bool {
	return u.PreviousSlug != "" && u.PreviousSlug != u.Slug
}

// ProductFilter narrows FindAll. Empty fields match everything.
type ProductFilter struct {
	// Query matches name or description, case-insensitively.
	Query string
	// Category matches exactly; AllCategories disables the filter.
	Category string
}

// NewValidator returns a validator that knows the "integral" tag used by the DTOs.
// decimal.Decimal fields are validated as float64, so numeric tags such as gte apply to them.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("integral", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f) && f <= math.MaxInt32
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return v
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func toDto(p *store.Product) *ProductDto {
	return &ProductDto{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Inventory:   p.Inventory,
		Image:       p.Image,
		LastUpdated: p.LastUpdated,
		StockStatus: StockStatusOf(p.Inventory),
	}
}

func toNewProduct(dto ProductCreateDto) store.NewProduct {
	return store.NewProduct{
		Name:        dto.Name,
		Slug:        dto.Slug,
		Description: dto.Description,
		Price:       float64(*dto.Price),
		Category:    dto.Category,
		Inventory:   int(*dto.Inventory),
		Image:       dto.Image,
	}
}

func toPatch(dto ProductUpdateDto) store.ProductPatch {
	patch := store.ProductPatch{
		Name:        dto.Name,
		Slug:        dto.Slug,
		Description: dto.Description,
		Category:    dto.Category,
		Image:       dto.Image,
	}
	if dto.Price != nil {
		price := float64(*dto.Price)
		patch.Price = &price
	}
	if dto.Inventory != nil {
		inventory := int(*dto.Inventory)
		patch.Inventory = &inventory
	}
	return patch
}
