package models

import (
	"github.com/google/uuid"
)

// Category groups products. Only products of hamper-eligible categories may
// go into a hamper.
type Category struct {
	BaseModel
	Name           string    `gorm:"uniqueIndex;not null" json:"name"`
	Description    string    `json:"description"`
	Image          string    `json:"image"`
	HamperEligible bool      `json:"hamper_eligible"`
	Products       []Product `json:"products,omitempty"`
}

type Product struct {
	BaseModel
	Name        string    `gorm:"index;not null" json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	CategoryID  uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	Images      []string  `gorm:"serializer:json" json:"images"`
	Featured    bool      `gorm:"index" json:"featured"`
	SugarFree   bool      `json:"sugar_free"`
}

// HamperEligible reports whether the loaded category allows the product in a hamper.
func (p *Product) HamperEligible() bool {
	return p.Category != nil && p.Category.HamperEligible
}
