package models

import "github.com/google/uuid"

// MaxFeatured bounds each featured list on the homepage.
const MaxFeatured = 4

// HomePageConfig stores homepage highlights managed via admin panel.
// There should be only one row (singleton pattern).
type HomePageConfig struct {
	BaseModel
	FeaturedCategoryIDs []uuid.UUID `gorm:"serializer:json" json:"featured_category_ids"`
	FeaturedProductIDs  []uuid.UUID `gorm:"serializer:json" json:"featured_product_ids"`
}
