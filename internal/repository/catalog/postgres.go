package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/product"
)

// BrandModel is a row of brands.
type BrandModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func (BrandModel) TableName() string { return "brands" }

// CategoryModel is a row of categories.
type CategoryModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func (CategoryModel) TableName() string { return "categories" }

// OfferModel is a row of offers.
type OfferModel struct {
	ID           uint     `gorm:"primaryKey"`
	ProductURN   string   `gorm:"column:product_urn;index"`
	Price        *float64 `gorm:"type:numeric(12,2)"`
	Currency     string
	Availability string
	URL          string
}

func (OfferModel) TableName() string { return "offers" }

// AttributeModel is a product property. Variant rows are the attributes a
// concrete variant was picked by.
type AttributeModel struct {
	ID         uint   `gorm:"primaryKey"`
	ProductURN string `gorm:"column:product_urn;index"`
	Name       string
	Value      string
	Variant    bool
}

func (AttributeModel) TableName() string { return "product_attributes" }

// ProductModel is a row of products with its associations.
type ProductModel struct {
	URN         string `gorm:"column:urn;primaryKey"`
	SchemaType  string `gorm:"column:schema_type;default:Product"`
	Name        string
	Description string
	URL         string
	Image       string
	VariesBy    string `gorm:"column:varies_by"` // comma separated
	BrandID     *uint
	Brand       *BrandModel
	CategoryID  *uint
	Category    *CategoryModel
	Offers      []OfferModel     `gorm:"foreignKey:ProductURN;references:URN"`
	Attributes  []AttributeModel `gorm:"foreignKey:ProductURN;references:URN"`
}

func (ProductModel) TableName() string { return "products" }

// Postgres reads products from the relational catalog.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres creates the gorm-backed catalog.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// GetByURNs loads all URNs with one query per association.
func (p *Postgres) GetByURNs(ctx context.Context, urns []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(urns))
	if len(urns) == 0 {
		return out, nil
	}

	var rows []ProductModel
	err := p.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		Preload("Offers").
		Preload("Attributes").
		Where("urn IN ?", urns).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w: %w", domain.ErrBackend, err)
	}

	for i := range rows {
		raw, err := json.Marshal(toItem(&rows[i]))
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", rows[i].URN, err)
		}
		out[rows[i].URN] = raw
	}
	return out, nil
}

func toItem(m *ProductModel) product.Item {
	it := product.Item{
		Type:        m.SchemaType,
		ID:          m.URN,
		Name:        m.Name,
		Description: m.Description,
		URL:         m.URL,
	}
	if it.Type == "" {
		it.Type = product.TypeProduct
	}
	if m.Image != "" {
		it.Image, _ = json.Marshal(m.Image)
	}
	if m.Brand != nil && m.Brand.Name != "" {
		it.Brand = &product.Brand{Type: "Brand", Name: m.Brand.Name}
	}
	if m.Category != nil {
		it.Category = m.Category.Name
	}
	for _, o := range m.Offers {
		it.Offers = append(it.Offers, product.Offer{
			Type:          "Offer",
			Price:         o.Price,
			PriceCurrency: o.Currency,
			Availability:  o.Availability,
			URL:           o.URL,
		})
	}
	for _, a := range m.Attributes {
		if a.Variant {
			if it.VariantAttributes == nil {
				it.VariantAttributes = make(map[string]any)
			}
			it.VariantAttributes[a.Name] = a.Value
			continue
		}
		it.AdditionalProperty = append(it.AdditionalProperty, product.Property{
			Type:  "PropertyValue",
			Name:  a.Name,
			Value: a.Value,
		})
	}
	if m.VariesBy != "" {
		for _, v := range strings.Split(m.VariesBy, ",") {
			if v = strings.TrimSpace(v); v != "" {
				it.VariesBy = append(it.VariesBy, v)
			}
		}
	}
	return it
}
