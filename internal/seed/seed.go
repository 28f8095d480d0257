// Package seed populates the catalog with demo data for local development
// and the hosted demo. Idempotent: it tops the catalog up to the target
// count and leaves existing rows alone.
package seed

import (
	"fmt"
	"math/rand"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/vitrina/internal/models"
)

const targetProducts = 100

var (
	categories = []models.Category{
		{Name: "Footwear", Slug: "footwear"},
		{Name: "Legwear", Slug: "legwear"},
		{Name: "Torso", Slug: "torso"},
		{Name: "Headwear", Slug: "headwear"},
		{Name: "Accessories", Slug: "accessories"},
	}

	brands      = []string{"Nike", "Adidas", "Puma", "Under Armour", "New Balance", "Reebok", "Jordan", "Converse"}
	adjectives  = []string{"Pro", "Elite", "Max", "Ultra", "Prime", "Core", "Essential", "Performance"}
	colors      = []string{"Black", "White", "Red", "Blue", "Green", "Gray", "Navy", "Orange"}
	sizes       = []string{"XS", "S", "M", "L", "XL", "XXL"}
	features    = []string{"Breathable", "Waterproof", "Lightweight", "Cushioned", "Reflective"}
	collections = []string{"Street", "Trail", "Court", "Studio"}
	basePrices  = []float64{29.99, 49.99, 79.99, 99.99, 129.99, 159.99, 199.99}

	productTypes = map[string][]string{
		"footwear":    {"Runner", "Trainer", "Sneaker", "Boot"},
		"legwear":     {"Joggers", "Shorts", "Leggings", "Track Pants"},
		"torso":       {"Tee", "Hoodie", "Jacket", "Vest"},
		"headwear":    {"Cap", "Beanie", "Visor", "Headband"},
		"accessories": {"Bag", "Bottle", "Gloves", "Socks"},
	}
)

// Demo seeds categories and products up to the target count.
func Demo(db *gorm.DB) error {
	var total int64
	if err := db.Model(&models.Product{}).Count(&total).Error; err != nil {
		return err
	}
	if total >= targetProducts {
		return nil
	}

	created := make([]models.Category, len(categories))
	for i, cat := range categories {
		created[i] = cat
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&created[i]).Error; err != nil {
			return err
		}
		if created[i].ID == 0 {
			if err := db.First(&created[i], "slug = ?", cat.Slug).Error; err != nil {
				return err
			}
		}
	}

	for i := int64(0); i < targetProducts-total; i++ {
		category := created[rand.Intn(len(created))]
		brand := brands[rand.Intn(len(brands))]
		types := productTypes[category.Slug]
		productType := types[rand.Intn(len(types))]
		adjective := adjectives[rand.Intn(len(adjectives))]
		color := colors[rand.Intn(len(colors))]

		name := fmt.Sprintf("%s %s %s %s", brand, productType, adjective, color)
		slug := fmt.Sprintf("%s-%d", strings.ToLower(strings.ReplaceAll(name, " ", "-")), total+i+1)
		price := basePrices[rand.Intn(len(basePrices))]

		product := models.Product{
			Name:        name,
			Slug:        slug,
			Description: fmt.Sprintf("%s %s built for everyday training.", brand, productType),
			Price:       price,
			SKU:         fmt.Sprintf("SKU-%05d", total+i+1),
			Stock:       10 + rand.Intn(90),
			CategoryID:  &category.ID,
		}

		// Roughly a third of the catalog is on discount.
		if rand.Intn(3) == 0 {
			original := price * (1 + 0.1*float64(1+rand.Intn(5)))
			product.OriginalPrice = &original
		}
		if rand.Intn(2) == 0 {
			collection := collections[rand.Intn(len(collections))]
			product.Collection = &collection
		}

		product.Images = []models.ProductImage{
			{URL: fmt.Sprintf("https://picsum.photos/seed/%s/600/600", slug), DisplayOrder: 0},
		}
		product.Attributes = []models.ProductAttribute{
			{Name: "brand", Value: brand},
			{Name: "color", Value: color},
			{Name: "size", Value: sizes[rand.Intn(len(sizes))]},
			{Name: "feature", Value: features[rand.Intn(len(features))]},
		}

		if err := db.Create(&product).Error; err != nil {
			return err
		}
	}

	return nil
}
