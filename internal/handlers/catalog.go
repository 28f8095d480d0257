package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/vitrina/internal/kv"
	"github.com/example/vitrina/internal/middleware"
	"github.com/example/vitrina/internal/models"
	"github.com/example/vitrina/internal/utils"
)

// CatalogHandler serves categories, the faceted product listing and reviews.
type CatalogHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB, rdb *redis.Client) *CatalogHandler {
	return &CatalogHandler{db: db, rdb: rdb}
}

// ListCategories returns all categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db.Find(&categories).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": categories})
}

// Attribute facets accepted as both single-value and comma-separated params.
var facetNames = []string{"brand", "color", "size", "feature"}

// ListProducts returns a filtered, sorted, paginated product listing. The
// whole payload is cached in redis for 60 seconds keyed by the query
// fingerprint; cache errors are ignored.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	cacheKey := productsCacheKey(c)
	if cached, err := h.rdb.Get(c.Context(), cacheKey).Result(); err == nil {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	query := h.db.Model(&models.Product{})

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category_id IN (SELECT id FROM categories WHERE slug = ?)", category)
	}
	if priceMin := c.QueryFloat("priceMin", -1); priceMin >= 0 {
		query = query.Where("price >= ?", priceMin)
	}
	if priceMax := c.QueryFloat("priceMax", -1); priceMax >= 0 {
		query = query.Where("price <= ?", priceMax)
	}

	for _, name := range facetNames {
		values := splitParam(c.Query(name + "s"))
		if single := strings.TrimSpace(c.Query(name)); single != "" {
			values = append(values, single)
		}
		if len(values) > 0 {
			query = query.Where(
				"EXISTS (SELECT 1 FROM product_attributes pa WHERE pa.product_id = products.id AND pa.name = ? AND pa.value IN ?)",
				name, values)
		}
	}

	if tags := splitParam(c.Query("tags")); len(tags) > 0 {
		query = query.Where("tag IN ?", tags)
	}
	if collections := splitParam(c.Query("collections")); len(collections) > 0 {
		query = query.Where("collection IN ?", collections)
	}

	switch c.Query("sort") {
	case "price_asc":
		query = query.Order("price asc")
	case "price_desc":
		query = query.Order("price desc")
	case "new":
		query = query.Order("created_at desc")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }).
		Preload("Attributes").
		Preload("Category").
		Limit(pg.Size).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	ratings, err := h.ratingAggregates(productIDs(products))
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(products))
	for _, p := range products {
		items = append(items, h.listItem(p, ratings[p.ID]))
	}

	totalPages := int(math.Max(1, math.Ceil(float64(total)/float64(pg.Size))))
	payload := fiber.Map{
		"items":      items,
		"page":       pg.Page,
		"pageSize":   pg.Size,
		"total":      total,
		"totalPages": totalPages,
	}

	if encoded, err := json.Marshal(payload); err == nil {
		h.rdb.Set(c.Context(), cacheKey, encoded, kv.ProductCacheTTL)
	}

	return c.JSON(payload)
}

// GetProduct returns the full product page data by slug.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_params")
	}

	var product models.Product
	if err := h.db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }).
		Preload("Attributes").
		Preload("Category").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		First(&product, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "not_found")
		}
		return err
	}

	ratings, err := h.ratingAggregates([]uint{product.ID})
	if err != nil {
		return err
	}

	item := h.listItem(product, ratings[product.ID])
	item["description"] = product.Description
	item["attributes"] = product.Attributes
	item["reviews"] = product.Reviews

	return c.JSON(fiber.Map{"product": item})
}

type reviewRequest struct {
	Rating int     `json:"rating"`
	Title  *string `json:"title"`
	Body   string  `json:"body"`
}

// CreateReview appends a product review, attributed to the caller when a
// valid bearer token was presented.
func (h *CatalogHandler) CreateReview(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}
	if req.Rating < 1 || req.Rating > 5 || len(req.Body) < 3 || len(req.Body) > 2000 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}
	if req.Title != nil && len(*req.Title) > 120 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid_body")
	}

	var product models.Product
	if err := h.db.Select("id").First(&product, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "not_found")
		}
		return err
	}

	review := models.Review{
		ProductID: product.ID,
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
	}
	if userID, ok := middleware.GetCurrentUserID(c); ok {
		review.UserID = &userID
	}

	if err := h.db.Create(&review).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"review": review})
}

// ListCollections returns distinct collections with a cover image.
func (h *CatalogHandler) ListCollections(c *fiber.Ctx) error {
	var collections []string
	if err := h.db.Model(&models.Product{}).
		Where("collection IS NOT NULL").
		Distinct("collection").
		Limit(12).
		Pluck("collection", &collections).Error; err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(collections))
	for _, collection := range collections {
		item := fiber.Map{"collection": collection}
		var product models.Product
		if err := h.db.
			Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc").Limit(1) }).
			First(&product, "collection = ?", collection).Error; err == nil && len(product.Images) > 0 {
			item["image"] = product.Images[0].URL
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"items": items})
}

type ratingAggregate struct {
	Avg   float64
	Count int64
}

func (h *CatalogHandler) ratingAggregates(ids []uint) (map[uint]ratingAggregate, error) {
	result := make(map[uint]ratingAggregate, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []struct {
		ProductID uint
		Avg       float64
		Count     int64
	}
	if err := h.db.Model(&models.Review{}).
		Select("product_id, AVG(rating) as avg, COUNT(*) as count").
		Where("product_id IN ?", ids).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ProductID] = ratingAggregate{Avg: row.Avg, Count: row.Count}
	}
	return result, nil
}

// listItem flattens a product row into the listing shape: first image,
// feature values, review aggregate and a derived discount tag.
func (h *CatalogHandler) listItem(p models.Product, rating ratingAggregate) fiber.Map {
	var discountTag *string
	if p.OriginalPrice != nil && *p.OriginalPrice > p.Price {
		pct := math.Round((*p.OriginalPrice - p.Price) / *p.OriginalPrice * 100)
		label := "SALE"
		if pct >= 25 {
			label = "SUPER SALE"
		}
		discountTag = &label
	}

	tags := make([]string, 0, 2)
	if p.Tag != nil {
		tags = append(tags, *p.Tag)
	}
	if discountTag != nil {
		tags = append(tags, *discountTag)
	}

	tag := p.Tag
	if discountTag != nil {
		tag = discountTag
	}

	features := make([]string, 0)
	for _, attr := range p.Attributes {
		if attr.Name == "feature" {
			features = append(features, attr.Value)
		}
	}

	images := make([]fiber.Map, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, fiber.Map{"url": img.URL})
	}

	var ratingValue *float64
	if rating.Count > 0 {
		ratingValue = &rating.Avg
	}

	return fiber.Map{
		"id":            p.ID,
		"name":          p.Name,
		"slug":          p.Slug,
		"price":         p.Price,
		"originalPrice": p.OriginalPrice,
		"sku":           p.SKU,
		"stock":         p.Stock,
		"collection":    p.Collection,
		"category":      p.Category,
		"images":        images,
		"features":      features,
		"tag":           tag,
		"tags":          tags,
		"rating":        ratingValue,
		"reviewsCount":  rating.Count,
	}
}

func productIDs(products []models.Product) []uint {
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func productsCacheKey(c *fiber.Ctx) string {
	params := []string{
		"page", "pageSize", "q", "category", "priceMin", "priceMax", "sort",
		"brand", "color", "size", "feature", "brands", "colors", "sizes",
		"features", "tags", "collections",
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, c.Query(p))
	}
	return fmt.Sprintf("products:%s", strings.Join(parts, ":"))
}
