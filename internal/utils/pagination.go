package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Size   int
	Offset int
}

// ParsePagination reads page and pageSize query params with sane defaults.
func ParsePagination(c *fiber.Ctx) Pagination {
	page := parseInt(c.Query("page", "1"), 1)
	size := parseInt(c.Query("pageSize", "12"), 12)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 12
	}
	if size > 100 {
		size = 100
	}

	return Pagination{
		Page:   page,
		Size:   size,
		Offset: (page - 1) * size,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
