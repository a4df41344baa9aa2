package utils

import "github.com/gofiber/fiber/v3"

// WriteError sends err with its status code
func WriteError(c fiber.Ctx, err *APIError) error {
	return c.Status(err.StatusCode).JSON(err)
}

// PaginatedResponse sends items with their pagination window
func PaginatedResponse(c fiber.Ctx, key string, items any, limit, offset, total int, extra fiber.Map) error {
	body := fiber.Map{
		key:      items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}
