package rest

import (
	"github.com/gofiber/fiber/v2"
)

// coded is implemented by the typed errors in pkg/error; anything else maps
// to a 500.
type coded interface {
	error
	ErrCode() string
	StatusCode() int
}

func respondError(c *fiber.Ctx, err error) error {
	if ce, ok := err.(coded); ok {
		return c.Status(ce.StatusCode()).JSON(fiber.Map{
			"code":  ce.ErrCode(),
			"error": ce.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// actorFrom extracts the acting admin identity set by the (external) auth
// layer. Empty means automation.
func actorFrom(c *fiber.Ctx) string {
	return c.Get("X-Actor")
}
