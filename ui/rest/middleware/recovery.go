package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// coded is implemented by the typed errors in pkg/error.
type coded interface {
	error
	ErrCode() string
	StatusCode() int
}

// Recovery turns panics into JSON error responses. A panicked typed error
// keeps its status code; anything else becomes a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			r := recover()
			if r != nil {
				status := fiber.StatusInternalServerError
				code := "INTERNAL_SERVER_ERROR"
				message := fmt.Sprintf("%v", r)

				logrus.Errorf("Panic recovered in middleware: %v", r)

				if ce, ok := r.(coded); ok {
					status = ce.StatusCode()
					code = ce.ErrCode()
					message = ce.Error()
				}

				_ = ctx.Status(status).JSON(fiber.Map{
					"code":  code,
					"error": message,
				})
			}
		}()

		return ctx.Next()
	}
}
