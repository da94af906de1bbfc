package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/armelgeek/heysprech-api/internal/service"
	"github.com/armelgeek/heysprech-api/pkg/response"
)

type SystemHandler struct {
	service *service.SystemService
}

func NewSystemHandler(svc *service.SystemService) *SystemHandler {
	return &SystemHandler{service: svc}
}

// Status handles GET /api/system/status
func (h *SystemHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.Status(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, status)
}
