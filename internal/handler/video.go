package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/armelgeek/heysprech-api/internal/model"
	"github.com/armelgeek/heysprech-api/internal/service"
	"github.com/armelgeek/heysprech-api/internal/store"
	"github.com/armelgeek/heysprech-api/pkg/response"
)

type VideoHandler struct {
	service   *service.VideoService
	validator *validator.Validate
}

func NewVideoHandler(svc *service.VideoService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/videos: download the audio, create the job and
// queue it for transcription.
func (h *VideoHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.Submit(c.Context(), req.YoutubeID)
	if err != nil {
		if errors.Is(err, service.ErrIngestion) {
			return response.IngestionError(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, model.SubmitVideoResponse{
		JobID:     job.ID,
		YoutubeID: job.SourceRef,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	})
}

// Get handles GET /api/videos/:id
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Get(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	resp, err := service.ToResponse(job)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, resp)
}

// List handles GET /api/videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	jobs, err := h.service.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	out := make([]*model.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp, err := service.ToResponse(job)
		if err != nil {
			return response.ServiceError(c, err.Error())
		}
		out = append(out, resp)
	}
	return response.OK(c, out)
}

// Delete handles DELETE /api/videos/:id. Jobs currently processing cannot
// be deleted.
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.service.Delete(c.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, store.ErrJobProcessing) {
			return response.Conflict(c, "Job is currently processing")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.DeleteVideoResponse{Success: true, JobID: jobID})
}
