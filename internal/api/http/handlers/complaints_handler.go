package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-access/internal/api/dto"
	"github.com/spec-kit/marketplace-access/internal/auth"
	"github.com/spec-kit/marketplace-access/internal/domain"
	"github.com/spec-kit/marketplace-access/internal/service"
	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

// ComplaintsHandler exposes complaint lifecycle endpoints. All scoping and
// transition decisions live in the service; the handler only parses.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaintService}
}

// List handles GET /complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewAuthentication("authentication required")
	}

	filter := service.ListFilter{}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			status := domain.ComplaintStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return errorutil.NewValidation("unknown status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	page := parseIntQuery(c.Query("page"), 1)
	perPage := parseIntQuery(c.Query("page_size"), 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	complaints, total, err := h.complaints.List(c.Context(), principal.Account, filter)
	if err != nil {
		return err
	}

	items := make([]dto.ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		items = append(items, dto.NewComplaintResponse(&complaints[i]))
	}
	return c.JSON(dto.ComplaintListResponse{
		Data: items,
		Meta: dto.NewListMeta(total, page, perPage),
	})
}

// Get handles GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewAuthentication("authentication required")
	}
	complaint, err := h.complaints.Get(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// Create handles POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewAuthentication("authentication required")
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	complaint, err := h.complaints.Submit(c.Context(), principal.Account, service.SubmitInput{
		Category:    req.Category,
		Title:       req.Title,
		Details:     req.Details,
		SubjectType: req.SubjectType,
		SubjectID:   req.SubjectID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

// Apply handles PATCH /complaints/:id.
func (h *ComplaintsHandler) Apply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewAuthentication("authentication required")
	}
	var req dto.ApplyComplaintActionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Action == "" {
		return errorutil.NewValidation("action required", nil)
	}

	complaint, err := h.complaints.Apply(c.Context(), principal.Account, c.Params("id"), req.Action, service.ApplyInput{
		Notes:             req.Notes,
		HandlerID:         req.HandlerID,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplaintResponse(complaint)})
}

func parseIntQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
