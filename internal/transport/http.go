package transport

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/app"
	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler holds all HTTP handlers for the campaign API.
type Handler struct {
	svc *app.CampaignService
	log *slog.Logger
}

// NewHandler wires up a Handler with its dependencies.
func NewHandler(svc *app.CampaignService, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts all routes onto the given Fiber router.
func (h *Handler) Register(router fiber.Router) {
	router.Post("/campaigns", h.CreateCampaign)
	router.Get("/campaigns/:id", h.GetCampaign)
	router.Post("/campaigns/:id/dispatch", h.DispatchCampaign)
	router.Post("/campaigns/:id/requeue", h.RequeueCampaign)
}

// ── Campaign API ──────────────────────────────────────────────────────────────

type recipientPayload struct {
	DestAddr   string            `json:"dest_addr"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type createCampaignRequest struct {
	TenantID   string             `json:"tenant_id"`
	Name       string             `json:"name"`
	Body       string             `json:"body"`
	SenderID   string             `json:"sender_id"`
	Recipients []recipientPayload `json:"recipients"`
}

type createCampaignResponse struct {
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
	Recipients int    `json:"recipients"`
}

// CreateCampaign composes a campaign and its recipient ledger rows.
//
// POST /campaigns
// Body: { "tenant_id": "...", "name": "...", "body": "...", "sender_id": "...",
//
//	"recipients": [{ "dest_addr": "...", "attributes": {...} }, ...] }
func (h *Handler) CreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Name == "" || req.Body == "" || req.SenderID == "" || len(req.Recipients) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, body, sender_id and recipients are required"})
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tenant_id must be a valid UUID"})
	}

	recipients := make([]app.RecipientInput, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, app.RecipientInput{
			DestAddr:   r.DestAddr,
			Attributes: r.Attributes,
		})
	}

	campaign, queued, err := h.svc.CreateCampaign(c.Context(), app.CreateCampaignRequest{
		TenantID:   tenantID,
		Name:       req.Name,
		Body:       req.Body,
		SenderID:   req.SenderID,
		Recipients: recipients,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoRecipients) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "no valid recipients after normalization"})
		}
		h.log.Error("create campaign", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(createCampaignResponse{
		CampaignID: campaign.ID.String(),
		Status:     string(campaign.Status),
		Recipients: queued,
	})
}

type campaignStatsResponse struct {
	CampaignID string           `json:"campaign_id"`
	Name       string           `json:"name"`
	SenderID   string           `json:"sender_id"`
	Status     string           `json:"status"`
	Total      int64            `json:"total"`
	Counts     map[string]int64 `json:"counts"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// GetCampaign returns a campaign with its per-state recipient counts.
//
// GET /campaigns/:id
func (h *Handler) GetCampaign(c *fiber.Ctx) error {
	campaignID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid UUID"})
	}

	details, err := h.svc.Details(c.Context(), campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		}
		h.log.Error("get campaign", "campaign_id", campaignID, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	counts := make(map[string]int64, len(details.Stats))
	for state, n := range details.Stats {
		counts[string(state)] = n
	}

	return c.JSON(campaignStatsResponse{
		CampaignID: details.Campaign.ID.String(),
		Name:       details.Campaign.Name,
		SenderID:   details.Campaign.SenderID,
		Status:     string(details.Campaign.Status),
		Total:      details.Total,
		Counts:     counts,
		CreatedAt:  details.Campaign.CreatedAt,
		UpdatedAt:  details.Campaign.UpdatedAt,
	})
}

// DispatchCampaign releases a campaign to the dispatch queue.
//
// POST /campaigns/:id/dispatch
func (h *Handler) DispatchCampaign(c *fiber.Ctx) error {
	campaignID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid UUID"})
	}

	if err := h.svc.Dispatch(c.Context(), campaignID); err != nil {
		switch {
		case errors.Is(err, domain.ErrCampaignNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		case errors.Is(err, domain.ErrInvalidStatus):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			h.log.Error("dispatch campaign", "campaign_id", campaignID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"campaign_id": campaignID.String(), "status": "dispatching"})
}

type requeueResponse struct {
	CampaignID string `json:"campaign_id"`
	Requeued   int64  `json:"requeued"`
}

// RequeueCampaign resets a campaign's failed recipients to pending so
// the campaign can be dispatched again.
//
// POST /campaigns/:id/requeue
func (h *Handler) RequeueCampaign(c *fiber.Ctx) error {
	campaignID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid UUID"})
	}

	n, err := h.svc.RequeueFailed(c.Context(), campaignID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCampaignNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
		case errors.Is(err, domain.ErrInvalidStatus):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			h.log.Error("requeue campaign", "campaign_id", campaignID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}
	}

	return c.JSON(requeueResponse{CampaignID: campaignID.String(), Requeued: n})
}
