package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
)

type VoiceHandler struct {
	manager *storefront.Manager
	log     *zap.Logger
}

func NewVoiceHandler(manager *storefront.Manager, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		manager: manager,
		log:     log,
	}
}

type CommandRequest struct {
	Text string `json:"text"`
}

// ProcessCommand runs one typed or transcribed utterance and returns what it
// did. The same effects are pushed to the client's open sockets.
func (h *VoiceHandler) ProcessCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	client, err := h.manager.Client(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return err
	}

	res, err := client.Assistant.Handle(c.UserContext(), req.Text)
	if err != nil {
		h.log.Warn("Failed to process voice command", zap.String("client_id", client.ID), zap.Error(err))
		return err
	}
	return c.JSON(res)
}

func (h *VoiceHandler) Candidates(c *fiber.Ctx) error {
	client, err := h.manager.Client(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"candidates": client.Assistant.Candidates()})
}

func (h *VoiceHandler) ClearCandidates(c *fiber.Ctx) error {
	client, err := h.manager.Client(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return err
	}
	client.Assistant.ClearCandidates(c.UserContext())
	return c.SendStatus(fiber.StatusNoContent)
}
