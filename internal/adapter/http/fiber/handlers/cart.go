package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/service/cart"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
)

type CartHandler struct {
	manager *storefront.Manager
	log     *zap.Logger
}

func NewCartHandler(manager *storefront.Manager, log *zap.Logger) *CartHandler {
	return &CartHandler{
		manager: manager,
		log:     log,
	}
}

type AddItemRequest struct {
	Product  domain.ProductCandidate `json:"product"`
	Quantity int                     `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) engine(c *fiber.Ctx) (*cart.Engine, error) {
	client, err := h.manager.Client(c.UserContext(), middleware.ClientID(c))
	if err != nil {
		return nil, err
	}
	return client.Cart, nil
}

func (h *CartHandler) Get(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return err
	}
	return c.JSON(engine.Snapshot().View())
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	engine, err := h.engine(c)
	if err != nil {
		return err
	}
	change, err := engine.AddItem(c.UserContext(), req.Product, req.Quantity)
	if err != nil {
		return cartError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"change": change,
		"cart":   engine.Snapshot().View(),
	})
}

func (h *CartHandler) UpdateQuantity(c *fiber.Ctx) error {
	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil || req.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	engine, err := h.engine(c)
	if err != nil {
		return err
	}
	if err := engine.UpdateQuantity(c.UserContext(), c.Params("id"), *req.Quantity); err != nil {
		return cartError(c, err)
	}
	return c.JSON(engine.Snapshot().View())
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return err
	}
	if err := engine.RemoveItem(c.UserContext(), c.Params("id")); err != nil {
		return cartError(c, err)
	}
	return c.JSON(engine.Snapshot().View())
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	engine, err := h.engine(c)
	if err != nil {
		return err
	}
	if err := engine.Clear(c.UserContext()); err != nil {
		return cartError(c, err)
	}
	return c.JSON(engine.Snapshot().View())
}

func cartError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, cart.ErrInvalidProduct), errors.Is(err, cart.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, cart.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, cart.ErrOutOfStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return err
	}
}
