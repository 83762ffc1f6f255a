package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts the storefront API under router.
func Register(router fiber.Router, voice *VoiceHandler, cart *CartHandler) {
	v := router.Group("/voice")
	v.Post("/command", voice.ProcessCommand)
	v.Get("/candidates", voice.Candidates)
	v.Delete("/candidates", voice.ClearCandidates)

	c := router.Group("/cart")
	c.Get("/", cart.Get)
	c.Delete("/", cart.Clear)
	c.Post("/items", cart.AddItem)
	c.Patch("/items/:id", cart.UpdateQuantity)
	c.Delete("/items/:id", cart.RemoveItem)
}
