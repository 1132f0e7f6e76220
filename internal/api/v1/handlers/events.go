package handlers

import (
	"task-manager/internal/middleware"
	myws "task-manager/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade menolak request biasa ke endpoint websocket.
func (h *Handler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// TaskEvents streams the caller's task events until the client goes away.
func (h *Handler) TaskEvents() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user := middleware.CurrentUserFrom(func(key string) interface{} { return conn.Locals(key) })
		if user == nil {
			conn.Close()
			return
		}

		client := &myws.Client{Owner: user.ID, Conn: conn}
		if !h.hub.Register(client) {
			conn.Close()
			return
		}
		defer h.hub.Unregister(client)

		// pesan dari client tidak dipakai, hanya untuk mendeteksi disconnect
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
