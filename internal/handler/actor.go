package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/talentgrid/interview-engine/internal/domain"
)

// Identity headers are injected by the platform gateway after authentication;
// this service only interprets them.
const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

func actorFromRequest(c *fiber.Ctx) (domain.Actor, error) {
	id := strings.TrimSpace(c.Get(headerActorID))
	if id == "" {
		return domain.Actor{}, fmt.Errorf("%w: %s header is required", domain.ErrValidation, headerActorID)
	}

	role, err := domain.ParseRoleFromString(c.Get(headerActorRole))
	if err != nil {
		return domain.Actor{}, err
	}

	return domain.Actor{ID: id, Role: role}, nil
}
