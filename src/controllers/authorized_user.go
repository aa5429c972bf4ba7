package controllers

import (
	"encoding/json"
	"fmt"

	"go-order-graphql/src/services/order/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthorizedUserHeader carries the caller the gateway authenticated, as
// {"id": "<uuid>", "roles": ["..."]}.
const AuthorizedUserHeader = "Authorized-User"

// authorizedUser reads the Authorized-User header. ok is false when the
// request carries none.
func authorizedUser(c *fiber.Ctx) (user domain.AuthorizedUser, ok bool, err error) {
	raw := c.Get(AuthorizedUserHeader)
	if raw == "" {
		return domain.AuthorizedUser{}, false, nil
	}
	var header struct {
		ID    string   `json:"id"`
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return domain.AuthorizedUser{}, false, fmt.Errorf("%s header must be a JSON object", AuthorizedUserHeader)
	}
	id, err := uuid.Parse(header.ID)
	if err != nil {
		return domain.AuthorizedUser{}, false, fmt.Errorf("%s header id must be a UUID", AuthorizedUserHeader)
	}
	return domain.AuthorizedUser{ID: id, Roles: header.Roles}, true, nil
}
