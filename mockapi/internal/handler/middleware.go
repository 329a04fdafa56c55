package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	mw "github.com/Astemirdum/library-portal/pkg/middleware"
)

const actorKey = "actor"

var staffRoles = []model.Role{model.RoleLibrarian, model.RoleAdmin}

func (h *Handler) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := mw.BearerToken(c.Request().Header)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
		}
		actor, err := h.auth.ParseToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error()).SetInternal(err)
		}
		c.Set(actorKey, actor)
		return next(c)
	}
}

func requireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := getActor(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
			}
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, errs.ErrForbidden.Error())
		}
	}
}

func getActor(c echo.Context) (model.Actor, error) {
	actor, ok := c.Get(actorKey).(model.Actor)
	if !ok {
		return model.Actor{}, errors.New("no actor in context")
	}
	return actor, nil
}
