package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/marketloom/user-api/internal/cache"
	"github.com/marketloom/user-api/internal/middleware"
	"github.com/marketloom/user-api/internal/models"
	"github.com/marketloom/user-api/internal/store"
	"github.com/marketloom/user-api/internal/utils"
	apperrors "github.com/marketloom/user-api/pkg/errors"
)

// AdminHandler handles role management, gated behind the admin role
type AdminHandler struct {
	store  store.UserStore
	cache  *cache.UserCache
	logger *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userStore store.UserStore, userCache *cache.UserCache, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		store:  userStore,
		cache:  userCache,
		logger: logger,
	}
}

// SetRoles replaces a user's role set
// @Summary Set a user's roles
// @Description Replace the role set of a user. Admin only. Tokens already issued keep their old roles until expiry.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param request body models.SetRolesRequest true "New role set"
// @Success 200 {object} models.User
// @Failure 400 {object} errors.ErrorResponse "Invalid or empty role set"
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 403 {object} errors.ErrorResponse "Not an admin"
// @Failure 404 {object} errors.ErrorResponse "No such user"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/roles/{id} [put]
func (a *AdminHandler) SetRoles(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.SetRolesRequest
	if len(c.Body()) == 0 || c.BodyParser(&req) != nil {
		return a.respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", nil))
	}

	// Every stored record keeps a non-empty role set.
	roles := utils.DedupeStrings(req.Roles)
	valid := roles[:0]
	for _, role := range roles {
		if role != "" {
			valid = append(valid, role)
		}
	}
	if len(valid) == 0 {
		return a.respondError(c, apperrors.NewValidationError([]string{"roles"}))
	}

	result, err := a.store.UpdateByID(c.Context(), id, store.UserPatch{Roles: valid})
	if err != nil {
		return a.internalError(c, err, "Failed to update roles")
	}
	if !result.Matched {
		return a.respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, "User not found", nil))
	}

	a.cache.Invalidate(c.Context(), id)

	a.logger.WithFields(logrus.Fields{
		"user_id": id,
		"roles":   valid,
		"admin":   middleware.GetUsername(c),
	}).Info("User roles updated")

	user, err := a.store.FindByID(c.Context(), id)
	if err != nil {
		return a.internalError(c, err, "Failed to reload user after role update")
	}

	return c.JSON(user)
}

func (a *AdminHandler) respondError(c *fiber.Ctx, appErr *apperrors.AppError) error {
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}

func (a *AdminHandler) internalError(c *fiber.Ctx, err error, logMessage string) error {
	appErr := apperrors.WrapError(err, "Something went wrong on the server")
	a.logger.WithError(appErr).Error(logMessage)
	return a.respondError(c, appErr)
}
