package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marketloom/user-api/internal/auth"
	"github.com/marketloom/user-api/internal/cache"
	"github.com/marketloom/user-api/internal/metrics"
	"github.com/marketloom/user-api/internal/middleware"
	"github.com/marketloom/user-api/internal/models"
	"github.com/marketloom/user-api/internal/store"
	apperrors "github.com/marketloom/user-api/pkg/errors"
)

// UserHandler handles user CRUD and credential lifecycle endpoints
type UserHandler struct {
	store  store.UserStore
	cache  *cache.UserCache
	tokens *auth.TokenService
	logger *logrus.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userStore store.UserStore, userCache *cache.UserCache, tokens *auth.TokenService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		store:  userStore,
		cache:  userCache,
		tokens: tokens,
		logger: logger,
	}
}

// Create handles user registration
// @Summary Register a new user
// @Description Create a user record, hash the password and issue a session token
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.CreateUserRequest true "Registration data"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} errors.ErrorResponse "Invalid or incomplete payload"
// @Failure 409 {object} errors.ErrorResponse "Email already registered"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/create [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if len(c.Body()) == 0 || c.BodyParser(&req) != nil {
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", nil))
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		return h.respondError(c, apperrors.NewValidationError(missing))
	}

	// Hash before anything touches the store. A hashing failure is
	// fatal to the operation.
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return h.internalError(c, err, "Failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:        uuid.New().String(),
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  passwordHash,
		Roles:         []string{models.DefaultRole},
		ProfilePicURL: req.ProfilePicURL,
		Reviews:       []models.Review{},
		LikedProducts: []int64{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.Insert(c.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return h.respondError(c, apperrors.NewAppError(apperrors.CodeConflict, "Email already registered", nil))
		}
		return h.internalError(c, err, "Failed to create user")
	}

	token, err := h.tokens.Issue(user.Username, user.Email, user.Roles)
	if err != nil {
		return h.internalError(c, err, "Failed to issue token")
	}
	metrics.RecordTokenIssued()
	h.setTokenCookie(c, token)

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User registered successfully")

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresIn: int(h.tokens.TTL().Seconds()),
	})
}

// Login handles credential verification
// @Summary Log in
// @Description Verify email and password and issue a session token
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} errors.ErrorResponse "Invalid or incomplete payload"
// @Failure 401 {object} errors.ErrorResponse "Invalid credentials"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/login [post]
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if len(c.Body()) == 0 || c.BodyParser(&req) != nil {
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", nil))
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		return h.respondError(c, apperrors.NewValidationError(missing))
	}

	// The same rejection for unknown email and wrong password: no
	// hint about which check failed.
	user, err := h.store.FindByEmail(c.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return h.internalError(c, err, "Failed to look up user for login")
		}
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeUnauthorized, "Invalid email or password", nil))
	}

	if err := auth.ComparePasswordAndHash(req.Password, user.PasswordHash); err != nil {
		h.logger.WithField("user_id", user.UserID).Warn("Login with invalid password")
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeUnauthorized, "Invalid email or password", nil))
	}

	token, err := h.tokens.Issue(user.Username, user.Email, user.Roles)
	if err != nil {
		return h.internalError(c, err, "Failed to issue token")
	}
	metrics.RecordTokenIssued()
	h.setTokenCookie(c, token)

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User logged in successfully")

	return c.JSON(models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresIn: int(h.tokens.TTL().Seconds()),
	})
}

// List returns all users
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/get [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.store.List(c.Context())
	if err != nil {
		return h.internalError(c, err, "Failed to list users")
	}
	return c.JSON(users)
}

// Get returns a single user by id
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} models.User
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 404 {object} errors.ErrorResponse "No such user"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/get/{id} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	if user := h.cache.Get(c.Context(), id); user != nil {
		return c.JSON(user)
	}

	user, err := h.store.FindByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, "User not found", nil))
		}
		return h.internalError(c, err, "Failed to get user")
	}

	h.cache.Set(c.Context(), user)
	return c.JSON(user)
}

// Update applies a partial update to a user
// @Summary Update a user
// @Description Partial update; a submitted password is re-hashed before persistence
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param request body models.UpdateUserRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "matched/modified"
// @Failure 400 {object} errors.ErrorResponse "Invalid or empty payload"
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 404 {object} errors.ErrorResponse "No such user"
// @Failure 409 {object} errors.ErrorResponse "Email already registered"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/update/{id} [patch]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.UpdateUserRequest
	if len(c.Body()) == 0 || c.BodyParser(&req) != nil {
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid request body", nil))
	}
	if req.Empty() {
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "No updatable fields in request", nil))
	}

	var missing []string
	if req.Username != nil && *req.Username == "" {
		missing = append(missing, "username")
	}
	if req.Email != nil && *req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Password != nil && *req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return h.respondError(c, apperrors.NewValidationError(missing))
	}

	patch := store.UserPatch{
		Username:      req.Username,
		Email:         req.Email,
		ProfilePicURL: req.ProfilePicURL,
		Reviews:       req.Reviews,
		LikedProducts: req.LikedProducts,
	}

	// A password-bearing update always re-hashes; neither the plaintext
	// nor a caller-supplied digest is ever persisted as-is.
	if req.Password != nil {
		passwordHash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return h.internalError(c, err, "Failed to hash password")
		}
		patch.PasswordHash = &passwordHash
	}

	result, err := h.store.UpdateByID(c.Context(), id, patch)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return h.respondError(c, apperrors.NewAppError(apperrors.CodeConflict, "Email already registered", nil))
		}
		return h.internalError(c, err, "Failed to update user")
	}
	if !result.Matched {
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, "User not found", nil))
	}

	h.cache.Invalidate(c.Context(), id)

	return c.JSON(fiber.Map{
		"matched":  result.Matched,
		"modified": result.Modified,
	})
}

// Delete removes a user by id
// @Summary Delete a user
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} map[string]interface{} "deleted"
// @Failure 401 {object} errors.ErrorResponse "Not authenticated"
// @Failure 404 {object} errors.ErrorResponse "No such user"
// @Failure 500 {object} errors.ErrorResponse "Internal error"
// @Router /users/delete/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	matched, err := h.store.DeleteByID(c.Context(), id)
	if err != nil {
		return h.internalError(c, err, "Failed to delete user")
	}
	if !matched {
		return h.respondError(c, apperrors.NewAppError(apperrors.CodeNotFound, "User not found", nil))
	}

	h.cache.Invalidate(c.Context(), id)

	h.logger.WithField("user_id", id).Info("User deleted")
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *UserHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
}

func (h *UserHandler) respondError(c *fiber.Ctx, appErr *apperrors.AppError) error {
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}

// internalError hides store and infra failure detail from the caller;
// the wrapped cause is logged, never serialized.
func (h *UserHandler) internalError(c *fiber.Ctx, err error, logMessage string) error {
	appErr := apperrors.WrapError(err, "Something went wrong on the server")
	h.logger.WithError(appErr).Error(logMessage)
	return h.respondError(c, appErr)
}
