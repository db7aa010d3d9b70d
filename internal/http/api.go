package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/service"
)

const (
	ctxUserID = "user_id"
	ctxToken  = "token"
)

// APIHandler serves a RealWorld compatible user API backed by local storage.
type APIHandler struct {
	users  service.UserService
	tokens *service.TokenService
	logger logrus.FieldLogger
}

func NewAPIHandler(users service.UserService, tokens *service.TokenService, logger logrus.FieldLogger) *APIHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &APIHandler{
		users:  users,
		tokens: tokens,
		logger: logger.WithField("component", "devapi"),
	}
}

func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	api.Use(corsMiddleware())
	{
		api.POST("/users", h.register)
		api.POST("/users/login", h.login)
		api.GET("/user", h.authRequired(), h.currentUser)
		api.PUT("/user", h.authRequired(), h.updateUser)
		// preflight requests are answered by corsMiddleware
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}

type registerRequest struct {
	User struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	} `json:"user"`
}

type loginRequest struct {
	User struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	} `json:"user"`
}

type updateUserRequest struct {
	User struct {
		Email    *string `json:"email" binding:"omitempty,email"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	} `json:"user"`
}

type UserResponse struct {
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Bio      string  `json:"bio"`
	Image    *string `json:"image"`
}

func userToResponse(user *domain.User, token string) gin.H {
	resp := UserResponse{
		Email:    user.Email,
		Token:    token,
		Username: user.Username,
		Bio:      user.Bio,
	}
	if user.Image != "" {
		img := user.Image
		resp.Image = &img
	}
	return gin.H{"user": resp}
}

func errorBody(msgs ...string) gin.H {
	return gin.H{"errors": gin.H{"body": msgs}}
}

func (h *APIHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.User.Username, req.User.Email, req.User.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userToResponse(user, token))
}

func (h *APIHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.User.Email, req.User.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user, token))
}

func (h *APIHandler) currentUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetInt64(ctxUserID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user, c.GetString(ctxToken)))
}

func (h *APIHandler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.GetInt64(ctxUserID), domain.UserChanges{
		Email:    req.User.Email,
		Username: req.User.Username,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user, c.GetString(ctxToken)))
}

// authRequired accepts both "Token <jwt>" and "Bearer <jwt>".
func (h *APIHandler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || (scheme != "Token" && scheme != "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing authorization token"))
			return
		}

		id, err := h.tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid authorization token"))
			return
		}

		c.Set(ctxUserID, id)
		c.Set(ctxToken, token)
		c.Next()
	}
}

func (h *APIHandler) writeBindError(c *gin.Context, err error) {
	if msgs, ok := service.BindingMessages(err); ok {
		c.JSON(http.StatusUnprocessableEntity, errorBody(msgs...))
		return
	}
	c.JSON(http.StatusUnprocessableEntity, errorBody(err.Error()))
}

func (h *APIHandler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, errorBody(verr.Messages...))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorBody("email or password is invalid"))
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, errorBody("user not found"))
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}
