package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/profileapi"
	"realworld-settings/internal/session"
	"realworld-settings/internal/settings"
)

//go:embed templates/*.html
var templatesFS embed.FS

const ctxSessionID = "session_id"

// ProfileClient is the remote API used by the browser-facing pages.
type ProfileClient interface {
	profileapi.API
	Login(ctx context.Context, email, password string) (*domain.Profile, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

// WebHandler serves the settings and login pages.
type WebHandler struct {
	client    ProfileClient
	sessions  *session.Manager
	cookie    CookieConfig
	loginPath string
	logger    logrus.FieldLogger
}

func NewWebHandler(client ProfileClient, sessions *session.Manager, cookie CookieConfig, loginPath string, logger logrus.FieldLogger) *WebHandler {
	if loginPath == "" {
		loginPath = settings.DefaultLoginPath
	}
	if cookie.Name == "" {
		cookie.Name = "settings_session"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &WebHandler{
		client:    client,
		sessions:  sessions,
		cookie:    cookie,
		loginPath: loginPath,
		logger:    logger,
	}
}

func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	web := router.Group("/")
	web.Use(h.sessionCookie())
	{
		web.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/settings") })
		web.GET("/settings", h.showSettings)
		web.POST("/settings", h.updateSettings)
		web.POST("/logout", h.logout)
		web.GET(h.loginPath, h.showLogin)
		web.POST(h.loginPath, h.login)
	}
}

func (h *WebHandler) sessionCookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(h.cookie.Name); err == nil {
			c.Set(ctxSessionID, id)
		}
		c.Next()
	}
}

func (h *WebHandler) newForm(c *gin.Context, nav settings.Navigator) *settings.Form {
	scope := h.sessions.Scope(c.GetString(ctxSessionID))
	return settings.New(h.client, scope, nav, settings.Options{
		LoginPath: h.loginPath,
		Logger:    h.logger,
	})
}

type settingsView struct {
	Draft  domain.ProfileDraft
	Status domain.UpdateStatus
}

func (h *WebHandler) render(c *gin.Context, code int, form *settings.Form) {
	draft := form.Draft()
	draft.NewPassword = ""
	c.HTML(code, "settings.html", settingsView{Draft: draft, Status: form.Status()})
}

func (h *WebHandler) showSettings(c *gin.Context) {
	form := h.newForm(c, nil)
	defer form.Close()

	// fetch failures are logged by the form and leave the fields empty
	_ = form.Mount(c.Request.Context())
	h.render(c, http.StatusOK, form)
}

func (h *WebHandler) updateSettings(c *gin.Context) {
	form := h.newForm(c, nil)
	defer form.Close()

	form.Apply(domain.ProfileDraft{
		ImageURL:    c.PostForm("image"),
		Username:    c.PostForm("username"),
		Bio:         c.PostForm("bio"),
		Email:       c.PostForm("email"),
		NewPassword: c.PostForm("password"),
	})

	if err := form.Submit(c.Request.Context()); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, settings.ErrRequestInFlight) {
			code = http.StatusConflict
		}
		h.render(c, code, form)
		return
	}
	h.render(c, http.StatusOK, form)
}

func (h *WebHandler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)

	form := h.newForm(c, settings.NavigatorFunc(func(path string) {
		c.Redirect(http.StatusSeeOther, path)
	}))
	if err := form.Logout(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("logout")
	}
}

type loginView struct {
	LoginPath string
	Email     string
	Error     string
}

func (h *WebHandler) showLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", loginView{LoginPath: h.loginPath})
}

func (h *WebHandler) login(c *gin.Context) {
	email := c.PostForm("email")
	view := loginView{LoginPath: h.loginPath, Email: email}

	profile, err := h.client.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		code := http.StatusBadGateway
		view.Error = "Login failed. Please try again."
		if f, ok := profileapi.AsFailure(err); ok {
			switch f.Kind {
			case profileapi.FailureUnauthorized, profileapi.FailureValidation, profileapi.FailureStatus:
				if f.StatusCode < http.StatusInternalServerError {
					code = http.StatusUnauthorized
					view.Error = "Email or password is invalid."
				}
			case profileapi.FailureNoResponse, profileapi.FailureRequest, profileapi.FailureDecode:
			}
		}
		h.logger.WithError(err).Warn("login failed")
		c.HTML(code, "login.html", view)
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), domain.Credential(profile.Token))
	if err != nil {
		h.logger.WithError(err).Error("start session")
		view.Error = "Login failed. Please try again."
		c.HTML(http.StatusInternalServerError, "login.html", view)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, sess.ID, int(h.sessions.TTL().Seconds()), "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusSeeOther, "/settings")
}

// RegisterOps adds health and metrics endpoints.
func RegisterOps(router *gin.Engine, metrics http.Handler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
}
