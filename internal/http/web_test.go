package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realworld-settings/internal/profileapi"
	"realworld-settings/internal/repository/memory"
	"realworld-settings/internal/session"
)

const cookieName = "test_session"

type webFixture struct {
	router   *gin.Engine
	api      *gin.Engine
	sessions *session.Manager
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	api := newAPIRouter(t)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger, _ := logtest.NewNullLogger()
	client := profileapi.NewClient(profileapi.Config{BaseURL: srv.URL + "/api"}, srv.Client(), logger)
	sessions := session.NewManager(memory.NewSessionRepository(), time.Hour, logger)

	router := gin.New()
	RegisterOps(router, nil)
	NewWebHandler(client, sessions, CookieConfig{Name: cookieName}, "/login", logger).RegisterRoutes(router)
	return &webFixture{router: router, api: api, sessions: sessions}
}

func (f *webFixture) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

func (f *webFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	registerAnn(t, f.api)
	rec := f.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"password1"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/settings", rec.Header().Get("Location"))
	return sessionCookie(t, rec)
}

func TestSettingsWithoutSessionRendersEmptyForm(t *testing.T) {
	f := newWebFixture(t)

	rec := f.do(http.MethodGet, "/settings", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="username" placeholder="Username" value=""`)
	assert.NotContains(t, rec.Body.String(), `class="status`)
}

func TestSettingsShowsFetchedProfile(t *testing.T) {
	f := newWebFixture(t)
	cookie := f.login(t)

	rec := f.do(http.MethodGet, "/settings", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="ann"`)
	assert.Contains(t, rec.Body.String(), `value="a@b.com"`)
}

func TestSettingsUpdate(t *testing.T) {
	f := newWebFixture(t)
	cookie := f.login(t)

	rec := f.do(http.MethodPost, "/settings", url.Values{
		"image":    {""},
		"username": {"ann2"},
		"bio":      {"hi2"},
		"email":    {"a@b.com"},
		"password": {""},
	}, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Settings updated successfully!")
	assert.Contains(t, body, `status-succeeded`)
	assert.Contains(t, body, `value="ann2"`)
	assert.Contains(t, body, ">hi2</textarea>")

	rec = f.do(http.MethodGet, "/settings", nil, cookie)
	assert.Contains(t, rec.Body.String(), `value="ann2"`)
}

func TestSettingsValidationFailureIsSilent(t *testing.T) {
	f := newWebFixture(t)
	cookie := f.login(t)

	rec := f.do(http.MethodPost, "/settings", url.Values{
		"username": {"ann"},
		"email":    {"nope"},
	}, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `class="status`)
	assert.Contains(t, rec.Body.String(), `value="nope"`)
}

func TestLogoutClearsSessionAndRedirects(t *testing.T) {
	f := newWebFixture(t)
	cookie := f.login(t)

	rec := f.do(http.MethodPost, "/logout", nil, cookie)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	_, err := f.sessions.Load(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	rec = f.do(http.MethodGet, "/settings", nil, cookie)
	assert.Contains(t, rec.Body.String(), `name="username" placeholder="Username" value=""`)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newWebFixture(t)
	registerAnn(t, f.api)

	rec := f.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email or password is invalid.")
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginPageAndHealth(t *testing.T) {
	f := newWebFixture(t)

	rec := f.do(http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/login"`)

	rec = f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}
