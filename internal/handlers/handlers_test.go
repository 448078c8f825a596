package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/app"
	iauth "github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/auth/providers"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/database/testutil"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/middleware"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/security"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/services"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/mail"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// captureMailer records outbound messages so tests can read verification
// codes and reset tokens.
type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	code := codePattern.FindString(m.sent[len(m.sent)-1].Body)
	require.NotEmpty(t, code)
	return code
}

func (m *captureMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	_, rest, found := strings.Cut(m.sent[len(m.sent)-1].Body, "password: ")
	require.True(t, found)
	token, _, _ := strings.Cut(rest, "\n")
	require.NotEmpty(t, token)
	return token
}

// fixture wires the full HTTP stack against an isolated database.
type fixture struct {
	db     *gorm.DB
	engine *gin.Engine
	mailer *captureMailer
	tokens *iauth.TokenService
	users  *services.UserService
	keys   *services.APIKeyService

	clock *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	mailer := &captureMailer{}
	clock := &testClock{now: time.Now()}

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret: "handlers-test-secret",
		Issuer: "portfolio-api",
		Clock:  clock.Now,
	})
	require.NoError(t, err)

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	verifier, err := services.NewVerificationService(db, mailer,
		services.WithVerificationClock(clock.Now))
	require.NoError(t, err)

	provider, err := providers.NewLocalProvider(db, providers.LocalConfig{Clock: clock.Now})
	require.NoError(t, err)

	resets, err := services.NewPasswordResetService(db, mailer, provider)
	require.NoError(t, err)
	resets.WithClock(clock.Now)

	keys, err := services.NewAPIKeyService(db)
	require.NoError(t, err)

	posts, err := services.NewBlogService(db)
	require.NoError(t, err)

	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	authHandler := NewAuthHandler(users, tokens, verifier, resets, provider, checker)
	keyHandler := NewAPIKeyHandler(keys)
	blogHandler := NewBlogHandler(posts)

	auditCfg := &app.Config{
		Auth: app.AuthConfig{
			JWT:   app.JWTSettings{RefreshTTL: 7 * 24 * time.Hour},
			Local: app.LocalAuthSettings{LockoutThreshold: 5, LockoutDuration: 30 * time.Minute},
		},
		Email: app.EmailConfig{SMTP: app.SMTPConfig{Enabled: true, Host: "smtp.example.com", From: "noreply@example.com"}},
	}
	securityHandler := NewSecurityHandler(security.NewAuditService(db, tokens, auditCfg))

	engine := gin.New()
	engine.Use(middleware.Recovery())

	authn := middleware.Auth(tokens, checker, keys)

	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/resend-verification", authHandler.ResendVerification)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/password-reset/request", authHandler.PasswordResetRequest)
		auth.POST("/password-reset/confirm", authHandler.PasswordResetConfirm)
		auth.GET("/me", authn, authHandler.Me)
		auth.POST("/logout", authn, authHandler.Logout)
	}

	apiKeys := engine.Group("/api/auth/api-keys", authn, middleware.RequirePermission(checker, "apikey.manage"))
	{
		apiKeys.POST("", keyHandler.Create)
		apiKeys.GET("", keyHandler.List)
		apiKeys.PATCH("/:id/toggle", keyHandler.Toggle)
		apiKeys.DELETE("/:id", keyHandler.Delete)
	}

	optionalAuthn := middleware.OptionalAuth(tokens, checker, keys)
	blog := engine.Group("/api/blog")
	{
		blog.GET("", optionalAuthn, blogHandler.List)
		blog.GET("/:slug", optionalAuthn, blogHandler.Get)
		blog.POST("", authn, middleware.RequirePermission(checker, "post.create"), blogHandler.Create)
		blog.PUT("/:slug", authn, middleware.RequirePermission(checker, "post.edit"), blogHandler.Update)
		blog.DELETE("/:slug", authn, middleware.RequirePermission(checker, "post.delete"), blogHandler.Delete)
	}

	adminGroup := engine.Group("/api/admin", authn, middleware.RequirePermission(checker, "system.admin"))
	{
		adminGroup.GET("/security-audit", securityHandler.Audit)
	}

	engine.GET("/health", Health(db))

	return &fixture{
		db:     db,
		engine: engine,
		mailer: mailer,
		tokens: tokens,
		users:  users,
		keys:   keys,
		clock:  clock,
	}
}

func (f *fixture) doJSON(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doLogin(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

// registerAndVerify walks a fresh account through the verification flow.
func (f *fixture) registerAndVerify(t *testing.T, username, email, password string) {
	t.Helper()

	rec := f.doJSON(t, http.MethodPost, "/api/auth/register",
		`{"username":"`+username+`","email":"`+email+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	code := f.mailer.lastCode(t)
	rec = f.doJSON(t, http.MethodPost, "/api/auth/verify-email",
		`{"email":"`+email+`","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// promoteToAdmin flips an account to the seeded admin role.
func (f *fixture) promoteToAdmin(t *testing.T, email string) {
	t.Helper()

	var role models.Role
	require.NoError(t, f.db.Where("name = ?", "admin").Take(&role).Error)
	require.NoError(t, f.db.Model(&models.User{}).
		Where("email = ?", email).
		Update("role_id", role.ID).Error)
}
