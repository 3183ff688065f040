package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"furk/handlers"
	"furk/middleware"
	"furk/services/admin"
	"furk/services/api"
	"furk/services/auth"
	"furk/services/booking"
	"furk/services/catalog"
	"furk/services/identity"
	"furk/services/lazyload"
	"furk/services/merchant"
	"furk/services/notification"
	"furk/services/profile"
	"furk/services/progress"
	"furk/services/referral"
	"furk/services/review"
	"furk/services/session"
	"furk/services/transaction"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeProvider signs everyone in with the role it was built with.
type fakeProvider struct {
	role string
}

func (f *fakeProvider) token() string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":              "sub-1",
		"cognito:username": "user-1",
		"email":            "merchant@furk.app",
		"custom:role":      f.role,
		"exp":              time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test"))
	return tok
}

func (f *fakeProvider) SignIn(_ context.Context, _, password string) (*identity.SignInResult, error) {
	if password != "correct-horse" {
		return nil, &identity.Error{Kind: identity.KindInvalidCredentials, Op: "SignIn", Err: errors.New("bad password")}
	}
	return &identity.SignInResult{Tokens: &identity.Tokens{IdentityToken: f.token(), AccessToken: "access", RefreshToken: "refresh", ExpiresIn: time.Hour}}, nil
}

func (f *fakeProvider) RespondNewPassword(context.Context, string, string, string) (*identity.Tokens, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) SignUp(context.Context, string, string, map[string]string) (*identity.SignUpResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) ConfirmSignUp(context.Context, string, string) error { return nil }

func (f *fakeProvider) ResendCode(context.Context, string) (string, error) { return "", nil }

func (f *fakeProvider) ForgotPassword(context.Context, string) (string, error) { return "", nil }

func (f *fakeProvider) ConfirmForgotPassword(context.Context, string, string, string) error {
	return nil
}

func (f *fakeProvider) Refresh(context.Context, string, string) (*identity.Tokens, error) {
	return &identity.Tokens{IdentityToken: f.token(), AccessToken: "access"}, nil
}

func (f *fakeProvider) SignOut(context.Context, string) error { return nil }

func (f *fakeProvider) CurrentUser(context.Context, string) (*identity.User, error) {
	return &identity.User{Username: "user-1"}, nil
}

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/merchant/profile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":"VERIFIED","has_business_hours":true}}`))
	})
	mux.HandleFunc("/merchant/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"pending_bookings":3}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[],"count":0}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newRouter(t *testing.T, role string) *gin.Engine {
	t.Helper()
	return newRouterWith(t, role, lazyload.NewRegistry())
}

func newRouterWith(t *testing.T, role string, loaders *lazyload.Registry) *gin.Engine {
	t.Helper()
	require.NoError(t, middleware.RegisterValidators())

	client := api.New(backend(t).URL, 5*time.Second)
	store := session.NewMemoryStore()
	merchants := merchant.NewDefaultMerchantService(client)
	referrals := referral.NewDefaultReferralService(client)
	profiles := profile.NewDefaultProfileService(client)
	bookings := booking.NewDefaultBookingService(client)

	a := auth.NewService(auth.Options{
		Provider:  &fakeProvider{role: role},
		Store:     store,
		Merchants: merchants,
		Referrals: referrals,
		Profiles:  profiles,
	})
	manager := progress.NewManager(store, progress.ManagerConfig{URL: "ws://127.0.0.1:1/progress", Source: bookings})

	hb := &handlers.HandlerBundle{
		Auth: handlers.NewAuthHandler(a),
		Pages: &handlers.PageHandler{
			Auth:          a,
			Bookings:      bookings,
			Catalog:       catalog.NewDefaultCatalogService(client),
			Merchants:     merchants,
			Notifications: notification.NewDefaultNotificationService(client),
			Reviews:       review.NewDefaultReviewService(client),
			Referrals:     referrals,
			Transactions:  transaction.NewDefaultTransactionService(client),
			Admin:         admin.NewDefaultAdminService(client),
			Profiles:      profiles,
			Loaders:       loaders,
			PageSize:      10,
		},
		Progress: handlers.NewProgressHandler(manager, nil),
	}

	r := gin.New()
	RegisterRoutes(r, hb, Options{
		Auth:              a,
		Cookies:           middleware.NewCookieStore("0123456789abcdef0123456789abcdef", false),
		CookieName:        "furk_session",
		AllowedOrigins:    []string{"http://localhost:3000"},
		MaxRequestsPerMin: 1000,
	})
	return r
}

func do(r http.Handler, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDeepLinkSurvivesLogin(t *testing.T) {
	r := newRouter(t, "merchant")

	w := do(r, http.MethodGet, "/merchant/dashboard", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fmerchant%2Fdashboard", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = do(r, http.MethodPost, "/auth/login",
		`{"role":"merchant","email":"merchant@furk.app","password":"correct-horse","redirect":"/merchant/dashboard"}`, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Role     string `json:"role"`
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "merchant", login.Role)
	assert.Equal(t, "/merchant/dashboard", login.Redirect)

	w = do(r, http.MethodGet, "/merchant/dashboard", "", cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"merchant-dashboard"`)
}

func TestLoginWithoutRedirectLandsOnRoleHome(t *testing.T) {
	r := newRouter(t, "merchant")
	w := do(r, http.MethodGet, "/login", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w = do(r, http.MethodPost, "/auth/login",
		`{"role":"merchant","email":"merchant@furk.app","password":"correct-horse","redirect":"https://evil.example"}`, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/merchant/dashboard"`)

	// Logged in users are bounced off the login page.
	w = do(r, http.MethodGet, "/login", "", cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/merchant/dashboard", w.Header().Get("Location"))
}

func TestWrongRoleIsSentHome(t *testing.T) {
	r := newRouter(t, "user")
	w := do(r, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w = do(r, http.MethodPost, "/auth/login",
		`{"role":"user","email":"owner@furk.app","password":"correct-horse"}`, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/merchant/dashboard", "", cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = do(r, http.MethodGet, "/api/merchant/dashboard", "", cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginRoleMismatchIsRejected(t *testing.T) {
	r := newRouter(t, "user")
	w := do(r, http.MethodGet, "/login", "", nil)
	cookies := w.Result().Cookies()

	w = do(r, http.MethodPost, "/auth/login",
		`{"role":"merchant","email":"owner@furk.app","password":"correct-horse"}`, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/auth/status", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestAPIRequiresSession(t *testing.T) {
	r := newRouter(t, "user")
	w := do(r, http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "anonymous", w.Header().Get(middleware.AuthStatusHeader))
}

func TestPublicRoutes(t *testing.T) {
	r := newRouter(t, "user")
	for _, path := range []string{"/", "/health", "/metrics", "/services", "/api/services"} {
		w := do(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAnonymousListsStayBounded(t *testing.T) {
	loaders := lazyload.NewBoundedRegistry(50, time.Hour)
	r := newRouterWith(t, "user", loaders)
	for i := 0; i < 500; i++ {
		w := do(r, http.MethodGet, "/services?keyword=x", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 50, loaders.Sessions())
}
