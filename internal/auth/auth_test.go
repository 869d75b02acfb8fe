package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newProtectedRouter(secret, audience string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", JWTMiddleware(secret, audience), func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFrom(c))
	})
	return router
}

func doGet(router http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIssuedTokenIsAccepted(t *testing.T) {
	issuer := NewIssuer("secret", "aicheck", time.Hour)
	token, err := issuer.Issue("42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	w := doGet(newProtectedRouter("secret", "aicheck"), token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "42" {
		t.Fatalf("expected subject 42, got %q", w.Body.String())
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	w := doGet(newProtectedRouter("secret", ""), "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("other", "", time.Hour).Issue("42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := doGet(newProtectedRouter("secret", ""), token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMiddlewareRejectsWrongAudience(t *testing.T) {
	token, err := NewIssuer("secret", "elsewhere", time.Hour).Issue("42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := doGet(newProtectedRouter("secret", "aicheck"), token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("secret", "", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := issuer.Issue("42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if w := doGet(newProtectedRouter("secret", ""), token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestIssueRequiresSecretAndSubject(t *testing.T) {
	if _, err := NewIssuer("", "", time.Hour).Issue("42"); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := NewIssuer("secret", "", time.Hour).Issue(""); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]bool{
		"Bearer abc": true,
		"bearer abc": true,
		"Basic abc":  false,
		"Bearer ":    false,
		"":           false,
	}
	for header, ok := range cases {
		_, err := extractBearerToken(header)
		if (err == nil) != ok {
			t.Fatalf("extractBearerToken(%q) err = %v, want ok=%v", header, err, ok)
		}
	}
}
