package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/auth"
)

type fakeVerifier struct {
	tokens map[string]*auth.Claims
	calls  int
}

func (f *fakeVerifier) Verify(token string) (*auth.Claims, error) {
	f.calls++
	if c, ok := f.tokens[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func authRouter(v TokenVerifier, opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequireAuth(v, opts))
	r.GET("/me", func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":  UserID(c),
			"email": UserEmail(c),
			"sub":   claims.Subject,
		})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	v := &fakeVerifier{tokens: map[string]*auth.Claims{
		"good":    {Subject: "user-1", Email: "a@example.com"},
		"nosub":   {Email: "x@example.com"},
		"noemail": {Subject: "user-2"},
	}}
	r := authRouter(v, AuthOptions{})

	cases := []struct {
		name     string
		header   string
		status   int
		message  string
		wantUser string
	}{
		{"missing header", "", http.StatusUnauthorized, MsgAuthRequired, ""},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, MsgAuthRequired, ""},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, MsgAuthRequired, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, MsgAuthInvalid, ""},
		{"missing subject", "Bearer nosub", http.StatusUnauthorized, MsgAuthInvalid, ""},
		{"valid", "Bearer good", http.StatusOK, "", "user-1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "", "user-1"},
		{"no email claim", "Bearer noemail", http.StatusOK, "", "user-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if tc.status == http.StatusUnauthorized {
				if body["code"] != "unauthorized" || body["message"] != tc.message || body["request_id"] == "" {
					t.Fatalf("unexpected 401 body: %v", body)
				}
				return
			}
			if body["user"] != tc.wantUser || body["sub"] != tc.wantUser {
				t.Fatalf("identity not propagated: %v", body)
			}
		})
	}
}

func TestRequireAuth_NilVerifierRejects(t *testing.T) {
	r := authRouter(nil, AuthOptions{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer anything")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", w.Code)
	}
}

func TestRequireAuth_Disabled(t *testing.T) {
	v := &fakeVerifier{}
	r := authRouter(v, AuthOptions{Disabled: true, DevClaims: auth.Claims{Email: "dev@example.com"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["user"] != "local-user" || body["email"] != "dev@example.com" {
		t.Fatalf("unexpected dev identity: %v", body)
	}
	if v.calls != 0 {
		t.Fatalf("verifier must not be called when disabled")
	}
}

func TestRequireAuth_Disabled_DefaultIdentity(t *testing.T) {
	r := authRouter(nil, AuthOptions{Disabled: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusOK || body["user"] != "local-user" || body["email"] != "local-user@localhost" {
		t.Fatalf("status=%d identity=%v", w.Code, body)
	}
}

func Test_bearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"BEARER abc":    "abc",
		"  Bearer  abc": "abc",
	}
	for in, want := range cases {
		if got, ok := bearerToken(in); !ok || got != want {
			t.Fatalf("bearerToken(%q) = %q,%v", in, got, ok)
		}
	}
	for _, in := range []string{"", "Bearer", "Token abc", "abc"} {
		if _, ok := bearerToken(in); ok {
			t.Fatalf("bearerToken(%q) should fail", in)
		}
	}
}
