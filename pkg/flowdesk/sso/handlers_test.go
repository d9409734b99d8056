package sso

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/auth"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &Handler{svc: NewService(db, testConfig())}
	handler.RegisterRoutes(r.Group("/sso"), nil, nil)
	return r
}

func sessionToken(t *testing.T, f *fixture) string {
	token, err := auth.GenerateToken(f.user.ID, f.org.ID, f.user.Email, string(f.user.Role))
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return token
}

func postJSON(router *gin.Engine, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestIssueEndpointRequiresSession(t *testing.T) {
	db := setupTestDB(t)
	setupFixture(t, db)
	router := setupTestRouter(db)

	resp := postJSON(router, "/sso/token", "", IssueTokenRequest{ModuleSlug: "billing"})
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestIssueAndVerifyScenario(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db)
	router := setupTestRouter(db)

	// Issue a token for the billing module as a logged-in platform user
	resp := postJSON(router, "/sso/token", sessionToken(t, f), IssueTokenRequest{ModuleSlug: "billing"})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var issued struct {
		Message string      `json:"message"`
		Data    IssueResult `json:"data"`
	}
	json.Unmarshal(resp.Body.Bytes(), &issued)
	if issued.Data.Token == "" {
		t.Fatal("Expected a token in the response")
	}
	if issued.Data.ExpiresIn != 300 {
		t.Errorf("Expected expires_in 300, got %d", issued.Data.ExpiresIn)
	}

	// The billing module exchanges the token for the delegated identity
	resp = postJSON(router, "/sso/verify", "", VerifyTokenRequest{
		Token:        issued.Data.Token,
		ClientID:     "billing-client",
		ClientSecret: "billing-secret",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var verified struct {
		Message string       `json:"message"`
		Data    VerifyResult `json:"data"`
	}
	json.Unmarshal(resp.Body.Bytes(), &verified)
	if !verified.Data.Valid {
		t.Error("Expected valid:true")
	}
	if verified.Data.User.ID != f.user.ID {
		t.Errorf("Expected user ID %d, got %d", f.user.ID, verified.Data.User.ID)
	}

	// Replaying the same token must fail with TOKEN_USED
	resp = postJSON(router, "/sso/verify", "", VerifyTokenRequest{
		Token:        issued.Data.Token,
		ClientID:     "billing-client",
		ClientSecret: "billing-secret",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d: %s", resp.Code, resp.Body.String())
	}

	var replay struct {
		Error string `json:"error"`
		Valid bool   `json:"valid"`
	}
	json.Unmarshal(resp.Body.Bytes(), &replay)
	if replay.Error != "TOKEN_USED" {
		t.Errorf("Expected error TOKEN_USED, got %s", replay.Error)
	}
	if replay.Valid {
		t.Error("Expected valid:false on replay")
	}
}

func TestIssueEndpointUnknownModule(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db)
	router := setupTestRouter(db)

	resp := postJSON(router, "/sso/token", sessionToken(t, f), IssueTokenRequest{ModuleSlug: "no-such-module"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Error != "MODULE_NOT_FOUND" {
		t.Errorf("Expected error MODULE_NOT_FOUND, got %s", body.Error)
	}
}

func TestVerifyEndpointBadCredentials(t *testing.T) {
	db := setupTestDB(t)
	setupFixture(t, db)
	router := setupTestRouter(db)

	resp := postJSON(router, "/sso/verify", "", VerifyTokenRequest{
		Token:        "whatever",
		ClientID:     "no-such-client",
		ClientSecret: "nope",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", resp.Code)
	}

	var body struct {
		Error string `json:"error"`
		Valid bool   `json:"valid"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Error != "INVALID_CLIENT" {
		t.Errorf("Expected error INVALID_CLIENT, got %s", body.Error)
	}
	if body.Valid {
		t.Error("Expected valid:false")
	}
}

func TestVerifyEndpointMissingFields(t *testing.T) {
	db := setupTestDB(t)
	setupFixture(t, db)
	router := setupTestRouter(db)

	resp := postJSON(router, "/sso/verify", "", map[string]string{"token": "only-a-token"})
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for missing credentials, got %d", resp.Code)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db)
	router := setupTestRouter(db)
	bearer := sessionToken(t, f)

	// Issue two tokens, then log out of SSO
	for _, slug := range []string{"billing", "analytics"} {
		resp := postJSON(router, "/sso/token", bearer, IssueTokenRequest{ModuleSlug: slug})
		if resp.Code != http.StatusOK {
			t.Fatalf("Issue for %s failed with %d: %s", slug, resp.Code, resp.Body.String())
		}
	}

	resp := postJSON(router, "/sso/logout", bearer, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Message string `json:"message"`
		Data    struct {
			Invalidated int64 `json:"invalidated"`
		} `json:"data"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.Data.Invalidated != 2 {
		t.Errorf("Expected 2 invalidated tokens, got %d", body.Data.Invalidated)
	}
}

func TestLogoutEndpointRequiresSession(t *testing.T) {
	db := setupTestDB(t)
	setupFixture(t, db)
	router := setupTestRouter(db)

	resp := postJSON(router, "/sso/logout", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}
