package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/auth"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/database"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	server *httptest.Server
	gw     *gateway.Gateway
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	gw, err := gateway.New(gateway.Config{Database: db})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	membership, err := repository.NewMembership(repository.MembershipConfig{
		Gateway:    gw,
		IDProvider: catalog.NewUUIDProvider(),
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct membership: %v", err)
	}
	accounts, err := users.NewService(users.ServiceConfig{Database: db, HashCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("failed to construct account service: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to construct token issuer: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Accounts:   accounts,
		Tokens:     tokens,
		Gateway:    gw,
		Membership: membership,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		handler.Close()
		gw.Close()
	})
	return &testAPI{server: server, gw: gw}
}

// call sends a JSON request and decodes the JSON response into out when out is non-nil.
func (a *testAPI) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to construct request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := a.server.Client().Do(request)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()
	if out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return response.StatusCode
}

func (a *testAPI) signUp(t *testing.T, email, displayName string) authResponsePayload {
	t.Helper()
	var response authResponsePayload
	status := a.call(t, http.MethodPost, "/auth/signup", "", signUpRequestPayload{
		Email:           email,
		Password:        "secret-password",
		ConfirmPassword: "secret-password",
		DisplayName:     displayName,
	}, &response)
	if status != http.StatusCreated {
		t.Fatalf("sign up failed with status %d", status)
	}
	return response
}
