package integration_test

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
	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/MarcoPoloResearchLab/basket/internal/server"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	signingSecret   = "integration-secret"
	jsonContentType = "application/json"
	memberPassword  = "integration-password"
)

type sharedListResponse struct {
	Absent   bool `json:"absent"`
	Sections []struct {
		Title string `json:"title"`
		Items []struct {
			Product struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"product"`
			IsChecked bool `json:"is_checked"`
		} `json:"items"`
	} `json:"sections"`
	Remaining int `json:"remaining"`
	Completed int `json:"completed"`
}

func TestSharedDatasetFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(testContext.TempDir(), "integration.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	registry := metrics.NewRegistry()
	gw, err := gateway.New(gateway.Config{Database: db, Metrics: registry})
	if err != nil {
		testContext.Fatalf("failed to construct gateway: %v", err)
	}
	defer gw.Close()

	idProvider := catalog.NewUUIDProvider()
	membership, err := repository.NewMembership(repository.MembershipConfig{
		Gateway:    gw,
		IDProvider: idProvider,
		InviteTTL:  time.Hour,
		RetryDelay: time.Millisecond,
		Metrics:    registry,
	})
	if err != nil {
		testContext.Fatalf("failed to construct membership: %v", err)
	}
	accounts, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider, HashCost: bcrypt.MinCost})
	if err != nil {
		testContext.Fatalf("failed to construct accounts: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(signingSecret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Hour,
	})
	if err != nil {
		testContext.Fatalf("failed to construct token issuer: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts:   accounts,
		Tokens:     tokens,
		Gateway:    gw,
		Membership: membership,
		IDProvider: idProvider,
		Metrics:    registry,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	defer handler.Close()

	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	owner := signUp(testContext, testServer, "owner@example.com", "Owner")
	guest := signUp(testContext, testServer, "guest@example.com", "Guest")
	if owner.DatasetID == guest.DatasetID {
		testContext.Fatalf("expected separate datasets before joining")
	}

	var invite struct {
		Code      string `json:"code"`
		DatasetID string `json:"dataset_id"`
	}
	if status := doJSON(testContext, testServer, http.MethodPost, "/invites", owner.AccessToken, nil, &invite); status != http.StatusCreated {
		testContext.Fatalf("invite creation failed with status %d", status)
	}
	var joined struct {
		DatasetID string `json:"dataset_id"`
	}
	if status := doJSON(testContext, testServer, http.MethodPost, "/invites/join", guest.AccessToken, map[string]string{"code": invite.Code}, &joined); status != http.StatusOK {
		testContext.Fatalf("join failed with status %d", status)
	}
	if joined.DatasetID != owner.DatasetID {
		testContext.Fatalf("expected guest to join %s, got %s", owner.DatasetID, joined.DatasetID)
	}

	var created struct {
		ID string `json:"id"`
	}
	if status := doJSON(testContext, testServer, http.MethodPost, "/products", owner.AccessToken, map[string]string{"name": "Sourdough loaf"}, &created); status != http.StatusCreated {
		testContext.Fatalf("product creation failed with status %d", status)
	}
	if status := doJSON(testContext, testServer, http.MethodPost, "/shopping-list/items", owner.AccessToken, map[string]string{"product_id": created.ID}, nil); status != http.StatusNoContent {
		testContext.Fatalf("adding to shopping list failed with status %d", status)
	}

	var guestView sharedListResponse
	if status := doJSON(testContext, testServer, http.MethodGet, "/shopping-list", guest.AccessToken, nil, &guestView); status != http.StatusOK {
		testContext.Fatalf("guest shopping list read failed with status %d", status)
	}
	if guestView.Absent || guestView.Remaining != 1 || len(guestView.Sections) != 1 {
		testContext.Fatalf("unexpected guest shopping list %+v", guestView)
	}
	if guestView.Sections[0].Items[0].Product.ID != created.ID {
		testContext.Fatalf("expected shared product %s, got %+v", created.ID, guestView.Sections[0].Items[0])
	}

	if status := doJSON(testContext, testServer, http.MethodPatch, "/shopping-list/items/"+created.ID, guest.AccessToken, map[string]bool{"is_checked": true}, nil); status != http.StatusNoContent {
		testContext.Fatalf("checking item failed with status %d", status)
	}

	var ownerView sharedListResponse
	if status := doJSON(testContext, testServer, http.MethodGet, "/shopping-list", owner.AccessToken, nil, &ownerView); status != http.StatusOK {
		testContext.Fatalf("owner shopping list read failed with status %d", status)
	}
	if ownerView.Completed != 1 || ownerView.Remaining != 0 {
		testContext.Fatalf("expected the guest's check to be visible to the owner, got %+v", ownerView)
	}

	if status := doJSON(testContext, testServer, http.MethodGet, "/products", "", nil, nil); status != http.StatusUnauthorized {
		testContext.Fatalf("expected unauthorized without token, got %d", status)
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	DatasetID   string `json:"dataset_id"`
}

func signUp(testContext *testing.T, testServer *httptest.Server, email, displayName string) authResponse {
	testContext.Helper()
	var response authResponse
	status := doJSON(testContext, testServer, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":            email,
		"password":         memberPassword,
		"confirm_password": memberPassword,
		"display_name":     displayName,
	}, &response)
	if status != http.StatusCreated {
		testContext.Fatalf("sign up for %s failed with status %d", email, status)
	}
	if response.AccessToken == "" || response.DatasetID == "" {
		testContext.Fatalf("sign up for %s returned incomplete response %+v", email, response)
	}
	return response
}

func doJSON(testContext *testing.T, testServer *httptest.Server, method, path, token string, body any, out any) int {
	testContext.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			testContext.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, testServer.URL+path, reader)
	if err != nil {
		testContext.Fatalf("failed to build request: %v", err)
	}
	request.Header.Set("Content-Type", jsonContentType)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := testServer.Client().Do(request)
	if err != nil {
		testContext.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()
	if out != nil && response.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			testContext.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return response.StatusCode
}
