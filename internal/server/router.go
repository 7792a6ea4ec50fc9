package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/auth"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/category"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "basket_user_id"
	workspaceContextKey = "basket_workspace"
	defaultReadTimeout  = 5 * time.Second
)

// AccountService registers and authenticates sign-in accounts.
type AccountService interface {
	SignUp(ctx context.Context, input users.SignUpInput) (users.Account, error)
	SignIn(ctx context.Context, email, password string) (users.Account, error)
}

// TokenManager issues bearer tokens and validates them on incoming requests.
type TokenManager interface {
	IssueToken(ctx context.Context, userID string) (auth.IssuedToken, error)
	ValidateRequest(r *http.Request) (string, error)
}

type Dependencies struct {
	Accounts       AccountService
	Tokens         TokenManager
	Gateway        *gateway.Gateway
	Membership     *repository.Membership
	IDProvider     catalog.IDProvider
	Classifier     category.Classifier
	Realtime       *RealtimeDispatcher
	Metrics        *metrics.Registry
	Logger         *zap.Logger
	Clock          func() time.Time
	AllowedOrigins []string
	// ReadTimeout bounds how long a snapshot read waits for the first merge.
	ReadTimeout time.Duration
}

// Handler serves the HTTP API. Close stops the live feeds behind open streams.
type Handler struct {
	engine     *gin.Engine
	workspaces *workspaces
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *Handler) Close() {
	h.workspaces.closeAll()
}

func NewHTTPHandler(deps Dependencies) (*Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}
	if deps.Tokens == nil {
		return nil, errMissingTokens
	}
	if deps.Gateway == nil {
		return nil, errMissingGateway
	}
	if deps.Membership == nil {
		return nil, errMissingMembership
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idProvider := deps.IDProvider
	if idProvider == nil {
		idProvider = catalog.NewUUIDProvider()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	readTimeout := deps.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	handler := &httpHandler{
		accounts:       deps.Accounts,
		tokens:         deps.Tokens,
		membership:     deps.Membership,
		realtime:       realtime,
		logger:         logger,
		readTimeout:    readTimeout,
		allowedOrigins: deps.AllowedOrigins,
		workspaces: newWorkspaces(workspaceSettings{
			Gateway:    deps.Gateway,
			IDProvider: idProvider,
			Classifier: deps.Classifier,
			Clock:      clock,
			Logger:     logger,
			Metrics:    deps.Metrics,
			Realtime:   realtime,
		}),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.POST("/auth/signup", handler.handleSignUp)
	router.POST("/auth/signin", handler.handleSignIn)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest, handler.resolveWorkspace)

	protected.GET("/products", handler.handleListProducts)
	protected.POST("/products", handler.handleAddProduct)
	protected.GET("/products/:id", handler.handleProductDetail)
	protected.PUT("/products/:id", handler.handleUpdateProduct)
	protected.DELETE("/products/:id", handler.handleDeleteProduct)
	protected.POST("/products/:id/prices", handler.handleAddPrice)
	protected.DELETE("/products/:id/prices/:priceId", handler.handleDeletePrice)

	protected.GET("/shops", handler.handleListShops)
	protected.POST("/shops", handler.handleAddShop)
	protected.PUT("/shops/:id", handler.handleUpdateShop)
	protected.DELETE("/shops/:id", handler.handleDeleteShop)

	protected.GET("/shopping-list", handler.handleShoppingList)
	protected.POST("/shopping-list/items", handler.handleAddToShoppingList)
	protected.PATCH("/shopping-list/items/:productId", handler.handleSetItemChecked)
	protected.DELETE("/shopping-list/items/:productId", handler.handleRemoveFromShoppingList)
	protected.POST("/shopping-list/clear-completed", handler.handleClearCompleted)

	protected.GET("/preferences", handler.handleGetPreferences)
	protected.PUT("/preferences", handler.handleUpdatePreferences)
	protected.PUT("/me", handler.handleUpdateMe)
	protected.DELETE("/me/data", handler.handleDeleteMyData)
	protected.POST("/me/anonymize", handler.handleAnonymizeMe)

	protected.POST("/invites", handler.handleCreateInvite)
	protected.POST("/invites/join", handler.handleJoinDataset)
	protected.POST("/dataset/leave", handler.handleLeaveDataset)

	protected.GET("/stream", handler.handleStream)

	return &Handler{engine: router, workspaces: handler.workspaces}, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type httpHandler struct {
	accounts       AccountService
	tokens         TokenManager
	membership     *repository.Membership
	realtime       *RealtimeDispatcher
	workspaces     *workspaces
	logger         *zap.Logger
	readTimeout    time.Duration
	allowedOrigins []string
}

// authorizeRequest rejects requests without a valid bearer token. Expired and missing tokens
// are routine and logged at info.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	userID, err := h.tokens.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrMissingToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		h.respondError(c, ErrNotSignedIn)
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

// resolveWorkspace binds the request to the caller's dataset, creating one when needed.
func (h *httpHandler) resolveWorkspace(c *gin.Context) {
	datasetID, err := h.membership.Resolve(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ws, err := h.workspaces.get(datasetID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Set(workspaceContextKey, ws)
	c.Next()
}

func currentWorkspace(c *gin.Context) *workspace {
	value, _ := c.Get(workspaceContextKey)
	ws, _ := value.(*workspace)
	return ws
}

func (h *httpHandler) readContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.readTimeout)
}

// bindJSON decodes the request body, reporting malformed input as errInvalidRequest.
func (h *httpHandler) bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		h.respondError(c, errInvalidRequest)
		return false
	}
	return true
}
