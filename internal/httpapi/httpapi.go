package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pasmi/terminal/internal/cart"
	"pasmi/terminal/internal/catalog"
	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/gateway"
	"pasmi/terminal/internal/media"
	"pasmi/terminal/internal/orders"
	"pasmi/terminal/internal/reports"
	"pasmi/terminal/internal/service"
)

const (
	maxJSONBodyBytes      = 1 << 20
	maxMultipartBodyBytes = 6 << 20
	maxImageBytes         = 5 << 20
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *logrus.Logger
	validate      *validator.Validate
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *logrus.Logger) *API {
	if logger == nil {
		logger = logrus.New()
	}
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: strings.TrimSpace(allowedOrigin),
		logger:        logger,
		validate:      validator.New(),
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes the hex HMAC-SHA256 token for an hour bucket
// (Unix time truncated to the hour).
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current and the previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(a.requestLogger())
	r.Use(cors.New(a.corsConfig()))
	r.Use(securityHeaders())
	r.Use(limitBody())
	r.Use(a.checkCSRF())

	r.GET("/healthz", a.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", a.handleLogin)
	v1.GET("/auth/csrf-token", a.handleCSRFToken)

	op := v1.Group("", a.requireAuth(RoleOperator))
	op.POST("/auth/logout", a.handleLogout)
	op.GET("/session", a.handleSession)

	op.GET("/categories", a.handleCategories)
	op.GET("/products", a.handleProducts)
	op.POST("/products", a.handleSaveProduct)
	op.POST("/products/refresh", a.handleRefreshProducts)
	op.PUT("/products/:id", a.handleSaveProduct)
	op.DELETE("/products/:id", a.handleDeleteProduct)
	op.GET("/stock/alerts", a.handleStockAlerts)
	op.POST("/stock/bulk", a.handleBulkStock)

	op.GET("/cart", a.handleCart)
	op.POST("/cart/items", a.handleAddToCart)
	op.POST("/cart/items/:id/decrement", a.handleDecrementCart)
	op.DELETE("/cart/items/:id", a.handleRemoveFromCart)
	op.POST("/cart/clear", a.handleClearCart)

	op.POST("/payment/quote", a.handleQuote)
	op.POST("/payment/keypad", a.handleKeypad)
	op.POST("/checkout", a.handleCheckout)

	op.GET("/orders", a.handleOrders)
	op.POST("/orders/refresh", a.handleRefreshOrders)
	op.POST("/orders/:id/settle", a.handleSettleOrder)
	op.POST("/orders/:id/status", a.handleOrderStatus)
	op.GET("/orders/:id/payment-hint", a.handlePaymentHint)

	op.GET("/settings", a.handleSettings)
	op.PUT("/settings", a.handleUpdateSettings)
	op.POST("/cash/base", a.handleSetBase)
	op.POST("/cash/expenses", a.handleAddExpense)

	op.GET("/dashboard", a.handleDashboard)

	op.GET("/notices", a.handleNotices)
	op.DELETE("/notices/:id", a.handleDismissNotice)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errors.New("route not found"))
	})
	return r
}

func (a *API) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	if a.allowedOrigin == "" || a.allowedOrigin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(a.allowedOrigin, ",")
		for i := range cfg.AllowOrigins {
			cfg.AllowOrigins[i] = strings.TrimSpace(cfg.AllowOrigins[i])
		}
	}
	cfg.AddAllowHeaders("Authorization", "X-CSRF-Token")
	cfg.AddExposeHeaders("Content-Disposition")
	return cfg
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := a.logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		c.Next()
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isMutating(c.Request.Method) && c.Request.Body != nil {
			limit := int64(maxJSONBodyBytes)
			if strings.HasPrefix(strings.ToLower(c.ContentType()), "multipart/") {
				limit = maxMultipartBodyBytes
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// csrfExemptPaths are called before a token can be fetched.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF requires X-CSRF-Token on every state-changing request.
func (a *API) checkCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		for _, exempt := range csrfExemptPaths {
			if c.Request.URL.Path == exempt {
				c.Next()
				return
			}
		}
		if !a.validateCSRFToken(strings.TrimSpace(c.GetHeader("X-CSRF-Token"))) {
			writeError(c, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *API) requireAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
			c.Abort()
			return
		}

		actor, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			writeError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}
		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(c, http.StatusForbidden, errors.New("forbidden role"))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(c *gin.Context) {
	if !a.loginLimiter.Allow(clientKey(c.Request)) {
		writeError(c, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, errors.New("usuario y contraseña son obligatorios"))
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, ErrEmailNotAllowed) {
			status = http.StatusForbidden
		}
		writeError(c, status, err)
		return
	}
	if err := a.service.StartSession(c.Request.Context()); err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

func (a *API) handleLogout(c *gin.Context) {
	if err := a.service.EndSession(c.Request.Context()); err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleSession(c *gin.Context) {
	active, err := a.service.SessionActive(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"active": active})
}

func (a *API) handleCSRFToken(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"csrf_token": a.generateCSRFToken()})
}

type productView struct {
	domain.Product
	Remaining *int64 `json:"remaining"`
	Badge     string `json:"badge"`
}

func viewProducts(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		v := productView{Product: p, Badge: catalog.Badge(p)}
		if n, ok := p.Remaining(); ok {
			v.Remaining = &n
		}
		out = append(out, v)
	}
	return out
}

func (a *API) handleCategories(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"categories": a.service.Categories()})
}

func (a *API) handleProducts(c *gin.Context) {
	products := a.service.Products(strings.TrimSpace(c.Query("category")))
	writeJSON(c, http.StatusOK, gin.H{"products": viewProducts(products)})
}

func (a *API) handleRefreshProducts(c *gin.Context) {
	products, err := a.service.RefreshProducts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"products": viewProducts(products)})
}

// handleSaveProduct accepts either a JSON product form or a multipart form
// with the JSON in field "product" and an optional "image" file.
func (a *API) handleSaveProduct(c *gin.Context) {
	var (
		form domain.ProductForm
		img  *service.Image
	)
	if strings.HasPrefix(strings.ToLower(c.ContentType()), "multipart/") {
		raw := c.PostForm("product")
		if err := decodeJSON(strings.NewReader(raw), &form); err != nil {
			writeError(c, http.StatusBadRequest, err)
			return
		}
		if fh, err := c.FormFile("image"); err == nil {
			if fh.Size > maxImageBytes {
				writeError(c, http.StatusRequestEntityTooLarge, media.ErrTooLarge)
				return
			}
			f, err := fh.Open()
			if err != nil {
				writeError(c, http.StatusBadRequest, err)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				writeError(c, http.StatusBadRequest, err)
				return
			}
			img = &service.Image{Filename: fh.Filename, Data: data}
		}
	} else if err := decodeJSON(c.Request.Body, &form); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	status := http.StatusCreated
	if id := c.Param("id"); id != "" {
		form.ID = id
		status = http.StatusOK
	}
	product, err := a.service.SaveProduct(c.Request.Context(), form, img)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, status, gin.H{"product": product})
}

func (a *API) handleDeleteProduct(c *gin.Context) {
	if err := a.service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleStockAlerts(c *gin.Context) {
	limit := parsePositiveLimit(c.Query("limit"), 5, 50)
	writeJSON(c, http.StatusOK, gin.H{"products": viewProducts(a.service.LowStock(limit))})
}

func (a *API) handleBulkStock(c *gin.Context) {
	var req domain.AmountRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	level, known, err := a.service.AddBulkStock(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	resp := gin.H{"ok": true}
	if known {
		resp["coffeeStock"] = level
	}
	writeJSON(c, http.StatusOK, resp)
}

func (a *API) handleCart(c *gin.Context) {
	writeJSON(c, http.StatusOK, a.service.Cart())
}

func (a *API) handleAddToCart(c *gin.Context) {
	var req domain.AddToCartRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AddToCart(c.Request.Context(), req.ProductID)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (a *API) handleDecrementCart(c *gin.Context) {
	view, err := a.service.DecrementCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (a *API) handleRemoveFromCart(c *gin.Context) {
	view, err := a.service.RemoveFromCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (a *API) handleClearCart(c *gin.Context) {
	writeJSON(c, http.StatusOK, a.service.ClearCart())
}

func (a *API) handleQuote(c *gin.Context) {
	var req domain.QuoteRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	quote, err := a.service.Quote(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quote)
}

func (a *API) handleKeypad(c *gin.Context) {
	var req domain.KeypadRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	pad, err := a.service.Keypad(req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, pad)
}

func (a *API) handleCheckout(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.Checkout(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

func (a *API) handleOrders(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"orders": a.service.Orders()})
}

func (a *API) handleRefreshOrders(c *gin.Context) {
	list, err := a.service.RefreshOrders(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": list})
}

func (a *API) handleSettleOrder(c *gin.Context) {
	var req domain.SettleRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.SettleOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (a *API) handleOrderStatus(c *gin.Context) {
	var req domain.StatusRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	order, err := a.service.ToggleOrderStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order": order})
}

func (a *API) handlePaymentHint(c *gin.Context) {
	hint, found, err := a.service.PaymentHint(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("date")))
	if err != nil {
		a.fail(c, err)
		return
	}
	if !found {
		writeJSON(c, http.StatusOK, gin.H{"found": false})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"found": true, "hint": hint})
}

func (a *API) handleSettings(c *gin.Context) {
	settings, err := a.service.Settings(c.Request.Context())
	var stale *service.StaleError
	if errors.As(err, &stale) {
		writeJSON(c, http.StatusOK, gin.H{"settings": settings, "stale": true, "error": stale.Error()})
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"settings": settings})
}

func (a *API) handleUpdateSettings(c *gin.Context) {
	var form domain.SettingsForm
	if err := decodeJSON(c.Request.Body, &form); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	settings, err := a.service.UpdateSettings(c.Request.Context(), form)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"settings": settings})
}

func (a *API) handleSetBase(c *gin.Context) {
	var req domain.AmountRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := a.service.SetBase(c.Request.Context(), req); err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleAddExpense(c *gin.Context) {
	var req domain.ExpenseRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := a.service.AddExpense(c.Request.Context(), req); err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"ok": true})
}

func (a *API) handleDashboard(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))

	d, err := a.service.Dashboard(c.Request.Context(), date)
	if err != nil {
		a.fail(c, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
		ext         string
	)
	switch format {
	case "csv":
		contentType, ext = "text/csv; charset=utf-8", "csv"
		err = reports.CSV(&buf, d)
	case "html", "pdf":
		contentType = "text/html; charset=utf-8"
		err = reports.HTML(&buf, d)
	case "xlsx":
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
		err = reports.XLSX(&buf, d)
	default:
		writeJSON(c, http.StatusOK, d)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if ext != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"cierre-%s.%s\"", d.Date, ext))
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (a *API) handleNotices(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"notices": a.service.Notices()})
}

func (a *API) handleDismissNotice(c *gin.Context) {
	if !a.service.DismissNotice(c.Param("id")) {
		writeError(c, http.StatusNotFound, errors.New("notice not found"))
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

// fail writes err with the status its kind maps to.
func (a *API) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, statusFor(err), err)
}

func statusFor(err error) int {
	var (
		verr *service.ValidationError
		herr *gateway.HTTPError
		aerr *gateway.APIError
		terr *gateway.TransportError
		uerr *media.UploadError
	)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInsufficientStock):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, gateway.ErrNotConfigured), errors.Is(err, media.ErrNotConfigured), errors.Is(err, media.ErrPresetMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &herr), errors.As(err, &aerr), errors.As(err, &terr),
		errors.As(err, &uerr), errors.Is(err, media.ErrNoURL):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r io.Reader, dest any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// writeError hides the message of unexpected 500s. Upstream failures keep
// theirs since the operator acts on them.
func writeError(c *gin.Context, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(c, status, gin.H{"error": msg})
}

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
