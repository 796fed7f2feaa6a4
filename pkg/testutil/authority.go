// Package testutil provides test helpers: concurrency drivers and an
// in-process fake of the remote authority the engine reconciles against.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Authority is an in-memory stand-in for the remote backend. It implements
// the REST surface the engine consumes, wraps every response in the
// {success, message, data} envelope, and enforces credits per call so
// concurrency tests exercise real contention.
type Authority struct {
	mu sync.Mutex

	signingKey    []byte
	signupCredits int
	countriesOn   bool

	users    map[string]*authorityUser // by id
	byEmail  map[string]string
	numbers  map[string]*authorityNumber
	payments map[string]*authorityPayment
	txs      []authorityTx

	services []map[string]any
	packages []map[string]any

	router chi.Router
}

type authorityUser struct {
	ID       string
	Username string
	Email    string
	Hash     []byte
	Credits  int
}

type authorityNumber struct {
	ID        string
	UserID    string
	Service   string
	Country   string
	Phone     string
	Code      string
	Status    string
	Cost      float64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type authorityPayment struct {
	ID      string
	UserID  string
	Gateway string
	Amount  float64
	Credits int
	Status  string
}

type authorityTx struct {
	ID        string
	UserID    string
	Type      string
	Amount    float64
	Credits   int
	Status    string
	Desc      string
	CreatedAt time.Time
}

// AuthorityOption configures the fake authority.
type AuthorityOption func(*Authority)

// WithSignupCredits sets the starting balance for registered users.
func WithSignupCredits(n int) AuthorityOption {
	return func(a *Authority) {
		a.signupCredits = n
	}
}

// WithCountries enables the country catalog endpoint, which some backend
// revisions never implemented.
func WithCountries() AuthorityOption {
	return func(a *Authority) {
		a.countriesOn = true
	}
}

// WithService adds a rentable service to the catalog.
func WithService(id, name string, price float64) AuthorityOption {
	return func(a *Authority) {
		a.services = append(a.services, map[string]any{
			"id": id, "name": name, "price": price, "available": true,
		})
	}
}

// NewAuthority builds a fake authority with a default catalog.
func NewAuthority(opts ...AuthorityOption) *Authority {
	a := &Authority{
		signingKey:    []byte("authority-test-key"),
		signupCredits: 10,
		users:         make(map[string]*authorityUser),
		byEmail:       make(map[string]string),
		numbers:       make(map[string]*authorityNumber),
		payments:      make(map[string]*authorityPayment),
		packages: []map[string]any{
			{"id": "pkg_basic", "name": "Basic", "credits": 50, "price": 25.0},
			{"id": "pkg_pro", "name": "Pro", "credits": 200, "price": 80.0, "bonus": 20},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	if len(a.services) == 0 {
		a.services = []map[string]any{
			{"id": "whatsapp", "name": "WhatsApp", "price": 1.0, "available": true},
			{"id": "telegram", "name": "Telegram", "price": 2.0, "available": true},
		}
	}
	a.router = a.buildRouter()
	return a
}

// ServeHTTP implements http.Handler.
func (a *Authority) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Authority) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/register", a.handleRegister)
	r.Post("/auth/login", a.handleLogin)
	r.Post("/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, "logged out", nil)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Get("/auth/me", a.handleProfile)
		r.Get("/sms/active-numbers", a.handleActiveNumbers)
		r.Post("/sms/request-number", a.handleRequestNumber)
		r.Get("/sms/status/{id}", a.handleStatus)
		r.Post("/sms/reactivate/{id}", a.handleReactivate)
		r.Post("/sms/cancel/{id}", a.handleCancel)
		r.Get("/admin/services/available", a.handleServices)
		r.Get("/sms/countries", a.handleCountries)
		r.Get("/credits/history", a.handleHistory)
		r.Get("/credits/stats", a.handleCreditStats)
		r.Get("/credits/balance", a.handleBalance)
		r.Get("/payments/packages", a.handlePackages)
		r.Post("/payments/{gateway}/create", a.handleCreatePayment)
		r.Get("/payments/{id}/status", a.handlePaymentStatus)
		r.Post("/payments/{id}/cancel", a.handleCancelPayment)
	})

	return r
}

// --- auth ---

func (a *Authority) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeEnvelope(w, http.StatusBadRequest, "invalid registration payload", nil)
		return
	}
	if len(body.Password) < 6 {
		writeEnvelope(w, http.StatusBadRequest, "password too weak", nil)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.byEmail[body.Email]; dup {
		writeEnvelope(w, http.StatusBadRequest, "email already registered", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, "hash failure", nil)
		return
	}
	u := &authorityUser{
		ID:       uuid.NewString(),
		Username: body.Username,
		Email:    body.Email,
		Hash:     hash,
		Credits:  a.signupCredits,
	}
	a.users[u.ID] = u
	a.byEmail[u.Email] = u.ID

	writeEnvelope(w, http.StatusCreated, "registered", map[string]any{
		"user":  a.userJSON(u),
		"token": a.mintToken(u.ID),
	})
}

func (a *Authority) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid login payload", nil)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byEmail[body.Email]
	if !ok {
		writeEnvelope(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	u := a.users[id]
	if bcrypt.CompareHashAndPassword(u.Hash, []byte(body.Password)) != nil {
		writeEnvelope(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	writeEnvelope(w, http.StatusOK, "logged in", map[string]any{
		"user":  a.userJSON(u),
		"token": a.mintToken(u.ID),
	})
}

func (a *Authority) handleProfile(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u := a.users[userID(r)]
	writeEnvelope(w, http.StatusOK, "ok", a.userJSON(u))
}

// --- numbers ---

func (a *Authority) handleActiveNumbers(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	list := []map[string]any{}
	for _, n := range a.numbers {
		if n.UserID == userID(r) {
			list = append(list, a.numberJSON(n))
		}
	}
	writeEnvelope(w, http.StatusOK, "ok", list)
}

func (a *Authority) handleRequestNumber(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceCode string `json:"service_code"`
		CountryCode string `json:"country_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ServiceCode == "" {
		writeEnvelope(w, http.StatusBadRequest, "service_code is required", nil)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	price, ok := a.servicePrice(body.ServiceCode)
	if !ok {
		writeEnvelope(w, http.StatusServiceUnavailable, "service unavailable", nil)
		return
	}
	u := a.users[userID(r)]
	cost := int(price)
	if u.Credits < cost {
		writeEnvelope(w, http.StatusPaymentRequired, "insufficient credits", nil)
		return
	}
	u.Credits -= cost

	now := time.Now().UTC()
	n := &authorityNumber{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Service:   body.ServiceCode,
		Country:   body.CountryCode,
		Phone:     "+55 11 9" + n8(),
		Status:    "waiting",
		Cost:      price,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
	a.numbers[n.ID] = n
	a.appendTx(u.ID, "sms_usage", price, -cost, "completed", "number rental: "+body.ServiceCode)

	writeEnvelope(w, http.StatusCreated, "number requested", map[string]any{
		"active_number": a.numberJSON(n),
	})
}

func (a *Authority) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.ownedNumber(r)
	if !ok {
		writeEnvelope(w, http.StatusNotFound, "number not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "ok", map[string]any{
		"active_number": a.numberJSON(n),
		"status":        n.Status,
		"code":          n.Code,
	})
}

func (a *Authority) handleReactivate(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.ownedNumber(r)
	if !ok {
		writeEnvelope(w, http.StatusNotFound, "number not found", nil)
		return
	}
	if n.Status != "waiting" && n.Status != "received" {
		writeEnvelope(w, http.StatusConflict, "number cannot be reactivated", nil)
		return
	}
	u := a.users[userID(r)]
	cost := int(n.Cost)
	if u.Credits < cost {
		writeEnvelope(w, http.StatusPaymentRequired, "insufficient credits", nil)
		return
	}
	u.Credits -= cost
	n.Status = "waiting"
	n.Code = ""
	n.ExpiresAt = time.Now().UTC().Add(15 * time.Minute)
	a.appendTx(u.ID, "sms_usage", n.Cost, -cost, "completed", "reactivation: "+n.Service)

	writeEnvelope(w, http.StatusOK, "reactivated", a.numberJSON(n))
}

func (a *Authority) handleCancel(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.ownedNumber(r)
	if !ok {
		writeEnvelope(w, http.StatusNotFound, "number not found", nil)
		return
	}
	if n.Status != "waiting" {
		writeEnvelope(w, http.StatusConflict, "only waiting numbers can be cancelled", nil)
		return
	}
	n.Status = "cancelled"
	n.Code = ""
	u := a.users[userID(r)]
	refund := int(n.Cost)
	u.Credits += refund
	a.appendTx(u.ID, "refund", n.Cost, refund, "completed", "cancellation refund")

	// The cancel route answers with no body at all.
	w.WriteHeader(http.StatusOK)
}

// --- catalog ---

func (a *Authority) handleServices(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	writeEnvelope(w, http.StatusOK, "ok", a.services)
}

func (a *Authority) handleCountries(w http.ResponseWriter, _ *http.Request) {
	if !a.countriesOn {
		writeEnvelope(w, http.StatusNotFound, "route not implemented", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "ok", []map[string]any{
		{"id": "br", "name": "Brazil", "code": "55", "price": 0.0, "available": true},
		{"id": "us", "name": "United States", "code": "1", "price": 0.5, "available": true},
	})
}

func (a *Authority) handlePackages(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, "ok", a.packages)
}

// --- credits ---

func (a *Authority) handleHistory(w http.ResponseWriter, r *http.Request) {
	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", 10)

	a.mu.Lock()
	defer a.mu.Unlock()
	var mine []authorityTx
	for i := len(a.txs) - 1; i >= 0; i-- { // newest first
		if a.txs[i].UserID == userID(r) {
			mine = append(mine, a.txs[i])
		}
	}
	total := len(mine)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	pageTxs := []map[string]any{}
	for _, tx := range mine[start:end] {
		pageTxs = append(pageTxs, map[string]any{
			"id": tx.ID, "type": tx.Type, "amount": tx.Amount, "credits": tx.Credits,
			"status": tx.Status, "description": tx.Desc, "created_at": tx.CreatedAt,
		})
	}
	totalPages := (total + limit - 1) / limit
	writeEnvelope(w, http.StatusOK, "ok", map[string]any{
		"transactions": pageTxs, "total": total, "page": page, "totalPages": totalPages,
	})
}

func (a *Authority) handleCreditStats(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var spent float64
	var used int
	for _, tx := range a.txs {
		if tx.UserID == userID(r) && tx.Type == "sms_usage" {
			spent += tx.Amount
			used += -tx.Credits
		}
	}
	u := a.users[userID(r)]
	writeEnvelope(w, http.StatusOK, "ok", map[string]any{
		"totalCredits":     u.Credits + used,
		"usedCredits":      used,
		"availableCredits": u.Credits,
		"totalSpent":       spent,
	})
}

func (a *Authority) handleBalance(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	writeEnvelope(w, http.StatusOK, "ok", map[string]any{"credits": a.users[userID(r)].Credits})
}

// --- payments ---

func (a *Authority) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	gateway := chi.URLParam(r, "gateway")
	switch gateway {
	case "pix", "stripe", "mercadopago":
	default:
		writeEnvelope(w, http.StatusBadGateway, "unknown payment gateway", nil)
		return
	}
	var body struct {
		Amount  float64 `json:"amount"`
		Credits int     `json:"credits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 || body.Credits <= 0 {
		writeEnvelope(w, http.StatusBadRequest, "invalid payment payload", nil)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	p := &authorityPayment{
		ID:      uuid.NewString(),
		UserID:  userID(r),
		Gateway: gateway,
		Amount:  body.Amount,
		Credits: body.Credits,
		Status:  "pending",
	}
	a.payments[p.ID] = p
	a.appendTx(p.UserID, "credit_purchase", p.Amount, p.Credits, "pending", "credit package purchase")

	data := map[string]any{"id": p.ID, "status": p.Status, "amount": p.Amount, "credits": p.Credits}
	switch gateway {
	case "stripe":
		data["session_url"] = "https://checkout.stripe.test/" + p.ID
	case "mercadopago":
		data["init_point"] = "https://mercadopago.test/init/" + p.ID
	case "pix":
		data["qr_code"] = "pix-qr-" + p.ID
	}
	writeEnvelope(w, http.StatusCreated, "payment created", data)
}

func (a *Authority) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[chi.URLParam(r, "id")]
	if !ok || p.UserID != userID(r) {
		writeEnvelope(w, http.StatusNotFound, "payment not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "ok", map[string]any{
		"id": p.ID, "status": p.Status, "amount": p.Amount, "credits": p.Credits, "method": p.Gateway,
	})
}

func (a *Authority) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[chi.URLParam(r, "id")]
	if !ok || p.UserID != userID(r) {
		writeEnvelope(w, http.StatusNotFound, "payment not found", nil)
		return
	}
	if p.Status != "pending" {
		writeEnvelope(w, http.StatusConflict, "payment already settled", nil)
		return
	}
	p.Status = "cancelled"
	for i := range a.txs {
		if a.txs[i].Type == "credit_purchase" && a.txs[i].UserID == p.UserID && a.txs[i].Status == "pending" {
			a.txs[i].Status = "cancelled"
		}
	}
	writeEnvelope(w, http.StatusOK, "payment cancelled", nil)
}

// --- test knobs ---

// DeliverCode marks a waiting number as received with the given code.
func (a *Authority) DeliverCode(numberID, code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, ok := a.numbers[numberID]; ok && n.Status == "waiting" {
		n.Status = "received"
		n.Code = code
	}
}

// ExpireNumber marks a waiting number as expired.
func (a *Authority) ExpireNumber(numberID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, ok := a.numbers[numberID]; ok && n.Status == "waiting" {
		n.Status = "expired"
	}
}

// SettlePayment completes a pending payment session and credits the user.
func (a *Authority) SettlePayment(paymentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.payments[paymentID]
	if !ok || p.Status != "pending" {
		return
	}
	p.Status = "completed"
	a.users[p.UserID].Credits += p.Credits
	for i := range a.txs {
		if a.txs[i].Type == "credit_purchase" && a.txs[i].UserID == p.UserID && a.txs[i].Status == "pending" {
			a.txs[i].Status = "completed"
		}
	}
}

// RotateKey swaps the token signing key, invalidating every credential
// minted so far. Subsequent authenticated calls answer 401.
func (a *Authority) RotateKey() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signingKey = []byte("authority-test-key-" + uuid.NewString())
}

// Credits returns the current balance of the user registered with email.
func (a *Authority) Credits(email string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.byEmail[email]; ok {
		return a.users[id].Credits
	}
	return 0
}

// SetCredits overrides the balance of the user registered with email.
func (a *Authority) SetCredits(email string, credits int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.byEmail[email]; ok {
		a.users[id].Credits = credits
	}
}

// --- internals ---

type ctxKey string

const userKey ctxKey = "authority-user"

func (a *Authority) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeEnvelope(w, http.StatusUnauthorized, "missing credential", nil)
			return
		}
		a.mu.Lock()
		key := a.signingKey
		a.mu.Unlock()
		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			writeEnvelope(w, http.StatusUnauthorized, "invalid credential", nil)
			return
		}
		id, _ := claims["user_id"].(string)
		a.mu.Lock()
		_, known := a.users[id]
		a.mu.Unlock()
		if !known {
			writeEnvelope(w, http.StatusUnauthorized, "unknown user", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, id)))
	})
}

func (a *Authority) mintToken(id string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id,
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	})
	signed, err := tok.SignedString(a.signingKey)
	if err != nil {
		panic(fmt.Sprintf("mint token: %v", err))
	}
	return signed
}

func (a *Authority) servicePrice(id string) (float64, bool) {
	for _, svc := range a.services {
		if svc["id"] == id {
			price, _ := svc["price"].(float64)
			return price, true
		}
	}
	return 0, false
}

func (a *Authority) ownedNumber(r *http.Request) (*authorityNumber, bool) {
	n, ok := a.numbers[chi.URLParam(r, "id")]
	if !ok || n.UserID != userID(r) {
		return nil, false
	}
	return n, true
}

func (a *Authority) appendTx(userID, kind string, amount float64, credits int, status, desc string) {
	a.txs = append(a.txs, authorityTx{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Amount:    amount,
		Credits:   credits,
		Status:    status,
		Desc:      desc,
		CreatedAt: time.Now().UTC(),
	})
}

func (a *Authority) userJSON(u *authorityUser) map[string]any {
	return map[string]any{
		"id": u.ID, "username": u.Username, "email": u.Email,
		"credits": u.Credits, "role": "user", "created_at": time.Now().UTC(),
	}
}

func (a *Authority) numberJSON(n *authorityNumber) map[string]any {
	return map[string]any{
		"id": n.ID, "service_code": n.Service, "country_code": n.Country,
		"phone_number": n.Phone, "code": n.Code, "status": n.Status,
		"cost": n.Cost, "created_at": n.CreatedAt, "expires_at": n.ExpiresAt,
	}
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"message": message,
		"data":    data,
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey).(string)
	return id
}

func intQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func n8() string {
	return uuid.NewString()[:8]
}
