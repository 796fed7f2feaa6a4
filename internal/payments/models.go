package payments

import "time"

// Gateway identifies a payment provider. The value doubles as the path
// segment of the authority's create route.
type Gateway string

const (
	GatewayPix         Gateway = "pix"
	GatewayStripe      Gateway = "stripe"
	GatewayMercadoPago Gateway = "mercadopago"
)

// Valid reports whether the gateway is one the authority accepts.
func (g Gateway) Valid() bool {
	switch g {
	case GatewayPix, GatewayStripe, GatewayMercadoPago:
		return true
	}
	return false
}

// SessionStatus is the settlement state of a payment session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionExpired   SessionStatus = "expired"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether the session will never change state again.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionExpired, SessionCancelled:
		return true
	}
	return false
}

// Session is one checkout attempt against a gateway. RedirectURL carries
// whichever continuation the gateway returned: a hosted checkout page, an
// init point, or a PIX QR payload.
type Session struct {
	ID          string
	Gateway     Gateway
	PackageID   string
	Amount      float64
	Credits     int
	RedirectURL string
	Status      SessionStatus
	CreatedAt   time.Time
}

// sessionPayload is the wire shape of the create and status routes. The three
// gateways disagree on the continuation field name.
type sessionPayload struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	Credits    int     `json:"credits"`
	SessionURL string  `json:"session_url"`
	InitPoint  string  `json:"init_point"`
	QRCode     string  `json:"qr_code"`
}

func (p sessionPayload) redirect() string {
	switch {
	case p.SessionURL != "":
		return p.SessionURL
	case p.InitPoint != "":
		return p.InitPoint
	default:
		return p.QRCode
	}
}

func parseSessionStatus(raw string) SessionStatus {
	switch raw {
	case "completed", "approved", "paid":
		return SessionCompleted
	case "failed", "rejected":
		return SessionFailed
	case "expired":
		return SessionExpired
	case "cancelled", "canceled":
		return SessionCancelled
	default:
		return SessionPending
	}
}
