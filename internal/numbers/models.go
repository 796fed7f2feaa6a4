package numbers

import "time"

// Status is the lifecycle state of a rented number.
type Status string

const (
	// StatusRequested is the transient state before the authority acks the
	// rental. A successful request call lands directly in StatusWaiting.
	StatusRequested Status = "requested"
	StatusWaiting   Status = "waiting"
	StatusReceived  Status = "received"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a wire status onto the state machine. Unknown values are
// treated as requested so a schema drift never fabricates a terminal state.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusWaiting, StatusReceived, StatusExpired, StatusCancelled:
		return Status(s)
	default:
		return StatusRequested
	}
}

// Terminal reports whether no further network mutation is valid from s.
// Received is terminal only absent a reactivation, which is modeled as its
// own transition back to waiting.
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusCancelled
}

// CanCancel reports whether a cancel call is valid from s.
func (s Status) CanCancel() bool {
	return s == StatusWaiting
}

// CanReactivate reports whether a reactivate call is valid from s.
func (s Status) CanReactivate() bool {
	return s == StatusWaiting || s == StatusReceived
}

// Number is the local view of one rented virtual phone number.
type Number struct {
	ID           string
	ServiceID    string
	CountryID    string
	PhoneDisplay string
	LastCode     string
	Status       Status
	Cost         float64
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// numberPayload is the wire shape of a rented number. Field names drifted
// between backend revisions (number vs phone_number, service vs service_code),
// so both spellings are accepted.
type numberPayload struct {
	ID          string    `json:"id"`
	Service     string    `json:"service"`
	ServiceCode string    `json:"service_code"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	Number      string    `json:"number"`
	PhoneNumber string    `json:"phone_number"`
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	Cost        float64   `json:"cost"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (p numberPayload) toNumber() Number {
	status := ParseStatus(p.Status)
	n := Number{
		ID:           p.ID,
		ServiceID:    firstNonEmpty(p.ServiceCode, p.Service),
		CountryID:    firstNonEmpty(p.CountryCode, p.Country),
		PhoneDisplay: firstNonEmpty(p.PhoneNumber, p.Number),
		Status:       status,
		Cost:         p.Cost,
		CreatedAt:    p.CreatedAt,
		ExpiresAt:    p.ExpiresAt,
	}
	// The last code only exists once a message actually arrived.
	if status == StatusReceived {
		n.LastCode = p.Code
	}
	return n
}
