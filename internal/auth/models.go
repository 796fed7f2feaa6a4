package auth

import "time"

// UserProfile is the authoritative account snapshot. It is refreshed from the
// authority after any mutation that can change the credit balance and is
// never locally adjusted as a substitute for a confirmed read.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Credits     int
	Role        string
	CreatedAt   time.Time
}

// Session pairs the bearer credential with the user it authenticates.
// At most one live session exists per process.
type Session struct {
	UserID string
	Token  string
	Expiry time.Time
}

// Expired reports whether the session credential is past its deadline.
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && now.After(s.Expiry)
}

// userPayload is the wire shape of an account. Backend revisions disagreed on
// whether the display name travels as "username" or "name".
type userPayload struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (p userPayload) toProfile() UserProfile {
	display := p.Username
	if display == "" {
		display = p.Name
	}
	return UserProfile{
		ID:          p.ID,
		DisplayName: display,
		Email:       p.Email,
		Credits:     p.Credits,
		Role:        p.Role,
		CreatedAt:   p.CreatedAt,
	}
}
