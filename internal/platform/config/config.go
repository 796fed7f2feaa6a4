package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Engine holds the runtime configuration for the reconciliation engine.
// Values come from the environment so main stays lean.
type Engine struct {
	// APIBaseURL is the root of the remote authority, including any /api prefix.
	APIBaseURL string `env:"JACKBEAR_API_URL" env-default:"https://jackbear-sms.r954jc.easypanel.host/api"`

	// RequestTimeout bounds every transport round-trip.
	RequestTimeout time.Duration `env:"JACKBEAR_REQUEST_TIMEOUT" env-default:"10s"`

	// ReconcileInterval is the periodic reconciliation tick.
	ReconcileInterval time.Duration `env:"JACKBEAR_RECONCILE_INTERVAL" env-default:"30s"`

	// CredentialTTL caps how long a stored bearer credential stays usable
	// when the token itself carries no expiry claim.
	CredentialTTL time.Duration `env:"JACKBEAR_CREDENTIAL_TTL" env-default:"168h"`

	// CredentialFile, when set, persists the credential across restarts.
	// Empty keeps the credential in memory only.
	CredentialFile string `env:"JACKBEAR_CREDENTIAL_FILE" env-default:""`

	// MetricsAddr serves /metrics and /healthz for the demo binary.
	MetricsAddr string `env:"JACKBEAR_METRICS_ADDR" env-default:":9190"`

	// LogLevel selects the slog level: debug, info, warn or error.
	LogLevel string `env:"JACKBEAR_LOG_LEVEL" env-default:"info"`
}

// Load reads engine configuration from the environment.
func Load() (Engine, error) {
	var cfg Engine
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Engine{}, err
	}
	return cfg, nil
}
