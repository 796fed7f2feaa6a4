package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
)

type HandlerSuite struct {
	suite.Suite

	handler *Handler
	server  *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.handler = New()
	router := chi.NewRouter()
	s.handler.Register(router)
	s.server = httptest.NewServer(router)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) get(path string, out any) int {
	resp, err := http.Get(s.server.URL + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *HandlerSuite) TestLivenessAlwaysUp() {
	var body LivenessResponse
	s.Equal(http.StatusOK, s.get("/healthz", &body))
	s.Equal("alive", body.Status)
}

func (s *HandlerSuite) TestReadinessWithoutChecks() {
	var body ReadinessResponse
	s.Equal(http.StatusOK, s.get("/readyz", &body))
	s.Equal("ready", body.Status)
}

func (s *HandlerSuite) TestReadinessReportsFailingCheck() {
	s.handler.RegisterCheck("ledger", func() error { return nil })
	s.handler.RegisterCheck("transport", func() error {
		return errors.New("authority unreachable")
	})

	var body ReadinessResponse
	s.Equal(http.StatusServiceUnavailable, s.get("/readyz", &body))
	s.Equal("not_ready", body.Status)
	s.Equal("up", body.Checks["ledger"])
	s.Equal("down: authority unreachable", body.Checks["transport"])
}

func (s *HandlerSuite) TestReadinessRecovers() {
	healthy := false
	s.handler.RegisterCheck("loop", func() error {
		if !healthy {
			return errors.New("not started")
		}
		return nil
	})

	s.Equal(http.StatusServiceUnavailable, s.get("/readyz", nil))

	healthy = true
	s.Equal(http.StatusOK, s.get("/readyz", nil))
}

// Mirrors the staleness check the binary registers: ready while the last
// refresh is recent, not ready once it ages past the threshold.
func (s *HandlerSuite) TestReadinessStalenessCheck() {
	threshold := time.Minute
	lastRefresh := time.Now()
	s.handler.RegisterCheck("reconcile", func() error {
		if time.Since(lastRefresh) > threshold {
			return fmt.Errorf("last reconcile at %s", lastRefresh.Format(time.RFC3339))
		}
		return nil
	})

	s.Equal(http.StatusOK, s.get("/readyz", nil))

	lastRefresh = time.Now().Add(-2 * threshold)
	var body ReadinessResponse
	s.Equal(http.StatusServiceUnavailable, s.get("/readyz", &body))
	s.Contains(body.Checks["reconcile"], "down: last reconcile at")
}

func (s *HandlerSuite) TestStatusReportsVersionAndUptime() {
	var body StatusResponse
	s.Equal(http.StatusOK, s.get("/status", &body))
	s.Equal("healthy", body.Status)
	s.Equal(Version, body.Version)
	s.GreaterOrEqual(body.UptimeSeconds, int64(0))
}
