package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

func newTestJWT() *jwt.Service {
	return jwt.NewService("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour)
}

func bearer(t *testing.T, tokens *jwt.Service, userID uuid.UUID, roles ...string) string {
	t.Helper()
	token, err := tokens.GenerateAccessToken(userID, "rider@example.com", roles)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path string, body any, auth string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type mockReservations struct{ mock.Mock }

func (m *mockReservations) Create(ctx context.Context, userID uuid.UUID, req models.CreateReservationRequest) (*models.CreateReservationResponse, error) {
	args := m.Called(ctx, userID, req)
	resp, _ := args.Get(0).(*models.CreateReservationResponse)
	return resp, args.Error(1)
}

func (m *mockReservations) ConfirmPayment(ctx context.Context, userID uuid.UUID, reservationID int64, orderID string) error {
	return m.Called(ctx, userID, reservationID, orderID).Error(0)
}

func (m *mockReservations) Cancel(ctx context.Context, userID uuid.UUID, reservationID int64) error {
	return m.Called(ctx, userID, reservationID).Error(0)
}

func (m *mockReservations) ListMine(ctx context.Context, userID uuid.UUID) ([]models.ReservationDetails, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]models.ReservationDetails)
	return list, args.Error(1)
}

type mockAvailability struct{ mock.Mock }

func (m *mockAvailability) GetSeatMap(ctx context.Context, tripID int64) (*models.SeatMap, error) {
	args := m.Called(ctx, tripID)
	seatMap, _ := args.Get(0).(*models.SeatMap)
	return seatMap, args.Error(1)
}

func (m *mockAvailability) SearchTrips(ctx context.Context, req models.TripSearchRequest) (*models.TripSearchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.TripSearchResponse)
	return resp, args.Error(1)
}

func (m *mockAvailability) SearchRoutes(ctx context.Context, req models.TripSearchRequest) (*models.RouteSearchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.RouteSearchResponse)
	return resp, args.Error(1)
}

func (m *mockAvailability) SearchCities(ctx context.Context, q string) ([]models.CitySearchResult, error) {
	args := m.Called(ctx, q)
	results, _ := args.Get(0).([]models.CitySearchResult)
	return results, args.Error(1)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Register(ctx context.Context, req models.RegisterRequest, client services.ClientInfo) (*models.VerificationStarted, error) {
	args := m.Called(ctx, req, client)
	started, _ := args.Get(0).(*models.VerificationStarted)
	return started, args.Error(1)
}

func (m *mockAuth) Resend(ctx context.Context, req models.ResendRequest, client services.ClientInfo) (*models.VerificationStarted, error) {
	args := m.Called(ctx, req, client)
	started, _ := args.Get(0).(*models.VerificationStarted)
	return started, args.Error(1)
}

func (m *mockAuth) Verify(ctx context.Context, req models.VerifyRequest) (*models.AuthTokens, error) {
	args := m.Called(ctx, req)
	tokens, _ := args.Get(0).(*models.AuthTokens)
	return tokens, args.Error(1)
}

func (m *mockAuth) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	args := m.Called(ctx, refreshToken)
	tokens, _ := args.Get(0).(*models.AuthTokens)
	return tokens, args.Error(1)
}

type stubJobs struct {
	expired, cleaned int
}

func (s *stubJobs) RunExpireHoldsNow()         { s.expired++ }
func (s *stubJobs) RunVerificationCleanupNow() { s.cleaned++ }
func (s *stubJobs) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "job_count": 2}
}

func withRequestID(router *gin.Engine) *gin.Engine {
	router.Use(middleware.RequestID())
	return router
}
