package devserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/leukemia-dashboard/internal/devserver"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

func newServer(t *testing.T) (*devserver.Server, string) {
	srv := devserver.New(devserver.Config{JWTSecret: "s", BcryptCost: bcrypt.MinCost}, logger.Nop())
	_, token, err := srv.Seed(context.Background(), "lab@example.org", "correct-horse", "Lab")
	require.NoError(t, err)
	return srv, token
}

func do(t *testing.T, srv *devserver.Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func validPatient(id int) model.PatientPayload {
	return model.PatientPayload{
		ID:             id,
		FullName:       "Ada Lovelace",
		Phone:          "5550100",
		Email:          "ada@example.org",
		Gender:         model.GenderFemale,
		Age:            36,
		Address:        "London",
		BloodType:      "AB+",
		EmergencyName:  "Charles",
		EmergencyPhone: "5550199",
	}
}

func TestLoginIssuesDjoserToken(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodPost, "/auth/token/login/", "", map[string]string{
		"email": "lab@example.org", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var tok model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.NotEmpty(t, tok.AuthToken)

	w = do(t, srv, http.MethodPost, "/auth/token/login/", "", map[string]string{
		"email": "lab@example.org", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "non_field_errors")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodGet, "/api/patients/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail": "Authentication credentials were not provided."}`, w.Body.String())

	w = do(t, srv, http.MethodGet, "/auth/users/me/", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPatientValidationErrorsAreFieldKeyed(t *testing.T) {
	srv, token := newServer(t)

	bad := validPatient(1)
	bad.Age = 130
	bad.Gender = "Male"
	w := do(t, srv, http.MethodPost, "/api/patients/", token, bad)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var details map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.Contains(t, details, "age")
	assert.Contains(t, details, "gender")
}

func TestPatientNotFound(t *testing.T) {
	srv, token := newServer(t)

	w := do(t, srv, http.MethodGet, "/api/patients/404/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail": "Not found."}`, w.Body.String())
}

func TestPredictRequiresImage(t *testing.T) {
	srv, token := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/patients/", token, validPatient(3)).Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("patient_id", "3"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Image and patient_id are required.")
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health/live", "", nil).Code)

	w := do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "devserver_http_requests_total")
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newServer(t)

	w := do(t, srv, http.MethodGet, "/health/live", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := devserver.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8000", cfg.Addr)
	assert.Equal(t, 10, cfg.BcryptCost)
}
