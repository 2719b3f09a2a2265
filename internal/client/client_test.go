package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/metrics"
)

type recorded struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(HeaderRequestID),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(t *testing.T, baseURL, token string, opts ...Option) *Client {
	store := session.NewMemoryStore()
	if token != "" {
		require.NoError(t, store.Save(context.Background(), token, nil))
	}
	return New(Config{BaseURL: baseURL}, store, opts...)
}

func TestAttachesTokenToProtectedRequests(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"id": 3, "fullname": "Ada"}`)
	c := newClient(t, srv.URL+"/", "abc123")

	var out struct {
		ID       int    `json:"id"`
		FullName string `json:"fullname"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/patients/3/", nil, &out))

	assert.Equal(t, 3, out.ID)
	require.Len(t, *calls, 1)
	assert.Equal(t, "Token abc123", (*calls)[0].Authorization)
	assert.Equal(t, "/api/patients/3/", (*calls)[0].Path)
	assert.NotEmpty(t, (*calls)[0].RequestID)
}

func TestLoginAndRegisterAreAnonymous(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{}`)
	c := newClient(t, srv.URL, "abc123")
	ctx := context.Background()

	require.NoError(t, c.Do(ctx, http.MethodPost, "auth/token/login/", map[string]string{"email": "a@b.io"}, nil))
	require.NoError(t, c.Do(ctx, http.MethodPost, "register/", map[string]string{"email": "a@b.io"}, nil))

	for _, call := range *calls {
		assert.Empty(t, call.Authorization, call.Path)
	}
}

func TestAbsentTokenDispatchesWithoutCredential(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusUnauthorized, `{"detail": "Authentication credentials were not provided."}`)
	c := newClient(t, srv.URL, "")

	err := c.Do(context.Background(), http.MethodGet, "auth/users/me/", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Contains(t, err.Error(), "credentials were not provided")

	require.Len(t, *calls, 1)
	assert.Empty(t, (*calls)[0].Authorization)
}

func TestStrictAuthFailsWithoutDispatch(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `[]`)
	c := newClient(t, srv.URL, "", WithStrictAuth())

	err := c.Do(context.Background(), http.MethodGet, "/api/patients/", nil, nil)
	assert.True(t, errors.IsAuth(err))
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Empty(t, *calls)

	// anonymous endpoints are unaffected
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "auth/token/login/", nil, nil))
	assert.Len(t, *calls, 1)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "field errors",
			status: http.StatusBadRequest,
			body:   `{"email": ["Enter a valid email address."], "age": ["Ensure this value is less than or equal to 120."]}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsValidation(err))
				details := errors.FieldErrors(err)
				assert.Equal(t, []string{"Enter a valid email address."}, details["email"])
				assert.Len(t, details["age"], 1)
			},
		},
		{
			name:   "error key",
			status: http.StatusBadRequest,
			body:   `{"error": "No image uploaded"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsValidation(err))
				assert.Contains(t, err.Error(), "No image uploaded")
				assert.Nil(t, errors.FieldErrors(err))
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"detail": "You do not have permission to perform this action."}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsAuth(err))
				assert.Equal(t, errors.ErrForbidden, errors.CodeOf(err))
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"detail": "Not found."}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsNotFound(err))
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `<html>boom</html>`,
			check: func(t *testing.T, err error) {
				assert.Equal(t, errors.ErrInternal, errors.CodeOf(err))
				var appErr *errors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, http.StatusInternalServerError, appErr.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := newClient(t, srv.URL, "tok")
			err := c.Do(context.Background(), http.MethodPost, "/api/patients/", map[string]int{"id": 1}, nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNoRetryOnFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "tok")
	err := c.Do(context.Background(), http.MethodPost, "/api/patients/", map[string]int{"id": 1}, nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, "tok")
	err := c.Do(context.Background(), http.MethodGet, "/api/patients/", nil, nil)
	assert.True(t, errors.IsNetwork(err))
}

func TestCancelledContext(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{}`)
	c := newClient(t, srv.URL, "tok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, http.MethodGet, "/api/patients/", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *calls)
}

func TestUploadMultipart(t *testing.T) {
	var gotField, gotName, gotPatient string
	var gotData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		gotData, _ = io.ReadAll(f)
		gotName = hdr.Filename
		gotField = "image"
		gotPatient = r.FormValue("patient_id")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"annotated_image": "/media/a.jpg"})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, "tok")
	var out struct {
		AnnotatedImage string `json:"annotated_image"`
	}
	err := c.Upload(context.Background(), "/api/predict/",
		[]File{{Field: "image", Filename: "smear.jpg", Data: []byte("jpegbytes")}},
		map[string]string{"patient_id": "12"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "image", gotField)
	assert.Equal(t, "smear.jpg", gotName)
	assert.Equal(t, []byte("jpegbytes"), gotData)
	assert.Equal(t, "12", gotPatient)
	assert.Equal(t, "/media/a.jpg", out.AnnotatedImage)
}

func TestMetricsRecorded(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"detail": "Not found."}`)
	m := metrics.New("test")
	c := newClient(t, srv.URL, "tok", WithMetrics(m))

	_ = c.Do(context.Background(), http.MethodGet, "/api/patients/41/", nil, nil)
	_ = c.Do(context.Background(), http.MethodGet, "/api/patients/42/", nil, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/patients/{id}/", "404")))
}

func TestRequiresAuth(t *testing.T) {
	assert.False(t, RequiresAuth(http.MethodPost, "auth/token/login/"))
	assert.False(t, RequiresAuth(http.MethodPost, "/register/"))
	assert.False(t, RequiresAuth(http.MethodPost, "auth/users/"))
	assert.True(t, RequiresAuth(http.MethodGet, "auth/users/"))
	assert.True(t, RequiresAuth(http.MethodGet, "auth/users/me/"))
	assert.True(t, RequiresAuth(http.MethodPost, "/api/predict/"))
}

func TestContextTokenOverridesStore(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{}`)
	c := newClient(t, srv.URL, "stored")

	ctx := ContextWithToken(context.Background(), "fresh")
	require.NoError(t, c.Do(ctx, http.MethodGet, "auth/users/me/", nil, nil))
	assert.Equal(t, "Token fresh", (*calls)[0].Authorization)
}

func TestResolveURL(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:8000/"}, session.NewMemoryStore())

	assert.Equal(t, "http://127.0.0.1:8000/media/annotated/a.jpg", c.ResolveURL("/media/annotated/a.jpg"))
	assert.Equal(t, "https://cdn.example.org/a.jpg", c.ResolveURL("https://cdn.example.org/a.jpg"))
	assert.Empty(t, c.ResolveURL(""))
}
