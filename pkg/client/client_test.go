package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

func TestLoginDecodesEnvelope(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(http.MethodPost, r.Method)
		require.Equal("/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(json.NewDecoder(r.Body).Decode(&body))
		require.Equal("a@x.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"identity":{"id":"user-1","email":"a@x.com","role":"ORDINARY","active":true},"auth":{"token":"tok-1","expires_at":"2026-09-01T00:00:00Z"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Login(context.Background(), "a@x.com", "secret")
	require.NoError(err)
	assert.Equal("tok-1", result.Token)
	assert.Equal("user-1", result.Identity.ID)
	assert.Equal(RoleOrdinary, result.Identity.Role)
}

func TestErrorEnvelopeClassification(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name   string
		status int
		body   string
		kind   errorutil.Kind
	}{
		{"authentication", 401, `{"error":{"code":"AUTHENTICATION","message":"invalid credentials"}}`, errorutil.KindAuthentication},
		{"stale state", 409, `{"error":{"code":"STALE_STATE","message":"complaint was modified concurrently"}}`, errorutil.KindStaleState},
		{"invalid transition", 409, `{"error":{"code":"INVALID_TRANSITION","message":"not allowed"}}`, errorutil.KindInvalidTransition},
		{"unknown code degrades to transport", 500, `{"error":{"code":"BANANA","message":"?"}}`, errorutil.KindTransport},
		{"non-json body degrades to transport", 502, `upstream timeout`, errorutil.KindTransport},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(srv.URL)
			err := c.Logout(context.Background())
			assert.True(errorutil.IsKind(err, tc.kind), "got %v", err)
		})
	}
}

func TestBearerTokenHeader(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"identity":{"id":"user-1"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-1")
	_, err := c.Me(context.Background())
	require.NoError(err)
	assert.Equal("Bearer tok-1", gotAuth.Load())

	c.ClearToken()
	_, err = c.Me(context.Background())
	require.NoError(err)
	assert.Equal("", gotAuth.Load())
}

func TestReadsRetryOnServerFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"identity":{"id":"user-1"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	identity, err := c.Me(context.Background())
	require.NoError(err)
	assert.Equal("user-1", identity.ID)
	assert.EqualValues(3, calls.Load())
}

func TestWritesAreNotRetried(t *testing.T) {
	assert := assert.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.SubmitComplaint(context.Background(), SubmitComplaintInput{
		Category: "c", Title: "t", Details: "d",
	})
	assert.True(errorutil.IsKind(err, errorutil.KindTransport))
	assert.EqualValues(1, calls.Load())
}

func TestAuthErrorsAreNotRetried(t *testing.T) {
	assert := assert.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"AUTHENTICATION","message":"token revoked"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Me(context.Background())
	assert.True(errorutil.IsKind(err, errorutil.KindAuthentication))
	assert.EqualValues(1, calls.Load())
}

func TestListComplaintsQuery(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("under_review,resolved", r.URL.Query().Get("status"))
		assert.Equal("2", r.URL.Query().Get("page"))
		assert.Equal("25", r.URL.Query().Get("page_size"))
		_, _ = w.Write([]byte(`{"data":[{"id":"c-1","status":"under_review"}],"meta":{"total":26,"current_page":2,"per_page":25,"last_page":2}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	page, err := c.ListComplaints(context.Background(), ComplaintListQuery{
		Status:   "under_review,resolved",
		Page:     2,
		PageSize: 25,
	})
	require.NoError(err)
	require.Len(page.Data, 1)
	assert.Equal("c-1", page.Data[0].ID)
	assert.EqualValues(26, page.Meta.Total)
}
