package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/aretw0/sprintboard/pkg/adapters/rest"
	"github.com/aretw0/sprintboard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetJSON(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.Query().Get("$timeframe")
		_, _ = w.Write([]byte(`{"name":"Sprint 1"}`))
	}))
	defer srv.Close()

	c, err := rest.New("Fake", srv.URL+"/org/", rest.BasicAuth{Username: "me", Password: "pat"})
	require.NoError(t, err)

	var out struct{ Name string }
	u := c.Endpoint(url.Values{"$timeframe": {"current"}}, url.PathEscape("My Project"), "_apis/iterations")
	require.NoError(t, c.GetJSON(context.Background(), "get", u, &out))

	assert.Equal(t, "Sprint 1", out.Name)
	assert.Equal(t, "Basic bWU6cGF0", gotAuth)
	assert.Equal(t, "/org/My%20Project/_apis/iterations", gotPath)
	assert.Equal(t, "current", gotQuery)
}

func TestClient_Bearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := rest.New("Fake", srv.URL, rest.BearerToken("abc"))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "get", c.Endpoint(nil, "x"), &out))
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestClient_Classification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   core.Kind
	}{
		{http.StatusUnauthorized, "", core.KindAuthentication},
		{http.StatusForbidden, "", core.KindAuthentication},
		{http.StatusNonAuthoritativeInfo, "<html>sign in</html>", core.KindAuthentication},
		{http.StatusNotFound, `{"message":"project does not exist"}`, core.KindNotFound},
		{http.StatusTooManyRequests, "", core.KindTransient},
		{http.StatusBadGateway, "", core.KindTransient},
		{http.StatusBadRequest, "", core.KindBackendResponse},
		{http.StatusOK, "<html>not json</html>", core.KindBackendResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := rest.New("Fake", srv.URL, nil)
			require.NoError(t, err)

			var out map[string]any
			err = c.GetJSON(context.Background(), "get thing", c.Endpoint(nil, "thing"), &out)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))

			var ce *core.Error
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, "Fake", ce.Backend)
			assert.Equal(t, "get thing", ce.Op)
		})
	}
}

func TestClient_TransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := rest.New("Fake", srv.URL, nil, rest.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	var out map[string]any
	err = c.GetJSON(context.Background(), "slow", c.Endpoint(nil, "slow"), &out)
	assert.True(t, core.IsRetryable(err))

	closed := httptest.NewServer(http.NotFoundHandler())
	base := closed.URL
	closed.Close()

	c, err = rest.New("Fake", base, nil)
	require.NoError(t, err)
	err = c.GetJSON(context.Background(), "down", c.Endpoint(nil, "x"), &out)
	assert.Equal(t, core.KindTransient, core.KindOf(err))
}

func TestNew_InvalidInstance(t *testing.T) {
	for _, base := range []string{"", "dev.azure.com/org", "ftp://host", "http://"} {
		_, err := rest.New("Fake", base, nil)
		assert.Equal(t, core.KindNotFound, core.KindOf(err), base)
	}
}
