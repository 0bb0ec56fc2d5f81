package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expiredTokenResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "Token expired",
		"code":  "TOKEN_EXPIRED",
	})
}

func TestDoAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer srv.Close()

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	c := New(srv.URL, store)
	var out map[string]string
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/users/me", nil, &out))
	assert.Equal(t, "Bearer access-1", gotAuth)
}

func TestDoSkipAuthOmitsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Resource{})
	}))
	defer srv.Close()

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(Credentials{AccessToken: "access-1"}))

	c := New(srv.URL, store)
	var out []Resource
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/resources", nil, &out, SkipAuth()))
	assert.Empty(t, gotAuth)
}

func TestExpiredTokenRefreshesOnceAndRetries(t *testing.T) {
	var refreshCalls, meCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refreshToken"])
		assert.Empty(t, r.Header.Get("Authorization"), "refresh token must not travel with a bearer credential")

		json.NewEncoder(w).Encode(map[string]string{"token": "access-2"})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			expiredTokenResponse(w)
			return
		}
		json.NewEncoder(w).Encode(User{ID: "u1", Email: "a@b.c"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(Credentials{AccessToken: "stale", RefreshToken: "refresh-1"}))

	c := New(srv.URL, store)
	var user User
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/users/me", nil, &user))

	assert.Equal(t, "u1", user.ID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls))
	assert.EqualValues(t, 2, atomic.LoadInt32(&meCalls))

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken, "refresh token is reused, not rotated")
}

func TestRefreshFailureClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid refresh token"})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		expiredTokenResponse(w)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(Credentials{AccessToken: "stale", RefreshToken: "revoked"}))

	expired := false
	c := New(srv.URL, store, WithSessionExpiredHook(func() { expired = true }))

	err := c.Do(context.Background(), http.MethodGet, "/api/users/me", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	assert.True(t, expired, "session-expired hook should fire")
	creds, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, creds.AccessToken)
	assert.Empty(t, creds.RefreshToken)
}

func TestMissingRefreshTokenClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expiredTokenResponse(w)
	}))
	defer srv.Close()

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(Credentials{AccessToken: "stale"}))

	expired := false
	c := New(srv.URL, store, WithSessionExpiredHook(func() { expired = true }))

	err := c.Do(context.Background(), http.MethodGet, "/api/users/me", nil, nil)
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.True(t, expired)
}

func TestConcurrentExpiryRefreshesOnce(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		// Hold the refresh open long enough for every caller to pile up
		time.Sleep(500 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"token": "access-2"})
	})
	mux.HandleFunc("/api/journals", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			expiredTokenResponse(w)
			return
		}
		json.NewEncoder(w).Encode([]Journal{})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMemoryCredentialStore()
	require.NoError(t, store.Save(Credentials{AccessToken: "stale", RefreshToken: "refresh-1"}))

	c := New(srv.URL, store)

	const callers = 10
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			var out []Journal
			errs[i] = c.Do(context.Background(), http.MethodGet, "/api/journals", nil, &out)
		}(i)
	}

	close(start)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls), "concurrent callers must share one refresh")
}

func TestNonSuccessSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "Validation failed",
			"errors": []string{"Title failed on required"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, NewMemoryCredentialStore())
	err := c.Do(context.Background(), http.MethodPost, "/api/journals", map[string]string{}, nil, SkipAuth())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.Equal(t, []string{"Title failed on required"}, apiErr.Errors)
}

func TestFileCredentialStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/credentials.json"
	store := NewFileCredentialStore(path)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.AccessToken)

	require.NoError(t, store.Save(Credentials{AccessToken: "a", RefreshToken: "r"}))

	reopened := NewFileCredentialStore(path)
	creds, err = reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", creds.AccessToken)
	assert.Equal(t, "r", creds.RefreshToken)

	require.NoError(t, store.Clear())
	creds, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.RefreshToken)
	require.NoError(t, store.Clear(), "clearing an empty store is not an error")
}
