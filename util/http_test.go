package util

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/board?id=%20programming%20&page=3&bad=x&recommend=1&upper=123", nil)

	require.Equal(t, "programming", EnsureParam(r, "id"))
	require.Equal(t, "", OptionalParam(r, "kind"))
	require.Equal(t, 3, IntParam(r, "page", 1))
	require.Equal(t, 7, IntParam(r, "bad", 7))
	require.Equal(t, 7, IntParam(r, "missing", 7))
	require.True(t, BoolParam(r, "recommend"))
	require.False(t, BoolParam(r, "missing"))
	require.Equal(t, int64(123), Int64Param(r, "upper"))
	require.Equal(t, int64(0), Int64Param(r, "bad"))
}

func TestEnsureParamPanicsWithBadRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/read?id=%20", nil)
	defer func() {
		rvr := recover()
		httpErr, ok := rvr.(HttpError)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, httpErr.Status)
	}()
	EnsureParam(r, "id")
	t.Fatal("EnsureParam should have panicked")
}

func TestUserIp(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "10.0.0.1:1234", UserIp(r))

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	require.Equal(t, "1.2.3.4", UserIp(r))

	var httpErr HttpError
	err := error(HttpError{Status: 404, Inner: errors.New("gone")})
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, "HTTP 404: gone", err.Error())
}
