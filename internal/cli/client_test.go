package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/parksync/internal/api/apierr"
	"github.com/mcoot/parksync/internal/api/response"
	"github.com/mcoot/parksync/internal/model"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/info":
			response.JSON(w, http.StatusOK, response.Info{Name: "Test Park", MaxPlayers: 16})
		case "/api/v1/players/9":
			apierr.WriteError(w, model.ErrPlayerNotFound)
		default:
			http.Error(w, "nope", http.StatusTeapot)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewClient(srv.URL+"/", time.Second)

	var info response.Info
	require.NoError(t, client.Get(ctx, "/api/v1/info", &info))
	assert.Equal(t, "Test Park", info.Name)
	assert.Equal(t, 16, info.MaxPlayers)

	err := client.Get(ctx, "/api/v1/players/9", nil)
	assert.ErrorContains(t, err, apierr.CodePlayerNotFound)

	err = client.Get(ctx, "/elsewhere", nil)
	assert.ErrorContains(t, err, "HTTP 418: nope")

	// scheme is optional
	bare := NewClient(strings.TrimPrefix(srv.URL, "http://"), time.Second)
	assert.NoError(t, bare.Get(ctx, "/api/v1/info", &info))
}

func TestClientUnreachable(t *testing.T) {
	err := NewClient("http://127.0.0.1:1", time.Second).Get(context.Background(), "/api/v1/health", nil)
	assert.ErrorContains(t, err, "status API unreachable")
}
