package telemetry_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bokat-client/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

// a GET carries no body, so the request body hook must cope with
// GetBody being absent or returning a nil reader
func TestInstrumentRestyBodylessRequest(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/telemetry")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "ok")
		}))
	defer server.Close()

	client := resty.New()
	client.SetBaseURL(server.URL)
	telemetry.InstrumentResty(client, "test/http")

	res, err := client.R().Get("/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())

	res, err = client.R().
		SetFormData(map[string]string{"a": "b"}).
		Post("/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
}
