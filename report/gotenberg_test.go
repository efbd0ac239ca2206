package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	require.NoError(t, NewClient(healthy.URL).Ping(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	require.ErrorContains(t, NewClient(down.URL).Ping(context.Background()), "status 503")
}

func TestRenderHTMLPageSetup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		_, header, err := r.FormFile("files")
		require.NoError(t, err)
		require.Equal(t, "index.html", header.Filename, "the chromium route requires index.html")

		require.Equal(t, "8.27", r.FormValue("paperWidth"))
		require.Equal(t, "11.7", r.FormValue("paperHeight"))
		require.Equal(t, "0.4", r.FormValue("marginTop"))

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer server.Close()

	// A trailing slash on the base URL must not break the route.
	pdf, err := NewClient(server.URL + "/").RenderHTML(context.Background(), "<html><body>ok</body></html>")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(pdf))
}
