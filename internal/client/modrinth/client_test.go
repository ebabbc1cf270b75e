package modrinth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGameVersions collects the union of game versions across project versions.
func TestGameVersions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/project/classic-panorama/version", r.URL.Path)
		require.Equal(t, "token-value", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`[
			{"game_versions": ["1.20", "1.20.1"]},
			{"game_versions": ["1.20.1", "1.21"]}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-value")

	published, err := client.GameVersions(context.Background(), "classic-panorama")
	require.NoError(t, err)
	require.Len(t, published, 3)
	require.Contains(t, published, "1.20")
	require.Contains(t, published, "1.20.1")
	require.Contains(t, published, "1.21")
}

// TestGameVersions_ProjectNotFound maps 404 to the sentinel.
func TestGameVersions_ProjectNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")

	_, err := client.GameVersions(context.Background(), "missing")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

// TestCreateVersion_SendsMultipart verifies the data and file parts of an upload.
func TestCreateVersion_SendsMultipart(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/version", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, r.ParseMultipartForm(1<<20))

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("data")), &payload))
		require.Equal(t, "Minecraft 1.20.1", payload["name"])
		require.Equal(t, "1.20.1", payload["version_number"])
		require.Equal(t, "release", payload["version_type"])
		require.Equal(t, []any{"minecraft"}, payload["loaders"])
		require.Equal(t, []any{"1.20.1"}, payload["game_versions"])
		require.Equal(t, []any{"file"}, payload["file_parts"])

		file, header, err := r.FormFile("file")
		require.NoError(t, err)

		defer func() {
			_ = file.Close()
		}()

		require.Equal(t, "pack-1.20.1.zip", header.Filename)

		contents, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "zip-bytes", string(contents))

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-value")

	err := client.CreateVersion(context.Background(), &CreateVersionRequest{
		ProjectID:     "classic-panorama",
		Name:          "Minecraft 1.20.1",
		VersionNumber: "1.20.1",
		Changelog:     "Automated publish",
		GameVersions:  []string{"1.20.1"},
	}, "pack-1.20.1.zip", strings.NewReader("zip-bytes"))
	require.NoError(t, err)
}

// TestCreateVersion_StatusErrors classifies conflict, rejection and server failures.
func TestCreateVersion_StatusErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		status    int
		body      string
		conflict  bool
		retryable bool
	}{
		{name: "conflict", status: http.StatusConflict, body: "duplicate", conflict: true, retryable: false},
		{name: "conflict by body", status: http.StatusBadRequest, body: "version already exists", conflict: true, retryable: false},
		{name: "rejected", status: http.StatusUnprocessableEntity, body: "bad metadata", conflict: false, retryable: false},
		{name: "server failure", status: http.StatusBadGateway, body: "upstream down", conflict: false, retryable: true},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "token-value")

			err := client.CreateVersion(context.Background(), &CreateVersionRequest{
				ProjectID:     "classic-panorama",
				VersionNumber: "1.20.1",
				GameVersions:  []string{"1.20.1"},
			}, "pack.zip", strings.NewReader("zip"))
			require.Error(t, err)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			require.Equal(t, testCase.status, statusErr.Code)
			require.Equal(t, testCase.conflict, IsConflict(err))
			require.Equal(t, testCase.retryable, IsRetryable(err))
		})
	}
}
