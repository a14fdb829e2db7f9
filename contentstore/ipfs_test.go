package contentstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIpfsStore(t *testing.T) {
	t.Parallel()

	stored := make(map[string][]byte)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v0/add":
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			stored["QmFake1"] = data
			w.Write([]byte(`{"Name":"snapshot.json","Hash":"QmFake1","Size":"123"}`))
		case "/api/v0/cat":
			data, ok := stored[r.URL.Query().Get("arg")]
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write(data)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewIpfsStore(server.URL, 5*time.Second)
	ctx := context.Background()

	id, err := store.Store(ctx, []byte(`{"id":1}`))
	require.NoError(t, err)
	require.Equal(t, "QmFake1", id)

	data, err := store.Fetch(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"id":1}`), data)

	_, err = store.Fetch(ctx, "QmMissing")
	require.Error(t, err)
}
