package player

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenSourceRemoteBuffersFully(t *testing.T) {
	payload := []byte("not really audio but long enough to seek around in")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	src, ext, err := openSource(srv.URL + "/tracks/song.flac")
	assert.NoError(t, err)
	defer src.Close()

	assert.Equal(t, extFLAC, ext)

	// The whole body must be in memory so the decoder can seek freely.
	end, err := src.Seek(0, io.SeekEnd)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(payload)), end)

	_, err = src.Seek(10, io.SeekStart)
	assert.NoError(t, err)
	rest, err := io.ReadAll(src)
	assert.NoError(t, err)
	assert.Equal(t, payload[10:], rest)
}

func TestOpenSourceRemoteUnknownExtensionDefaultsToMP3(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	src, ext, err := openSource(srv.URL + "/play?id=42")
	assert.NoError(t, err)
	src.Close()
	assert.Equal(t, extMP3, ext)
}

func TestOpenSourceRemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := openSource(srv.URL + "/play")
	assert.Error(t, err)
}

func TestOpenSourceLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("mp3data"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, ext, err := openSource(path)
	assert.NoError(t, err)
	defer src.Close()

	assert.Equal(t, extMP3, ext)
	data, err := io.ReadAll(src)
	assert.NoError(t, err)
	assert.Equal(t, []byte("mp3data"), data)
}
