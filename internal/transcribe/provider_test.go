package transcribe_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetingbingo/internal/transcribe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPProvider_Transcribe(t *testing.T) {
	var gotAuth, gotModel, gotFilename, gotAudio string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		gotAudio = string(data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"let's circle back","language":"en"}`)
	}))
	defer ts.Close()

	p := transcribe.NewHTTPProvider(ts.URL, "secret", "whisper-1", 5*time.Second, testLogger())

	result, err := p.Transcribe(context.Background(), strings.NewReader("fake-audio"), "clip.webm")
	require.NoError(t, err)

	assert.Equal(t, "let's circle back", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "clip.webm", gotFilename)
	assert.Equal(t, "fake-audio", gotAudio)
}

func TestHTTPProvider_NoAuthOrModelWhenUnset(t *testing.T) {
	var gotAuth string
	var hadModel bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hadModel = r.MultipartForm.Value["model"]
		io.WriteString(w, `{"text":"ok","language":"en"}`)
	}))
	defer ts.Close()

	p := transcribe.NewHTTPProvider(ts.URL, "", "", 5*time.Second, testLogger())

	_, err := p.Transcribe(context.Background(), strings.NewReader("x"), "a.webm")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.False(t, hadModel)
}

func TestHTTPProvider_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	p := transcribe.NewHTTPProvider(ts.URL, "", "", 5*time.Second, testLogger())

	_, err := p.Transcribe(context.Background(), strings.NewReader("x"), "a.webm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPProvider_BadResponseBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer ts.Close()

	p := transcribe.NewHTTPProvider(ts.URL, "", "", 5*time.Second, testLogger())

	_, err := p.Transcribe(context.Background(), strings.NewReader("x"), "a.webm")
	require.Error(t, err)
}
