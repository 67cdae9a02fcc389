package globals

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func TestXlatLogLevel(t *testing.T) {
	tests := []struct {
		strLevel string
		logLevel log.Level
	}{
		{"DEBUG", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"WARN", log.WarnLevel},
		{"TRACE", log.TraceLevel},
		{"ERROR", log.ErrorLevel},
		{"ANYTHING-ELSE", log.FatalLevel},
	}
	for _, lvlTest := range tests {
		if xlatLogLevel(lvlTest.strLevel) != lvlTest.logLevel {
			t.FailNow()
		}
	}
}

func TestFileLogging(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	td := t.TempDir()
	logfile := filepath.Join(td, "logfile")
	if err := ConfigureLogging("DEBUG", logfile); err != nil {
		t.FailNow()
	}
	log.Debug("TEST")
	expectedText := "level=debug msg=TEST"
	content, err := os.ReadFile(logfile)
	if err != nil {
		t.FailNow()
	}
	if !strings.Contains(string(content), expectedText) {
		t.FailNow()
	}
	if ConfigureLogging("DEBUG", filepath.Join(td, "no", "such", "dir", "logfile")) == nil {
		t.Fail()
	}
}

// Test that the echo middleware logs requests with shortened digests
func TestEchoLogging(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	td := t.TempDir()
	logfile := filepath.Join(td, "logfile")
	if err := ConfigureLogging("DEBUG", logfile); err != nil {
		t.FailNow()
	}
	e := echo.New()
	e.Use(GetEchoLoggingFunc())
	e.GET("/v2/*", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	dgst := "sha256:" + strings.Repeat("ab", 32)
	req := httptest.NewRequest(http.MethodGet, "/v2/foo/blobs/"+dgst, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.FailNow()
	}
	content, err := os.ReadFile(logfile)
	if err != nil {
		t.FailNow()
	}
	if !strings.Contains(string(content), "/v2/foo/blobs/sha256:ababababab ") || strings.Contains(string(content), dgst) {
		t.Fatalf("unexpected log content %s", content)
	}
}
