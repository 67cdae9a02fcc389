package globals

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const msg = "echo server %s:%s status=%d latency=%s host=%s ip=%s"
const srch = `.*sha256:([a-f0-9]{64}).*`

var re = regexp.MustCompile(srch)

// ConfigureLogging sets the logger level and, if a log file is passed, directs
// logging to that file. If the file can't be opened logging stays on the console
// and the error is returned.
func ConfigureLogging(level string, logFile string) error {
	log.SetLevel(xlatLogLevel(level))
	log.SetFormatter(&log.TextFormatter{})
	if logFile == "" {
		return nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file %s: %w", logFile, err)
	}
	log.SetOutput(f)
	return nil
}

// xlatLogLevel translates the passed 'level' string to a logger const
func xlatLogLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "TRACE":
		return log.TraceLevel
	}
	return log.FatalLevel
}

// GetEchoLoggingFunc gets the logging middleware for the echo-based test registry.
// Requests are logged at debug so test output stays quiet unless asked for.
func GetEchoLoggingFunc() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			// digests clutter the logs so shorten them
			uri := req.RequestURI
			dgst := re.FindStringSubmatch(uri)
			if len(dgst) == 2 {
				uri = strings.Replace(uri, dgst[1], dgst[1][:10], 1)
			}

			flds := []interface{}{req.Method, uri, res.Status, time.Since(start), req.Host, c.RealIP()}
			switch {
			case res.Status >= 500:
				log.Warnf(msg, flds...)
			default:
				log.Debugf(msg, flds...)
			}
			return nil
		}
	}
}
