package server

import (
	"log"
	"net/http"
	"time"

	"github.com/fatih/color"

	"github.com/f4ah6o/quickserve-go/internal/fileserver"
)

var (
	statusOK       = color.New(color.FgGreen).SprintFunc()
	statusRedirect = color.New(color.FgCyan).SprintFunc()
	statusClient   = color.New(color.FgYellow).SprintFunc()
	statusServer   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// recorder captures the status code and body size written by a handler.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// AccessLog logs one line per request: remote address, method, path, status
// code, body bytes written and duration.
func AccessLog(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		logger.Printf("%s %s %s %s %d %s",
			r.RemoteAddr, r.Method, r.URL.RequestURI(), colorStatus(rec.status), rec.bytes, time.Since(start).Round(time.Microsecond))
	})
}

func colorStatus(status int) string {
	switch {
	case status >= 500:
		return statusServer(status)
	case status >= 400:
		return statusClient(status)
	case status >= 300:
		return statusRedirect(status)
	default:
		return statusOK(status)
	}
}

// Recover turns a panic in next into a 500 response so that one failing
// request never takes down the process. http.ErrAbortHandler is re-raised.
// The error page is only written when next has not started the response.
func Recover(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &recorder{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.Printf("%s %s: panic: %v", r.Method, r.URL.Path, v)
			if rec.status != 0 {
				logger.Printf("%s %s: response already started with status %d, leaving it truncated", r.Method, r.URL.Path, rec.status)
				return
			}
			resp := fileserver.ErrorResponse(http.StatusInternalServerError, "The server failed to handle the request.")
			if _, err := resp.Write(w); err != nil {
				logger.Printf("%s %s: writing error page: %v", r.Method, r.URL.Path, err)
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
