package middleware

import (
	"context"
	"galmirror/log"
	"galmirror/oops"
	"galmirror/util"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger should come before Recoverer
func Logger(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		t1 := time.Now()

		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		commonFields := func(event *zerolog.Event) {
			event.
				Str("method", r.Method).
				Str("path", path)
		}

		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.NewString()
		}
		ww.Header().Set("X-Request-ID", requestId)
		logger := &WebLogger{
			RequestId: requestId,
		}

		isMedia := r.URL.Path == util.MediaPath
		if !isMedia {
			logger.
				Info().
				Func(commonFields).
				Str("ip", util.UserIp(r)).
				Str("referrer", r.Referer()).
				Str("user-agent", r.UserAgent()).
				Msg("started")
		}

		var errorWrapper errorWrapper
		r = withLogger(withErrorWrapper(r, &errorWrapper), logger)

		defer func() {
			status := ww.Status()
			if (status/100 == 4 || status/100 == 5) &&
				status != http.StatusMethodNotAllowed &&
				status != http.StatusNotFound {

				event := logger.
					Error().
					Func(commonFields)
				if errorWrapper.err != nil {
					event.Err(errorWrapper.err)
				}
				event.
					Int("status", status).
					TimeDiff("duration", time.Now(), t1).
					Msg("failed")
			} else if !isMedia {
				logger.
					Info().
					Func(commonFields).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					TimeDiff("duration", time.Now(), t1).
					Msg("completed")
			}
		}()
		next.ServeHTTP(ww, r)
	}
	return http.HandlerFunc(fn)
}

type errorWrapperKeyType struct{}

var errorWrapperKey = &errorWrapperKeyType{}

type errorWrapper struct {
	err *oops.Error
}

func withErrorWrapper(r *http.Request, errorWrapper *errorWrapper) *http.Request {
	r = r.WithContext(context.WithValue(r.Context(), errorWrapperKey, errorWrapper))
	return r
}

func setError(r *http.Request, error *oops.Error) {
	errorWrapper, ok := r.Context().Value(errorWrapperKey).(*errorWrapper)
	if !ok {
		return
	}
	errorWrapper.err = error
}

type loggerKeyType struct{}

var loggerKey = &loggerKeyType{}

func withLogger(r *http.Request, logger *WebLogger) *http.Request {
	r = r.WithContext(context.WithValue(r.Context(), loggerKey, logger))
	return r
}

// GetLogger falls back to the process logger outside of the Logger middleware
func GetLogger(r *http.Request) log.Logger {
	if logger, ok := r.Context().Value(loggerKey).(*WebLogger); ok {
		return logger
	}
	return log.Base
}

type WebLogger struct {
	RequestId string
}

func (l *WebLogger) Info() *zerolog.Event {
	return l.logWebCommon(log.Base.Info())
}

func (l *WebLogger) Warn() *zerolog.Event {
	return l.logWebCommon(log.Base.Warn())
}

func (l *WebLogger) Error() *zerolog.Event {
	return l.logWebCommon(log.Base.Error())
}

func (l *WebLogger) logWebCommon(event *zerolog.Event) *zerolog.Event {
	return event.Str("request_id", l.RequestId)
}
