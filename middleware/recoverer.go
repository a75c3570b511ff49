package middleware

import (
	"fmt"
	"galmirror/oops"
	"galmirror/util"
	"net/http"

	"github.com/goccy/go-json"
)

type errorBody struct {
	Error string `json:"error"`
}

func Recoverer(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil && rvr != http.ErrAbortHandler {
				err, ok := rvr.(error)
				if !ok {
					err = fmt.Errorf("%v", rvr)
				}

				status := http.StatusInternalServerError
				message := http.StatusText(status)
				if httpErr, ok := err.(util.HttpError); ok {
					status = httpErr.Status
					err = httpErr.Inner
					message = err.Error()
				}

				if body, marshalErr := json.Marshal(errorBody{Error: message}); marshalErr == nil {
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(status)
					_, _ = w.Write(body)
				} else {
					w.WriteHeader(status)
				}

				sterr, ok := err.(*oops.Error)
				if !ok {
					sterr = oops.Wrap(err).(*oops.Error)
				}
				setError(r, sterr)
			}
		}()

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}
