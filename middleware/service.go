package middleware

import (
	"context"
	"galmirror/mirror"
	"net/http"
)

// Service makes the mirror service available to the routes
func Service(service *mirror.Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withService(r, service))
		}
		return http.HandlerFunc(fn)
	}
}

type serviceKeyType struct{}

var serviceKey = &serviceKeyType{}

func withService(r *http.Request, service *mirror.Service) *http.Request {
	r = r.WithContext(context.WithValue(r.Context(), serviceKey, service))
	return r
}

func GetService(r *http.Request) *mirror.Service {
	return r.Context().Value(serviceKey).(*mirror.Service)
}
