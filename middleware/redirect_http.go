package middleware

import (
	"galmirror/config"
	"net/http"
)

// RedirectHttpToHttps trusts the proxy's x-forwarded-proto and only acts in production
func RedirectHttpToHttps(env config.Env) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if env == config.EnvProduction && r.Header.Get("x-forwarded-proto") == "http" {
				sslUrl := "https://" + r.Host + r.RequestURI
				http.Redirect(w, r, sslUrl, http.StatusPermanentRedirect)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
