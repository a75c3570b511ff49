package routes

import (
	"galmirror/config"
	frmiddleware "galmirror/middleware"
	"galmirror/mirror"
	"galmirror/util"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Router(service *mirror.Service, env config.Env) http.Handler {
	r := chi.NewRouter()
	r.Use(frmiddleware.Logger)
	r.Use(frmiddleware.Metrics)
	r.Use(middleware.Compress(5))
	r.Use(frmiddleware.Recoverer)
	r.Use(frmiddleware.RedirectHttpToHttps(env))
	r.Use(frmiddleware.DefaultHeaders)
	r.Use(frmiddleware.RedirectSlashes)
	r.Use(middleware.GetHead)
	r.Use(frmiddleware.Service(service))

	r.Get("/healthz", Misc_Health)
	r.Get(util.BoardPath, Board_List)
	r.Get(util.ReadPath, Read_Document)
	r.Get(util.RelatedPath, Read_Related)
	r.Get(util.MediaPath, Media_Proxy)
	r.Get(util.TopGalleriesPath, Galleries_Top)
	r.Get(util.SearchGalleriesPath, Galleries_Search)
	r.Method(http.MethodGet, util.MetricsPath, promhttp.Handler())
	r.NotFound(Misc_NotFound)

	return r
}
