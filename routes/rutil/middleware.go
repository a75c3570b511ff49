package rutil

import (
	"galmirror/crawler"
	"galmirror/middleware"
	"galmirror/mirror"
	"net/http"
)

// This file wraps calls to the middleware package so that the routes don't have to reference it

func Logger(r *http.Request) crawler.Logger {
	return crawler.NewZeroLogger(middleware.GetLogger(r))
}

func Service(r *http.Request) *mirror.Service {
	return middleware.GetService(r)
}
