package routes

import (
	"galmirror/routes/rutil"
	"net/http"
)

func Misc_NotFound(w http.ResponseWriter, r *http.Request) {
	rutil.MustWriteJson(w, http.StatusNotFound, errorResponse{
		Ok:    false,
		Error: "not found",
	})
}

func Misc_Health(w http.ResponseWriter, r *http.Request) {
	rutil.MustWriteJson(w, http.StatusOK, map[string]any{"ok": true})
}
