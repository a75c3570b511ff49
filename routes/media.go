package routes

import (
	"errors"
	"fmt"
	"galmirror/crawler"
	"galmirror/routes/rutil"
	"galmirror/util"
	"net/http"
)

func Media_Proxy(w http.ResponseWriter, r *http.Request) {
	logger := rutil.Logger(r)
	service := rutil.Service(r)

	src := util.OptionalParam(r, "src")
	boardId := util.OptionalParam(r, "board")
	postId := util.OptionalParam(r, "pid")

	media, err := service.FetchMedia(r.Context(), src, boardId, postId, logger)
	if errors.Is(err, crawler.ErrInvalidMediaUrl) {
		w.WriteHeader(http.StatusBadRequest)
		return
	} else if err != nil {
		logger.Info("Media proxy failed for %s: %v", src, err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", media.ContentType)
	w.Header().Set(
		"Cache-Control", fmt.Sprintf("public, max-age=%d", int64(service.MediaCacheMaxAge().Seconds())),
	)
	w.WriteHeader(media.StatusCode)
	_, err = w.Write(media.Body)
	if err != nil {
		panic(err)
	}
}
