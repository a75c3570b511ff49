package rutil

import (
	"galmirror/crawler"
	"galmirror/util"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

func MustWriteJson(w http.ResponseWriter, statusCode int, data any) {
	bytes, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err = w.Write(bytes)
	if err != nil {
		panic(err)
	}
}

// MediaPath routes an upstream image through the media proxy with the post it belongs to
func MediaPath(src string, boardId string, postId string) string {
	query := url.Values{}
	query.Set("src", src)
	if boardId != "" {
		query.Set("board", boardId)
	}
	if postId != "" {
		query.Set("pid", postId)
	}
	return util.MediaPath + "?" + query.Encode()
}

func ImageMediaPath(image crawler.ImageRef) string {
	return MediaPath(image.SourceUrl, image.BoardId, image.PostId)
}
