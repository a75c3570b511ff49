package routes

import (
	"galmirror/crawler"
	"galmirror/mirror"
	"galmirror/routes/rutil"
	"galmirror/util"
	"net/http"
	"strconv"
	"time"
)

type readResponse struct {
	Ok       bool              `json:"ok"`
	Missing  bool              `json:"missing"`
	Document crawler.Document  `json:"document"`
	Comments []crawler.Comment `json:"comments"`
	Images   []string          `json:"images"`
}

func Read_Document(w http.ResponseWriter, r *http.Request) {
	logger := rutil.Logger(r)
	service := rutil.Service(r)

	boardId := util.EnsureParam(r, "board")
	postId := util.EnsureParam(r, "pid")
	if _, err := strconv.ParseUint(postId, 10, 64); err != nil {
		util.HttpPanic(http.StatusBadRequest, "post id must be a number")
	}
	kind := crawler.ParseKind(util.OptionalParam(r, "kind"))

	document, comments, images := service.ReadDocument(r.Context(), postId, boardId, kind, logger)
	missing := mirror.IsMissingDocument(&document)
	if !missing {
		document.Html = crawler.RewriteLazyImages(document.Html, document.Images, rutil.ImageMediaPath)
	}
	for i := range comments {
		if comments[i].StickerUrl != "" {
			comments[i].StickerUrl = rutil.MediaPath(comments[i].StickerUrl, boardId, postId)
		}
	}
	if comments == nil {
		comments = []crawler.Comment{}
	}
	if images == nil {
		images = []string{}
	}

	rutil.MustWriteJson(w, http.StatusOK, readResponse{
		Ok:       true,
		Missing:  missing,
		Document: document,
		Comments: comments,
		Images:   images,
	})
}

type relatedItem struct {
	Id           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	AuthorCode   string    `json:"authorCode,omitempty"`
	PostedAt     time.Time `json:"postedAt"`
	CommentCount int       `json:"commentCount"`
	VoteUpCount  int       `json:"voteUpCount"`
}

type relatedResponse struct {
	Ok    bool          `json:"ok"`
	Items []relatedItem `json:"items"`
}

func Read_Related(w http.ResponseWriter, r *http.Request) {
	logger := rutil.Logger(r)
	service := rutil.Service(r)

	boardId := util.EnsureParam(r, "board")
	postId := util.OptionalParam(r, "pid")
	kind := crawler.ParseKind(util.OptionalParam(r, "kind"))
	limit := mirror.ClampRelatedLimit(util.OptionalParam(r, "limit"))

	posts := service.RelatedPostsByPosition(r.Context(), postId, boardId, kind, limit, logger)
	items := make([]relatedItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, relatedItem{
			Id:           post.Id,
			Title:        post.Title,
			Author:       post.Author,
			AuthorCode:   post.AuthorCode,
			PostedAt:     post.PostedAt,
			CommentCount: post.CommentCount,
			VoteUpCount:  post.VoteUpCount,
		})
	}
	rutil.MustWriteJson(w, http.StatusOK, relatedResponse{
		Ok:    true,
		Items: items,
	})
}
