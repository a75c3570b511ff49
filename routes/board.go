package routes

import (
	"galmirror/crawler"
	"galmirror/mirror"
	"galmirror/routes/rutil"
	"galmirror/util"
	"net/http"
)

type boardResponse struct {
	Ok        bool                  `json:"ok"`
	BoardId   string                `json:"board"`
	Kind      crawler.Kind          `json:"kind"`
	Page      int                   `json:"page"`
	Recommend bool                  `json:"recommend"`
	Items     []crawler.PostSummary `json:"items"`
}

func Board_List(w http.ResponseWriter, r *http.Request) {
	logger := rutil.Logger(r)
	service := rutil.Service(r)

	boardId := util.EnsureParam(r, "board")
	kind := crawler.ParseKind(util.OptionalParam(r, "kind"))
	page := max(util.IntParam(r, "page", 1), 1)
	recommend := util.BoolParam(r, "recommend")

	// Limit and scan depth come from config only
	posts := service.ListBoard(r.Context(), mirror.ListBoardQuery{
		BoardId:    boardId,
		Kind:       kind,
		Recommend:  recommend,
		Page:       page,
		UpperLimit: util.Int64Param(r, "upper"),
		LowerLimit: util.Int64Param(r, "lower"),
	}, logger)
	if posts == nil {
		posts = []crawler.PostSummary{}
	}

	rutil.MustWriteJson(w, http.StatusOK, boardResponse{
		Ok:        true,
		BoardId:   boardId,
		Kind:      kind,
		Page:      page,
		Recommend: recommend,
		Items:     posts,
	})
}
