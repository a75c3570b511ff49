package routes

import (
	"galmirror/crawler"
	"galmirror/routes/rutil"
	"galmirror/util"
	"net/http"
	"time"
)

const galleriesPerPage = 20

type topGalleriesResponse struct {
	Ok           bool                  `json:"ok"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	UpdatedAtStr string                `json:"updatedAtStr"`
	Page         int                   `json:"page"`
	TotalPages   int                   `json:"totalPages"`
	TotalItems   int                   `json:"totalItems"`
	Items        []crawler.RankingItem `json:"items"`
}

type errorResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

func Galleries_Top(w http.ResponseWriter, r *http.Request) {
	logger := rutil.Logger(r)
	service := rutil.Service(r)

	items, updatedAt, err := service.CurrentTopGalleries(r.Context(), logger)
	if err != nil {
		logger.Error("Gallery ranking unavailable: %v", err)
		rutil.MustWriteJson(w, http.StatusServiceUnavailable, errorResponse{
			Ok:    false,
			Error: "흥한 갤러리 목록을 가져오지 못했습니다.",
		})
		return
	}

	totalItems := len(items)
	totalPages := max(1, (totalItems+galleriesPerPage-1)/galleriesPerPage)
	page := min(max(util.IntParam(r, "page", 1), 1), totalPages)
	start := min((page-1)*galleriesPerPage, totalItems)
	end := min(start+galleriesPerPage, totalItems)

	rutil.MustWriteJson(w, http.StatusOK, topGalleriesResponse{
		Ok:           true,
		UpdatedAt:    updatedAt,
		UpdatedAtStr: updatedAt.In(crawler.UpstreamLocation).Format("2006-01-02 15:04:05 MST"),
		Page:         page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		Items:        items[start:end],
	})
}

type searchGalleriesResponse struct {
	Ok    bool                          `json:"ok"`
	Query string                        `json:"query"`
	Items []crawler.GallerySearchResult `json:"items"`
}

func Galleries_Search(w http.ResponseWriter, r *http.Request) {
	logger := rutil.Logger(r)
	service := rutil.Service(r)

	query := util.EnsureParam(r, "q")
	results, err := service.SearchGalleries(r.Context(), query, logger)
	if err != nil {
		logger.Warn("Gallery search for %q failed: %v", query, err)
		rutil.MustWriteJson(w, http.StatusBadGateway, errorResponse{
			Ok:    false,
			Error: "갤러리 검색 결과를 가져오지 못했습니다.",
		})
		return
	}
	if results == nil {
		results = []crawler.GallerySearchResult{}
	}
	rutil.MustWriteJson(w, http.StatusOK, searchGalleriesResponse{
		Ok:    true,
		Query: query,
		Items: results,
	})
}
