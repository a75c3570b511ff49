package crawler

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ItemsPerListPage is how many posts the upstream serves per list page with the session cookies
const ItemsPerListPage = 200

var ErrNotFound = errors.New("not found")
var ErrParseFailure = errors.New("markup did not match any known layout")
var ErrInvalidMediaUrl = errors.New("media url must be http or https")

// Kind is the board sub-type, which decides the URL shape. The zero value means unknown.
type Kind string

const (
	KindUnknown Kind = ""
	KindNormal  Kind = "normal"
	KindMinor   Kind = "minor"
	KindMini    Kind = "mini"
	KindPerson  Kind = "person"
)

func ParseKind(value string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindNormal:
		return KindNormal
	case KindMinor:
		return KindMinor
	case KindMini:
		return KindMini
	case KindPerson:
		return KindPerson
	default:
		return KindUnknown
	}
}

func (k Kind) Label() string {
	switch k {
	case KindMinor:
		return "마이너"
	case KindMini:
		return "미니"
	case KindPerson:
		return "인물"
	default:
		return "일반"
	}
}

type PostSummary struct {
	Id            string    `json:"id"`
	BoardId       string    `json:"boardId"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject,omitempty"`
	Author        string    `json:"author"`
	AuthorCode    string    `json:"authorCode,omitempty"`
	PostedAt      time.Time `json:"postedAt"`
	ViewCount     int       `json:"viewCount"`
	VoteUpCount   int       `json:"voteUpCount"`
	CommentCount  int       `json:"commentCount"`
	HasImage      bool      `json:"hasImage"`
	IsRecommended bool      `json:"isRecommended"`
	IsBest        bool      `json:"isBest"`
	IsHot         bool      `json:"isHot"`
}

func (p *PostSummary) IdInt() int64 {
	id, err := strconv.ParseInt(p.Id, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

type ImageRef struct {
	SourceUrl string `json:"sourceUrl"`
	BoardId   string `json:"boardId"`
	PostId    string `json:"postId"`
}

type Document struct {
	Id                string     `json:"id"`
	BoardId           string     `json:"boardId"`
	Title             string     `json:"title"`
	Author            string     `json:"author"`
	AuthorCode        string     `json:"authorCode,omitempty"`
	PostedAt          time.Time  `json:"postedAt"`
	ViewCount         int        `json:"viewCount"`
	VoteUpCount       int        `json:"voteUpCount"`
	VoteDownCount     int        `json:"voteDownCount"`
	MemberVoteUpCount int        `json:"memberVoteUpCount"`
	Contents          string     `json:"contents"`
	Html              string     `json:"html"`
	Images            []ImageRef `json:"images"`
}

type Comment struct {
	Id         string    `json:"id"`
	ParentId   string    `json:"parentId,omitempty"`
	Author     string    `json:"author"`
	AuthorCode string    `json:"authorCode,omitempty"`
	PostedAt   time.Time `json:"postedAt"`
	Contents   string    `json:"contents"`
	StickerUrl string    `json:"stickerUrl,omitempty"`
	VoiceUrl   string    `json:"voiceUrl,omitempty"`
	IsReply    bool      `json:"isReply"`
}
