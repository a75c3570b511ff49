package crawler

import (
	"fmt"
	"strings"
)

type cardFixture struct {
	Id         int64
	Subject    string
	Author     string
	AuthorCode string
	Icon       string
}

func mobileCardHtml(boardId string, card cardFixture) string {
	icon := card.Icon
	if icon == "" {
		icon = "sp-lst-txt"
	}
	author := card.Author
	if author == "" {
		author = "ㅇㅇ"
	}
	authorCode := ""
	if card.AuthorCode != "" {
		authorCode = fmt.Sprintf(`<span class="blockInfo" data-info="%s"></span>`, card.AuthorCode)
	}
	subject := ""
	if card.Subject != "" {
		subject = fmt.Sprintf("<li>%s</li>", card.Subject)
	}
	return fmt.Sprintf(`<li>
<div class="gall-detail-lnktb">
<a href="https://m.dcinside.com/board/%s/%d?page=1" class="lt">
<span class="subject-add"><span class="sp-lst %s">아이콘</span><span class="subjectin">제목 %d</span></span>
<ul class="ginfo">%s<li>%s%s</li><li>14:30</li><li>조회 %d</li><li><span>추천 %d</span></li></ul>
</a>
<a class="rt" href="https://m.dcinside.com/board/%s/%d#comment_box"><span class="ct">%d</span></a>
</div>
</li>
`,
		boardId, card.Id, icon, card.Id, subject, author, authorCode, card.Id*10, card.Id%7, boardId, card.Id, card.Id%3,
	)
}

func mobileListHtml(boardId string, ids ...int64) string {
	var cards []cardFixture
	for _, id := range ids {
		cards = append(cards, cardFixture{Id: id, Subject: "일반"})
	}
	return mobileListHtmlFromCards(boardId, cards)
}

func mobileListHtmlFromCards(boardId string, cards []cardFixture) string {
	var builder strings.Builder
	builder.WriteString(`<html><head><title>list</title></head><body><section><ul class="gall-detail-lst">`)
	builder.WriteString(`<li class="adv-inner"><div class="adv">광고</div></li>`)
	for _, card := range cards {
		builder.WriteString(mobileCardHtml(boardId, card))
	}
	builder.WriteString(`</ul></section></body></html>`)
	return builder.String()
}

const emptyListHtml = `<html><body><div class="no-list">등록된 게시물이 없습니다.</div></body></html>`

func mobileListUrl(boardId string, page int) string {
	return fmt.Sprintf("https://m.dcinside.com/board/%s?page=%d", boardId, page)
}
