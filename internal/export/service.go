package export

import (
	"edwid/api/internal/blog"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ExportPost renders a post plus its discussion and converts it to PDF.
func (s *Service) ExportPost(post blog.Post, comments []blog.Comment, replies map[string][]blog.Reply) (*Result, error) {
	html, err := RenderPostHTML(discussionFor(post, comments, replies))
	if err != nil {
		return nil, err
	}
	return exportPDF(html, post.Title)
}

// discussionFor gathers the comments that belong on a post's printed page.
// A comment with no blog id applies to every post and is always included.
func discussionFor(post blog.Post, comments []blog.Comment, replies map[string][]blog.Reply) TemplateData {
	data := TemplateData{Post: post}
	for _, comment := range comments {
		if comment.BlogID != "" && comment.BlogID != post.ID {
			continue
		}
		tc := TemplateComment{
			Author: comment.Author,
			Text:   comment.Text,
			Date:   comment.Date,
		}
		for _, reply := range replies[comment.ID] {
			tc.Replies = append(tc.Replies, TemplateReply{Author: reply.Author, Text: reply.Text})
		}
		data.Comments = append(data.Comments, tc)
	}
	return data
}

// Filename reports the download name a post would export under, without
// rendering anything.
func (s *Service) Filename(post blog.Post) string {
	return sanitizeFilename(post.Title) + ".pdf"
}
