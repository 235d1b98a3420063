package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"edwid/api/internal/blog"
)

var postTemplate = template.Must(template.New("post").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(postTemplateHTML))

// TemplateData holds the post and its discussion for rendering.
type TemplateData struct {
	Post     blog.Post
	Comments []TemplateComment
}

type TemplateComment struct {
	Author  string
	Text    string
	Date    time.Time
	Replies []TemplateReply
}

type TemplateReply struct {
	Author string
	Text   string
}

// RenderPostHTML renders the printable page for a post.
func RenderPostHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := postTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const postTemplateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Post.Title}}</title>
<style>
  body { font-family: Georgia, serif; color: #1a1a1a; max-width: 42em; margin: 0 auto; }
  h1 { font-size: 2em; margin-bottom: 0.2em; }
  .meta { color: #666; font-size: 0.9em; margin-bottom: 2em; }
  .meta span + span::before { content: " · "; }
  .category { text-transform: uppercase; letter-spacing: 0.08em; font-size: 0.75em; color: #888; }
  .body { line-height: 1.6; }
  .comments { margin-top: 3em; border-top: 1px solid #ddd; padding-top: 1em; }
  .comment { margin-bottom: 1.2em; }
  .comment .author { font-weight: bold; }
  .reply { margin-left: 2em; margin-top: 0.5em; color: #333; }
</style>
</head>
<body>
  <div class="category">{{.Post.Category}}</div>
  <h1>{{.Post.Title}}</h1>
  <div class="meta">
    <span>{{.Post.Author}}</span>
    <span>{{.Post.PublishDate}}</span>
    <span>{{.Post.Views}} views</span>
  </div>
  <div class="body">{{.Post.Description}}</div>
  {{if .Comments}}
  <div class="comments">
    <h2>Comments</h2>
    {{range .Comments}}
    <div class="comment">
      <span class="author">{{.Author}}</span> &middot; {{formatDate .Date "Jan 2, 2006"}}
      <div>{{.Text}}</div>
      {{range .Replies}}
      <div class="reply"><span class="author">{{.Author}}</span>: {{.Text}}</div>
      {{end}}
    </div>
    {{end}}
  </div>
  {{end}}
</body>
</html>
`
