package blog

import (
	"sort"
	"time"
)

// Analytics is the dashboard aggregate over the active (non-deleted) posts.
type Analytics struct {
	TotalBlogs    int     `json:"totalBlogs"`
	TotalViews    int     `json:"totalViews"`
	TotalComments int     `json:"totalComments"`
	MonthlyViews  [12]int `json:"monthlyViews"`
	TopPosts      []Post  `json:"topPosts"`
}

const topPostCount = 4

// Dashboard aggregates view counts for the given year. Posts whose publish
// date cannot be parsed are counted in the totals but not in the monthly
// breakdown.
func (s *Service) Dashboard(year int) Analytics {
	active := s.ActivePosts()
	comments := s.Comments()

	out := Analytics{
		TotalBlogs:    len(active),
		TotalComments: len(comments),
	}
	for _, p := range active {
		out.TotalViews += p.Views
		if published, err := time.Parse("2006-01-02", p.PublishDate); err == nil && published.Year() == year {
			out.MonthlyViews[published.Month()-1] += p.Views
		}
	}

	ranked := clonePosts(active)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Views > ranked[j].Views
	})
	if len(ranked) > topPostCount {
		ranked = ranked[:topPostCount]
	}
	out.TopPosts = ranked
	return out
}
