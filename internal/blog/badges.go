package blog

// deriveBadges recomputes the sidebar counters from the current collections.
func deriveBadges(posts []Post, comments []Comment) Badges {
	var active, trashed int
	for _, p := range posts {
		if p.IsDeleted {
			trashed++
		} else {
			active++
		}
	}
	return Badges{
		Blogs:    active,
		Comments: len(comments),
		Trash:    trashed,
	}
}
