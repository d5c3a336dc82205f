package ghost

import (
	"time"

	"github.com/perch-labs/perch/internal/core/domain"
)

// postsResponse is the Admin API envelope for post listings.
type postsResponse struct {
	Posts []ghostPost `json:"posts"`
	Meta  struct {
		Pagination struct {
			Page  int `json:"page"`
			Pages int `json:"pages"`
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

// errorResponse is the Admin API error envelope.
type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"errors"`
}

// ghostPost is the wire representation of a post.
type ghostPost struct {
	ID            string      `json:"id"`
	Slug          string      `json:"slug"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	Status        string      `json:"status"`
	HTML          string      `json:"html"`
	Plaintext     string      `json:"plaintext"`
	Excerpt       string      `json:"excerpt"`
	CustomExcerpt string      `json:"custom_excerpt"`
	Visibility    string      `json:"visibility"`
	PublishedAt   *time.Time  `json:"published_at"`
	UpdatedAt     *time.Time  `json:"updated_at"`
	Tags          []ghostName `json:"tags"`
	Authors       []ghostName `json:"authors"`
}

type ghostName struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// toDomain maps the wire post into the domain model. An explicit
// custom excerpt wins over the generated one.
func (p ghostPost) toDomain() domain.Post {
	excerpt := p.CustomExcerpt
	if excerpt == "" {
		excerpt = p.Excerpt
	}

	post := domain.Post{
		ID:         p.ID,
		Slug:       p.Slug,
		URL:        p.URL,
		Title:      p.Title,
		HTML:       p.HTML,
		Plaintext:  p.Plaintext,
		Excerpt:    excerpt,
		Visibility: mapVisibility(p.Visibility),
		Tags:       names(p.Tags),
		Authors:    names(p.Authors),
	}

	if p.PublishedAt != nil {
		post.PublishedAt = p.PublishedAt.UTC()
	}
	if p.UpdatedAt != nil {
		post.UpdatedAt = p.UpdatedAt.UTC()
	}
	return post
}

func mapVisibility(v string) domain.Visibility {
	switch v {
	case "members":
		return domain.VisibilityMembers
	case "paid":
		return domain.VisibilityPaid
	default:
		return domain.VisibilityPublic
	}
}

func names(items []ghostName) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name != "" {
			out = append(out, item.Name)
		}
	}
	return out
}
