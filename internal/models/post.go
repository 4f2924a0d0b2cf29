package models

import "time"

// Author is the denormalized owner reference stored on a post
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Comment is a reader comment attached to a post
type Comment struct {
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is a published article
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags"`
	Likes     int       `json:"likes"`
	Comments  []Comment `json:"comments"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnedBy reports whether the post belongs to userID
func (p *Post) OwnedBy(userID int64) bool {
	return p.Author.ID == userID
}

// PostUpdate carries the fields a PATCH may change. Nil fields are left alone.
type PostUpdate struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

// Empty reports whether the update changes nothing
func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Category == nil && u.Tags == nil
}
