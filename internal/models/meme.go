package models

import "time"

// Comment is immutable once created; a meme's comment list is
// append-only. AuthorUsername is a snapshot taken at creation time.
type Comment struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Meme struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"imageUrl"`
	TopText    string    `json:"topText,omitempty"`
	BottomText string    `json:"bottomText,omitempty"`
	CreatorID  string    `json:"creatorId"`
	CreatedAt  time.Time `json:"createdAt"`
	Upvotes    int       `json:"upvotes"`
	Views      int       `json:"views"`
	Comments   []Comment `json:"comments"`
	Tags       []string  `json:"tags"`
	Categories []string  `json:"categories"`
}
