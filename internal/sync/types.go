package sync

import "time"

// Wire types mirroring the server's JSON payloads.

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Photo struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Note   string `json:"note"`
	Prompt string `json:"prompt"`
}

type Page struct {
	ID     string  `json:"id"`
	Photos []Photo `json:"photos"`
	Layout string  `json:"layout"`
	Note   string  `json:"note"`
}

type Book struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Pages        []Page    `json:"pages"`
	Photos       []Photo   `json:"photos"`
	ShareID      string    `json:"shareId"`
	ContributeID string    `json:"contributeId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BookUpdate is a partial update; nil fields are left untouched server-side.
type BookUpdate struct {
	Name  *string `json:"name,omitempty"`
	Type  *string `json:"type,omitempty"`
	Pages []Page  `json:"pages,omitempty"`
}

type Upload struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type Contribution struct {
	ID            string    `json:"id"`
	PhotoID       string    `json:"photoId"`
	URL           string    `json:"url"`
	Note          string    `json:"note"`
	Prompt        string    `json:"prompt"`
	ContributedAt time.Time `json:"contributedAt"`
}

// ContributionFile is one entry of a batch submission.
type ContributionFile struct {
	Filename string
	Data     []byte
	Note     string
	Prompt   string
}

type BookList struct {
	Data   []Book `json:"data"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type ContributionList struct {
	Data   []Contribution `json:"data"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// MyBooks groups the caller's owned and contributed-to books.
type MyBooks struct {
	Data struct {
		MyBooks          []Book `json:"myBooks"`
		ContributedBooks []Book `json:"contributedBooks"`
	} `json:"data"`
	Total struct {
		MyBooks          int `json:"myBooks"`
		ContributedBooks int `json:"contributedBooks"`
	} `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
