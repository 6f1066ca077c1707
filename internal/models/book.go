package models

import "sort"

// PageID identifies a page across the book and its backing store
type PageID string

// ChapterID identifies a chapter
type ChapterID string

// Book represents the root structure of a manuscript
type Book struct {
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// Chapter is an ordered group of pages
type Chapter struct {
	ID    ChapterID `json:"id"`
	Title string    `json:"title"`
	Order int       `json:"order"`
	Pages []Page    `json:"pages"`
}

// Page is a fixed-size unit of content with an optional title
type Page struct {
	ID        PageID    `json:"id"`
	ChapterID ChapterID `json:"chapterId,omitempty"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
}

// PageData is the payload used to create a page inside a chapter
type PageData struct {
	Title   string
	Content string
	Order   int
}

// Sort orders chapters and their pages by Order, keeping insertion order for ties
func (b *Book) Sort() {
	sort.SliceStable(b.Chapters, func(i, j int) bool {
		return b.Chapters[i].Order < b.Chapters[j].Order
	})
	for i := range b.Chapters {
		pages := b.Chapters[i].Pages
		sort.SliceStable(pages, func(x, y int) bool {
			return pages[x].Order < pages[y].Order
		})
	}
}

// Chapter returns the chapter with the given ID or nil
func (b *Book) Chapter(id ChapterID) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].ID == id {
			return &b.Chapters[i]
		}
	}
	return nil
}

// Page returns the page with the given ID or nil
func (b *Book) Page(id PageID) *Page {
	for i := range b.Chapters {
		for j := range b.Chapters[i].Pages {
			if b.Chapters[i].Pages[j].ID == id {
				return &b.Chapters[i].Pages[j]
			}
		}
	}
	return nil
}

// Pages returns a flattened copy of every page in reading order
func (b *Book) Pages() []Page {
	var pages []Page
	for _, ch := range b.Chapters {
		pages = append(pages, ch.Pages...)
	}
	return pages
}

// Clone returns a deep copy of the book
func (b *Book) Clone() *Book {
	out := &Book{Title: b.Title, Author: b.Author}
	out.Chapters = make([]Chapter, len(b.Chapters))
	for i, ch := range b.Chapters {
		out.Chapters[i] = ch
		out.Chapters[i].Pages = append([]Page(nil), ch.Pages...)
	}
	return out
}
