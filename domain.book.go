package main

// BookRecord represents one catalog entry.
type BookRecord struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Description   string   `json:"description,omitempty"`
	ThumbnailURL  string   `json:"thumbnailUrl,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
}

// Clone returns a copy of the record which does not share
// the authors slice with the original one.
func (b BookRecord) Clone() BookRecord {
	if b.Authors != nil {
		authors := make([]string, len(b.Authors))
		copy(authors, b.Authors)
		b.Authors = authors
	}
	return b
}

// volumesEnvelope is the catalog search response.
// A missing `items` field means no results.
type volumesEnvelope struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

// volume is a single catalog entry as returned by both
// the search and the lookup endpoints.
type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	ImageLinks    *struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
}

// toRecord flattens a catalog volume into a BookRecord.
func (v volume) toRecord() BookRecord {
	record := BookRecord{
		ID:            v.ID,
		Title:         v.VolumeInfo.Title,
		Authors:       v.VolumeInfo.Authors,
		Description:   v.VolumeInfo.Description,
		Publisher:     v.VolumeInfo.Publisher,
		PublishedDate: v.VolumeInfo.PublishedDate,
	}
	if v.VolumeInfo.ImageLinks != nil {
		record.ThumbnailURL = v.VolumeInfo.ImageLinks.Thumbnail
	}
	return record
}
