package domain

import (
	"slices"
	"time"
)

// LibrarySchemaVersion は保存される LibraryItem のスキーマバージョンです。
const LibrarySchemaVersion = 1

// LibraryItem は、ライブラリに保存された完成済みコミックです。
type LibraryItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Story         string    `json:"story"`
	Style         string    `json:"style"`
	Scenes        []string  `json:"scenes"`
	StyleGuide    string    `json:"styleGuide"`
	Prompts       []string  `json:"prompts"`
	Images        []string  `json:"images"`
	PDFPath       string    `json:"pdfPath,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	SchemaVersion int       `json:"schemaVersion"`
}

// LibraryPatch はライブラリ項目の部分更新です。
// ID と作成日時は更新対象に含めません。
type LibraryPatch struct {
	Title      *string  `json:"title,omitempty"`
	Story      *string  `json:"story,omitempty"`
	Style      *string  `json:"style,omitempty"`
	Scenes     []string `json:"scenes,omitempty"`
	StyleGuide *string  `json:"styleGuide,omitempty"`
	Prompts    []string `json:"prompts,omitempty"`
	Images     []string `json:"images,omitempty"`
	PDFPath    *string  `json:"pdfPath,omitempty"`
	Thumbnail  *string  `json:"thumbnail,omitempty"`
}

// Apply は patch を反映した LibraryItem を返します。
func (it LibraryItem) Apply(p LibraryPatch) LibraryItem {
	setString(&it.Title, p.Title)
	setString(&it.Story, p.Story)
	setString(&it.Style, p.Style)
	setString(&it.StyleGuide, p.StyleGuide)
	setString(&it.PDFPath, p.PDFPath)
	setString(&it.Thumbnail, p.Thumbnail)
	if p.Scenes != nil {
		it.Scenes = slices.Clone(p.Scenes)
	}
	if p.Prompts != nil {
		it.Prompts = slices.Clone(p.Prompts)
	}
	if p.Images != nil {
		it.Images = slices.Clone(p.Images)
	}
	return it
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
