package domain

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SourceKind is the declared media kind of one uploaded source.
type SourceKind string

const (
	KindText        SourceKind = "text"
	KindPDF         SourceKind = "pdf"
	KindDOCX        SourceKind = "docx"
	KindImage       SourceKind = "image"
	KindAudio       SourceKind = "audio"
	KindVideo       SourceKind = "video"
	KindUnsupported SourceKind = "unsupported"
)

// SourceItem is one uploaded file staged on local disk. Immutable once the
// file list is submitted; a new upload replaces the whole list.
type SourceItem struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Kind      SourceKind `json:"kind"`
	MimeType  string     `json:"mime_type"`
	Path      string     `json:"-"`
	SizeBytes int64      `json:"size_bytes"`
}

// ExtractionResult pairs a SourceItem with the plain text it yielded.
// Results are always kept in declaration order, never completion order.
type ExtractionResult struct {
	Item SourceItem
	Text string
}

// ClassifyKind maps a filename plus reported MIME type onto a SourceKind.
// The extension wins for office formats because browsers frequently report
// application/octet-stream for them.
func ClassifyKind(name, mimeType string) SourceKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))

	switch ext {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".txt", ".md", ".text":
		return KindText
	}

	switch {
	case mt == "application/pdf":
		return KindPDF
	case mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX
	case strings.HasPrefix(mt, "text/"):
		return KindText
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "audio/"):
		return KindAudio
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	}

	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp", ".tif", ".tiff":
		return KindImage
	case ".mp3", ".wav", ".flac", ".m4a", ".ogg":
		return KindAudio
	case ".mp4", ".mov", ".mkv", ".webm", ".avi":
		return KindVideo
	}

	return KindUnsupported
}
