package domain

import (
	"fmt"
	"time"
)

// CourseFile records an uploaded course document and where its bytes live.
type CourseFile struct {
	ID         string
	CourseID   string
	Filename   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	Degraded   bool // extraction fell back to a placeholder
	Fragments  int
	CreatedAt  time.Time
}

// ValidateCourseFile validates a CourseFile instance
func ValidateCourseFile(f *CourseFile) error {
	if f == nil {
		return fmt.Errorf("course file cannot be nil")
	}
	if f.ID == "" {
		return fmt.Errorf("course file ID is required")
	}
	if f.CourseID == "" {
		return fmt.Errorf("course file CourseID is required")
	}
	if f.Filename == "" {
		return fmt.Errorf("course file Filename is required")
	}
	if f.SizeBytes < 0 {
		return fmt.Errorf("course file SizeBytes cannot be negative")
	}
	return nil
}
