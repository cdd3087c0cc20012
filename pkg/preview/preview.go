// Package preview holds the transient, in-memory image references used to
// render a photo before it is submitted. A reference is released by its
// owner once the photo is replaced, cleared or submitted.
package preview

import (
	"strings"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/benmeehan/waste-reporter/pkg/imaging"
)

const refPrefix = "preview:"

// Image is the payload behind a preview reference.
type Image struct {
	Data     []byte
	MIMEType string
}

// Store keeps preview references alive until released.
type Store struct {
	images       cmap.ConcurrentMap[string, Image]
	maxDimension int
	quality      int
}

// NewStore creates an empty Store that keeps images as registered.
func NewStore() *Store {
	return &Store{images: cmap.New[Image]()}
}

// NewThumbnailStore creates an empty Store that keeps upright thumbnails no
// larger than maxDimension instead of the full images.
func NewThumbnailStore(maxDimension, quality int) *Store {
	s := NewStore()
	s.maxDimension = maxDimension
	s.quality = quality
	return s
}

// Register keeps data reachable under a new reference and returns it. Data
// that cannot be decoded is kept as is.
func (s *Store) Register(data []byte, mimeType string) string {
	if s.maxDimension > 0 {
		if thumb, thumbType, err := imaging.Thumbnail(data, mimeType, s.maxDimension, s.quality); err == nil {
			data, mimeType = thumb, thumbType
		}
	}
	ref := refPrefix + uuid.New().String()
	s.images.Set(ref, Image{Data: data, MIMEType: mimeType})
	return ref
}

// Get returns the image behind ref.
func (s *Store) Get(ref string) (Image, bool) {
	return s.images.Get(ref)
}

// Release drops ref. Releasing an unknown or empty reference is a no-op and
// reports false.
func (s *Store) Release(ref string) bool {
	if !strings.HasPrefix(ref, refPrefix) {
		return false
	}
	_, existed := s.images.Pop(ref)
	return existed
}

// Len returns the number of live references.
func (s *Store) Len() int {
	return s.images.Count()
}
