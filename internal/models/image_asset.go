package models

// ImageOrigin tells where an ImageAsset came from.
type ImageOrigin string

const (
	OriginCamera     ImageOrigin = "camera"
	OriginFilePicker ImageOrigin = "file-picker"
)

// ImageAsset is a photo ready to be attached to a draft.
type ImageAsset struct {
	Data     []byte      // Encoded image payload
	MIMEType string      // e.g. image/jpeg
	Origin   ImageOrigin // camera or file-picker
	FileName string      // Name used for the multipart file part
	Preview  string      // Transient preview reference, released by the owner
}

// Size returns the payload length in bytes.
func (a ImageAsset) Size() int {
	return len(a.Data)
}
