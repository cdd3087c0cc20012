package gateway

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart writes sub as multipart/form-data and returns the content
// type carrying the boundary.
func EncodeMultipart(sub Submission, fileField string) (string, *bytes.Buffer, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := []struct{ name, value string }{
		{"description", sub.Description},
		{"latitude", sub.Latitude},
		{"longitude", sub.Longitude},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return "", nil, fmt.Errorf("error writing field %s: %w", f.name, err)
		}
	}

	// CreateFormFile would label the part application/octet-stream
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fileField), quoteEscaper.Replace(sub.FileName)))
	header.Set("Content-Type", sub.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", nil, fmt.Errorf("error creating file part: %w", err)
	}
	if _, err := part.Write(sub.File); err != nil {
		return "", nil, fmt.Errorf("error writing file part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", nil, fmt.Errorf("error closing writer: %w", err)
	}
	return writer.FormDataContentType(), &body, nil
}
