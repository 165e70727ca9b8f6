package services

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"
)

// PngDataURI re-encodes arbitrary image bytes to PNG and wraps them in a
// data URI. Model output varies in format; the wire contract always ships
// "data:image/png;base64,...".
func PngDataURI(imageBytes []byte) (string, error) {
	normalized, err := normalizePNG(imageBytes)
	if err != nil {
		return "", err
	}
	return ImageDataURI("image/png", normalized), nil
}

func normalizePNG(imageBytes []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format == "png" {
		return imageBytes, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}
