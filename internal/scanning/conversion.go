package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// NormalizedContentType is the content type of every image handed to a Scanner
const NormalizedContentType = "image/jpeg"

const jpegQuality = 90

// ErrUnsupportedFormat is returned when an upload cannot be decoded as an image
var ErrUnsupportedFormat = errors.New("unsupported format")

// NormalizedImage is an upload re-encoded to the canonical format
type NormalizedImage struct {
	Data        []byte
	ContentType string
}

// Normalize decodes an uploaded bill (JPEG, PNG, GIF, HEIC/HEIF or the first page
// of a PDF) and re-encodes it as JPEG on a white background.
func Normalize(data []byte, contentType string) (*NormalizedImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupportedFormat)
	}

	mimeType := normalizeMimeType(contentType)

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &NormalizedImage{
		Data:        buf.Bytes(),
		ContentType: NormalizedContentType,
	}, nil
}

// decodeImage picks a decoder from the content type and magic bytes.
// Decoder panics on corrupt input are reported as ErrUnsupportedFormat.
func decodeImage(data []byte, mimeType string) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: decoder failed: %v", ErrUnsupportedFormat, r)
		}
	}()

	switch {
	case mimeType == "application/pdf" || isPDFFormat(data):
		img, err = pdfToImage(data)
		if err != nil {
			return nil, fmt.Errorf("%w: converting PDF to image: %w", ErrUnsupportedFormat, err)
		}
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		// Go's standard image package doesn't support HEIC
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %w", ErrUnsupportedFormat, err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: supported formats are JPEG, PNG, GIF, HEIC, HEIF, PDF: %w", ErrUnsupportedFormat, err)
		}
	}
	return img, nil
}

// pdfToImage renders the first page of a PDF
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// flatten draws the image onto an opaque white canvas since JPEG has no alpha
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)
	return canvas
}

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

func isPDFFormat(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// isHEICFormat checks the ftyp box brand of an ISO media file
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
