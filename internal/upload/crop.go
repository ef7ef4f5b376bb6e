package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/locvowork/conductores_admin/internal/domain"
)

const cropQuality = 90

// CropRegion is the confirmed square selection, in source pixels.
type CropRegion struct {
	X      float64 `json:"x" form:"x"`
	Y      float64 `json:"y" form:"y"`
	Width  float64 `json:"width" form:"width"`
	Height float64 `json:"height" form:"height"`
}

// CroppedFile is the re-encoded result of a crop.
type CroppedFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// IsImage sniffs the content, ignoring the declared name.
func IsImage(data []byte) bool {
	return strings.HasPrefix(mimetype.Detect(data).String(), "image/")
}

// NeedsCrop reports whether a file goes through the square crop step.
func NeedsCrop(cat domain.CategoriaDocumento, data []byte) bool {
	return cat == domain.CategoriaFotoPerfil && IsImage(data)
}

// CropSquare rasterizes the region into a new JPEG whose side is the rounded
// region width. A nil region selects the largest centered square.
func CropSquare(data []byte, filename string, region *CropRegion) (*CroppedFile, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", filename, err)
	}
	bounds := src.Bounds()

	r := centeredSquare(bounds)
	if region != nil {
		r = *region
	}
	side, x, y, err := checkRegion(r, bounds)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	origin := image.Pt(bounds.Min.X+x, bounds.Min.Y+y)
	draw.Draw(dst, dst.Bounds(), src, origin, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: cropQuality}); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}

	return &CroppedFile{
		Filename:    strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		Width:       side,
		Height:      side,
	}, nil
}

// checkRegion rounds the region to pixels. The side may not exceed the longer
// edge of the image and the region must overlap the image.
func checkRegion(r CropRegion, bounds image.Rectangle) (side, x, y int, err error) {
	for _, v := range []float64{r.X, r.Y, r.Width} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, fmt.Errorf("crop region must be finite, got %+v", r)
		}
	}
	w, h := bounds.Dx(), bounds.Dy()
	limit := max(w, h)
	if r.Width > float64(limit)+0.5 {
		return 0, 0, 0, fmt.Errorf("crop region width %v exceeds image size %d", r.Width, limit)
	}
	side = int(math.Round(r.Width))
	if side <= 0 {
		return 0, 0, 0, fmt.Errorf("crop region width must be positive, got %v", r.Width)
	}
	if math.Abs(r.X) > float64(limit) || math.Abs(r.Y) > float64(limit) {
		return 0, 0, 0, fmt.Errorf("crop region origin (%v, %v) is outside the image", r.X, r.Y)
	}
	x, y = int(math.Round(r.X)), int(math.Round(r.Y))
	if x >= w || y >= h || x+side <= 0 || y+side <= 0 {
		return 0, 0, 0, fmt.Errorf("crop region (%d, %d, %d) does not overlap the %dx%d image", x, y, side, w, h)
	}
	return side, x, y, nil
}

func centeredSquare(b image.Rectangle) CropRegion {
	w, h := b.Dx(), b.Dy()
	side := w
	if h < side {
		side = h
	}
	return CropRegion{
		X:      float64((w - side) / 2),
		Y:      float64((h - side) / 2),
		Width:  float64(side),
		Height: float64(side),
	}
}
