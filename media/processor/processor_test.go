package processor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/thumbkit/errors"
)

// bandImage is w x h black with rows [redRows) red and a white band of
// whiteRows directly below it.
func bandImage(w, h, redRows, whiteRows int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.NRGBA{A: 0xff}
		switch {
		case y < redRows:
			c = color.NRGBA{R: 0xff, A: 0xff}
		case y < redRows+whiteRows:
			c = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
		}
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func noiseImage(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// sizedEncoder writes quality*unit bytes so tests control the search.
func sizedEncoder(unit int) EncodeFunc {
	return func(w io.Writer, _ image.Image, quality int) error {
		_, err := w.Write(make([]byte, quality*unit))
		return err
	}
}

func TestCoverSize(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		dstW, dstH   int
		wantW, wantH int
	}{
		{"tall screenshot to 720x1280", 1440, 2885, 720, 1280, 720, 1442},
		{"tall screenshot to 450x800", 1440, 2885, 450, 800, 450, 901},
		{"tall screenshot to 1080x1920", 1440, 2885, 1080, 1920, 1080, 2163},
		{"wide source pins height", 2000, 1000, 450, 800, 1600, 800},
		{"same aspect", 900, 1600, 450, 800, 450, 800},
		{"upscale", 100, 200, 450, 800, 450, 900},
		{"invalid", 0, 100, 450, 800, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := CoverSize(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
			if w > 0 {
				assert.GreaterOrEqual(t, w, tt.dstW)
				assert.GreaterOrEqual(t, h, tt.dstH)
			}
		})
	}
}

func TestNormalizeDropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	out, err := Normalize{}.Apply(src)
	require.NoError(t, err)

	nrgba, ok := out.(*image.NRGBA)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 0xff}, nrgba.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 0xff}, nrgba.NRGBAAt(1, 0))
	assert.Equal(t, uint8(0), src.NRGBAAt(0, 0).A, "source must not be modified")
}

func TestNormalizeGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 1, 1))
	src.SetGray(0, 0, color.Gray{Y: 77})

	out, err := Normalize{}.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 0xff}, out.(*image.NRGBA).NRGBAAt(0, 0))
}

func TestCropTop(t *testing.T) {
	src := bandImage(40, 100, 10, 5)

	out, err := CropTop{Rows: 10}.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 90), out.Bounds())

	r, g, b, _ := out.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "row 0 must be source row 10")
}

func TestCropTopNonZeroOrigin(t *testing.T) {
	// Rows 5-99 of the band image; absolute row 10 is the first white row.
	sub := bandImage(40, 100, 10, 5).SubImage(image.Rect(0, 5, 40, 100))

	out, err := CropTop{Rows: 5}.Apply(sub)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 90), out.Bounds())
	_, g, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), g)
}

func TestCropTopRejectsTooTall(t *testing.T) {
	src := bandImage(10, 50, 0, 0)

	for _, rows := range []int{50, 80, -1} {
		_, err := CropTop{Rows: rows}.Apply(src)
		require.Error(t, err, "rows=%d", rows)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCrop))
	}
}

func TestAnchorCropIsTopCentered(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 11, 20))
	src.SetNRGBA(3, 0, color.NRGBA{R: 0xff, A: 0xff})

	out, err := AnchorCrop{Width: 5, Height: 8}.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 8), out.Bounds())

	// left = (11-5)/2 = 3, top = 0
	r, _, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestAnchorCropTooSmall(t *testing.T) {
	_, err := AnchorCrop{Width: 50, Height: 50}.Apply(image.NewNRGBA(image.Rect(0, 0, 40, 60)))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCrop))
}

func TestPipelineKeepsTopAnchor(t *testing.T) {
	// 200x400 with a 50 row status bar and a 20 row white band under it.
	// Cropped 200x350 covers 100x150 at 100x175, so the band spans
	// output rows 0-9. A vertically centered crop would start at row 12.
	src := bandImage(200, 400, 50, 20)
	opts := TransformOptions{StatusBarHeight: 50, Profile: SizeProfile{Width: 100, Height: 150, MaxBytes: 1 << 20}}

	p := NewTransformPipeline(opts)
	assert.Equal(t, []string{"normalize", "crop_top", "cover_resize", "anchor_crop"}, p.Steps())

	out, err := p.Run(src)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 100, 150), out.Bounds())

	r, g, b, _ := out.At(50, 0).RGBA()
	assert.Greater(t, g>>8, uint32(230), "row 0 should be the white band")
	assert.Greater(t, b>>8, uint32(230))
	assert.Greater(t, r>>8, uint32(230))

	_, g, _, _ = out.At(50, 30).RGBA()
	assert.Less(t, g>>8, uint32(25), "row 30 should be below the band")
}

func TestCompressStopsAtFirstFit(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	out, err := NewCompressor(sizedEncoder(1000)).Compress(img, 50_000)
	require.NoError(t, err)

	assert.Equal(t, 50, out.Quality)
	assert.Equal(t, 50_000, out.Size())
	assert.True(t, out.WithinBudget(50_000))
	require.Len(t, out.Attempts, 10)
	assert.Equal(t, StartQuality, out.Attempts[0].Quality)
	for i := 1; i < len(out.Attempts); i++ {
		assert.Equal(t, out.Attempts[i-1].Quality-QualityStep, out.Attempts[i].Quality)
	}
}

func TestCompressFirstAttemptFits(t *testing.T) {
	out, err := NewCompressor(sizedEncoder(1)).Compress(image.NewNRGBA(image.Rect(0, 0, 1, 1)), 1000)
	require.NoError(t, err)
	assert.Equal(t, 95, out.Quality)
	assert.Len(t, out.Attempts, 1)
}

func TestCompressFloor(t *testing.T) {
	var seen []Attempt
	c := NewCompressor(sizedEncoder(1000))
	c.OnAttempt = func(a Attempt) { seen = append(seen, a) }

	out, err := c.Compress(image.NewNRGBA(image.Rect(0, 0, 1, 1)), 1)
	require.NoError(t, err)

	assert.Equal(t, MinQuality, out.Quality)
	assert.False(t, out.WithinBudget(1))
	assert.Len(t, out.Attempts, 18, "95 down to 10 in steps of 5")
	assert.Equal(t, out.Attempts, seen)
}

func TestCompressEncodeError(t *testing.T) {
	failing := func(io.Writer, image.Image, int) error { return errors.New("writer closed") }

	_, err := NewCompressor(failing).Compress(image.NewNRGBA(image.Rect(0, 0, 1, 1)), 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEncode))
}

func TestTransformExactDimensions(t *testing.T) {
	src := noiseImage(300, 620, 1)

	for _, profile := range []SizeProfile{
		{Width: 90, Height: 160, MaxBytes: 40 * KB},
		{Width: 144, Height: 256, MaxBytes: 20 * KB},
		{Width: 160, Height: 90, MaxBytes: 20 * KB},
	} {
		out, err := Transform(src, TransformOptions{StatusBarHeight: 15, Profile: profile})
		require.NoError(t, err, profile.Name())

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, profile.Width, cfg.Width, profile.Name())
		assert.Equal(t, profile.Height, cfg.Height, profile.Name())
		assert.Equal(t, profile.Width, out.Width)
		assert.Equal(t, profile.Height, out.Height)
		assert.True(t, out.WithinBudget(profile.MaxBytes) || out.Quality == MinQuality)
	}
}

func TestTransformScreenshotExample(t *testing.T) {
	if testing.Short() {
		t.Skip("full size resize")
	}
	src := noiseImage(1440, 2960, 2)

	out, err := Transform(src, TransformOptions{StatusBarHeight: 75, Profile: DefaultProfiles[1]})
	require.NoError(t, err)

	cfg, err := jpegConfig(out.Data)
	require.NoError(t, err)
	assert.Equal(t, 720, cfg.Width)
	assert.Equal(t, 1280, cfg.Height)
	assert.True(t, out.Size() <= 1000*KB || out.Quality == MinQuality)
	for i := 1; i < len(out.Attempts); i++ {
		assert.Less(t, out.Attempts[i].Quality, out.Attempts[i-1].Quality)
	}
}

func jpegConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	return cfg, err
}

func TestTransformIsDeterministic(t *testing.T) {
	src := noiseImage(120, 260, 3)
	opts := TransformOptions{StatusBarHeight: 10, Profile: SizeProfile{Width: 45, Height: 80, MaxBytes: 3 * KB}}

	a, err := Transform(src, opts)
	require.NoError(t, err)
	b, err := Transform(src, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.Quality, b.Quality)
}

func TestTransformErrors(t *testing.T) {
	src := noiseImage(50, 100, 4)

	_, err := Transform(src, TransformOptions{StatusBarHeight: 100, Profile: DefaultProfiles[0]})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCrop))

	_, err = Transform(src, TransformOptions{Profile: SizeProfile{Width: 0, Height: 10, MaxBytes: 1}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalid))
}

func TestTransformRecoversPanics(t *testing.T) {
	boom := func(io.Writer, image.Image, int) error { panic("encoder exploded") }
	p := NewProcessor(WithEncoder(boom))

	_, err := p.Transform(noiseImage(20, 40, 5), TransformOptions{Profile: SizeProfile{Width: 10, Height: 10, MaxBytes: 10}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "shot.png")
	f, err := os.Create(good)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, noiseImage(60, 120, 6)))
	require.NoError(t, f.Close())

	bad := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	p := NewProcessor()
	opts := TransformOptions{StatusBarHeight: 5, Profile: SizeProfile{Width: 30, Height: 50, MaxBytes: 10 * KB}}

	out, err := p.ProcessFile(good, opts)
	require.NoError(t, err)
	assert.Equal(t, 30, out.Width)

	_, err = p.ProcessFile(bad, opts)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode))
	assert.Equal(t, "broken.jpg", apperrors.FromError(err).Detail("file"))

	_, err = p.ProcessFile(filepath.Join(dir, "missing.png"), opts)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIO))
}

func TestSizeProfile(t *testing.T) {
	p := DefaultProfiles[1]
	assert.Equal(t, "720x1280", p.Name())
	assert.Equal(t, "shot_720x1280.PNG", p.FileName("/in/shot.PNG"))
	assert.Equal(t, "a.b_720x1280.jpg", p.FileName("a.b.jpg"))
	assert.Equal(t, "720x1280 (1000 KB)", p.String())
	assert.NoError(t, p.Validate())
	assert.Error(t, SizeProfile{Width: 1, Height: 1}.Validate())

	assert.Equal(t, 2000*1024, DefaultProfiles[0].MaxBytes)
}

func TestIsSupported(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.Png", "d.webp", "e.BMP", "f.tif"} {
		assert.True(t, IsSupported(name), name)
	}
	for _, name := range []string{"notes.txt", "archive.zip", "noext", ".DS_Store"} {
		assert.False(t, IsSupported(name), name)
	}
	assert.Contains(t, SupportedExtensions(), ".webp")
}
