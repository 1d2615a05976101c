package processor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SizeProfile is one listing image size and the byte budget for its file.
type SizeProfile struct {
	Width    int
	Height   int
	MaxBytes int
}

// KB is the unit budgets are expressed in.
const KB = 1024

// DefaultProfiles are the three listing sizes, in processing order.
var DefaultProfiles = []SizeProfile{
	{Width: 450, Height: 800, MaxBytes: 2000 * KB},
	{Width: 720, Height: 1280, MaxBytes: 1000 * KB},
	{Width: 1080, Height: 1920, MaxBytes: 1000 * KB},
}

// Name is the profile's directory name, e.g. "720x1280".
func (p SizeProfile) Name() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// FileName builds the output name for a source file:
// shot.png -> shot_720x1280.png. The source extension is kept as-is.
func (p SizeProfile) FileName(source string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), p.Name(), ext)
}

// Validate reports whether the profile can produce an image.
func (p SizeProfile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("profile %s: width and height must be positive", p.Name())
	}
	if p.MaxBytes <= 0 {
		return fmt.Errorf("profile %s: max bytes must be positive", p.Name())
	}
	return nil
}

func (p SizeProfile) String() string {
	return fmt.Sprintf("%s (%d KB)", p.Name(), p.MaxBytes/KB)
}

// TransformOptions are the per-call inputs of Transform.
type TransformOptions struct {
	// StatusBarHeight is the number of rows removed from the top of the source.
	StatusBarHeight int
	Profile         SizeProfile
}

// Attempt records one encode of the quality search.
type Attempt struct {
	Quality int `json:"quality"`
	Size    int `json:"size"`
}

// ProcessedImage is an encoded JPEG and how it was produced.
//
// Either len(Data) <= the profile budget, or Quality is MinQuality.
type ProcessedImage struct {
	Data     []byte
	Quality  int
	Width    int
	Height   int
	Attempts []Attempt
}

// Size returns the encoded size in bytes.
func (p *ProcessedImage) Size() int {
	return len(p.Data)
}

// WithinBudget reports whether the encoded size fits maxBytes.
func (p *ProcessedImage) WithinBudget(maxBytes int) bool {
	return len(p.Data) <= maxBytes
}
