package badge

import (
	"embed"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/rhysemmas/now-playing/pkg/config"
)

//go:embed static/*.png static/badge.svg.tmpl
var static embed.FS

// Idle image names under static/
const (
	ImageNone     = "none"
	ImageSleeping = "sleeping"
	ImageCoding   = "coding"
)

// The night window, both ends inclusive and wrapping past midnight
const (
	nightStart = 22 * time.Hour
	nightEnd   = 8 * time.Hour
)

// Image is raw image data plus its MIME type, ready to embed as a data URI
type Image struct {
	Data        []byte
	ContentType string
}

// Base64 returns the standard base64 encoding of the image data
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// IdleImageProvider supplies the picture shown when nothing is playing
type IdleImageProvider interface {
	IdleImage() (Image, error)
}

// StaticIdle always shows the same image
type StaticIdle struct{}

// IdleImage returns the "none" image
func (StaticIdle) IdleImage() (Image, error) {
	return LoadImage(ImageNone)
}

// ScheduledIdle shows a sleeping image overnight and a coding image otherwise,
// judged by the wall clock in a fixed UTC offset.
type ScheduledIdle struct {
	Zone *time.Location
	Now  func() time.Time
}

// NewScheduledIdle returns a ScheduledIdle for a zone offsetHours from UTC
func NewScheduledIdle(offsetHours int) ScheduledIdle {
	return ScheduledIdle{
		Zone: time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*int(time.Hour/time.Second)),
		Now:  time.Now,
	}
}

// IdleImage returns the image for the current time of day
func (s ScheduledIdle) IdleImage() (Image, error) {
	return LoadImage(s.Choose(s.Now()))
}

// Choose picks the idle image name for t
func (s ScheduledIdle) Choose(t time.Time) string {
	if s.Zone != nil {
		t = t.In(s.Zone)
	}
	if IsTimeBetween(nightStart, nightEnd, sinceMidnight(t)) {
		return ImageSleeping
	}
	return ImageCoding
}

// IsTimeBetween reports whether check falls in [begin, end], all given as offsets from midnight.
// When begin is after end the window crosses midnight.
func IsTimeBetween(begin, end, check time.Duration) bool {
	if begin < end {
		return check >= begin && check <= end
	}
	return check >= begin || check <= end
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// NewIdleImageProvider returns the provider for a configured idle policy
func NewIdleImageProvider(policy string, offsetHours int) (IdleImageProvider, error) {
	switch policy {
	case config.IdlePolicySchedule:
		return NewScheduledIdle(offsetHours), nil
	case config.IdlePolicyStatic:
		return StaticIdle{}, nil
	}
	return nil, fmt.Errorf("unknown idle policy %q", policy)
}

// LoadImage reads one of the bundled idle images
func LoadImage(name string) (Image, error) {
	data, err := static.ReadFile("static/" + name + ".png")
	if err != nil {
		return Image{}, fmt.Errorf("error reading idle image %s: %w", name, err)
	}
	return Image{Data: data, ContentType: http.DetectContentType(data)}, nil
}
