package badge

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/rhysemmas/now-playing/pkg/metrics"
	"github.com/rhysemmas/now-playing/pkg/spotify"
)

// Status labels
const (
	StatusPlaying = "Vibing to:"
	StatusIdle    = "Last seen playing:"

	NothingPlaying = "Nothing Playing"
)

var (
	badgeTemplate = template.Must(template.ParseFS(static, "static/badge.svg.tmpl"))

	xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// ImageFetcher downloads artwork by URL
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// RenderContext holds everything the badge template needs for one render
type RenderContext struct {
	ContentBar string
	BarCSS     string
	ArtistName string
	SongName   string
	Image      string
	ImageType  string
	Status     string

	// State is the display state the context was built for, used for metrics and logs
	State string
}

// Renderer turns playback snapshots into SVG badges
type Renderer struct {
	images  ImageFetcher
	idle    IdleImageProvider
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	intN    func(int) int
}

// NewRenderer returns a Renderer. m may be nil.
func NewRenderer(images ImageFetcher, idle IdleImageProvider, logger *zap.SugaredLogger, m *metrics.Metrics) *Renderer {
	return &Renderer{
		images:  images,
		idle:    idle,
		logger:  logger,
		metrics: m,
		intN:    rand.Intn,
	}
}

// Render builds the badge for snapshot
func (r *Renderer) Render(ctx context.Context, snapshot spotify.Snapshot) ([]byte, error) {
	rc, err := r.Context(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := badgeTemplate.Execute(&buf, rc); err != nil {
		return nil, fmt.Errorf("error executing badge template: %w", err)
	}
	r.metrics.ObserveRender(rc.State)

	return buf.Bytes(), nil
}

// Context works out what the badge should show for snapshot. Anything short of a fully
// usable item, including failing to download its artwork, is shown as idle.
func (r *Renderer) Context(ctx context.Context, snapshot spotify.Snapshot) (RenderContext, error) {
	rc := RenderContext{BarCSS: barGen(BarCount, r.intN)}

	playback := snapshot.Playback()
	switch playback.Kind {
	case spotify.PlaybackPlaying:
		data, contentType, err := r.images.FetchImage(ctx, playback.ImageURL)
		if err == nil {
			if contentType == "" {
				contentType = http.DetectContentType(data)
			}
			rc.ContentBar = BarMarkup(BarCount)
			rc.Status = StatusPlaying
			rc.SongName = xmlEscaper.Replace(playback.Song)
			rc.ArtistName = xmlEscaper.Replace(playback.Artist)
			rc.Image = Image{Data: data}.Base64()
			rc.ImageType = contentType
			rc.State = playback.Kind.String()
			return rc, nil
		}
		r.logger.Warnw("error fetching artwork, showing idle badge", "item", playback.ItemKind, "error", err)
		rc.State = "artwork_failed"
	case spotify.PlaybackMalformed:
		r.logger.Warnw("unexpected currently playing item, showing idle badge", "item", playback.ItemKind, "error", playback.Err)
		rc.State = playback.Kind.String()
	default:
		rc.State = playback.Kind.String()
	}

	idle, err := r.idle.IdleImage()
	if err != nil {
		return RenderContext{}, err
	}

	rc.Status = StatusIdle
	rc.SongName = NothingPlaying
	rc.Image = idle.Base64()
	rc.ImageType = idle.ContentType

	return rc, nil
}
