// Package location resolves a best-effort position and address for a capture.
// Resolution never fails: every error degrades to "no location".
package location

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// DefaultFixTimeout bounds each position fix attempt.
const DefaultFixTimeout = 10 * time.Second

// Fix is a raw position from a positioning source.
type Fix struct {
	Latitude  float64
	Longitude float64
	// Accuracy in metres, 0 when unknown.
	Accuracy float64
}

// Fixer obtains the current position.
type Fixer interface {
	Fix(ctx context.Context) (*Fix, error)
}

// FixerFunc adapts a function to Fixer.
type FixerFunc func(ctx context.Context) (*Fix, error)

func (f FixerFunc) Fix(ctx context.Context) (*Fix, error) { return f(ctx) }

// Place holds the components a reverse geocoder returns. Any may be empty.
type Place struct {
	Name         string
	StreetNumber string
	Street       string
	District     string
	Subregion    string
	City         string
	Region       string
	PostalCode   string
	Country      string
	// DisplayName is a provider-formatted full address, used as a last
	// resort when the components are too sparse.
	DisplayName string
}

// Geocoder turns coordinates into a Place.
type Geocoder interface {
	Reverse(ctx context.Context, latitude, longitude float64) (*Place, error)
}

// PermissionFunc reports whether location access is granted.
type PermissionFunc func(ctx context.Context) bool

// Resolver walks the native fix, the host fallback fix, then reverse
// geocoding. Zero-valued sources are skipped.
type Resolver struct {
	native     Fixer
	permission PermissionFunc
	fallback   Fixer
	geocoder   Geocoder
	timeout    time.Duration
	logger     *slog.Logger
}

type Option func(*Resolver)

// WithNative sets the high-accuracy platform source. permission is checked
// before every attempt; nil means granted.
func WithNative(f Fixer, permission PermissionFunc) Option {
	return func(r *Resolver) {
		r.native = f
		r.permission = permission
	}
}

// WithFallback sets the host source tried when the native fix fails or is
// unavailable.
func WithFallback(f Fixer) Option { return func(r *Resolver) { r.fallback = f } }

func WithGeocoder(g Geocoder) Option { return func(r *Resolver) { r.geocoder = g } }

// WithFixTimeout overrides DefaultFixTimeout.
func WithFixTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

func NewResolver(logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{timeout: DefaultFixTimeout, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the current location, or nil if no source produced a fix.
// The address is always set on a non-nil result; it falls back to the
// coordinates when geocoding fails or yields too little.
func (r *Resolver) Resolve(ctx context.Context) *domain.Location {
	fix := r.fix(ctx)
	if fix == nil {
		return nil
	}

	loc := &domain.Location{Latitude: fix.Latitude, Longitude: fix.Longitude}
	loc.Address = r.address(ctx, fix)
	if len(loc.Address) < minAddressLen {
		loc.Address = coordinates(fix.Latitude, fix.Longitude, 6)
	}
	return loc
}

func (r *Resolver) fix(ctx context.Context) *Fix {
	if r.native != nil {
		if r.permission != nil && !r.permission(ctx) {
			r.logger.Info("location permission denied")
		} else if fix, err := r.attempt(ctx, r.native); err == nil {
			return fix
		} else {
			r.logger.Warn("native location fix failed", "error", err)
		}
	}

	if r.fallback != nil {
		fix, err := r.attempt(ctx, r.fallback)
		if err == nil {
			return fix
		}
		r.logger.Warn("fallback location fix failed", "error", err)
	}
	return nil
}

func (r *Resolver) attempt(ctx context.Context, f Fixer) (*Fix, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	fix, err := f.Fix(ctx)
	if err != nil {
		return nil, err
	}
	if fix == nil {
		return nil, fmt.Errorf("no position received")
	}
	return fix, nil
}

func (r *Resolver) address(ctx context.Context, fix *Fix) string {
	if r.geocoder == nil {
		return ""
	}
	place, err := r.geocoder.Reverse(ctx, fix.Latitude, fix.Longitude)
	if err != nil {
		r.logger.Warn("reverse geocoding failed", "error", err)
		return ""
	}
	if place == nil {
		return ""
	}
	return FormatAddress(*place)
}

// StaticFixer always reports the same position, for devices installed at a
// known site.
type StaticFixer struct {
	Latitude  float64
	Longitude float64
}

func (s StaticFixer) Fix(ctx context.Context) (*Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Fix{Latitude: s.Latitude, Longitude: s.Longitude}, nil
}
