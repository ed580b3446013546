package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forkful/recommender/internal/catalog"
	"github.com/forkful/recommender/internal/geo"
)

// boundingBoxMargin widens the store prefilter so venues sitting right on
// the radius are not lost to the degree approximation.
const boundingBoxMargin = 1.1

// Window is the time a diner intends to be seated.
type Window struct {
	Day             time.Weekday
	StartMinute     int
	DurationMinutes int
}

const (
	nowWindowMinutes     = 60
	tonightAnchor        = 18 * 60
	tonightWindowMinutes = 5 * 60
	tomorrowAnchor       = 19 * 60
	weekendAnchor        = 20 * 60
	eveningWindowMinutes = 180
)

// ResolveWindow turns the timing intent into a concrete weekday and start
// minute relative to now. ok is false for TimingAnytime.
func ResolveWindow(cc *ConversationContext, now time.Time) (w Window, ok bool) {
	today := now.Weekday()
	switch cc.Timing {
	case TimingNow:
		w = Window{Day: today, StartMinute: now.Hour()*60 + now.Minute(), DurationMinutes: nowWindowMinutes}
	case TimingTonight:
		w = Window{Day: today, StartMinute: tonightAnchor, DurationMinutes: tonightWindowMinutes}
	case TimingTomorrow:
		w = Window{Day: (today + 1) % 7, StartMinute: tomorrowAnchor, DurationMinutes: eveningWindowMinutes}
	case TimingWeekend:
		day := today
		if today != time.Friday && today != time.Saturday {
			day = time.Friday
		}
		w = Window{Day: day, StartMinute: weekendAnchor, DurationMinutes: eveningWindowMinutes}
	default:
		return Window{}, false
	}

	if cc.SpecificDay != nil && *cc.SpecificDay >= 0 && *cc.SpecificDay <= 6 {
		w.Day = time.Weekday(*cc.SpecificDay)
	}
	if cc.SpecificTime != nil && *cc.SpecificTime >= 0 && *cc.SpecificTime < 24*60 {
		w.StartMinute = *cc.SpecificTime
	}
	return w, true
}

// HardFilter applies the non-negotiable constraints: geography and opening
// hours.
type HardFilter struct {
	store     catalog.Store
	scanLimit int
}

func NewHardFilter(store catalog.Store, scanLimit int) *HardFilter {
	return &HardFilter{store: store, scanLimit: scanLimit}
}

// Filter returns the venues the diner could actually go to. Every result has
// coordinates and DistanceMeters set relative to origin. now must already be
// in the catalog's local time zone.
func (f *HardFilter) Filter(ctx context.Context, cc *ConversationContext, origin geo.Point, now time.Time) ([]ScoredVenue, error) {
	venues, err := f.fetch(ctx, cc, origin)
	if err != nil {
		return nil, err
	}

	window, checkHours := ResolveWindow(cc, now)
	radius := searchRadius(cc)

	out := make([]ScoredVenue, 0, len(venues))
	seen := make(map[string]bool, len(venues))
	var noCoords, tooFar, closed int
	for _, v := range venues {
		if v.Location == nil {
			noCoords++
			continue
		}
		if seen[v.ID] {
			continue
		}
		d := geo.Distance(origin, *v.Location)
		if cc.LocationPreference == LocationNearby && d > radius {
			tooFar++
			continue
		}
		if checkHours && !v.OpeningHours.IsOpenAt(window.Day, window.StartMinute) {
			closed++
			continue
		}
		seen[v.ID] = true
		out = append(out, ScoredVenue{Venue: v, DistanceMeters: &d})
	}

	slog.Debug("hard filter: done",
		"fetched", len(venues), "kept", len(out),
		"no_coords", noCoords, "too_far", tooFar, "closed", closed,
		"location", cc.LocationPreference, "timing", cc.Timing)
	return out, nil
}

func searchRadius(cc *ConversationContext) float64 {
	if cc.MaxDistanceMeters > 0 {
		return cc.MaxDistanceMeters
	}
	return nearbyRadiusMeters
}

func (f *HardFilter) fetch(ctx context.Context, cc *ConversationContext, origin geo.Point) ([]catalog.Venue, error) {
	var (
		venues []catalog.Venue
		err    error
	)
	switch cc.LocationPreference {
	case LocationNearby:
		box := geo.BoundingBoxAround(origin, searchRadius(cc)*boundingBoxMargin)
		venues, err = f.store.ListWithinBounds(ctx, box)
	case LocationSpecificCity:
		venues, err = f.store.ListByCity(ctx, CityVariants(cc.SpecificCity))
	case LocationAnywhere:
		venues, err = f.store.ListAll(ctx, f.scanLimit)
	default:
		venues, err = f.store.ListByCity(ctx, RegionCities(cc.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("fetching venues for %s: %w", cc.LocationPreference, err)
	}
	return venues, nil
}
