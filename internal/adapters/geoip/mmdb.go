package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
)

const SourceMMDB = "mmdb"

var ErrNoLocation = errors.New("geoip: address not in database")

// cityRecord is the subset of the GeoLite2/GeoIP2 City layout we read.
type cityRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// MMDB implements ports.Geolocator with an offline MaxMind City database.
type MMDB struct {
	reader *maxminddb.Reader
}

// OpenMMDB opens the database at path.
func OpenMMDB(path string) (*MMDB, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mmdb %s: %w", path, err)
	}
	return &MMDB{reader: r}, nil
}

// Locate looks ip up in the database.
func (m *MMDB) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	start := time.Now()
	loc, err := m.locate(ip)
	metrics.GeoLookupDuration.WithLabelValues(SourceMMDB).Observe(time.Since(start).Seconds())
	metrics.GeoLookups.WithLabelValues(SourceMMDB, resultLabel(err)).Inc()
	return loc, err
}

func (m *MMDB) locate(ip string) (*domain.Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidIP, ip)
	}

	var rec cityRecord
	_, ok, err := m.reader.LookupNetwork(parsed, &rec)
	if err != nil {
		return nil, fmt.Errorf("mmdb lookup %s: %w", ip, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}
	return recordLocation(ip, &rec)
}

// recordLocation converts a database record. Records without coordinates
// are treated as misses.
func recordLocation(ip string, rec *cityRecord) (*domain.Location, error) {
	if rec.Location.Latitude == nil || rec.Location.Longitude == nil {
		return nil, fmt.Errorf("%w: %s has no coordinates", ErrNoLocation, ip)
	}

	loc := &domain.Location{
		IP:          ip,
		Lat:         *rec.Location.Latitude,
		Lon:         *rec.Location.Longitude,
		City:        rec.City.Names["en"],
		Country:     rec.Country.Names["en"],
		CountryCode: rec.Country.ISOCode,
		Source:      SourceMMDB,
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names["en"]
	}
	return loc, nil
}

// Close releases the database.
func (m *MMDB) Close() error {
	return m.reader.Close()
}
