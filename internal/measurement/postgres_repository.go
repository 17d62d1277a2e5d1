package measurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pixelIntersectKm is how far a pixel center may be from a query point and
// still count as the pixel covering it. VIIRS cells are roughly 500m.
const pixelIntersectKm = 1.0

// haversineKm is the SQL great-circle distance between a ($1,$2) query point
// and the row's lat/lon columns, in kilometers.
const haversineKm = `
	6371 * acos(
		least(1.0,
			cos(radians($1)) * cos(radians(lat)) * cos(radians(lon) - radians($2))
			+ sin(radians($1)) * sin(radians(lat))
		)
	)`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL measurement repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// NearbyGround returns ground readings within radiusKm measured at or after since.
func (r *PostgresRepository) NearbyGround(ctx context.Context, loc Location, radiusKm float64, since time.Time) ([]GroundReading, error) {
	query := fmt.Sprintf(`
		SELECT lat, lon, mpsas, measured_at, device_type, is_research_grade
		FROM ground_readings
		WHERE measured_at >= $4
		  AND %s <= $3
		ORDER BY measured_at DESC
	`, haversineKm)

	rows, err := r.pool.Query(ctx, query, loc.Lat, loc.Lon, radiusKm, since)
	if err != nil {
		return nil, fmt.Errorf("query nearby ground readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// LatestSatellitePixel returns the most recent pixel covering loc, or nil.
func (r *PostgresRepository) LatestSatellitePixel(ctx context.Context, loc Location) (*SatellitePixel, error) {
	query := fmt.Sprintf(`
		SELECT lat, lon, radiance, acquired_at
		FROM satellite_pixels
		WHERE %s <= $3
		ORDER BY acquired_at DESC, %s ASC
		LIMIT 1
	`, haversineKm, haversineKm)

	var p SatellitePixel
	err := r.pool.QueryRow(ctx, query, loc.Lat, loc.Lon, pixelIntersectKm).Scan(
		&p.Location.Lat,
		&p.Location.Lon,
		&p.Radiance,
		&p.AcquiredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest satellite pixel: %w", err)
	}

	return &p, nil
}

// YearlySeries returns per-year mean MPSAS within radiusKm, ascending by year.
func (r *PostgresRepository) YearlySeries(ctx context.Context, loc Location, radiusKm float64, yearsBack int) ([]YearlySeriesPoint, error) {
	query := fmt.Sprintf(`
		SELECT EXTRACT(YEAR FROM measured_at)::int AS year, AVG(mpsas)
		FROM ground_readings
		WHERE measured_at >= now() - make_interval(years => $4)
		  AND %s <= $3
		GROUP BY year
		ORDER BY year ASC
	`, haversineKm)

	rows, err := r.pool.Query(ctx, query, loc.Lat, loc.Lon, radiusKm, yearsBack)
	if err != nil {
		return nil, fmt.Errorf("query yearly series: %w", err)
	}
	defer rows.Close()

	var series []YearlySeriesPoint
	for rows.Next() {
		var p YearlySeriesPoint
		if err := rows.Scan(&p.Year, &p.Value); err != nil {
			return nil, fmt.Errorf("scan yearly series point: %w", err)
		}
		p.Type = PointHistorical
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate yearly series: %w", err)
	}

	return series, nil
}

// GroundHistory returns the full ground reading history within radiusKm.
func (r *PostgresRepository) GroundHistory(ctx context.Context, loc Location, radiusKm float64) ([]GroundReading, error) {
	query := fmt.Sprintf(`
		SELECT lat, lon, mpsas, measured_at, device_type, is_research_grade
		FROM ground_readings
		WHERE %s <= $3
		ORDER BY measured_at ASC
	`, haversineKm)

	rows, err := r.pool.Query(ctx, query, loc.Lat, loc.Lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("query ground history: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// SatelliteHistory returns all pixels within radiusKm across acquisition dates.
func (r *PostgresRepository) SatelliteHistory(ctx context.Context, loc Location, radiusKm float64) ([]SatellitePixel, error) {
	query := fmt.Sprintf(`
		SELECT lat, lon, radiance, acquired_at
		FROM satellite_pixels
		WHERE %s <= $3
		ORDER BY acquired_at ASC
	`, haversineKm)

	rows, err := r.pool.Query(ctx, query, loc.Lat, loc.Lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("query satellite history: %w", err)
	}
	defer rows.Close()

	var pixels []SatellitePixel
	for rows.Next() {
		var p SatellitePixel
		if err := rows.Scan(&p.Location.Lat, &p.Location.Lon, &p.Radiance, &p.AcquiredAt); err != nil {
			return nil, fmt.Errorf("scan satellite pixel: %w", err)
		}
		pixels = append(pixels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate satellite history: %w", err)
	}

	return pixels, nil
}

// PixelGrowth returns cells whose mean radiance grew by more than minDelta
// between fromYear and toYear, largest growth first.
func (r *PostgresRepository) PixelGrowth(ctx context.Context, loc Location, radiusKm float64, fromYear, toYear int, minDelta float64) ([]GrowthCell, error) {
	query := fmt.Sprintf(`
		WITH yearly AS (
			SELECT lat, lon,
			       EXTRACT(YEAR FROM acquired_at)::int AS year,
			       AVG(radiance) AS mean_radiance
			FROM satellite_pixels
			WHERE %s <= $3
			  AND EXTRACT(YEAR FROM acquired_at)::int IN ($4, $5)
			GROUP BY lat, lon, year
		)
		SELECT a.lat, a.lon, a.mean_radiance, b.mean_radiance,
		       b.mean_radiance - a.mean_radiance AS delta
		FROM yearly a
		JOIN yearly b ON a.lat = b.lat AND a.lon = b.lon
		WHERE a.year = $4 AND b.year = $5
		  AND b.mean_radiance - a.mean_radiance > $6
		ORDER BY delta DESC
	`, haversineKm)

	rows, err := r.pool.Query(ctx, query, loc.Lat, loc.Lon, radiusKm, fromYear, toYear, minDelta)
	if err != nil {
		return nil, fmt.Errorf("query pixel growth: %w", err)
	}
	defer rows.Close()

	var cells []GrowthCell
	for rows.Next() {
		var c GrowthCell
		if err := rows.Scan(&c.Location.Lat, &c.Location.Lon, &c.FromMean, &c.ToMean, &c.Delta); err != nil {
			return nil, fmt.Errorf("scan growth cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pixel growth: %w", err)
	}

	return cells, nil
}

func scanReadings(rows pgx.Rows) ([]GroundReading, error) {
	var readings []GroundReading
	for rows.Next() {
		var g GroundReading
		if err := rows.Scan(
			&g.Location.Lat,
			&g.Location.Lon,
			&g.MPSAS,
			&g.MeasuredAt,
			&g.DeviceType,
			&g.IsResearchGrade,
		); err != nil {
			return nil, fmt.Errorf("scan ground reading: %w", err)
		}
		readings = append(readings, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ground readings: %w", err)
	}
	return readings, nil
}
