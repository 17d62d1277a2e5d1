package impact

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nocturna-project/nocturna/internal/measurement"
)

// HabitatRepository looks up protected areas near a point. The dataset is a
// static external collaborator table; the engine only reads it.
type HabitatRepository interface {
	// Nearby returns habitats within radiusKm of loc.
	Nearby(ctx context.Context, loc measurement.Location, radiusKm float64) ([]Habitat, error)
}

// MemoryHabitatRepository serves habitats from an in-process slice.
type MemoryHabitatRepository struct {
	mu       sync.RWMutex
	habitats []Habitat
}

// NewMemoryHabitatRepository creates a repository seeded with the given
// habitats. Passing nil seeds the built-in reference set.
func NewMemoryHabitatRepository(habitats []Habitat) *MemoryHabitatRepository {
	if habitats == nil {
		habitats = referenceHabitats()
	}
	return &MemoryHabitatRepository{habitats: habitats}
}

// Nearby returns habitats within radiusKm of loc.
func (r *MemoryHabitatRepository) Nearby(_ context.Context, loc measurement.Location, radiusKm float64) ([]Habitat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var nearby []Habitat
	for _, h := range r.habitats {
		if loc.DistanceKm(h.Location) <= radiusKm {
			nearby = append(nearby, h)
		}
	}
	return nearby, nil
}

// referenceHabitats is the built-in protected-area dataset used when no
// external table is wired in.
func referenceHabitats() []Habitat {
	return []Habitat{
		{
			Name:        "Nationaal Park De Hoge Veluwe",
			Location:    measurement.Location{Lat: 52.0906, Lon: 5.8310},
			Species:     []string{"Nightjar", "Pine Marten", "Natterer's Bat"},
			ThreatLevel: "vulnerable",
		},
		{
			Name:        "Waddenzee",
			Location:    measurement.Location{Lat: 53.3500, Lon: 5.2500},
			Species:     []string{"Common Tern", "Harbour Seal", "Migratory Waders"},
			ThreatLevel: "endangered",
		},
		{
			Name:        "Oostvaardersplassen",
			Location:    measurement.Location{Lat: 52.4500, Lon: 5.3500},
			Species:     []string{"White-tailed Eagle", "Great Egret", "Barn Owl"},
			ThreatLevel: "vulnerable",
		},
		{
			Name:        "Nationaal Park Lauwersmeer",
			Location:    measurement.Location{Lat: 53.3667, Lon: 6.2167},
			Species:     []string{"Bearded Reedling", "Marsh Harrier", "Daubenton's Bat"},
			ThreatLevel: "vulnerable",
		},
	}
}

// PostgresHabitatRepository reads the habitat reference table from PostgreSQL.
type PostgresHabitatRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHabitatRepository creates a PostgreSQL habitat repository.
func NewPostgresHabitatRepository(pool *pgxpool.Pool) *PostgresHabitatRepository {
	return &PostgresHabitatRepository{pool: pool}
}

// Nearby returns habitats within radiusKm of loc.
func (r *PostgresHabitatRepository) Nearby(ctx context.Context, loc measurement.Location, radiusKm float64) ([]Habitat, error) {
	query := `
		SELECT name, lat, lon, species, threat_level
		FROM habitats
		WHERE 6371 * acos(
			least(1.0,
				cos(radians($1)) * cos(radians(lat)) * cos(radians(lon) - radians($2))
				+ sin(radians($1)) * sin(radians(lat))
			)
		) <= $3
	`

	rows, err := r.pool.Query(ctx, query, loc.Lat, loc.Lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("query habitats: %w", err)
	}
	defer rows.Close()

	var habitats []Habitat
	for rows.Next() {
		var h Habitat
		if err := rows.Scan(&h.Name, &h.Location.Lat, &h.Location.Lon, &h.Species, &h.ThreatLevel); err != nil {
			return nil, fmt.Errorf("scan habitat: %w", err)
		}
		habitats = append(habitats, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habitats: %w", err)
	}

	return habitats, nil
}
