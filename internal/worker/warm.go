package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/seasonal"
	"github.com/nocturna-project/nocturna/internal/trend"
)

// WarmJob precomputes analytics results so the first interactive request for
// a tracked city is served from cache.
type WarmJob struct {
	config WarmConfig
	logger zerolog.Logger

	// Services (optional, nil if not configured)
	correlationService *correlation.Service
	trendService       *trend.Service
	seasonalService    *seasonal.Service

	// Metrics
	metrics *WarmMetrics
}

// WarmMetrics tracks warm job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns        int64
	SuccessfulPoints int64
	FailedPoints     int64
	CorrelationWarms int64
	TrendWarms       int64
	SeasonalWarms    int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config             WarmConfig
	Logger             zerolog.Logger
	CorrelationService *correlation.Service
	TrendService       *trend.Service
	SeasonalService    *seasonal.Service
}

// NewWarmJob creates a new warm job processor.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultWarmConfig()
	}
	if config.Concurrency == 0 {
		config.Concurrency = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RadiusKm == 0 {
		config.RadiusKm = 10
	}
	if config.YearsBack == 0 {
		config.YearsBack = 10
	}
	if config.ForecastYears == 0 {
		config.ForecastYears = 5
	}

	return &WarmJob{
		config:             config,
		logger:             cfg.Logger,
		correlationService: cfg.CorrelationService,
		trendService:       cfg.TrendService,
		seasonalService:    cfg.SeasonalService,
		metrics:            &WarmMetrics{},
	}
}

// WarmResult contains the result of a warm run.
type WarmResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []WarmError
}

// WarmError represents an error during warming.
type WarmError struct {
	Engine string
	Point  Point
	Error  string
}

// Run executes the warm job for all configured targets.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm job")

	points := j.config.AllPoints()

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("cache warm job completed")

	return result
}

type pointResult struct {
	point   Point
	success bool
	errors  []WarmError
}

func (j *WarmJob) warmWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmPoint(ctx, point)
		}
	}
}

func (j *WarmJob) warmPoint(ctx context.Context, point Point) pointResult {
	result := pointResult{
		point:   point,
		success: true,
	}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	loc := measurement.Location{Lat: point.Lat, Lon: point.Lon}

	if j.config.WarmCorrelation && j.correlationService != nil {
		if _, err := j.correlationService.Correlate(pointCtx, loc, j.config.RadiusKm); err != nil {
			result.errors = append(result.errors, WarmError{
				Engine: "correlation",
				Point:  point,
				Error:  err.Error(),
			})
			result.success = false
		} else {
			atomic.AddInt64(&j.metrics.CorrelationWarms, 1)
		}
	}

	if j.config.WarmTrend && j.trendService != nil {
		_, err := j.trendService.Trend(pointCtx, loc, j.config.RadiusKm, j.config.YearsBack, j.config.ForecastYears)
		switch {
		case errors.Is(err, trend.ErrInsufficientData):
			// A sparse store is expected for new targets, not a warm failure.
		case err != nil:
			result.errors = append(result.errors, WarmError{
				Engine: "trend",
				Point:  point,
				Error:  err.Error(),
			})
			result.success = false
		default:
			atomic.AddInt64(&j.metrics.TrendWarms, 1)
		}
	}

	if j.config.WarmSeasonal && j.seasonalService != nil {
		if _, err := j.seasonalService.Decompose(pointCtx, loc, j.config.RadiusKm); err != nil {
			result.errors = append(result.errors, WarmError{
				Engine: "seasonal",
				Point:  point,
				Error:  err.Error(),
			})
			result.success = false
		} else {
			atomic.AddInt64(&j.metrics.SeasonalWarms, 1)
		}
	}

	return result
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	// The per-engine counters are updated with atomic adds by concurrent
	// workers, so they are read the same way.
	return WarmMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		SuccessfulPoints: j.metrics.SuccessfulPoints,
		FailedPoints:     j.metrics.FailedPoints,
		CorrelationWarms: atomic.LoadInt64(&j.metrics.CorrelationWarms),
		TrendWarms:       atomic.LoadInt64(&j.metrics.TrendWarms),
		SeasonalWarms:    atomic.LoadInt64(&j.metrics.SeasonalWarms),
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalDuration:    j.metrics.TotalDuration,
	}
}
