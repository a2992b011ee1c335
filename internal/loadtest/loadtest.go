// Package loadtest provides load testing utilities for the store layer.
//
// It simulates concurrent grid views querying a populated store while a
// smaller number of writers keep saving posts, and reports latency
// percentiles for both paths.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/store"
)

// sampleTags is the tag pool used for generated posts.
var sampleTags = []string{
	"news", "golang", "design", "video", "music", "recipes",
	"travel", "ai", "photography", "reading",
}

// samplePlatforms weights generated posts toward the common platforms.
var samplePlatforms = []schema.Platform{
	schema.PlatformTwitter,
	schema.PlatformTwitter,
	schema.PlatformYouTube,
	schema.PlatformInstagram,
	schema.PlatformWebsite,
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
}

// Options configures a load test run.
type Options struct {
	// SeedPosts is how many posts to create before measuring
	SeedPosts int
	// Readers is the number of concurrent query goroutines
	Readers int
	// QueriesPerReader is how many queries each reader issues
	QueriesPerReader int
	// Writers is the number of concurrent writer goroutines
	Writers int
	// PostsPerWriter is how many posts each writer saves
	PostsPerWriter int
}

// DefaultOptions returns a moderate mixed workload.
func DefaultOptions() Options {
	return Options{
		SeedPosts:        500,
		Readers:          20,
		QueriesPerReader: 50,
		Writers:          4,
		PostsPerWriter:   25,
	}
}

// Result holds the outcome of a load test run.
type Result struct {
	Reads  *LatencyStats
	Writes *LatencyStats
}

// Seed populates the store with generated posts.
func Seed(ctx context.Context, st *store.Store, n int) error {
	for i := 0; i < n; i++ {
		if _, err := st.AddPost(ctx, generatePost(i), false); err != nil {
			return fmt.Errorf("failed to seed post %d: %w", i, err)
		}
	}
	return nil
}

// Run executes the configured workload against an initialized store.
func Run(ctx context.Context, st *store.Store, opts Options) (*Result, error) {
	if err := Seed(ctx, st, opts.SeedPosts); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var readDurations, writeDurations []time.Duration
	var readErrors, writeErrors int

	for i := 0; i < opts.Readers; i++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(seed)))
			durations := make([]time.Duration, 0, opts.QueriesPerReader)

			for j := 0; j < opts.QueriesPerReader; j++ {
				q := randomQuery(rng)
				start := time.Now()
				st.GetAllPosts(ctx, q)
				durations = append(durations, time.Since(start))
			}

			mu.Lock()
			readDurations = append(readDurations, durations...)
			mu.Unlock()
		}(i)
	}

	for i := 0; i < opts.Writers; i++ {
		wg.Add(1)
		go func(writerID int) {
			defer wg.Done()
			durations := make([]time.Duration, 0, opts.PostsPerWriter)
			errs := 0

			for j := 0; j < opts.PostsPerWriter; j++ {
				post := generatePost(opts.SeedPosts + writerID*opts.PostsPerWriter + j)
				start := time.Now()
				if _, err := st.AddPost(ctx, post, false); err != nil {
					errs++
					continue
				}
				durations = append(durations, time.Since(start))
			}

			mu.Lock()
			writeDurations = append(writeDurations, durations...)
			writeErrors += errs
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	return &Result{
		Reads:  computeStats(readDurations, readErrors),
		Writes: computeStats(writeDurations, writeErrors),
	}, nil
}

// generatePost creates a deterministic unique post for slot i.
func generatePost(i int) *schema.Post {
	platform := samplePlatforms[i%len(samplePlatforms)]
	tags := []string{
		sampleTags[i%len(sampleTags)],
		sampleTags[(i*3+1)%len(sampleTags)],
	}
	return &schema.Post{
		URL:      fmt.Sprintf("https://example.com/%s/post/%d", platform, i),
		Platform: platform,
		Title:    fmt.Sprintf("Generated post %d", i),
		Tags:     schema.NormalizeTags(tags),
	}
}

// randomQuery produces a query shaped like real grid usage: mostly plain
// pages, sometimes tag- or platform-filtered, occasionally a search.
func randomQuery(rng *rand.Rand) store.Query {
	q := store.Query{Limit: 30, Offset: rng.Intn(5) * 30}
	switch rng.Intn(4) {
	case 0:
		q.FilterTags = []string{sampleTags[rng.Intn(len(sampleTags))]}
	case 1:
		q.Platform = samplePlatforms[rng.Intn(len(samplePlatforms))]
	case 2:
		q.SearchTerm = "post"
	}
	return q
}

// computeStats aggregates latency percentiles.
func computeStats(durations []time.Duration, errors int) *LatencyStats {
	stats := &LatencyStats{
		TotalQueries: len(durations),
		Errors:       errors,
	}
	if len(durations) == 0 {
		return stats
	}

	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.Mean = total / time.Duration(len(sorted))
	stats.P50 = percentile(sorted, 0.50)
	stats.P95 = percentile(sorted, 0.95)
	stats.P99 = percentile(sorted, 0.99)
	return stats
}

// percentile returns the p-th percentile of sorted durations.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// String formats the stats for CLI display.
func (s *LatencyStats) String() string {
	if s.TotalQueries == 0 {
		return "no samples"
	}
	return fmt.Sprintf("n=%d errors=%d min=%v p50=%v p95=%v p99=%v max=%v mean=%v",
		s.TotalQueries, s.Errors, s.Min, s.P50, s.P95, s.P99, s.Max, s.Mean)
}
