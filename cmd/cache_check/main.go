// Command cache_check exercises a running server's availability endpoints and
// reports whether the booked-interval day cache is being filled in Redis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"slotify/internal/shared/config"
	"slotify/internal/shared/constants"
	"slotify/pkg/cache"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type CheckResult struct {
	Endpoint     string        `json:"endpoint"`
	CacheStatus  string        `json:"cache_status"`
	ResponseTime time.Duration `json:"response_time"`
	DataSize     int           `json:"data_size"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

type CheckSuite struct {
	BaseURL    string
	ActivityID string
	Date       string
	Redis      *redis.Client
	Results    []CheckResult
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080/api/v1", "API base URL")
	activityID := flag.String("activity", "", "activity id to check (required)")
	date := flag.String("date", time.Now().Format("2006-01-02"), "date to check, YYYY-MM-DD")
	out := flag.String("out", "", "write the JSON report to this file")
	flag.Parse()

	if *activityID == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	client, err := cache.NewClient(cache.Config{
		Address:  cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	defer client.Close()
	fmt.Println("✅ Redis connection: OK")

	suite := &CheckSuite{
		BaseURL:    *baseURL,
		ActivityID: *activityID,
		Date:       *date,
		Redis:      client,
	}

	fmt.Println("🧪 Checking availability cache...")
	suite.Run()
	suite.report(*out)
}

func (s *CheckSuite) Run() {
	ctx := context.Background()
	dayKey := constants.BuildAvailabilityDayKey(s.ActivityID, s.Date)

	// Start from a cold day so the first read must go to Postgres
	if err := s.Redis.Del(ctx, dayKey).Err(); err != nil {
		fmt.Printf("   ⚠️  could not clear %s: %v\n", dayKey, err)
	}

	endpoints := []struct {
		name     string
		endpoint string
	}{
		{"Day slots (cold)", fmt.Sprintf("/activities/%s/slots?date=%s", s.ActivityID, s.Date)},
		{"Day slots (warm)", fmt.Sprintf("/activities/%s/slots?date=%s", s.ActivityID, s.Date)},
		{"Next available date", fmt.Sprintf("/activities/%s/next-available-date?from=%s&maxDays=7", s.ActivityID, s.Date)},
	}

	for _, e := range endpoints {
		fmt.Printf("\n🔍 %s\n", e.name)
		cachedBefore := s.keyExists(ctx, dayKey)
		result := s.hit(e.endpoint)
		switch {
		case !result.Success:
			result.CacheStatus = "ERROR"
		case cachedBefore:
			result.CacheStatus = "HIT"
		case s.keyExists(ctx, dayKey):
			result.CacheStatus = "MISS"
		default:
			result.CacheStatus = "UNCACHED"
		}
		s.Results = append(s.Results, result)
		s.print(result)
	}

	if ttl, err := s.Redis.TTL(ctx, dayKey).Result(); err == nil && ttl > 0 {
		fmt.Printf("\n⏱️  %s expires in %v\n", dayKey, ttl.Round(time.Second))
	}
}

func (s *CheckSuite) keyExists(ctx context.Context, key string) bool {
	n, err := s.Redis.Exists(ctx, key).Result()
	return err == nil && n > 0
}

func (s *CheckSuite) hit(endpoint string) CheckResult {
	client := &http.Client{Timeout: 30 * time.Second}

	start := time.Now()
	resp, err := client.Get(s.BaseURL + endpoint)
	if err != nil {
		return CheckResult{Endpoint: endpoint, ResponseTime: time.Since(start), Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result := CheckResult{
		Endpoint:     endpoint,
		ResponseTime: time.Since(start),
		DataSize:     len(body),
		Success:      err == nil && resp.StatusCode < 400,
	}
	if resp.StatusCode >= 400 {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

func (s *CheckSuite) print(r CheckResult) {
	icon := "✅"
	if !r.Success {
		icon = "❌"
	}
	fmt.Printf("   %s [%s] %v (%d bytes)\n", icon, r.CacheStatus, r.ResponseTime, r.DataSize)
	if r.Error != "" {
		fmt.Printf("      %s\n", r.Error)
	}
}

func (s *CheckSuite) report(path string) {
	fmt.Println("\n📊 AVAILABILITY CACHE REPORT")
	fmt.Println("============================")

	var ok, hits, misses int
	var hitTime, missTime time.Duration
	for _, r := range s.Results {
		if r.Success {
			ok++
		}
		switch r.CacheStatus {
		case "HIT":
			hits++
			hitTime += r.ResponseTime
		case "MISS":
			misses++
			missTime += r.ResponseTime
		}
	}

	fmt.Printf("Requests: %d, successful: %d\n", len(s.Results), ok)
	fmt.Printf("Cache hits: %d, misses: %d\n", hits, misses)
	if hits > 0 && misses > 0 {
		avgHit := hitTime / time.Duration(hits)
		avgMiss := missTime / time.Duration(misses)
		fmt.Printf("Average hit %v vs miss %v\n", avgHit, avgMiss)
	}
	if misses == 0 && hits == 0 {
		fmt.Println("⚠️  Day key never appeared; is REDIS_ENABLED set on the server?")
	}

	if path == "" {
		return
	}
	data, err := json.MarshalIndent(map[string]interface{}{
		"activity_id": s.ActivityID,
		"date":        s.Date,
		"results":     s.Results,
	}, "", "  ")
	if err != nil {
		log.Printf("Failed to encode report: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("Failed to write report: %v", err)
		return
	}
	fmt.Printf("\n💾 Detailed results saved to %s\n", path)
}
