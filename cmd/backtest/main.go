// Backtest tool for measuring Claimcast next-claim predictions against history.
//
// Usage:
//
//	go run ./cmd/backtest -profiles /path/to/profiles.json -url http://localhost:8080
//
// This tool:
//  1. Reads customer profiles (a JSON array, or one profile per line)
//  2. Hides each customer's most recent claim
//  3. Asks Claimcast to forecast as of the claim before it
//  4. Compares the predicted days until the next claim with the hidden claim
//  5. Reports mean absolute error, hit rates and latency
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/claimcast/internal/domain"
	"github.com/opensource-finance/claimcast/internal/forecast"
)

// Case is one hidden-claim experiment.
type Case struct {
	Profile    *domain.CustomerProfile
	AsOf       time.Time
	ActualDays int
}

// ForecastRequest is the Claimcast API request format.
type ForecastRequest struct {
	Profile *domain.CustomerProfile `json:"profile"`
	AsOf    string                  `json:"asOf"`
	Method  string                  `json:"method,omitempty"`
}

// Metrics tracks backtest results.
type Metrics struct {
	TotalCases       int64
	TotalPredicted   int64
	TotalNoForecast  int64
	TotalErrors      int64
	Within30Days     int64
	Within60Days     int64
	AbsErrorDaysSum  int64
	ProcessingTimeMs int64

	mu         sync.Mutex
	byDecision map[string]int64
}

func main() {
	profilesPath := flag.String("profiles", "", "Path to customer profiles (JSON array or JSON lines)")
	baseURL := flag.String("url", "http://localhost:8080", "Claimcast base URL")
	tenantID := flag.String("tenant", "backtest", "Tenant ID for requests")
	method := flag.String("method", "", "Next-claim method (auto, advanced, simple)")
	minClaims := flag.Int("min-claims", 4, "Minimum claims a customer needs to be replayed")
	workers := flag.Int("workers", 8, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each customer result")
	flag.Parse()

	if *profilesPath == "" {
		fmt.Println("Usage: backtest -profiles /path/to/profiles.json [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║           CLAIMCAST BACKTEST - Next Claim Prediction          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nProfiles:    %s\n", *profilesPath)
	fmt.Printf("URL:         %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Min Claims:  %d\n", *minClaims)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Claimcast not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Claimcast is running:")
		fmt.Println("  go run ./cmd/claimcast serve")
		os.Exit(1)
	}
	fmt.Println("✓ Claimcast is healthy")

	profiles, err := readProfiles(*profilesPath)
	if err != nil {
		fmt.Printf("ERROR: Failed to read profiles: %v\n", err)
		os.Exit(1)
	}
	cases := buildCases(profiles, *minClaims)
	fmt.Printf("✓ Loaded %d profiles, %d replayable\n", len(profiles), len(cases))
	if len(cases) == 0 {
		os.Exit(0)
	}

	fmt.Printf("\nRunning backtest with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBacktest(cases, *baseURL, *tenantID, *method, *workers, *verbose)
	printResults(metrics, time.Since(startTime))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readProfiles(path string) ([]*domain.CustomerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var profiles []*domain.CustomerProfile
		if err := json.Unmarshal(data, &profiles); err != nil {
			return nil, fmt.Errorf("invalid profile array: %w", err)
		}
		return profiles, nil
	}

	var profiles []*domain.CustomerProfile
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var p domain.CustomerProfile
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		profiles = append(profiles, &p)
	}
	return profiles, scanner.Err()
}

type datedClaim struct {
	claim domain.RawClaim
	date  time.Time
}

// buildCases hides the latest claim of every profile with enough dated
// claims. Yearly aggregates are dropped so the hidden claim cannot leak
// through them.
func buildCases(profiles []*domain.CustomerProfile, minClaims int) []Case {
	var cases []Case
	for _, p := range profiles {
		var claims []datedClaim
		for _, c := range p.Claims {
			if d, ok := forecast.ParseDate(c.Date); ok {
				claims = append(claims, datedClaim{claim: c, date: d})
			}
		}
		if len(claims) < minClaims || len(claims) < 2 {
			continue
		}
		sort.SliceStable(claims, func(i, j int) bool { return claims[i].date.Before(claims[j].date) })

		hidden := claims[len(claims)-1]
		asOf := claims[len(claims)-2].date
		actual := int(hidden.date.Sub(asOf).Hours() / 24)
		if actual <= 0 {
			continue
		}

		visible := make([]domain.RawClaim, 0, len(claims)-1)
		for _, c := range claims[:len(claims)-1] {
			visible = append(visible, c.claim)
		}
		cases = append(cases, Case{
			Profile: &domain.CustomerProfile{
				CustomerID: p.CustomerID,
				Name:       p.Name,
				Claims:     visible,
				Policies:   p.Policies,
				Exposures:  p.Exposures,
			},
			AsOf:       asOf,
			ActualDays: actual,
		})
	}
	return cases
}

func runBacktest(cases []Case, baseURL, tenantID, method string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{byDecision: make(map[string]int64)}

	work := make(chan Case, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for c := range work {
				start := time.Now()
				result, err := forecastCase(client, baseURL, tenantID, method, c)
				atomic.AddInt64(&metrics.ProcessingTimeMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&metrics.TotalCases, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", c.Profile.CustomerID, err)
					}
					continue
				}

				metrics.mu.Lock()
				metrics.byDecision[result.Decision]++
				metrics.mu.Unlock()

				if result.NextClaim.InsufficientData {
					atomic.AddInt64(&metrics.TotalNoForecast, 1)
					continue
				}

				atomic.AddInt64(&metrics.TotalPredicted, 1)
				absErr := int64(math.Abs(float64(result.NextClaim.DaysUntilNext - c.ActualDays)))
				atomic.AddInt64(&metrics.AbsErrorDaysSum, absErr)
				if absErr <= 30 {
					atomic.AddInt64(&metrics.Within30Days, 1)
				}
				if absErr <= 60 {
					atomic.AddInt64(&metrics.Within60Days, 1)
				}

				if verbose {
					status := "✓"
					if absErr > 30 {
						status = "✗"
					}
					fmt.Printf("%s %-16s | Claims: %3d | Predicted: %4d d | Actual: %4d d | Conf: %-6s | %s\n",
						status,
						truncate(c.Profile.CustomerID, 16),
						len(c.Profile.Claims),
						result.NextClaim.DaysUntilNext,
						c.ActualDays,
						result.NextClaim.Confidence,
						result.Decision,
					)
				}
			}
		}()
	}

	for _, c := range cases {
		work <- c
	}
	close(work)
	wg.Wait()

	return metrics
}

func forecastCase(client *http.Client, baseURL, tenantID, method string, c Case) (*domain.ForecastResponse, error) {
	body, err := json.Marshal(ForecastRequest{
		Profile: c.Profile,
		AsOf:    c.AsOf.Format(time.DateOnly),
		Method:  method,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result domain.ForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       BACKTEST RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Cases Replayed:    %d\n", m.TotalCases)
	fmt.Printf("   With Prediction:   %d\n", m.TotalPredicted)
	fmt.Printf("   Insufficient Data: %d\n", m.TotalNoForecast)
	fmt.Printf("   Errors:            %d\n", m.TotalErrors)

	fmt.Printf("\n🎯 PREDICTION ACCURACY\n")
	if m.TotalPredicted > 0 {
		mae := float64(m.AbsErrorDaysSum) / float64(m.TotalPredicted)
		fmt.Printf("   Mean Abs Error:    %.1f days\n", mae)
		fmt.Printf("   Within 30 days:    %d / %d (%.2f%%)\n", m.Within30Days, m.TotalPredicted, 100*float64(m.Within30Days)/float64(m.TotalPredicted))
		fmt.Printf("   Within 60 days:    %d / %d (%.2f%%)\n", m.Within60Days, m.TotalPredicted, 100*float64(m.Within60Days)/float64(m.TotalPredicted))
	} else {
		fmt.Println("   No predictions to score")
	}

	fmt.Printf("\n📋 RENEWAL DECISIONS\n")
	for _, status := range []string{domain.DecisionAccept, domain.DecisionAdjust, domain.DecisionDecline} {
		fmt.Printf("   %-8s %d\n", status+":", m.byDecision[status])
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalCases > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalCases)
		rps := float64(m.TotalCases) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f forecasts/sec\n", rps)
	}
	fmt.Println()
}
