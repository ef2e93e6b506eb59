package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type recipientPayload struct {
	DestAddr   string            `json:"dest_addr"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type campaignRequest struct {
	TenantID   string             `json:"tenant_id"`
	Name       string             `json:"name"`
	Body       string             `json:"body"`
	SenderID   string             `json:"sender_id"`
	Recipients []recipientPayload `json:"recipients"`
}

type campaignResponse struct {
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
	Recipients int    `json:"recipients"`
}

type loadTestResult struct {
	TotalRequests   int
	SuccessCount    int32
	FailureCount    int32
	Dispatched      int32
	TotalDuration   time.Duration
	RequestsPerSec  float64
	AvgResponseTime time.Duration
	Errors          map[string]int
}

const tenantID = "6f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"

func runLoadTest(baseURL string, numCampaigns, recipientsPer, concurrency int) *loadTestResult {
	var (
		successCount  int32
		failureCount  int32
		dispatched    int32
		totalRespTime int64
		errorsMu      sync.Mutex
		errors        = make(map[string]int)
		wg            sync.WaitGroup
		semaphore     = make(chan struct{}, concurrency)
	)

	startTime := time.Now()

	fmt.Printf("\n🚀 Creating %d campaigns of %d recipients (concurrency %d)\n", numCampaigns, recipientsPer, concurrency)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for i := 0; i < numCampaigns; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(reqNum int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			recipients := make([]recipientPayload, 0, recipientsPer)
			for j := 0; j < recipientsPer; j++ {
				recipients = append(recipients, recipientPayload{
					DestAddr:   fmt.Sprintf("+2557%04d%04d", reqNum%10000, j%10000),
					Attributes: map[string]string{"first_name": fmt.Sprintf("Tester%d", j)},
				})
			}
			payload := campaignRequest{
				TenantID:   tenantID,
				Name:       fmt.Sprintf("Load Test Campaign %d", reqNum),
				Body:       "Hello {first_name}, this is load test message #" + fmt.Sprint(reqNum),
				SenderID:   "AXISTEST",
				Recipients: recipients,
			}
			jsonData, _ := json.Marshal(payload)

			reqStart := time.Now()
			resp, err := http.Post(baseURL+"/api/campaigns", "application/json", bytes.NewBuffer(jsonData))
			atomic.AddInt64(&totalRespTime, time.Since(reqStart).Nanoseconds())

			if err != nil {
				atomic.AddInt32(&failureCount, 1)
				errorsMu.Lock()
				errors[err.Error()]++
				errorsMu.Unlock()
				return
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusCreated {
				atomic.AddInt32(&failureCount, 1)
				errorsMu.Lock()
				errors[fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))]++
				errorsMu.Unlock()
				return
			}

			var created campaignResponse
			if err := json.Unmarshal(body, &created); err != nil {
				atomic.AddInt32(&failureCount, 1)
				errorsMu.Lock()
				errors["JSON parse error"]++
				errorsMu.Unlock()
				return
			}
			atomic.AddInt32(&successCount, 1)

			// Release every third campaign to the queue so the worker
			// side gets load too.
			if reqNum%3 == 0 {
				dispURL := fmt.Sprintf("%s/api/campaigns/%s/dispatch", baseURL, created.CampaignID)
				dispResp, err := http.Post(dispURL, "application/json", nil)
				if err == nil {
					dispResp.Body.Close()
					if dispResp.StatusCode == http.StatusAccepted {
						atomic.AddInt32(&dispatched, 1)
					}
				}
			}

			if reqNum%10 == 0 {
				fmt.Print(".")
			}
		}(i)
	}

	wg.Wait()
	totalDuration := time.Since(startTime)

	fmt.Println("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return &loadTestResult{
		TotalRequests:   numCampaigns,
		SuccessCount:    successCount,
		FailureCount:    failureCount,
		Dispatched:      dispatched,
		TotalDuration:   totalDuration,
		RequestsPerSec:  float64(numCampaigns) / totalDuration.Seconds(),
		AvgResponseTime: time.Duration(totalRespTime / int64(numCampaigns)),
		Errors:          errors,
	}
}

func printResults(result *loadTestResult) {
	fmt.Printf("\n📊 Load Test Results\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Campaigns Created:   %d\n", result.TotalRequests)
	fmt.Printf("✅ Success:           %d (%.2f%%)\n", result.SuccessCount, float64(result.SuccessCount)/float64(result.TotalRequests)*100)
	fmt.Printf("❌ Failed:            %d (%.2f%%)\n", result.FailureCount, float64(result.FailureCount)/float64(result.TotalRequests)*100)
	fmt.Printf("📤 Dispatched:        %d\n", result.Dispatched)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("⏱️  Total Duration:    %v\n", result.TotalDuration)
	fmt.Printf("⚡ Requests/sec:      %.2f\n", result.RequestsPerSec)
	fmt.Printf("📈 Avg Response Time: %v\n", result.AvgResponseTime)

	if len(result.Errors) > 0 {
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Println("❌ Errors:")
		for errMsg, count := range result.Errors {
			fmt.Printf("   • %s: %d times\n", errMsg, count)
		}
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

func main() {
	baseURL := "http://localhost:8080"

	fmt.Println("🔍 Checking if campaign-api is running...")
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		fmt.Printf("❌ Error: Cannot connect to server at %s\n", baseURL)
		fmt.Println("💡 Make sure the server is running: make run-api")
		return
	}
	resp.Body.Close()
	fmt.Println("✅ Server is running")

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("TEST 1: 50 Campaigns x 100 Recipients (Concurrency: 10)")
	fmt.Println("═══════════════════════════════════════════════════════")
	small := runLoadTest(baseURL, 50, 100, 10)
	printResults(small)

	fmt.Println("⏳ Waiting 3 seconds before next test...")
	time.Sleep(3 * time.Second)

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("TEST 2: 200 Campaigns x 500 Recipients (Concurrency: 25)")
	fmt.Println("═══════════════════════════════════════════════════════")
	large := runLoadTest(baseURL, 200, 500, 25)
	printResults(large)

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("📊 COMPARISON SUMMARY")
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Printf("Small: %.2f req/sec | Avg: %v\n", small.RequestsPerSec, small.AvgResponseTime)
	fmt.Printf("Large: %.2f req/sec | Avg: %v\n", large.RequestsPerSec, large.AvgResponseTime)
	fmt.Println("═══════════════════════════════════════════════════════")
}
