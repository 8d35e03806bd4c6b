package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

type SimConfig struct {
	NumTenants       int
	NumLandlords     int
	SimulationTime   time.Duration
	MessageFrequency float64 // messages per user per hour
	ImagePercentage  float64 // fraction of messages sent as image type
	DisconnectRate   float64
	ReconnectRate    float64
	ZipfS            float64 // skew for landlord popularity
	ServerURL        string
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	ActiveUsers      int
	TotalConvos      int
	TotalMessages    int
	ImageMessages    int
	RequestLatencies []time.Duration
}

// SimulatedUser is one portal account driving load against the API.
type SimulatedUser struct {
	ID            string
	Token         string
	Name          string
	Email         string
	Role          string
	IsConnected   bool
	LastActive    time.Time
	Conversations []string
}

type SimulationMetrics struct {
	TotalUsers    int
	ActiveUsers   int
	TotalConvos   int
	TotalMessages int
	ImageMessages int
	ErrorCount    int64
}

type ChatSimulator struct {
	config    SimConfig
	stats     *SimulationStats
	tenants   []*SimulatedUser
	landlords []*SimulatedUser
	client    *http.Client
	mu        sync.RWMutex
}

func NewChatSimulator(config SimConfig) *ChatSimulator {
	return &ChatSimulator{
		config: config,
		stats: &SimulationStats{
			StartTime:        time.Now(),
			RequestLatencies: make([]time.Duration, 0),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *ChatSimulator) Run(ctx context.Context) error {
	log.Printf("Starting chat simulation...")

	// Initialize accounts and conversations first
	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup

	// Start message activity
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateMessages(ctx)
	}()

	// Simulate connection states
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateConnectivity(ctx)
	}()

	// Collect metrics
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *ChatSimulator) initialize(ctx context.Context) error {
	log.Printf("Starting initialization...")

	// Phase 1: Create accounts
	log.Printf("Phase 1: Creating %d tenants and %d landlords...",
		s.config.NumTenants, s.config.NumLandlords)
	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("failed to create initial users: %v", err)
	}

	// Phase 2: Open conversations with Zipf-distributed landlord popularity
	log.Printf("Phase 2: Opening conversations...")
	if err := s.openConversations(ctx); err != nil {
		return fmt.Errorf("failed to open conversations: %v", err)
	}

	log.Printf("Initialization completed successfully")
	return nil
}

func (s *ChatSimulator) createInitialUsers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.config.NumTenants + s.config.NumLandlords
	s.tenants = make([]*SimulatedUser, 0, s.config.NumTenants)
	s.landlords = make([]*SimulatedUser, 0, s.config.NumLandlords)

	// A small worker pool so the server is not overwhelmed during setup
	numWorkers := 5
	userJobs := make(chan int, numWorkers)
	results := make(chan *SimulatedUser, numWorkers)

	var wg sync.WaitGroup

	// Shared rate limiter across workers
	rateLimiter := time.NewTicker(200 * time.Millisecond)
	defer rateLimiter.Stop()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			client := &http.Client{Timeout: 5 * time.Second}

			for userNum := range userJobs {
				<-rateLimiter.C

				role := "tenant"
				if userNum >= s.config.NumTenants {
					role = "landlord"
				}
				user := &SimulatedUser{
					Name:          fmt.Sprintf("%s_%d", role, userNum),
					Email:         fmt.Sprintf("%s_%d@test.com", role, userNum),
					Role:          role,
					IsConnected:   true,
					Conversations: make([]string, 0),
				}

				var err error
				for retries := 0; retries < 3; retries++ {
					if err = s.registerAndLogin(ctx, user, client); err == nil {
						results <- user
						break
					}
					backoff := time.Duration(math.Pow(2, float64(retries))) * time.Second
					log.Printf("Worker %d: Retry %d for user %s after %v delay",
						workerID, retries+1, user.Name, backoff)
					time.Sleep(backoff)
				}

				if err != nil {
					log.Printf("Worker %d: Failed to register user %s after retries: %v",
						workerID, user.Name, err)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < total; i++ {
			userJobs <- i
		}
		close(userJobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	successCount := 0
	progressTicker := time.NewTicker(2 * time.Second)
	defer progressTicker.Stop()

	for user := range results {
		if user.Role == "tenant" {
			s.tenants = append(s.tenants, user)
		} else {
			s.landlords = append(s.landlords, user)
		}
		successCount++

		select {
		case <-progressTicker.C:
			log.Printf("Progress: %d/%d users created (%.2f%%)",
				successCount, total, float64(successCount)/float64(total)*100)
		default:
		}
	}

	log.Printf("Successfully created %d tenants and %d landlords",
		len(s.tenants), len(s.landlords))
	return nil
}

func (s *ChatSimulator) registerAndLogin(ctx context.Context, user *SimulatedUser, client *http.Client) error {
	registerData := map[string]interface{}{
		"name":     user.Name,
		"email":    user.Email,
		"password": "testpass123",
		"role":     user.Role,
	}

	// Registration may have succeeded on an earlier attempt; a duplicate
	// response is fine as long as login works.
	if _, err := s.makeRequestWithClient(client, "POST", "/auth/register", "", registerData); err != nil {
		log.Printf("Registration for %s returned error (may already exist): %v", user.Email, err)
	}

	loginData := map[string]interface{}{
		"email":    user.Email,
		"password": "testpass123",
	}
	resp, err := s.makeRequestWithClient(client, "POST", "/auth/login", "", loginData)
	if err != nil {
		return fmt.Errorf("failed to log in: %v", err)
	}

	var result struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    *struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to parse login response: %v", err)
	}
	if !result.Success || result.Token == "" || result.User == nil {
		return fmt.Errorf("login rejected for %s", user.Email)
	}

	user.ID = result.User.ID
	user.Token = result.Token
	return nil
}

// openConversations pairs every tenant with one or two landlords. Landlord
// choice follows a Zipf distribution so a few landlords carry most of the
// traffic, as on real property portals.
func (s *ChatSimulator) openConversations(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.landlords) == 0 {
		return fmt.Errorf("no landlords available")
	}

	for _, tenant := range s.tenants {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		numContacts := 1 + rand.Intn(2)
		for i := 0; i < numContacts; i++ {
			landlord := s.landlords[s.getZipfNumber(len(s.landlords))]

			data := map[string]interface{}{
				"contactUserId": landlord.ID,
				"contactDetails": map[string]string{
					"name":   landlord.Name,
					"email":  landlord.Email,
					"avatar": "/avatars/default.png",
				},
			}

			start := time.Now()
			resp, err := s.makeRequest("POST", "/conversations", tenant.Token, data)
			s.recordRequestMetrics(start, err)
			if err != nil {
				log.Printf("Failed to open conversation for %s: %v", tenant.Name, err)
				continue
			}

			var result struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(resp, &result); err != nil || result.ID == "" {
				log.Printf("Unexpected conversation response for %s", tenant.Name)
				continue
			}

			// Opening the same pair twice returns the same conversation
			if !containsString(tenant.Conversations, result.ID) {
				tenant.Conversations = append(tenant.Conversations, result.ID)
				landlord.Conversations = append(landlord.Conversations, result.ID)
				s.stats.mu.Lock()
				s.stats.TotalConvos++
				s.stats.mu.Unlock()
			}

			time.Sleep(50 * time.Millisecond)
		}
	}

	log.Printf("Opened %d conversations", s.totalConversations())
	return nil
}

func (s *ChatSimulator) totalConversations() int {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()
	return s.stats.TotalConvos
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// getZipfNumber picks an index in [0, max) skewed toward low indices.
func (s *ChatSimulator) getZipfNumber(max int) int {
	if max <= 1 {
		return 0
	}
	zipf := rand.NewZipf(rand.New(rand.NewSource(time.Now().UnixNano())),
		s.config.ZipfS, 1, uint64(max-1))
	return int(zipf.Uint64())
}

func (s *ChatSimulator) makeRequest(method, endpoint, token string, data interface{}) ([]byte, error) {
	return s.makeRequestWithClient(s.client, method, endpoint, token, data)
}

func (s *ChatSimulator) makeRequestWithClient(client *http.Client, method, endpoint, token string, data interface{}) ([]byte, error) {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %v", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, s.config.ServerURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (s *ChatSimulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	s.stats.TotalRequests++
	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, time.Since(start))
}

func (s *ChatSimulator) allUsers() []*SimulatedUser {
	users := make([]*SimulatedUser, 0, len(s.tenants)+len(s.landlords))
	users = append(users, s.tenants...)
	users = append(users, s.landlords...)
	return users
}

func (s *ChatSimulator) simulateConnectivity(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			active := 0
			for _, user := range s.allUsers() {
				if user.IsConnected {
					if rand.Float64() < s.config.DisconnectRate {
						user.IsConnected = false
					}
				} else {
					if rand.Float64() < s.config.ReconnectRate {
						user.IsConnected = true
						user.LastActive = time.Now()
					}
				}
				if user.IsConnected {
					active++
				}
			}
			s.mu.Unlock()

			s.stats.mu.Lock()
			s.stats.ActiveUsers = active
			s.stats.mu.Unlock()
		}
	}
}

func (s *ChatSimulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.mu.RLock()
			var avgLatency time.Duration
			if len(s.stats.RequestLatencies) > 0 {
				var total time.Duration
				for _, l := range s.stats.RequestLatencies {
					total += l
				}
				avgLatency = total / time.Duration(len(s.stats.RequestLatencies))
			}
			log.Printf("Stats: requests=%d success=%d failed=%d convos=%d messages=%d (images=%d) active=%d avg_latency=%v",
				s.stats.TotalRequests,
				s.stats.SuccessRequests,
				s.stats.FailedRequests,
				s.stats.TotalConvos,
				s.stats.TotalMessages,
				s.stats.ImageMessages,
				s.stats.ActiveUsers,
				avgLatency,
			)
			s.stats.mu.RUnlock()
		}
	}
}

func (s *ChatSimulator) GetMetrics() SimulationMetrics {
	s.mu.RLock()
	totalUsers := len(s.tenants) + len(s.landlords)
	s.mu.RUnlock()

	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()
	return SimulationMetrics{
		TotalUsers:    totalUsers,
		ActiveUsers:   s.stats.ActiveUsers,
		TotalConvos:   s.stats.TotalConvos,
		TotalMessages: s.stats.TotalMessages,
		ImageMessages: s.stats.ImageMessages,
		ErrorCount:    s.stats.FailedRequests,
	}
}
