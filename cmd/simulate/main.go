package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/agenda/internal/config"
	"github.com/clinicore/agenda/internal/db"
	"github.com/clinicore/agenda/internal/schedule"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Sessions     int
	SubmitRatio  float64
	StatusRatio  float64
	ViewRatio    float64
	PatientLimit int
	DayRange     int
	PostgresDSN  string
}

type DataPool struct {
	Patients     []uuid.UUID
	Dates        []string
	mu           sync.RWMutex
	appointments []uuid.UUID // Thread-safe list of mutable appointment IDs
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	idx := rand.Intn(len(dp.appointments))
	return dp.appointments[idx], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	DayView  OperationMetrics
	WeekView OperationMetrics
	Submit   OperationMetrics
	Status   OperationMetrics
	Filter   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("agenda simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d sessions=%d submit=%.2f status=%.2f view=%.2f",
		cfg.Duration, cfg.Workers, cfg.Sessions, cfg.SubmitRatio, cfg.StatusRatio, cfg.ViewRatio)

	// Load data from Postgres
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d appointments, %d dates",
		len(dataPool.Patients), len(dataPool.appointments), len(dataPool.Dates))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	// Run simulation
	sim.Run()

	// Print report
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		Sessions:     getInt("SIM_SESSIONS", 3),
		SubmitRatio:  getFloat("SIM_SUBMIT_RATIO", 0.3),
		StatusRatio:  getFloat("SIM_STATUS_RATIO", 0.3),
		ViewRatio:    getFloat("SIM_VIEW_RATIO", 0.4),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 500),
		DayRange:     getInt("SIM_DAY_RANGE", 14),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.SubmitRatio + cfg.StatusRatio + cfg.ViewRatio
	if total > 0 {
		cfg.SubmitRatio /= total
		cfg.StatusRatio /= total
		cfg.ViewRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Sessions <= 0 {
		return fmt.Errorf("SIM_SESSIONS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	// Load patients
	rows, err := pool.Query(ctx, `
		SELECT id FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	// Load mutable bookings inside the simulated window
	rows, err = pool.Query(ctx, `
		SELECT id FROM appointments
		WHERE is_block = false
		  AND status NOT IN ('CANCELED', 'RESCHEDULED')
		  AND date >= CURRENT_DATE
		  AND date < CURRENT_DATE + $1::int
	`, cfg.DayRange)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.appointments = append(dataPool.appointments, id)
	}

	today := time.Now()
	for i := 0; i < cfg.DayRange; i++ {
		dataPool.Dates = append(dataPool.Dates, today.AddDate(0, 0, i).Format("2006-01-02"))
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded (run cmd/seed first)")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

// worker hammers the agenda API under a small pool of shared session IDs,
// so concurrent workers land on the same orchestrator and actually contend
// on its reload epochs and mutation locks.
func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	session := fmt.Sprintf("sim-%d", workerID%s.config.Sessions)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			if r < s.config.SubmitRatio {
				s.doSubmit(ctx, rng, session)
			} else if r < s.config.SubmitRatio+s.config.StatusRatio {
				s.doStatus(ctx, rng, session)
			} else {
				// View operations; filter changes mixed in
				viewOp := rng.Intn(4)
				switch viewOp {
				case 0, 1:
					s.doDayView(ctx, rng, session)
				case 2:
					s.doWeekView(ctx, rng, session)
				case 3:
					s.doFilter(ctx, rng, session)
				}
			}
		}
	}
}

func (s *Simulator) doSubmit(ctx context.Context, rng *rand.Rand, session string) {
	if len(s.pool.Patients) == 0 || len(s.pool.Dates) == 0 {
		return
	}

	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	date := s.pool.Dates[rng.Intn(len(s.pool.Dates))]

	// Collisions are the point: draw from a narrow band of slots so
	// concurrent submissions fight over the same times.
	startMin := schedule.DefaultDayStartMin + rng.Intn(8)*schedule.DefaultStepMin
	overbook := rng.Float64() < 0.1

	start := time.Now()

	reqBody := map[string]any{
		"patient_id":     patientID.String(),
		"date":           date,
		"start_time":     schedule.FormatClock(startMin),
		"duration_min":   schedule.DefaultStepMin * (1 + rng.Intn(3)),
		"type":           "Consulta",
		"channel":        "Telefone",
		"allow_overbook": overbook,
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/agenda/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agenda-Session", session)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				json.Unmarshal(bodyBytes, &apptResp)
				if apptResp.ID != uuid.Nil {
					s.pool.AddAppointment(apptResp.ID)
				}
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Submit.Record(latency, success, conflict)
}

var statusLabels = []string{"Confirmado", "Aguardando", "Em atendimento", "Atendido", "Faltou"}

func (s *Simulator) doStatus(ctx context.Context, rng *rand.Rand, session string) {
	apptID, ok := s.pool.GetRandomAppointment()
	if !ok {
		return
	}

	label := statusLabels[rng.Intn(len(statusLabels))]

	start := time.Now()

	reqBody := map[string]string{"status": label}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/agenda/appointments/%s/status", s.config.APIBaseURL, apptID.String()),
		bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agenda-Session", session)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		// Duplicates within a session are silently dropped server-side,
		// so 204 covers both the applied and the deduplicated case.
		if resp.StatusCode == http.StatusNoContent {
			success = true
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Status.Record(latency, success, conflict)
}

func (s *Simulator) doDayView(ctx context.Context, rng *rand.Rand, session string) {
	if len(s.pool.Dates) == 0 {
		return
	}

	date := s.pool.Dates[rng.Intn(len(s.pool.Dates))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/agenda/day?date=%s", s.config.APIBaseURL, date), nil)
	req.Header.Set("X-Agenda-Session", session)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.DayView.Record(latency, success, false)
}

func (s *Simulator) doWeekView(ctx context.Context, rng *rand.Rand, session string) {
	if len(s.pool.Dates) == 0 {
		return
	}

	anchor := s.pool.Dates[rng.Intn(len(s.pool.Dates))]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/agenda/week?date=%s", s.config.APIBaseURL, anchor), nil)
	req.Header.Set("X-Agenda-Session", session)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.WeekView.Record(latency, success, false)
}

var filterTerms = []string{"", "maria", "silva", "agendado", "atend", "confirmado"}

func (s *Simulator) doFilter(ctx context.Context, rng *rand.Rand, session string) {
	term := filterTerms[rng.Intn(len(filterTerms))]

	start := time.Now()

	reqBody := map[string]string{"name_term": term, "status_term": term}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/agenda/filter", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agenda-Session", session)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusAccepted
	}

	s.metrics.Filter.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("AGENDA SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Sessions: %d\n", s.config.Sessions)
	fmt.Println()

	printOperationReport("Day View", &s.metrics.DayView)
	printOperationReport("Week View", &s.metrics.WeekView)
	printOperationReport("Submit", &s.metrics.Submit)
	printOperationReport("Status Change", &s.metrics.Status)
	printOperationReport("Filter", &s.metrics.Filter)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	error := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if error > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", error, float64(error)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
