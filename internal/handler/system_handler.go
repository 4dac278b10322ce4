package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/pemetaan-keswa/internal/config"
	"github.com/stemsi/pemetaan-keswa/internal/response"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports liveness and runtime metrics.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func probe(ctx context.Context, ping func(context.Context) error) dependencyStatus {
	start := time.Now()
	err := ping(ctx)
	st := dependencyStatus{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status = "down"
		st.Error = err.Error()
	}
	return st
}

// Health godoc
// GET /healthz
// Pings Postgres and Redis. Responds 503 when either is down.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	pg := probe(ctx, h.pool.Ping)
	rd := probe(ctx, func(ctx context.Context) error { return h.rdb.Ping(ctx).Err() })

	status := http.StatusOK
	if pg.Status != "up" || rd.Status != "up" {
		status = http.StatusServiceUnavailable
		h.log.Warn().Str("postgres", pg.Status).Str("redis", rd.Status).Msg("Health check failed")
	}
	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"postgres": pg,
		"redis":    rd,
		"uptime":   formatDuration(time.Since(h.startTime)),
	})
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	StackInuse uint64 `json:"stack_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	DBTotalConns    int32 `json:"db_total_conns"`
	DBAcquiredConns int32 `json:"db_acquired_conns"`
	DBIdleConns     int32 `json:"db_idle_conns"`

	QueueAnswers  int64 `json:"queue_answers"`
	QueueProgress int64 `json:"queue_progress"`
}

// Metrics godoc
// GET /api/v1/system/metrics
// Returns Go runtime, connection pool and worker queue figures.
func (h *SystemHandler) Metrics(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := systemMetrics{
		Timestamp:  time.Now().Unix(),
		Uptime:     formatDuration(time.Since(h.startTime)),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		HeapSys:    mem.HeapSys,
		StackInuse: mem.StackInuse,
		NumGC:      mem.NumGC,
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
	}

	stat := h.pool.Stat()
	m.DBTotalConns = stat.TotalConns()
	m.DBAcquiredConns = stat.AcquiredConns()
	m.DBIdleConns = stat.IdleConns()

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	pipe := h.rdb.Pipeline()
	answers := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	progress := pipe.LLen(ctx, config.WorkerKey.PersistProgressQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read queue lengths")
	} else {
		m.QueueAnswers = answers.Val()
		m.QueueProgress = progress.Val()
	}

	response.Success(c, http.StatusOK, m)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
