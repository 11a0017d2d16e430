package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/repository"
	"github.com/noah-isme/nexalink-api/internal/service"
	"github.com/noah-isme/nexalink-api/pkg/config"
	"github.com/noah-isme/nexalink-api/pkg/database"
	"github.com/noah-isme/nexalink-api/pkg/logger"
)

type auditor interface {
	Verify(ctx context.Context, courseID string) (*dto.MetricVerification, error)
	RecomputeCourse(ctx context.Context, courseID string) (*dto.RecomputeResult, error)
}

type courseResult struct {
	CourseID    string
	Checked     int
	Drift       int
	Recomputed  bool
	Unrefreshed int
	Err         error
	Duration    time.Duration
}

func main() {
	var (
		courses     string
		fix         bool
		parallelism int
		timeout     time.Duration
	)

	flag.StringVar(&courses, "courses", "", "Comma separated course ids (default: every course)")
	flag.BoolVar(&fix, "fix", false, "Recompute courses whose cached percentages drifted")
	flag.IntVar(&parallelism, "parallel", 4, "Courses verified concurrently")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall audit deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	courseRepo := repository.NewCourseRepository(db)
	store := service.NewMetricStore(service.MetricStoreParams{
		Attendance:  repository.NewAttendanceRepository(db),
		Enrollments: repository.NewEnrollmentRepository(db),
		IA:          repository.NewIARepository(db),
		Repo:        repository.NewMetricRepository(db),
		Logger:      logr,
	})

	ids := splitIDs(courses)
	if len(ids) == 0 {
		ids, err = courseRepo.ListIDs(ctx)
		if err != nil {
			logr.Fatal("failed to list courses", zap.Error(err))
		}
	}

	results := audit(ctx, store, ids, fix, parallelism)
	failed := printReport(os.Stdout, results)
	if failed > 0 {
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// audit verifies every course and, with fix set, recomputes the drifted ones.
// Results come back in course id order.
func audit(ctx context.Context, store auditor, courseIDs []string, fix bool, parallelism int) []courseResult {
	if parallelism <= 0 {
		parallelism = 1
	}
	var (
		mu      sync.Mutex
		results = make([]courseResult, 0, len(courseIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, id := range courseIDs {
		courseID := id
		g.Go(func() error {
			res := auditCourse(gctx, store, courseID, fix)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].CourseID < results[j].CourseID })
	return results
}

func auditCourse(ctx context.Context, store auditor, courseID string, fix bool) courseResult {
	start := time.Now()
	res := courseResult{CourseID: courseID}

	report, err := store.Verify(ctx, courseID)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	res.Checked = report.Checked
	res.Drift = len(report.Drift)
	if !fix || res.Drift == 0 {
		res.Duration = time.Since(start)
		return res
	}

	recomputed, err := store.RecomputeCourse(ctx, courseID)
	if err != nil {
		res.Err = fmt.Errorf("recompute: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	res.Recomputed = true
	res.Unrefreshed = len(recomputed.RecomputeErrors)
	res.Duration = time.Since(start)
	return res
}

// printReport writes the audit table and returns the number of courses needing attention.
func printReport(w io.Writer, results []courseResult) int {
	fmt.Fprintln(w, "Metric Audit Report")
	fmt.Fprintln(w, "===================")
	failed := 0
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
		case res.Recomputed && res.Unrefreshed == 0:
			status = "FIXED"
		case res.Drift > 0:
			status = "DRIFT"
		}
		if status == "ERROR" || status == "DRIFT" {
			failed++
		}
		fmt.Fprintf(w, "[%s] course %s (%s)\n", status, res.CourseID, res.Duration.Round(time.Millisecond))
		if res.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Err)
			continue
		}
		fmt.Fprintf(w, "  Students checked: %d | Drifted rows: %d", res.Checked, res.Drift)
		if res.Recomputed {
			fmt.Fprintf(w, " | Unrefreshed after recompute: %d", res.Unrefreshed)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Courses: %d, needing attention: %d\n", len(results), failed)
	return failed
}
