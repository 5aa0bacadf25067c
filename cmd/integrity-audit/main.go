package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/internal/repository"
	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	"github.com/noah-isme/busbuddy-api/pkg/database"
	"github.com/noah-isme/busbuddy-api/pkg/logger"
)

const (
	exitCritical   = 1
	exitIncomplete = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		format         string
		out            string
		minSeverity    string
		entity         string
		failOnCritical bool
		timeout        time.Duration
	)

	flag.StringVar(&format, "format", "json", "Output format: json, csv, xlsx or pdf")
	flag.StringVar(&out, "out", "", "Output file (stdout when empty)")
	flag.StringVar(&minSeverity, "min-severity", "", "Only report issues at or above Low, Medium, High or Critical")
	flag.StringVar(&entity, "entity", "", "Restrict output to one entity type")
	flag.BoolVar(&failOnCritical, "fail-on-critical", false, "Exit non-zero when any Critical issue exists")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Validation timeout")
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

	params := models.AuditRunParams{Format: models.ExportFormat(strings.ToLower(format)), Entity: entity}
	if minSeverity != "" {
		sev, err := models.ParseSeverity(minSeverity)
		if err != nil {
			log.Fatalf("invalid -min-severity: %v", err)
		}
		params.MinSeverity = &sev
	}
	if entity != "" {
		if _, ok := service.ParseEntityType(entity); !ok {
			log.Fatalf("unknown -entity %q", entity)
		}
	}

	db, err := database.Open(cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	validatorSvc := service.NewIntegrityService(service.IntegrityRepositories{
		Routes:     repository.NewRouteRepository(db),
		Activities: repository.NewActivityRepository(db),
		Students:   repository.NewStudentRepository(db),
		Drivers:    repository.NewDriverRepository(db),
		Vehicles:   repository.NewVehicleRepository(db),
	}, cfg.Integrity, nil, nil, logr)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	report := validatorSvc.ValidateAll(ctx)

	issues := service.SelectIssues(report, params)
	data, _, err := service.NewExportService(nil, nil, service.ExportConfig{}, logr).Render(report, issues, params.Format)
	if err != nil {
		logr.Fatal("failed to render report", zap.Error(err))
	}
	if err := write(out, data); err != nil {
		logr.Fatal("failed to write report", zap.Error(err))
	}

	logr.Info("integrity audit complete",
		zap.String("run_id", report.RunID),
		zap.Int("total_issues", report.TotalIssues),
		zap.Int("reported_issues", len(issues)),
		zap.Duration("duration", report.Duration),
	)

	return exitCode(report, failOnCritical)
}

func write(path string, data []byte) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	_, err := w.Write(data)
	return err
}

func exitCode(report *models.IntegrityReport, failOnCritical bool) int {
	if report.Error != "" {
		fmt.Fprintf(os.Stderr, "integrity run incomplete: %s\n", report.Error)
		return exitIncomplete
	}
	if failOnCritical && report.SeverityCounts[models.SeverityCritical] > 0 {
		fmt.Fprintf(os.Stderr, "%d critical issue(s) found\n", report.SeverityCounts[models.SeverityCritical])
		return exitCritical
	}
	return 0
}
