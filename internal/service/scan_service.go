package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/vulnscan"
)

// EventEmitter publishes platform events to the bus.
type EventEmitter interface {
	Emit(ctx context.Context, kind domain.EventKind, payload domain.Payload) (string, error)
}

// VulnTester probes one target URL for a vulnerability class.
type VulnTester interface {
	TestURL(ctx context.Context, rawURL string) (*vulnscan.Result, error)
}

// ScanReport summarizes one on-demand scan.
type ScanReport struct {
	Target        string                   `json:"target"`
	Findings      []vulnscan.Vulnerability `json:"findings"`
	FindingsCount int                      `json:"findingsCount"`
	CriticalCount int                      `json:"criticalCount"`
}

// ScanService runs the active vulnerability testers against a target
// and emits lifecycle and finding events for webhook subscribers.
type ScanService struct {
	testers []VulnTester
	events  EventEmitter
	logger  *zap.Logger
}

func NewScanService(events EventEmitter, logger *zap.Logger, testers ...VulnTester) (*ScanService, error) {
	if events == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	if len(testers) == 0 {
		return nil, fmt.Errorf("at least one tester is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScanService{
		testers: testers,
		events:  events,
		logger:  logger,
	}, nil
}

// Scan probes target with every tester. Events are emitted as the scan
// progresses: scan.started, vulnerability.found per finding,
// critical.finding for critical ones, then scan.completed or
// scan.failed.
func (s *ScanService) Scan(ctx context.Context, target string) (*ScanReport, error) {
	if _, err := s.events.Emit(ctx, domain.EventScanStarted, domain.Payload{"target": target}); err != nil {
		return nil, err
	}

	report := &ScanReport{Target: target, Findings: []vulnscan.Vulnerability{}}

	for _, tester := range s.testers {
		result, err := tester.TestURL(ctx, target)
		if err != nil {
			s.logger.Error("scan failed",
				zap.String("target", target),
				zap.Error(err),
			)
			if _, emitErr := s.events.Emit(ctx, domain.EventScanFailed, domain.Payload{
				"target": target,
				"reason": err.Error(),
			}); emitErr != nil {
				s.logger.Error("failed to emit scan.failed", zap.Error(emitErr))
			}
			return nil, err
		}

		report.Findings = append(report.Findings, result.Vulnerabilities...)
	}

	for _, finding := range report.Findings {
		if _, err := s.events.Emit(ctx, domain.EventVulnerabilityFound, domain.Payload{
			"target":    target,
			"title":     findingTitle(finding),
			"parameter": finding.Parameter,
			"severity":  finding.Severity,
			"evidence":  finding.Evidence,
		}); err != nil {
			s.logger.Error("failed to emit vulnerability.found", zap.Error(err))
		}

		if finding.Severity == "critical" {
			report.CriticalCount++
			if _, err := s.events.Emit(ctx, domain.EventCriticalFinding, domain.Payload{
				"title":    findingTitle(finding),
				"severity": finding.Severity,
				"url":      target,
			}); err != nil {
				s.logger.Error("failed to emit critical.finding", zap.Error(err))
			}
		}
	}

	report.FindingsCount = len(report.Findings)

	if _, err := s.events.Emit(ctx, domain.EventScanCompleted, domain.Payload{
		"target":         target,
		"findings_count": report.FindingsCount,
		"critical_count": report.CriticalCount,
	}); err != nil {
		s.logger.Error("failed to emit scan.completed", zap.Error(err))
	}

	return report, nil
}

func findingTitle(v vulnscan.Vulnerability) string {
	method := strings.ReplaceAll(v.DetectionMethod, "_", " ")
	return fmt.Sprintf("%s injection via parameter %q", method, v.Parameter)
}
