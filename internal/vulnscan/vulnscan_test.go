package vulnscan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cyperhq/integration-engine/internal/domain"
)

func TestSQLiTesterDetectsErrorBased(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if strings.Contains(id, "'") {
			fmt.Fprint(w, "You have an error in your SQL syntax; check the manual that corresponds to your MySQL server version")
			return
		}
		fmt.Fprint(w, "<html><body>product page</body></html>")
	}))
	defer server.Close()

	tester := NewSQLiTester(nil, nil)
	result, err := tester.TestURL(context.Background(), server.URL+"/product?id=1")
	if err != nil {
		t.Fatalf("TestURL() error = %v", err)
	}

	if !result.Vulnerable {
		t.Fatal("Vulnerable = false for error-leaking endpoint")
	}
	found := false
	for _, v := range result.Vulnerabilities {
		if v.DetectionMethod == "error_based" {
			found = true
			if v.Severity != "high" {
				t.Errorf("error_based severity = %s, want high", v.Severity)
			}
			if v.Parameter != "id" {
				t.Errorf("parameter = %s, want id", v.Parameter)
			}
		}
	}
	if !found {
		t.Error("no error_based finding reported")
	}
}

func TestSQLiTesterCleanEndpoint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>static page</body></html>")
	}))
	defer server.Close()

	tester := NewSQLiTester(nil, nil)
	result, err := tester.TestURL(context.Background(), server.URL+"/page?q=hello")
	if err != nil {
		t.Fatalf("TestURL() error = %v", err)
	}
	if result.Vulnerable {
		t.Errorf("Vulnerable = true for identical responses, findings: %+v", result.Vulnerabilities)
	}
}

func TestSQLiTesterNoParamsIsNoOp(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tester := NewSQLiTester(nil, nil)
	result, err := tester.TestURL(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("TestURL() error = %v", err)
	}
	if result.Vulnerable || hits != 0 {
		t.Errorf("parameterless URL: vulnerable=%v hits=%d, want no probing", result.Vulnerable, hits)
	}
}

func TestSQLiTesterRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	tester := NewSQLiTester(nil, nil)
	if _, err := tester.TestURL(context.Background(), "/page?id=1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("TestURL() error = %v, want ErrValidation", err)
	}
}

func TestXSSTesterDetectsRawReflection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Raw reflection of the query parameter.
		fmt.Fprintf(w, "<html><body>Search results for: %s</body></html>", r.URL.Query().Get("q"))
	}))
	defer server.Close()

	tester := NewXSSTester(nil, nil)
	result, err := tester.TestURL(context.Background(), server.URL+"/search?q=test")
	if err != nil {
		t.Fatalf("TestURL() error = %v", err)
	}

	if !result.Vulnerable {
		t.Fatal("Vulnerable = false for raw-reflecting endpoint")
	}

	var scriptTagFinding *Vulnerability
	for i, v := range result.Vulnerabilities {
		if v.DetectionMethod == "script_tag" {
			scriptTagFinding = &result.Vulnerabilities[i]
			break
		}
	}
	if scriptTagFinding == nil {
		t.Fatalf("no script_tag finding, got: %+v", result.Vulnerabilities)
	}
	if scriptTagFinding.Severity != "high" {
		t.Errorf("script_tag severity = %s, want high", scriptTagFinding.Severity)
	}
	if !strings.Contains(scriptTagFinding.Evidence, "Search results") {
		t.Errorf("evidence = %q, want surrounding context", scriptTagFinding.Evidence)
	}
}

func TestXSSTesterIgnoresEscapedReflection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Properly escaped output is not exploitable.
		fmt.Fprintf(w, "<html><body>Search results for: %s</body></html>",
			strings.NewReplacer("<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;", "&", "&amp;").Replace(r.URL.Query().Get("q")))
	}))
	defer server.Close()

	tester := NewXSSTester(nil, nil)
	result, err := tester.TestURL(context.Background(), server.URL+"/search?q=test")
	if err != nil {
		t.Fatalf("TestURL() error = %v", err)
	}
	if result.Vulnerable {
		t.Errorf("Vulnerable = true for escaped output, findings: %+v", result.Vulnerabilities)
	}
}

func TestXSSTesterRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	tester := NewXSSTester(nil, nil)
	if _, err := tester.TestURL(context.Background(), "search?q=1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("TestURL() error = %v, want ErrValidation", err)
	}
}

func TestAnalyzeSQLiResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		status         int
		baselineLength int
		payload        string
		want           string
	}{
		{
			name:           "oracle error code",
			body:           "ORA-01756: quoted string not properly terminated",
			status:         500,
			baselineLength: 48,
			payload:        "' OR '1'='1",
			want:           "error_based",
		},
		{
			name:           "large content difference",
			body:           strings.Repeat("row ", 100),
			status:         200,
			baselineLength: 20,
			payload:        "' OR '1'='1",
			want:           "boolean_based",
		},
		{
			name:           "clean response",
			body:           "ok",
			status:         200,
			baselineLength: 2,
			payload:        "' AND 1=2--",
			want:           "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := analyzeSQLiResponse(tt.body, tt.status, tt.baselineLength, tt.payload)
			if got != tt.want {
				t.Errorf("analyzeSQLiResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}
