package headeraudit

import (
	"context"
	"fmt"
	"strings"

	"github.com/probeflow/probeflow/pkg/protocol"
)

// defaultHeaders is the baseline header set audited when none is configured.
var defaultHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
}

// Plugin inspects HTTP response metadata from an upstream crawl dataset and
// reports responses missing required security headers.
type Plugin struct {
	headers  []string
	severity string
}

func NewPlugin(config map[string]any) (*Plugin, error) {
	p := &Plugin{
		headers:  defaultHeaders,
		severity: "low",
	}

	if raw, ok := config["required_headers"].([]any); ok {
		headers := make([]string, 0, len(raw))

		for _, h := range raw {
			s, ok := h.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("required_headers entries must be non-empty strings, got %v", h)
			}

			headers = append(headers, s)
		}

		p.headers = headers
	}

	if severity, ok := config["severity"].(string); ok {
		p.severity = severity
	}

	return p, nil
}

func (p *Plugin) Execute(ctx context.Context, input protocol.ExecutionInput) (map[string]any, error) {
	responses, err := responseRecords(input.Inputs["responses"])
	if err != nil {
		return nil, err
	}

	findings := make([]map[string]any, 0)

	for _, response := range responses {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		url, _ := response["url"].(string)
		if url == "" {
			continue
		}

		headers := headerSet(response["headers"])

		for _, required := range p.headers {
			if _, present := headers[strings.ToLower(required)]; present {
				continue
			}

			findings = append(findings, map[string]any{
				"title":    fmt.Sprintf("Missing %s header", required),
				"severity": p.severity,
				"resource": url,
				"evidence": map[string]any{
					"header": required,
				},
				"cwe":   693, // Protection Mechanism Failure
				"owasp": "A05:2021-Security Misconfiguration",
				"tool":  "header_audit",
			})
		}
	}

	return map[string]any{protocol.OutputFindings: findings}, nil
}

func responseRecords(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("required input dataset 'responses' is missing")
	case []map[string]any:
		return v, nil
	case []any:
		records := make([]map[string]any, 0, len(v))

		for _, item := range v {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("responses entries must be objects, got %T", item)
			}

			records = append(records, record)
		}

		return records, nil
	default:
		return nil, fmt.Errorf("responses dataset must be a list of objects, got %T", raw)
	}
}

func headerSet(raw any) map[string]struct{} {
	set := make(map[string]struct{})

	switch v := raw.(type) {
	case map[string]string:
		for name := range v {
			set[strings.ToLower(name)] = struct{}{}
		}
	case map[string]any:
		for name := range v {
			set[strings.ToLower(name)] = struct{}{}
		}
	}

	return set
}
