package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// Candidate is the intermediate form an adapter extracts from one raw
// record before severity mapping, truncation and validation.
type Candidate struct {
	Title       string
	SeverityRaw string
	Resource    string
	Evidence    map[string]string
	CWE         int
	OWASP       string
	CVEs        []string
	CVSS        float64
	Techniques  []string
	Tool        string
	ToolVersion string
}

// Adapter extracts a Candidate from one raw output record of a given
// source. Adapters only reshape; mapping and validation stay in the
// Normalizer so every source is held to the same rules.
type Adapter func(record map[string]any) (*Candidate, error)

// AdapterFor returns the adapter registered for a source id, falling back
// to the generic adapter which expects canonical keys in the record.
func AdapterFor(sourceID string) Adapter {
	switch sourceID {
	case "scan.nuclei":
		return nucleiAdapter
	case "scan.feroxbuster":
		return feroxbusterAdapter
	case "scan.katana":
		return katanaAdapter
	default:
		return genericAdapter
	}
}

// genericAdapter reads records that already carry canonical keys, the
// shape native plugins emit.
func genericAdapter(record map[string]any) (*Candidate, error) {
	title := stringField(record, "title")
	if title == "" {
		return nil, fmt.Errorf("record has no title")
	}

	c := &Candidate{
		Title:       title,
		SeverityRaw: stringField(record, "severity"),
		Resource:    stringField(record, "resource"),
		Evidence:    evidenceField(record, "evidence"),
		OWASP:       stringField(record, "owasp"),
		CVEs:        stringSliceField(record, "cves"),
		Techniques:  stringSliceField(record, "techniques"),
		Tool:        stringField(record, "tool"),
		ToolVersion: stringField(record, "version"),
	}
	c.CWE = intField(record, "cwe")
	c.CVSS = floatField(record, "cvss")

	return c, nil
}

// nucleiAdapter reads nuclei JSONL result lines: template id and severity
// live under the info object, the affected URL under matched-at.
func nucleiAdapter(record map[string]any) (*Candidate, error) {
	info, _ := record["info"].(map[string]any)
	if info == nil {
		return nil, fmt.Errorf("nuclei record has no info object")
	}

	title := stringField(info, "name")
	if title == "" {
		title = stringField(record, "template-id")
	}
	if title == "" {
		return nil, fmt.Errorf("nuclei record has no template name")
	}

	resource := stringField(record, "matched-at")
	if resource == "" {
		resource = stringField(record, "host")
	}

	c := &Candidate{
		Title:       title,
		SeverityRaw: stringField(info, "severity"),
		Resource:    resource,
		Evidence:    map[string]string{},
		Tool:        "nuclei",
	}

	if tid := stringField(record, "template-id"); tid != "" {
		c.Evidence["template_id"] = tid
	}
	if m := stringField(record, "matcher-name"); m != "" {
		c.Evidence["matcher"] = m
	}
	if req := stringField(record, "request"); req != "" {
		c.Evidence["request"] = req
	}
	if resp := stringField(record, "response"); resp != "" {
		c.Evidence["response"] = resp
	}

	if class, ok := info["classification"].(map[string]any); ok {
		c.CVEs = stringSliceField(class, "cve-id")
		c.CVSS = floatField(class, "cvss-score")
		for _, cwe := range stringSliceField(class, "cwe-id") {
			if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(cwe), "CWE-")); err == nil {
				c.CWE = n
				break
			}
		}
	}

	return c, nil
}

// feroxbusterAdapter reads feroxbuster JSON response lines. Discovered
// resources are informational by definition, so severity is fixed here
// rather than read from the record.
func feroxbusterAdapter(record map[string]any) (*Candidate, error) {
	if kind := stringField(record, "type"); kind != "" && kind != "response" {
		return nil, fmt.Errorf("feroxbuster record type %q is not a response", kind)
	}

	url := stringField(record, "url")
	if url == "" {
		return nil, fmt.Errorf("feroxbuster record has no url")
	}

	status := intField(record, "status")
	c := &Candidate{
		Title:       fmt.Sprintf("Discovered resource (HTTP %d)", status),
		SeverityRaw: "informational",
		Resource:    url,
		Evidence: map[string]string{
			"status": strconv.Itoa(status),
		},
		Tool: "feroxbuster",
	}
	if n := intField(record, "content_length"); n > 0 {
		c.Evidence["content_length"] = strconv.Itoa(n)
	}

	return c, nil
}

// katanaAdapter reads katana crawl JSONL: one record per crawled endpoint
// with nested request/response objects.
func katanaAdapter(record map[string]any) (*Candidate, error) {
	req, _ := record["request"].(map[string]any)
	if req == nil {
		return nil, fmt.Errorf("katana record has no request object")
	}

	endpoint := stringField(req, "endpoint")
	if endpoint == "" {
		return nil, fmt.Errorf("katana record has no endpoint")
	}

	c := &Candidate{
		Title:       "Crawled endpoint",
		SeverityRaw: "informational",
		Resource:    endpoint,
		Evidence: map[string]string{
			"method": stringField(req, "method"),
		},
		Tool: "katana",
	}
	if resp, ok := record["response"].(map[string]any); ok {
		if code := intField(resp, "status_code"); code > 0 {
			c.Evidence["status_code"] = strconv.Itoa(code)
		}
	}

	return c, nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func stringSliceField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func evidenceField(m map[string]any, key string) map[string]string {
	out := map[string]string{}
	raw, ok := m[key].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
