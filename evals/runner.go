// Package evals provides an evaluation framework for MCP tool selection.
// Suites pair natural-language requests with the Essbase tool (and
// arguments) an LLM is expected to pick; selections are scored against them.
package evals

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/olgasafonova/essbase-mcp-server/tools"
)

// Suite file names inside an evals directory
const (
	ToolSelectionFile  = "tool_selection.yaml"
	ConfusionPairsFile = "confusion_pairs.yaml"
)

// ToolSelectionTest represents a single tool selection evaluation case
type ToolSelectionTest struct {
	ID           string         `yaml:"id"`
	Category     string         `yaml:"category"`
	Input        string         `yaml:"input"`
	ExpectedTool string         `yaml:"expected_tool"`
	ExpectedArgs map[string]any `yaml:"expected_args"`
	NotTools     []string       `yaml:"not_tools"`
}

// ToolSelectionSuite contains all tool selection tests
type ToolSelectionSuite struct {
	Name        string              `yaml:"name"`
	Version     string              `yaml:"version"`
	Description string              `yaml:"description"`
	Tests       []ToolSelectionTest `yaml:"tests"`
}

// ConfusionPairTest represents a single disambiguation test
type ConfusionPairTest struct {
	Input    string `yaml:"input"`
	Expected string `yaml:"expected"`
	Reason   string `yaml:"reason"`
}

// ConfusionPair represents a pair of tools that are commonly confused
type ConfusionPair struct {
	ID             string              `yaml:"id"`
	Tools          []string            `yaml:"tools"`
	Disambiguation string              `yaml:"disambiguation"`
	Tests          []ConfusionPairTest `yaml:"tests"`
}

// ConfusionPairSuite contains all confusion pair tests
type ConfusionPairSuite struct {
	Name        string          `yaml:"name"`
	Version     string          `yaml:"version"`
	Description string          `yaml:"description"`
	Pairs       []ConfusionPair `yaml:"pairs"`
}

// ToolSelectionResult represents the result of a single tool selection evaluation
type ToolSelectionResult struct {
	TestID       string
	Input        string
	ExpectedTool string
	ActualTool   string
	Passed       bool
	Errors       []string
}

// EvalMetrics contains aggregate metrics for an evaluation run
type EvalMetrics struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Accuracy      float64 // PassedTests / TotalTests
	ByCategory    map[string]*CategoryMetrics
	FailedDetails []string
}

// CategoryMetrics contains metrics per category
type CategoryMetrics struct {
	Total  int
	Passed int
	Failed int
}

func newMetrics() *EvalMetrics {
	return &EvalMetrics{ByCategory: make(map[string]*CategoryMetrics)}
}

func (m *EvalMetrics) record(category string, passed bool, detail string) {
	m.TotalTests++
	c := m.ByCategory[category]
	if c == nil {
		c = &CategoryMetrics{}
		m.ByCategory[category] = c
	}
	c.Total++
	if passed {
		m.PassedTests++
		c.Passed++
		return
	}
	m.FailedTests++
	c.Failed++
	m.FailedDetails = append(m.FailedDetails, detail)
}

func (m *EvalMetrics) finish() {
	if m.TotalTests > 0 {
		m.Accuracy = float64(m.PassedTests) / float64(m.TotalTests)
	}
}

// loadYAML reads one suite file
func loadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// LoadToolSelectionSuite loads tool selection tests from a YAML file
func LoadToolSelectionSuite(path string) (*ToolSelectionSuite, error) {
	var suite ToolSelectionSuite
	if err := loadYAML(path, &suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// LoadConfusionPairSuite loads confusion pair tests from a YAML file
func LoadConfusionPairSuite(path string) (*ConfusionPairSuite, error) {
	var suite ConfusionPairSuite
	if err := loadYAML(path, &suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// LoadAllEvals loads both suites from a directory
func LoadAllEvals(dir string) (*ToolSelectionSuite, *ConfusionPairSuite, error) {
	toolSelection, err := LoadToolSelectionSuite(filepath.Join(dir, ToolSelectionFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading tool selection: %w", err)
	}
	confusionPairs, err := LoadConfusionPairSuite(filepath.Join(dir, ConfusionPairsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading confusion pairs: %w", err)
	}
	return toolSelection, confusionPairs, nil
}

// CheckToolNames reports every tool a suite mentions that is not in specs.
func CheckToolNames(specs []tools.ToolSpec, ts *ToolSelectionSuite, cp *ConfusionPairSuite) []string {
	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.Name] = true
	}

	var problems []string
	check := func(where, name string) {
		if name != "" && !known[name] {
			problems = append(problems, fmt.Sprintf("%s: unknown tool %q", where, name))
		}
	}

	if ts != nil {
		for _, t := range ts.Tests {
			check(t.ID, t.ExpectedTool)
			for _, n := range t.NotTools {
				check(t.ID, n)
			}
		}
	}
	if cp != nil {
		for _, p := range cp.Pairs {
			for _, n := range p.Tools {
				check(p.ID, n)
			}
			for _, t := range p.Tests {
				check(p.ID, t.Expected)
			}
		}
	}
	return problems
}

// Coverage counts the tool selection tests expecting each tool. Tools
// without tests are included with zero.
func Coverage(specs []tools.ToolSpec, suite *ToolSelectionSuite) map[string]int {
	counts := make(map[string]int, len(specs))
	for _, s := range specs {
		counts[s.Name] = 0
	}
	for _, t := range suite.Tests {
		counts[t.ExpectedTool]++
	}
	return counts
}

// ToolSelector is an interface that an LLM or mock can implement for testing
type ToolSelector interface {
	// SelectTool returns the tool name and arguments for a given natural language input
	SelectTool(input string) (toolName string, args map[string]any, err error)
}

// Selection is one recorded tool choice
type Selection struct {
	Input string         `yaml:"input"`
	Tool  string         `yaml:"tool"`
	Args  map[string]any `yaml:"args"`
}

// ReplaySelector answers from recorded selections keyed by input
type ReplaySelector map[string]Selection

// LoadReplaySelector reads recorded selections from a YAML list
func LoadReplaySelector(path string) (ReplaySelector, error) {
	var recorded []Selection
	if err := loadYAML(path, &recorded); err != nil {
		return nil, err
	}
	rs := make(ReplaySelector, len(recorded))
	for _, s := range recorded {
		rs[s.Input] = s
	}
	return rs, nil
}

// SelectTool implements ToolSelector
func (r ReplaySelector) SelectTool(input string) (string, map[string]any, error) {
	s, ok := r[input]
	if !ok {
		return "", nil, fmt.Errorf("no recorded selection for %q", input)
	}
	return s.Tool, s.Args, nil
}

// EvaluateToolSelection runs tool selection tests against a selector
func EvaluateToolSelection(suite *ToolSelectionSuite, selector ToolSelector) (*EvalMetrics, []ToolSelectionResult) {
	metrics := newMetrics()
	results := make([]ToolSelectionResult, 0, len(suite.Tests))

	for _, test := range suite.Tests {
		actualTool, actualArgs, err := selector.SelectTool(test.Input)

		result := ToolSelectionResult{
			TestID:       test.ID,
			Input:        test.Input,
			ExpectedTool: test.ExpectedTool,
			ActualTool:   actualTool,
		}

		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("selector error: %v", err))
		}
		if actualTool != test.ExpectedTool {
			result.Errors = append(result.Errors,
				fmt.Sprintf("wrong tool: expected %s, got %s", test.ExpectedTool, actualTool))
		}
		for _, forbidden := range test.NotTools {
			if actualTool == forbidden {
				result.Errors = append(result.Errors, fmt.Sprintf("selected forbidden tool: %s", forbidden))
			}
		}
		for _, key := range sortedKeys(test.ExpectedArgs) {
			expected := test.ExpectedArgs[key]
			actual, exists := actualArgs[key]
			if !exists {
				result.Errors = append(result.Errors, fmt.Sprintf("missing arg %s (expected %v)", key, expected))
			} else if !compareValues(expected, actual) {
				result.Errors = append(result.Errors, fmt.Sprintf("wrong arg %s: expected %v, got %v", key, expected, actual))
			}
		}

		result.Passed = len(result.Errors) == 0
		metrics.record(test.Category, result.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(result.Errors, "; ")))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

// EvaluateConfusionPairs runs confusion pair tests against a selector
func EvaluateConfusionPairs(suite *ConfusionPairSuite, selector ToolSelector) *EvalMetrics {
	metrics := newMetrics()

	for _, pair := range suite.Pairs {
		for _, test := range pair.Tests {
			actualTool, _, err := selector.SelectTool(test.Input)
			passed := err == nil && actualTool == test.Expected
			metrics.record(pair.ID, passed,
				fmt.Sprintf("[%s] %s: expected %s, got %s (%s)",
					pair.ID, test.Input, test.Expected, actualTool, test.Reason))
		}
	}

	metrics.finish()
	return metrics
}

// compareValues compares expected and actual values, handling the numeric
// and slice type differences between YAML and JSON decoding.
func compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	ev := reflect.ValueOf(expected)
	av := reflect.ValueOf(actual)

	if f, ok := toFloat(ev); ok {
		if g, ok := toFloat(av); ok {
			return f == g
		}
	}

	if ev.Kind() == reflect.Slice && av.Kind() == reflect.Slice {
		if ev.Len() != av.Len() {
			return false
		}
		for i := 0; i < ev.Len(); i++ {
			if !compareValues(ev.Index(i).Interface(), av.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatMetrics returns a human-readable summary of evaluation metrics
func FormatMetrics(metrics *EvalMetrics, suiteName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", suiteName)
	fmt.Fprintf(&b, "Total: %d tests\n", metrics.TotalTests)
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n", metrics.PassedTests, metrics.Accuracy*100)
	fmt.Fprintf(&b, "Failed: %d\n", metrics.FailedTests)

	if len(metrics.ByCategory) > 0 {
		b.WriteString("\nBy Category:\n")
		cats := make([]string, 0, len(metrics.ByCategory))
		for cat := range metrics.ByCategory {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		for _, cat := range cats {
			m := metrics.ByCategory[cat]
			acc := float64(m.Passed) / float64(m.Total) * 100
			fmt.Fprintf(&b, "  %-25s: %d/%d (%.0f%%)\n", cat, m.Passed, m.Total, acc)
		}
	}

	details := metrics.FailedDetails
	if len(details) > 10 {
		fmt.Fprintf(&b, "\nFailed Tests (showing first 10 of %d):\n", len(details))
		details = details[:10]
	} else if len(details) > 0 {
		b.WriteString("\nFailed Tests:\n")
	}
	for _, detail := range details {
		fmt.Fprintf(&b, "  - %s\n", detail)
	}

	return b.String()
}
