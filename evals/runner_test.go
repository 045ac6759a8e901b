package evals

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/olgasafonova/essbase-mcp-server/tools"
)

const suitesDir = "suites"

// MockToolSelector implements ToolSelector for testing
type MockToolSelector struct {
	// Responses maps input strings to tool names
	Responses map[string]string
	// DefaultTool is returned if input isn't in Responses
	DefaultTool string
}

func (m *MockToolSelector) SelectTool(input string) (string, map[string]any, error) {
	if tool, ok := m.Responses[input]; ok {
		return tool, nil, nil
	}
	return m.DefaultTool, nil, nil
}

// PerfectToolSelector returns the expected tool for each test
type PerfectToolSelector struct {
	suite *ToolSelectionSuite
}

func (p *PerfectToolSelector) SelectTool(input string) (string, map[string]any, error) {
	for _, test := range p.suite.Tests {
		if test.Input == input {
			return test.ExpectedTool, test.ExpectedArgs, nil
		}
	}
	return "", nil, nil
}

func TestLoadAllEvals(t *testing.T) {
	ts, cp, err := LoadAllEvals(suitesDir)
	if err != nil {
		t.Fatalf("LoadAllEvals: %v", err)
	}

	if ts.Name == "" || len(ts.Tests) == 0 {
		t.Error("tool selection suite should have a name and tests")
	}
	for _, test := range ts.Tests {
		if test.ID == "" || test.Input == "" || test.ExpectedTool == "" {
			t.Errorf("incomplete test: %+v", test)
		}
	}

	if len(cp.Pairs) == 0 {
		t.Error("confusion pair suite should have pairs")
	}
}

func TestSuitesReferenceRegisteredTools(t *testing.T) {
	ts, cp, err := LoadAllEvals(suitesDir)
	if err != nil {
		t.Fatalf("LoadAllEvals: %v", err)
	}

	if problems := CheckToolNames(tools.AllTools, ts, cp); len(problems) > 0 {
		t.Errorf("suites reference unknown tools:\n%s", strings.Join(problems, "\n"))
	}
}

func TestEverySuiteToolIsCovered(t *testing.T) {
	ts, err := LoadToolSelectionSuite(filepath.Join(suitesDir, ToolSelectionFile))
	if err != nil {
		t.Fatalf("LoadToolSelectionSuite: %v", err)
	}

	for tool, n := range Coverage(tools.AllTools, ts) {
		if n == 0 {
			t.Errorf("tool %s has no selection test", tool)
		}
	}
}

func TestCheckToolNames_Unknown(t *testing.T) {
	ts := &ToolSelectionSuite{Tests: []ToolSelectionTest{
		{ID: "t1", ExpectedTool: "essbase_connect", NotTools: []string{"essbase_drop_cube"}},
	}}
	cp := &ConfusionPairSuite{Pairs: []ConfusionPair{
		{ID: "p1", Tools: []string{"essbase_set_mdx", "bogus"}},
	}}

	problems := CheckToolNames(tools.AllTools, ts, cp)
	if len(problems) != 2 {
		t.Fatalf("got %d problems, want 2: %v", len(problems), problems)
	}
}

func TestEvaluateToolSelection_Perfect(t *testing.T) {
	ts, err := LoadToolSelectionSuite(filepath.Join(suitesDir, ToolSelectionFile))
	if err != nil {
		t.Fatalf("LoadToolSelectionSuite: %v", err)
	}

	metrics, results := EvaluateToolSelection(ts, &PerfectToolSelector{suite: ts})

	if metrics.Accuracy != 1.0 {
		t.Errorf("Accuracy = %.2f, want 1.0; failures: %v", metrics.Accuracy, metrics.FailedDetails)
	}
	if len(results) != len(ts.Tests) {
		t.Errorf("got %d results, want %d", len(results), len(ts.Tests))
	}
}

func TestEvaluateToolSelection_Failures(t *testing.T) {
	suite := &ToolSelectionSuite{Tests: []ToolSelectionTest{
		{ID: "a", Category: "catalog", Input: "list apps", ExpectedTool: "essbase_list_applications"},
		{ID: "b", Category: "catalog", Input: "list dims", ExpectedTool: "essbase_list_dimensions", NotTools: []string{"essbase_search_members"}},
		{ID: "c", Category: "members", Input: "find Sales", ExpectedTool: "essbase_search_members",
			ExpectedArgs: map[string]any{"entity_names": []any{"Sales"}}},
	}}

	selector := &MockToolSelector{
		Responses: map[string]string{
			"list apps": "essbase_list_applications",
			"list dims": "essbase_search_members",
			"find Sales": "essbase_search_members",
		},
	}

	metrics, results := EvaluateToolSelection(suite, selector)

	if metrics.PassedTests != 1 || metrics.FailedTests != 2 {
		t.Errorf("passed/failed = %d/%d, want 1/2", metrics.PassedTests, metrics.FailedTests)
	}
	if !results[0].Passed {
		t.Errorf("test a should pass: %v", results[0].Errors)
	}
	if len(results[1].Errors) != 2 {
		t.Errorf("test b errors = %v, want wrong tool and forbidden tool", results[1].Errors)
	}
	if results[2].Passed || !strings.Contains(results[2].Errors[0], "missing arg entity_names") {
		t.Errorf("test c errors = %v", results[2].Errors)
	}
	if metrics.ByCategory["catalog"].Failed != 1 {
		t.Errorf("catalog failures = %d, want 1", metrics.ByCategory["catalog"].Failed)
	}
}

func TestEvaluateConfusionPairs(t *testing.T) {
	cp, err := LoadConfusionPairSuite(filepath.Join(suitesDir, ConfusionPairsFile))
	if err != nil {
		t.Fatalf("LoadConfusionPairSuite: %v", err)
	}

	// Always picking the set tool gets exactly the set cases right
	metrics := EvaluateConfusionPairs(cp, &MockToolSelector{DefaultTool: "essbase_set_mdx"})

	want := 0
	for _, p := range cp.Pairs {
		for _, test := range p.Tests {
			if test.Expected == "essbase_set_mdx" {
				want++
			}
		}
	}
	if metrics.PassedTests != want {
		t.Errorf("PassedTests = %d, want %d", metrics.PassedTests, want)
	}
}

func TestReplaySelector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	content := `
- input: "find Sales"
  tool: essbase_search_members
  args:
    entity_names: [Sales]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rs, err := LoadReplaySelector(path)
	if err != nil {
		t.Fatalf("LoadReplaySelector: %v", err)
	}

	tool, args, err := rs.SelectTool("find Sales")
	if err != nil || tool != "essbase_search_members" {
		t.Fatalf("SelectTool = %q, %v", tool, err)
	}
	if !compareValues([]any{"Sales"}, args["entity_names"]) {
		t.Errorf("entity_names = %v", args["entity_names"])
	}

	if _, _, err := rs.SelectTool("unknown"); err == nil {
		t.Error("expected error for unrecorded input")
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", "a", nil, false},
		{"int vs float", 5, 5.0, true},
		{"float mismatch", 5, 5.5, false},
		{"strings", "Sales", "Sales", true},
		{"slices", []any{"a", 1}, []any{"a", 1.0}, true},
		{"slice length", []any{"a"}, []any{"a", "b"}, false},
		{"bools", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareValues(tt.expected, tt.actual); got != tt.want {
				t.Errorf("compareValues(%v, %v) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestFormatMetrics(t *testing.T) {
	m := newMetrics()
	m.record("catalog", true, "")
	m.record("catalog", false, "[x] failed")
	m.finish()

	out := FormatMetrics(m, "Test Suite")
	for _, want := range []string{"=== Test Suite ===", "Total: 2 tests", "Passed: 1 (50.0%)", "[x] failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
