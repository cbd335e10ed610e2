package tester

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/language"
	tspec "github.com/etslang/kestrel/spec/test"
	"github.com/etslang/kestrel/tree"
)

type TestResult struct {
	TestCasePath string
	Error        error
	Diffs        []*tspec.TreeDiff
	Actual       *tspec.Tree
}

func (r *TestResult) String() string {
	if r.Error != nil {
		const indent1 = "    "
		const indent2 = indent1 + indent1

		msgLines := strings.Split(r.Error.Error(), "\n")
		msg := fmt.Sprintf("Failed %v:\n%v%v", r.TestCasePath, indent1, strings.Join(msgLines, "\n"+indent1))
		if len(r.Diffs) == 0 {
			return msg
		}
		var diffLines []string
		for _, diff := range r.Diffs {
			diffLines = append(diffLines, diff.Message)
			diffLines = append(diffLines, fmt.Sprintf("%vexpected path: %v", indent1, diff.ExpectedPath))
			diffLines = append(diffLines, fmt.Sprintf("%vactual path:   %v", indent1, diff.ActualPath))
		}
		return fmt.Sprintf("%v\n%v%v", msg, indent2, strings.Join(diffLines, "\n"+indent2))
	}
	return fmt.Sprintf("Passed %v", r.TestCasePath)
}

type TestCaseWithMetadata struct {
	TestCase *tspec.TestCase
	FilePath string
	Error    error
}

// ListTestCases reads the test case at a path, or every test case under a directory.
func ListTestCases(testPath string) []*TestCaseWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	if !fi.IsDir() {
		c, err := parseTestCase(testPath)
		return []*TestCaseWithMetadata{
			{
				TestCase: c,
				FilePath: testPath,
				Error:    err,
			},
		}
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*TestCaseWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	var cases []*TestCaseWithMetadata
	for _, e := range es {
		cs := ListTestCases(filepath.Join(testPath, e.Name()))
		cases = append(cases, cs...)
	}
	return cases
}

func parseTestCase(testCasePath string) (*tspec.TestCase, error) {
	f, err := os.Open(testCasePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tspec.ParseTestCase(f)
}

type Tester struct {
	Language *language.Language
	Cases    []*TestCaseWithMetadata
	Options  []parser.ParserOption
}

func (t *Tester) Run(ctx context.Context) []*TestResult {
	var rs []*TestResult
	for _, c := range t.Cases {
		rs = append(rs, t.runTest(ctx, c))
	}
	return rs
}

func (t *Tester) runTest(ctx context.Context, c *TestCaseWithMetadata) *TestResult {
	if c.Error != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        c.Error,
		}
	}

	tr, err := parser.Parse(ctx, t.Language, c.TestCase.Source, t.Options...)
	if err != nil {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        err,
		}
	}
	defer tr.Close()

	// A tree with errors is still compared; the expected output spells the ERROR and MISSING nodes.
	actual := GenTree(tr.RootNode()).Fill()
	diffs := tspec.DiffTree(c.TestCase.Output, actual)
	if len(diffs) > 0 {
		return &TestResult{
			TestCasePath: c.FilePath,
			Error:        fmt.Errorf("output mismatch"),
			Diffs:        diffs,
			Actual:       actual,
		}
	}
	return &TestResult{
		TestCasePath: c.FilePath,
		Actual:       actual,
	}
}

// GenTree converts the named and missing nodes of a syntax tree into the form test cases
// expect.
func GenTree(n tree.Node) *tspec.Tree {
	var t *tspec.Tree
	if n.IsMissing() {
		t = tspec.NewMissingTree(n.Type())
	} else {
		var children []*tspec.Tree
		for _, c := range n.Children() {
			if !c.IsNamed() && !c.IsMissing() {
				continue
			}
			children = append(children, GenTree(c))
		}
		t = tspec.NewTree(n.Type(), children...)
	}
	return t.WithField(n.FieldName())
}
