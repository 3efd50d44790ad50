package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/tidwall/pretty"

	"github.com/compozy/quizbank/engine/quiz"
)

// Output format constants
const (
	OutputFormatJSON = "json"
	OutputFormatText = "text"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	return hasAnyEnvVar(getCIEnvironmentVars())
}

// getCIEnvironmentVars returns list of CI environment variables
func getCIEnvironmentVars() []string {
	return []string{
		"JENKINS_HOME",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"TRAVIS",
		"BUILDKITE",
		"DRONE",
		"TF_BUILD",           // Azure DevOps
		"BITBUCKET_COMMIT",   // Bitbucket Pipelines
		"CODEBUILD_BUILD_ID", // AWS CodeBuild
		"TEAMCITY_VERSION",
		"CONTINUOUS_INTEGRATION",
	}
}

// hasAnyEnvVar checks if any of the given environment variables are set
func hasAnyEnvVar(vars []string) bool {
	for _, v := range vars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// shouldUseColor reports whether output written to w may carry ANSI colour.
func shouldUseColor(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	if isRunningInCI() {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

// Printer renders command results in the configured format.
type Printer struct {
	out    io.Writer
	format string
	color  bool
}

func NewPrinter(out io.Writer, format string, noColor bool) *Printer {
	if format == "" {
		format = OutputFormatText
	}
	return &Printer{out: out, format: format, color: shouldUseColor(out, noColor)}
}

// JSON writes v as indented JSON, coloured on terminals.
func (p *Printer) JSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = pretty.Pretty(data)
	if p.color {
		data = pretty.Color(data, nil)
	}
	_, err = p.out.Write(data)
	return err
}

func (p *Printer) Test(t *quiz.TestDTO) error {
	if p.format == OutputFormatJSON {
		return p.JSON(t)
	}
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", t.ID)
	fmt.Fprintf(w, "Title:\t%s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", t.Description)
	}
	fmt.Fprintf(w, "Created:\t%s\n", t.CreatedAt.Format(time.RFC3339))
	return w.Flush()
}

func (p *Printer) Tests(tests []*quiz.TestDTO) error {
	if p.format == OutputFormatJSON {
		return p.JSON(tests)
	}
	if len(tests) == 0 {
		_, err := fmt.Fprintln(p.out, "No tests found")
		return err
	}
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCREATED")
	for _, t := range tests {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Title, t.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (p *Printer) TestDetail(d *quiz.TestDetailDTO) error {
	if p.format == OutputFormatJSON {
		return p.JSON(d)
	}
	if err := p.Test(&d.TestDTO); err != nil {
		return err
	}
	for _, q := range d.Questions {
		if err := p.writeQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) Question(q *quiz.QuestionDTO) error {
	if p.format == OutputFormatJSON {
		return p.JSON(q)
	}
	return p.writeQuestion(q)
}

func (p *Printer) writeQuestion(q *quiz.QuestionDTO) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%d. %s (%s)\n", q.Position+1, q.Text, q.ID)
	for _, a := range q.Answers {
		mark := " "
		if a.IsCorrect {
			mark = "*"
		}
		fmt.Fprintf(&b, "   [%s] %s\n", mark, a.Text)
	}
	_, err := io.WriteString(p.out, b.String())
	return err
}

// Result writes a short confirmation for commands without a record to show.
func (p *Printer) Result(action string, id fmt.Stringer) error {
	if p.format == OutputFormatJSON {
		return p.JSON(map[string]any{"id": id.String(), action: true})
	}
	_, err := fmt.Fprintf(p.out, "Test %s %s\n", id, action)
	return err
}
