package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/quizbank/engine/core"
	"github.com/compozy/quizbank/engine/quiz"
	"github.com/compozy/quizbank/pkg/config"
)

type cliHarness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	return &cliHarness{t: t, dbPath: filepath.Join(t.TempDir(), "quizbank.db")}
}

func (h *cliHarness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	cmd := RootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	base := []string{
		"--env-file", "",
		"--config", filepath.Join(h.t.TempDir(), "missing.yaml"),
		"--log-level", "disabled",
		"--db-driver", "sqlite",
		"--db-path", h.dbPath,
		"--format", "json",
	}
	cmd.SetArgs(append(args, base...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err)
	return out
}

// parsedRoot returns the root command with args parsed, the way cobra
// prepares it before PersistentPreRunE runs.
func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := RootCmd()
	require.NoError(t, cmd.ParseFlags(append([]string{"--env-file", "", "--log-level", "disabled"}, args...)))
	cmd.SetContext(context.Background())
	return cmd
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should inject YAML configuration into the command context", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "quizbank.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("cli:\n  actor: \"\"\n  output_format: json\n"), 0o600))

		cmd := parsedRoot(t, "--config", cfgPath)
		require.NoError(t, SetupGlobalConfig(cmd))
		assert.Equal(t, OutputFormatJSON, config.FromContext(cmd.Context()).CLI.OutputFormat)
	})

	t.Run("Should let CLI flags win over YAML", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "quizbank.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  path: from-yaml.db\n"), 0o600))

		cmd := parsedRoot(t, "--config", cfgPath, "--db-path", "from-flag.db")
		require.NoError(t, SetupGlobalConfig(cmd))
		assert.Equal(t, "from-flag.db", config.FromContext(cmd.Context()).Database.Path)
	})

	t.Run("Should keep YAML values for flags left unset", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "quizbank.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  path: from-yaml.db\n"), 0o600))

		cmd := parsedRoot(t, "--config", cfgPath)
		require.NoError(t, SetupGlobalConfig(cmd))
		assert.Equal(t, "from-yaml.db", config.FromContext(cmd.Context()).Database.Path)
	})

	t.Run("Should reject invalid flag values", func(t *testing.T) {
		cmd := parsedRoot(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--db-driver", "oracle")
		err := SetupGlobalConfig(cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})
}

func TestTestCommands(t *testing.T) {
	t.Run("Should run a full test lifecycle", func(t *testing.T) {
		h := newHarness(t)

		var created quiz.TestDetailDTO
		out := h.mustRun("test", "create", "--title", "Algebra Quiz", "--description", "Linear equations")
		require.NoError(t, json.Unmarshal([]byte(out), &created))
		assert.Equal(t, "Algebra Quiz", created.Title)
		require.False(t, created.ID.IsZero())
		id := created.ID.String()

		var fetched quiz.TestDTO
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("test", "get", id)), &fetched))
		assert.Equal(t, "Linear equations", fetched.Description)

		var updated quiz.TestDTO
		out = h.mustRun("test", "update", id, "--title", "Algebra I", "--description", "Revised")
		require.NoError(t, json.Unmarshal([]byte(out), &updated))
		assert.Equal(t, "Algebra I", updated.Title)
		assert.Equal(t, "Revised", updated.Description)

		var cleared quiz.TestDTO
		out = h.mustRun("test", "update", id, "--title", "Algebra II")
		require.NoError(t, json.Unmarshal([]byte(out), &cleared))
		assert.Equal(t, "Algebra II", cleared.Title)
		assert.Empty(t, cleared.Description, "update without --description clears it")

		var listed []*quiz.TestDTO
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("test", "list")), &listed))
		require.Len(t, listed, 1)
		assert.Equal(t, created.ID, listed[0].ID)

		h.mustRun("test", "delete", id)
		_, err := h.run("", "test", "get", id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "test not found")
	})

	t.Run("Should create a test with questions from stdin and append another", func(t *testing.T) {
		h := newHarness(t)
		doc := `{
			"title": "Capitals",
			"questions": [
				{"text": "Capital of France?", "position": 0, "answers": [
					{"text": "Paris", "is_correct": true, "position": 0},
					{"text": "Lyon", "position": 1}
				]}
			]
		}`
		out, err := h.run(doc, "test", "create", "--file", "-")
		require.NoError(t, err)
		var created quiz.TestDetailDTO
		require.NoError(t, json.Unmarshal([]byte(out), &created))
		require.Len(t, created.Questions, 1)
		require.Len(t, created.Questions[0].Answers, 2)

		question := `{"text": "Capital of Spain?", "position": 1, "answers": [{"text": "Madrid", "is_correct": true}]}`
		_, err = h.run(question, "test", "add-question", created.ID.String())
		require.NoError(t, err)

		var detail quiz.TestDetailDTO
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("test", "get", created.ID.String(), "--questions")), &detail))
		require.Len(t, detail.Questions, 2)
		assert.Equal(t, "Capital of Spain?", detail.Questions[1].Text)
	})

	t.Run("Should hide archived tests from listings", func(t *testing.T) {
		h := newHarness(t)
		var created quiz.TestDetailDTO
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("test", "create", "--title", "Old quiz")), &created))
		h.mustRun("test", "archive", created.ID.String())
		var listed []*quiz.TestDTO
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("test", "list")), &listed))
		assert.Empty(t, listed)
	})

	t.Run("Should reject invalid input and identifiers", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("", "test", "create")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid input")

		_, err = h.run("", "test", "get", "not-an-id")
		require.Error(t, err)

		_, err = h.run("", "test", "delete", core.MustNewID().String())
		require.Error(t, err)
	})

	t.Run("Should record the configured actor", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("", "test", "create", "--title", "Audited", "--actor", "bogus")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid actor")

		h.mustRun("test", "create", "--title", "Audited", "--actor", core.MustNewID().String())
	})
}

func TestMigrateCommand(t *testing.T) {
	t.Run("Should install the schema", func(t *testing.T) {
		h := newHarness(t)
		out := h.mustRun("migrate")
		assert.Contains(t, out, "Schema is up to date")
	})
}

func TestConfigCommands(t *testing.T) {
	t.Run("Should show configuration with sources", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run("", "config", "show", "--sources")
		require.NoError(t, err)
		var doc struct {
			Config  map[string]string            `json:"config"`
			Sources map[string]config.SourceType `json:"sources"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, h.dbPath, doc.Config["database.path"])
		assert.Equal(t, config.SourceCLI, doc.Sources["database.path"])
	})

	t.Run("Should redact secrets", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run("", "config", "show", "--db-password", "hunter2",
			"--db-conn-string", "postgres://quiz:hunter2@db:5432/quizbank")
		require.NoError(t, err)
		assert.NotContains(t, out, "hunter2")
	})

	t.Run("Should list the environment variables for each key", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run("", "config", "env")
		require.NoError(t, err)
		var rows []struct {
			Key       string   `json:"key"`
			Env       []string `json:"env"`
			Sensitive bool     `json:"sensitive"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		byKey := make(map[string][]string, len(rows))
		sensitive := make(map[string]bool, len(rows))
		for _, row := range rows {
			byKey[row.Key] = row.Env
			sensitive[row.Key] = row.Sensitive
		}
		assert.Equal(t, []string{"DB_PATH", "QUIZBANK_DATABASE_PATH"}, byKey["database.path"])
		assert.Equal(t, []string{"QUIZBANK_ACTOR", "QUIZBANK_CLI_ACTOR"}, byKey["cli.actor"])
		assert.True(t, sensitive["database.password"])
		assert.False(t, sensitive["database.path"])
	})

	t.Run("Should validate configuration", func(t *testing.T) {
		h := newHarness(t)
		out := h.mustRun("config", "validate")
		assert.Contains(t, out, "Configuration is valid")
	})
}

func TestPrinter(t *testing.T) {
	t.Run("Should render tests as a table in text mode", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, OutputFormatText, false)
		require.NoError(t, p.Tests([]*quiz.TestDTO{{ID: core.MustNewID(), Title: "Geometry"}}))
		assert.Contains(t, buf.String(), "TITLE")
		assert.Contains(t, buf.String(), "Geometry")
	})

	t.Run("Should report empty listings", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, OutputFormatText, false).Tests(nil))
		assert.Equal(t, "No tests found\n", buf.String())
	})

	t.Run("Should mark correct answers", func(t *testing.T) {
		var buf bytes.Buffer
		q := &quiz.QuestionDTO{Text: "2+2?", Answers: []*quiz.AnswerDTO{{Text: "4", IsCorrect: true}, {Text: "5"}}}
		require.NoError(t, NewPrinter(&buf, OutputFormatText, false).Question(q))
		assert.Contains(t, buf.String(), "[*] 4")
		assert.Contains(t, buf.String(), "[ ] 5")
	})

	t.Run("Should never colour non-terminal writers", func(t *testing.T) {
		assert.False(t, shouldUseColor(&bytes.Buffer{}, false))
	})
}

func TestIsPathWithinDirectory(t *testing.T) {
	t.Run("Should accept nested paths and reject escapes", func(t *testing.T) {
		dir := t.TempDir()
		assert.True(t, isPathWithinDirectory(filepath.Join(dir, ".env"), dir))
		assert.False(t, isPathWithinDirectory(filepath.Join(dir, "..", ".env"), dir))
	})
}

func TestMetricsSnapshot(t *testing.T) {
	t.Run("Should write store metrics after the command", func(t *testing.T) {
		h := newHarness(t)
		metricsPath := filepath.Join(t.TempDir(), "metrics.prom")
		h.mustRun("test", "create", "--title", "Measured", "--metrics", "--metrics-output", metricsPath)
		data, err := os.ReadFile(metricsPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "quizbank_store_operations")
		assert.Contains(t, string(data), `table="tests"`)
	})
}

func TestVersionCommand(t *testing.T) {
	t.Run("Should print build information", func(t *testing.T) {
		h := newHarness(t)
		var info struct {
			Version   string `json:"version"`
			GoVersion string `json:"go_version"`
		}
		require.NoError(t, json.Unmarshal([]byte(h.mustRun("version")), &info))
		assert.NotEmpty(t, info.Version)
		assert.NotEmpty(t, info.GoVersion)
	})
}
