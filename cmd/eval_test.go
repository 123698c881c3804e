package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openfga/flwor/cmd/util"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const expensiveBooks = `
clauses:
  - for: {var: "book", in: {path: "$input/books"}}
  - where: {cel: "book.price > 10.0"}
  - orderBy: [{key: {cel: "book.title"}, order: descending}]
return: {cel: "{'title': book.title, 'price': book.price}"}
`

const twoDocuments = `{"books": [{"title": "A", "price": 12}, {"title": "B", "price": 8}]}
{"books": [{"title": "C", "price": 30.5}, {"title": "D", "price": 15}]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// execute runs the root command with the eval and version commands attached.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	root := NewRootCommand()
	root.AddCommand(NewEvalCommand(), NewVersionCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEvalCommand(t *testing.T) {
	util.PrepareTempConfigDir(t)
	pipelinePath := writeFile(t, "pipeline.yaml", expensiveBooks)
	inputPath := writeFile(t, "books.json", twoDocuments)

	expected := `{"price":12,"title":"A"}
{"price":15,"title":"D"}
{"price":30.5,"title":"C"}
`

	for _, mode := range []string{modePull, modePush} {
		t.Run(mode, func(t *testing.T) {
			out, err := execute(t, "", "eval",
				"--pipeline", pipelinePath,
				"--input", inputPath,
				"--mode", mode,
				"--concurrency", "2",
				"--log-level", "none",
			)
			require.NoError(t, err)
			require.Equal(t, expected, out)
		})
	}

	t.Run("reads_stdin", func(t *testing.T) {
		out, err := execute(t, twoDocuments, "eval", "--pipeline", pipelinePath, "--log-level", "none")
		require.NoError(t, err)
		require.Equal(t, expected, out)
	})

	t.Run("output_keeps_input_order", func(t *testing.T) {
		first := writeFile(t, "first.json", `{"books": [{"title": "X", "price": 11}]}`)
		out, err := execute(t, "", "eval",
			"--pipeline", pipelinePath,
			"--input", first,
			"--input", inputPath,
			"--concurrency", "8",
			"--log-level", "none",
		)
		require.NoError(t, err)
		require.Equal(t, `{"price":11,"title":"X"}`+"\n"+expected, out)
	})

	t.Run("atomic_and_node_results", func(t *testing.T) {
		titles := writeFile(t, "titles.yaml", `
clauses:
  - for: {var: "book", at: "i", in: {path: "$input/books"}}
return: {cel: "[i, book.title]"}
`)
		out, err := execute(t, "", "eval", "--pipeline", titles, "--input", inputPath, "--concurrency", "1", "--log-level", "none")
		require.NoError(t, err)
		require.Equal(t, "1\n\"A\"\n2\n\"B\"\n1\n\"C\"\n2\n\"D\"\n", out)
	})
}

func TestEvalCommandErrors(t *testing.T) {
	util.PrepareTempConfigDir(t)
	pipelinePath := writeFile(t, "pipeline.yaml", expensiveBooks)
	inputPath := writeFile(t, "books.json", twoDocuments)

	tests := []struct {
		name          string
		args          []string
		errorExpected string
	}{
		{
			name:          "missing_pipeline",
			args:          []string{"eval", "--input", inputPath},
			errorExpected: "missing pipeline definition",
		},
		{
			name:          "invalid_mode",
			args:          []string{"eval", "--pipeline", pipelinePath, "--mode", "sideways"},
			errorExpected: "invalid evaluation mode: sideways",
		},
		{
			name:          "invalid_concurrency",
			args:          []string{"eval", "--pipeline", pipelinePath, "--concurrency", "0"},
			errorExpected: "concurrency must be at least 1",
		},
		{
			name:          "invalid_log_level",
			args:          []string{"eval", "--pipeline", pipelinePath, "--input", inputPath, "--log-level", "loud"},
			errorExpected: "unknown log level: loud",
		},
		{
			name:          "unreadable_input",
			args:          []string{"eval", "--pipeline", pipelinePath, "--input", filepath.Join(t.TempDir(), "missing.json"), "--log-level", "none"},
			errorExpected: "failed to read input",
		},
		{
			name:          "invalid_json",
			args:          []string{"eval", "--pipeline", pipelinePath, "--input", writeFile(t, "bad.json", `{"books": [`), "--log-level", "none"},
			errorExpected: "failed to parse input",
		},
		{
			name:          "invalid_pipeline",
			args:          []string{"eval", "--pipeline", writeFile(t, "bad.yaml", "clauses: []\nreturn: {cel: '1'}\n"), "--input", inputPath, "--log-level", "none"},
			errorExpected: "invalid pipeline definition",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, "", tc.args...)
			require.ErrorContains(t, err, tc.errorExpected)
		})
	}

	t.Run("evaluation_failure_names_document", func(t *testing.T) {
		failing := writeFile(t, "failing.yaml", `
clauses:
  - for: {var: "book", in: {path: "$input/books"}}
  - where: {cel: "book.price > 20.0"}
return: {cel: "1 / 0"}
`)
		out, err := execute(t, "", "eval", "--pipeline", failing, "--input", inputPath, "--log-level", "none")
		require.ErrorContains(t, err, "books.json#2")
		require.NotContains(t, err.Error(), "books.json#1")
		require.Empty(t, out)
	})
}

func TestEvalCommandConfigFileValuesAreParsed(t *testing.T) {
	config := `pipeline: /tmp/pipeline.yaml
mode: push
concurrency: 3
log:
  format: json
  level: debug
trace:
  sampleRatio: 0.5
`
	util.PrepareTempConfigFile(t, config)
	t.Cleanup(viper.Reset)

	evalCmd := NewEvalCommand()
	evalCmd.RunE = func(_ *cobra.Command, _ []string) error {
		cfg, err := ReadEvalConfig()
		require.NoError(t, err)
		require.Equal(t, "/tmp/pipeline.yaml", cfg.Pipeline)
		require.Equal(t, modePush, cfg.Mode)
		require.Equal(t, 3, cfg.Concurrency)
		require.Equal(t, "json", cfg.LogFormat)
		require.Equal(t, "debug", cfg.LogLevel)
		require.InDelta(t, 0.5, cfg.SampleRatio, 1e-9)
		require.Equal(t, []string{stdinInput}, cfg.Inputs)
		return nil
	}

	cmd := NewRootCommand()
	cmd.AddCommand(evalCmd)
	cmd.SetArgs([]string{"eval"})
	require.NoError(t, cmd.Execute())
}

func TestEvalCommandEnvOverridesDefaults(t *testing.T) {
	util.PrepareTempConfigDir(t)
	t.Cleanup(viper.Reset)
	t.Setenv("FLWOR_PIPELINE", "/tmp/env.yaml")
	t.Setenv("FLWOR_LOG_LEVEL", "warn")
	t.Setenv("FLWOR_CONCURRENCY", "7")

	evalCmd := NewEvalCommand()
	evalCmd.RunE = func(_ *cobra.Command, _ []string) error {
		cfg, err := ReadEvalConfig()
		require.NoError(t, err)
		require.Equal(t, "/tmp/env.yaml", cfg.Pipeline)
		require.Equal(t, "warn", cfg.LogLevel)
		require.Equal(t, 7, cfg.Concurrency)
		require.Equal(t, modePull, cfg.Mode)
		return nil
	}

	cmd := NewRootCommand()
	cmd.AddCommand(evalCmd)
	cmd.SetArgs([]string{"eval"})
	require.NoError(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	util.PrepareTempConfigDir(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, "flwor version dev date unknown commit id none\n", out)
}
