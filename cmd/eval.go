package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sourcegraph/conc/stream"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openfga/flwor/cmd/util"
	"github.com/openfga/flwor/internal/jsontree"
	"github.com/openfga/flwor/internal/pipeline"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/flwor"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/logger"
	"github.com/openfga/flwor/pkg/sequence"
	"github.com/openfga/flwor/pkg/telemetry"
)

const (
	pipelineFlag = "pipeline"
	pipelineConf = "pipeline"

	inputFlag = "input"
	inputConf = "input"

	modeFlag = "mode"
	modeConf = "mode"

	concurrencyFlag = "concurrency"
	concurrencyConf = "concurrency"

	logFormatFlag = "log-format"
	logFormatConf = "log.format"
	logLevelFlag  = "log-level"
	logLevelConf  = "log.level"

	otlpEndpointFlag = "otlp-endpoint"
	otlpEndpointConf = "trace.otlp.endpoint"
	sampleRatioFlag  = "trace-sample-ratio"
	sampleRatioConf  = "trace.sampleRatio"

	modePull = "pull"
	modePush = "push"

	stdinInput = "-"
)

// EvalConfig is the configuration of the eval command.
type EvalConfig struct {
	Pipeline    string
	Inputs      []string
	Mode        string
	Concurrency int

	LogFormat string
	LogLevel  string

	OTLPEndpoint string
	SampleRatio  float64
}

// NewEvalCommand returns the command that evaluates a pipeline against every
// JSON document of its inputs and prints the results as JSON lines.
func NewEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a pipeline against JSON documents",
		Long: `Evaluate a pipeline against JSON documents.

Every document of every input is bound to $input and evaluated on its own.
Each result item is printed as one JSON line, in input order.`,
		RunE: runEval,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			flags := cmd.Flags()

			util.MustBindPFlag(pipelineConf, flags.Lookup(pipelineFlag))
			util.MustBindPFlag(inputConf, flags.Lookup(inputFlag))
			util.MustBindPFlag(modeConf, flags.Lookup(modeFlag))
			util.MustBindPFlag(concurrencyConf, flags.Lookup(concurrencyFlag))

			util.MustBindPFlag(logFormatConf, flags.Lookup(logFormatFlag))
			util.MustBindEnv(logFormatConf, "FLWOR_LOG_FORMAT")
			util.MustBindPFlag(logLevelConf, flags.Lookup(logLevelFlag))
			util.MustBindEnv(logLevelConf, "FLWOR_LOG_LEVEL")

			util.MustBindPFlag(otlpEndpointConf, flags.Lookup(otlpEndpointFlag))
			util.MustBindEnv(otlpEndpointConf, "FLWOR_TRACE_OTLP_ENDPOINT")
			util.MustBindPFlag(sampleRatioConf, flags.Lookup(sampleRatioFlag))
			util.MustBindEnv(sampleRatioConf, "FLWOR_TRACE_SAMPLE_RATIO")
		},
	}

	flags := cmd.Flags()
	flags.String(pipelineFlag, "", "the path of the YAML pipeline definition")
	flags.StringSlice(inputFlag, nil, "JSON input files, each holding one or more documents; '-' or no input reads stdin")
	flags.String(modeFlag, modePull, "the evaluation mode: 'pull' or 'push'")
	flags.Int(concurrencyFlag, 4, "the number of documents evaluated concurrently")
	flags.String(logFormatFlag, "text", "the log format to output logs in: 'text' or 'json'")
	flags.String(logLevelFlag, "info", "the log level to use: 'none', 'debug', 'info', 'warn', 'error', 'panic' or 'fatal'")
	flags.String(otlpEndpointFlag, "", "the OTLP/gRPC collector address spans are exported to; tracing is off when empty")
	flags.Float64(sampleRatioFlag, 1, "the fraction of evaluations that are traced")

	// NOTE: if you add a new flag here, add the binding in PreRun

	return cmd
}

// ReadEvalConfig reads the eval configuration from viper and validates it.
func ReadEvalConfig() (*EvalConfig, error) {
	cfg := &EvalConfig{
		Pipeline:     viper.GetString(pipelineConf),
		Inputs:       viper.GetStringSlice(inputConf),
		Mode:         viper.GetString(modeConf),
		Concurrency:  viper.GetInt(concurrencyConf),
		LogFormat:    viper.GetString(logFormatConf),
		LogLevel:     viper.GetString(logLevelConf),
		OTLPEndpoint: viper.GetString(otlpEndpointConf),
		SampleRatio:  viper.GetFloat64(sampleRatioConf),
	}

	if cfg.Pipeline == "" {
		return nil, errors.New("missing pipeline definition")
	}
	switch cfg.Mode {
	case modePull, modePush:
	default:
		return nil, fmt.Errorf("invalid evaluation mode: %s", cfg.Mode)
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, found %d", cfg.Concurrency)
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("trace sample ratio must be between 0 and 1, found %v", cfg.SampleRatio)
	}
	if len(cfg.Inputs) == 0 {
		cfg.Inputs = []string{stdinInput}
	}
	return cfg, nil
}

func runEval(cmd *cobra.Command, _ []string) error {
	cfg, err := ReadEvalConfig()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	if cfg.OTLPEndpoint != "" {
		tp := telemetry.MustNewTracerProvider(
			telemetry.WithOTLPEndpoint(cfg.OTLPEndpoint),
			telemetry.WithSamplingRatio(cfg.SampleRatio),
		)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx)); err != nil {
				log.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	def, err := pipeline.Load(cfg.Pipeline)
	if err != nil {
		return err
	}
	prog, err := pipeline.Compile(def, pipeline.WithTraceLogger(log))
	if err != nil {
		return err
	}

	docs, err := readDocuments(cmd.InOrStdin(), cfg.Inputs)
	if err != nil {
		return err
	}

	start := time.Now()
	err = evaluate(cmd.Context(), prog, docs, cfg, log, cmd.OutOrStdout())
	log.Info("evaluation finished",
		zap.String("pipeline", cfg.Pipeline),
		zap.Int("documents", len(docs)),
		zap.Duration("took", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	return err
}

type document struct {
	source string
	node   *jsontree.Node
}

func readDocuments(stdin io.Reader, inputs []string) ([]document, error) {
	var docs []document
	for _, input := range inputs {
		var (
			data []byte
			err  error
		)
		if input == stdinInput {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(input)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input %s: %w", input, err)
		}

		nodes, err := jsontree.ParseLines(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse input %s: %w", input, err)
		}
		for i, n := range nodes {
			docs = append(docs, document{source: fmt.Sprintf("%s#%d", input, i+1), node: n})
		}
	}
	return docs, nil
}

// evaluate runs the program over docs with bounded concurrency. Results are
// written in document order; failures are reported together at the end.
func evaluate(ctx context.Context, prog *pipeline.Program, docs []document, cfg *EvalConfig, log logger.Logger, w io.Writer) error {
	var errs []error
	s := stream.New().WithMaxGoroutines(cfg.Concurrency)
	for _, doc := range docs {
		s.Go(func() stream.Callback {
			lines, err := evaluateDocument(ctx, prog, doc.node, cfg.Mode, log)
			return func() {
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", doc.source, err))
					return
				}
				for _, line := range lines {
					if _, err := fmt.Fprintln(w, string(line)); err != nil {
						errs = append(errs, err)
						return
					}
				}
			}
		})
	}
	s.Wait()
	return errors.Join(errs...)
}

func evaluateDocument(ctx context.Context, prog *pipeline.Program, input *jsontree.Node, mode string, log logger.Logger) ([][]byte, error) {
	dc := prog.NewContext(expr.WithLogger(log))
	if err := dc.Bind(prog.Input, item.Of(input)); err != nil {
		return nil, err
	}

	var lines [][]byte
	emit := func(it item.Item) error {
		b, err := encode(it)
		if err != nil {
			return err
		}
		lines = append(lines, b)
		return nil
	}

	if mode == modePush {
		err := prog.Expression.Process(ctx, dc, flwor.ReceiverFunc(func(_ context.Context, it item.Item) error {
			return emit(it)
		}))
		return lines, err
	}

	it, err := prog.Expression.Iterate(ctx, dc)
	if err != nil {
		return nil, err
	}
	for v, err := range sequence.All(ctx, it) {
		if err != nil {
			return nil, err
		}
		if err := emit(v); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func encode(it item.Item) ([]byte, error) {
	switch v := it.(type) {
	case json.Marshaler:
		return v.MarshalJSON()
	case item.Atomic:
		return json.Marshal(v.Native())
	default:
		return json.Marshal(v.StringValue())
	}
}
