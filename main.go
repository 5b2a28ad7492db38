// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/cloudwego/archgen/internal/config"
	"github.com/cloudwego/archgen/internal/log"
	"github.com/cloudwego/archgen/internal/metrics"
	"github.com/cloudwego/archgen/internal/pipeline"
	"github.com/cloudwego/archgen/internal/pipeline/steps"
	"github.com/cloudwego/archgen/internal/runner"
	"github.com/cloudwego/archgen/internal/workspace"
	"github.com/cloudwego/archgen/llm"
	"github.com/cloudwego/archgen/llm/mcp"
	"github.com/cloudwego/archgen/llm/prompt"
	"github.com/cloudwego/archgen/llm/tool"
	"github.com/cloudwego/archgen/version"
)

const Usage = `archgen <Action> [Flags] [Requirements...]
Action:
   generate     design a PostgreSQL schema, then generate, review and test a Node.js/Express backend for it
   tools        list the tools offered to the schema designer
   mcp          run as a MCP server over stdio, exposing generate_backend and the PostgreSQL lookup
   version      print the version of archgen
Requirements:
   the description of the backend; generate asks for it on stdin when omitted
Environment:
   API_TYPE, API_KEY, MODEL_NAME, BASE_URL    model endpoint (OPENAI_API_KEY is used for openai)
   TAVILY_API_KEY, SERPAPI_API_KEY            enable the web search tool
`

// overrides are the command-line settings that win over file and env.
type overrides struct {
	output        string
	maxIterations int
	model         string
	promptDir     string
	stateFile     string
	noTest        bool
	metricsAddr   string
	metricsFile   string
}

func main() {
	flags := flag.NewFlagSet("archgen", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagConfig := flags.String("config", "", "YAML config file.")

	var o overrides
	flags.StringVar(&o.output, "o", "", "Output directory of the generated project (default ./output).")
	flags.IntVar(&o.maxIterations, "max-iterations", 0, "Maximum code generation rounds (default 3).")
	flags.StringVar(&o.model, "model", "", "Model name, overrides MODEL_NAME.")
	flags.StringVar(&o.promptDir, "prompts", "", "Directory of prompt overrides (<name>.md), reloaded on change.")
	flags.StringVar(&o.stateFile, "state", "", "Write the final run state as JSON to this file.")
	flags.BoolVar(&o.noTest, "no-test", false, "Skip test generation and execution.")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running.")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile when done.")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	action := strings.ToLower(os.Args[1])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer log.Sync()

	switch action {
	case "version":
		fmt.Fprintf(os.Stdout, "%s\n", version.Version)

	case "generate":
		words := parseArgsAndFlags(flags, flagHelp)
		cfg := mustConfig(*flagConfig, o, *flagVerbose)
		requirements := strings.Join(words, " ")
		if strings.TrimSpace(requirements) == "" {
			var err error
			requirements, err = askRequirements(os.Stdin, os.Stderr)
			if err != nil {
				log.Error("Failed to read requirements: %v", err)
				os.Exit(1)
			}
		}
		if err := runGenerate(ctx, cfg, requirements, os.Stdout); err != nil {
			log.Error("Generation failed: %v", err)
			os.Exit(1)
		}

	case "tools":
		parseArgsAndFlags(flags, flagHelp)
		cfg := loadConfig(*flagConfig, o, *flagVerbose)
		if err := listTools(ctx, cfg, os.Stdout); err != nil {
			log.Error("Failed to list tools: %v", err)
			os.Exit(1)
		}

	case "mcp":
		parseArgsAndFlags(flags, flagHelp)
		cfg := mustConfig(*flagConfig, o, *flagVerbose)
		a, err := newApp(ctx, cfg)
		if err != nil {
			log.Error("Failed to start: %v", err)
			os.Exit(1)
		}
		defer a.Close()
		svr := mcp.NewServer(mcp.ServerOptions{
			ServerName:    "archgen",
			ServerVersion: version.Version,
			Run:           a.run,
			Prompts:       a.prompts,
			Verbose:       *flagVerbose,
		})
		if err := svr.ServeStdio(ctx, os.Stdin, os.Stdout, os.Stderr); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Failed to run MCP server: %v", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown action: %s\n", action)
		flags.Usage()
		os.Exit(1)
	}
}

// parseArgsAndFlags parses the flags after the action and returns the
// remaining words.
func parseArgsAndFlags(flags *flag.FlagSet, flagHelp *bool) []string {
	flags.Parse(os.Args[2:])
	if flagHelp != nil && *flagHelp {
		flags.Usage()
		os.Exit(0)
	}
	return flags.Args()
}

// loadConfig merges the config file, the environment and the flags.
func loadConfig(path string, o overrides, verbose bool) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	o.apply(cfg)
	log.SetLogLevel(log.ParseLevel(cfg.LogLevel))
	if verbose {
		log.SetLogLevel(log.DebugLevel)
	}
	return cfg
}

func mustConfig(path string, o overrides, verbose bool) *config.Config {
	cfg := loadConfig(path, o, verbose)
	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	return cfg
}

func (o overrides) apply(cfg *config.Config) {
	if o.output != "" {
		cfg.OutputDir = o.output
	}
	if o.maxIterations > 0 {
		cfg.MaxIterations = o.maxIterations
	}
	if o.model != "" {
		cfg.Model.ModelName = o.model
	}
	if o.promptDir != "" {
		cfg.PromptDir = o.promptDir
	}
	if o.stateFile != "" {
		cfg.StateFile = o.stateFile
	}
	if o.noTest {
		cfg.Test.Disabled = true
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if o.metricsFile != "" {
		cfg.Metrics.Textfile = o.metricsFile
	}
}

func askRequirements(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Describe the backend you want to build: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("requirements must not be empty")
	}
	return line, nil
}

// app holds everything a run needs; it is shared by generate and mcp.
type app struct {
	cfg     *config.Config
	client  *llm.Client
	prompts *prompt.Store
	tools   *tool.ArchitectTools
	metrics *metrics.Observer
	runner  runner.Runner
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	cm, err := llm.NewChatModel(ctx, cfg.Model)
	if err != nil {
		return nil, errors.Wrap(err, "create chat model")
	}
	store, err := prompt.NewStore(cfg.PromptDir)
	if err != nil {
		return nil, err
	}
	if err := store.Watch(ctx); err != nil {
		log.Error("prompt overrides will not be reloaded: %v", err)
	}
	tools, err := tool.NewArchitectTools(ctx, tool.ArchitectToolsOptions{
		Search: cfg.Tools.Search,
		MCP:    cfg.Tools.MCP,
	})
	if err != nil {
		return nil, err
	}
	r := runner.NewExecRunner(cfg.Test.Timeout)

	a := &app{
		cfg:     cfg,
		client:  llm.NewClient(cm, cfg.Model),
		prompts: store,
		tools:   tools,
		metrics: metrics.NewObserver(),
		runner:  r,
	}
	if cfg.Metrics.Addr != "" {
		if err := a.metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
			return nil, errors.Wrap(err, "serve metrics")
		}
	}
	return a, nil
}

func (a *app) pipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Steps: steps.New(steps.Options{
			Client:         a.client,
			Prompts:        a.prompts,
			ArchitectTools: a.tools.Tools(),
			MaxToolRounds:  a.cfg.Tools.MaxRounds,
			Runner:         a.runner,
			NPM:            a.cfg.Test.NPM,
			TestTimeout:    a.cfg.Test.Timeout,
			TestsDisabled:  a.cfg.Test.Disabled,
		}),
		Policy:   &pipeline.DefaultPolicy{MaxIterations: a.cfg.MaxIterations},
		Observer: pipeline.Observers{pipeline.LogObserver{}, a.metrics},
	}
}

// run executes one generation. An empty outputDir means the configured one.
func (a *app) run(ctx context.Context, requirements, outputDir string) (*pipeline.RunState, error) {
	if outputDir == "" {
		outputDir = a.cfg.OutputDir
	}
	st, err := a.pipeline().Run(ctx, pipeline.NewRunState(requirements, outputDir))
	if a.cfg.StateFile != "" && st != nil {
		if serr := st.SaveToFile(a.cfg.StateFile); serr != nil {
			log.Error("Failed to save run state: %v", serr)
		}
	}
	if a.cfg.Metrics.Textfile != "" {
		if merr := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); merr != nil {
			log.Error("Failed to write metrics: %v", merr)
		}
	}
	return st, err
}

func (a *app) Close() error {
	return a.tools.Close()
}

func runGenerate(ctx context.Context, cfg *config.Config, requirements string, out io.Writer) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.run(ctx, requirements, "")
	if st != nil {
		printSummary(out, st)
	}
	return err
}

func printSummary(out io.Writer, st *pipeline.RunState) {
	dir := st.OutputDir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	fmt.Fprintf(out, "\nRun %s finished\n", st.RunID)
	fmt.Fprintf(out, "  Status:      %s\n", st.Status)
	fmt.Fprintf(out, "  Iterations:  %d\n", st.Iterations)
	if st.TestStatus != pipeline.TestUnset {
		fmt.Fprintf(out, "  Tests:       %s\n", st.TestStatus)
	}
	fmt.Fprintf(out, "  Output:      %s\n", dir)

	if files, err := workspace.ListFiles(st.OutputDir); err == nil && len(files) > 0 {
		fmt.Fprintf(out, "\nGenerated files:\n")
		for _, f := range files {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}

	if len(st.Feedback) == 0 && st.Status == pipeline.StatusApproved {
		fmt.Fprintf(out, "\nCode approved.\n")
		return
	}
	fmt.Fprintf(out, "\n%d unresolved issue(s):\n", len(st.Feedback))
	for _, f := range st.Feedback {
		fmt.Fprintf(out, "  - %s\n", f)
	}
}
