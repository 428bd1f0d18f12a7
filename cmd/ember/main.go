package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emberweb/ember/pkg/starlark"
	"github.com/emberweb/ember/pkg/template"
	"github.com/emberweb/ember/pkg/validator"
)

type emberConfig struct {
	Root       string `yaml:"root"`
	Autoescape *bool  `yaml:"autoescape,omitempty"`
	Evaluator  string `yaml:"evaluator,omitempty"`
}

func (c *emberConfig) Validate() error {
	return validator.All(
		validator.NotEmpty(c.Root, "root"),
		validator.OneOf(c.Evaluator, []string{"basic", "starlark"}, "evaluator"),
	)
}

func (c *emberConfig) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

var (
	configPath    string
	rootDir       string
	contextPath   string
	outPath       string
	evaluatorName string
	noEscape      bool
	verbose       bool
)

func loadConfig() (*emberConfig, error) {
	cfg := &emberConfig{Root: ".", Evaluator: "starlark"}
	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}
	// Flags override the config file.
	if rootDir != "" {
		cfg.Root = rootDir
	}
	if evaluatorName != "" {
		cfg.Evaluator = evaluatorName
	}
	if noEscape {
		off := false
		cfg.Autoescape = &off
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLoader(cfg *emberConfig) (*template.Loader, error) {
	var opts []template.Option
	if cfg.Evaluator != "basic" {
		opts = append(opts, template.WithEvaluator(starlark.NewEvaluator()))
	}
	if cfg.Autoescape != nil {
		opts = append(opts, template.Autoescape(*cfg.Autoescape))
	}
	return template.NewLoader(cfg.Root, opts...)
}

func loadContext() (template.Context, error) {
	if contextPath == "" {
		return template.Context{}, nil
	}
	b, err := os.ReadFile(contextPath)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding context file: %w", err)
	}
	return template.NewContext(m), nil
}

var rootCmd = cobra.Command{
	Use:   "ember",
	Short: "Compile and render ember templates",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var renderCmd = cobra.Command{
	Use:   "render [template]",
	Short: "Render a template with an optional YAML context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loader, err := buildLoader(cfg)
		if err != nil {
			return err
		}
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		t, err := loader.Load(args[0])
		if err != nil {
			return err
		}
		start := time.Now()
		var out string
		if t.Async() {
			out, err = t.RenderAsync(ctx).Wait()
		} else {
			out, err = t.Render(ctx)
		}
		if err != nil {
			return err
		}
		slog.Debug("rendered template",
			"template", t.Name(), "async", t.Async(), "duration", time.Since(start))
		if outPath != "" {
			return os.WriteFile(outPath, []byte(out), 0o644)
		}
		_, err = fmt.Print(out)
		return err
	},
}

var checkCmd = cobra.Command{
	Use:   "check [template...]",
	Short: "Compile templates and report errors without rendering",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validator.NoDuplicates(args, "template arguments"); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loader, err := buildLoader(cfg)
		if err != nil {
			return err
		}
		failed := 0
		for _, name := range args {
			t, err := loader.Load(name)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
				continue
			}
			slog.Debug("compiled template", "template", name, "async", t.Async())
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d templates failed to compile", failed, len(args))
		}
		return nil
	},
}

var astCmd = cobra.Command{
	Use:   "ast [template]",
	Short: "Print the parsed tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		b, err := os.ReadFile(filepath.Join(cfg.Root, args[0]))
		if err != nil {
			return err
		}
		tree, err := template.Parse(args[0], string(b))
		if err != nil {
			return err
		}
		fmt.Print(template.Pretty(tree))
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to ember.yaml")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "template root directory")
	rootCmd.PersistentFlags().StringVar(&evaluatorName, "evaluator", "", "expression evaluator (basic or starlark)")
	rootCmd.PersistentFlags().BoolVar(&noEscape, "no-escape", false, "disable XHTML escaping of expression output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	renderCmd.Flags().StringVar(&contextPath, "context", "", "YAML file with render context variables")
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(&renderCmd, &checkCmd, &astCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
