package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/fliplens-comps/tools/dashgen/dashboards"
	"github.com/donaldgifford/fliplens-comps/tools/dashgen/rules"
	"github.com/donaldgifford/fliplens-comps/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file, relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	artifacts, err := generate(cfg)
	if err != nil {
		return err
	}

	if validateOnly {
		fmt.Printf("validation passed (%d artifacts)\n", len(artifacts))
		return nil
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("dashgen: wrote %s\n", path)
	}
	return nil
}

// generate builds and validates every enabled artifact.
func generate(cfg Config) ([]artifact, error) {
	var (
		out   []artifact
		check validate.Result
	)

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, fmt.Errorf("building overview dashboard: %w", err)
		}
		check = validate.Dashboard(dash, KnownMetrics)

		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding overview dashboard: %w", err)
		}
		out = append(out, artifact{
			path: filepath.Join("grafana", "data", "comps-overview.json"),
			data: append(data, '\n'),
		})
	}

	if cfg.RulesEnabled {
		ruleFiles := []struct {
			name string
			cr   rules.PrometheusRule
		}{
			{name: "comps-recording-rules.yaml", cr: rules.RecordingRules()},
			{name: "comps-alerts.yaml", cr: rules.AlertRules()},
		}
		for _, rf := range ruleFiles {
			name, cr := rf.name, rf.cr
			r := validate.Rules(cr, KnownMetrics)
			check.Errors = append(check.Errors, r.Errors...)
			check.Warnings = append(check.Warnings, r.Warnings...)

			data, err := yaml.Marshal(cr)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", name, err)
			}
			out = append(out, artifact{
				path: filepath.Join("prometheus", name),
				data: append([]byte(generatedHeader), data...),
			})
		}
	}

	for _, w := range check.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !check.Ok() {
		errs := make([]error, 0, len(check.Errors))
		for _, e := range check.Errors {
			errs = append(errs, errors.New(e))
		}
		return nil, fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return out, nil
}
