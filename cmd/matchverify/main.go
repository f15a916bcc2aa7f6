// Command matchverify is a standalone tool for verifying sealed match
// records without a running matchwitnessd daemon.
//
// It accepts one or more verified-record JSON files (or a single file
// holding a JSON array of records), reverifies each against its stored
// integrity artifacts, re-runs validation, and renders a report.
//
// Usage:
//
//	matchverify [flags] <record.json> [record.json ...]
//
// Examples:
//
//	# Basic verification
//	matchverify record.json
//
//	# Verbose JSON output to a file
//	matchverify -format json -verbose -output report.json record.json
//
//	# Batch with history-aware anomaly analysis
//	matchverify -history history.json batch.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"matchwitness/internal/config"
	"matchwitness/internal/integrity"
	"matchwitness/internal/match"
	"matchwitness/internal/validate"
	"matchwitness/internal/verify"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	formatStr := flag.String("format", "text", "output format: text, json, markdown, yaml")
	output := flag.String("output", "", "output file (default: stdout)")
	verbose := flag.Bool("verbose", false, "verbose output with issue data and fix hints")
	participant := flag.String("participant", "", "participant id the records were sealed for")
	historyPath := flag.String("history", "", "JSON file with the participant's prior matches")
	quiet := flag.Bool("quiet", false, "quiet mode, print only per-record summary lines")
	exitCode := flag.Bool("exit-code", true, "exit non-zero when any record fails reverification")
	versionFlag := flag.Bool("version", false, "print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "matchverify - Verify sealed match records\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <record.json> [record.json ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nOutput Formats:\n")
		fmt.Fprintf(os.Stderr, "  text      - Human-readable text (default)\n")
		fmt.Fprintf(os.Stderr, "  json      - JSON for programmatic processing\n")
		fmt.Fprintf(os.Stderr, "  markdown  - Markdown for documentation\n")
		fmt.Fprintf(os.Stderr, "  yaml      - YAML for pipelines\n")
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("matchverify %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: record file required\n\n")
		flag.Usage()
		os.Exit(2)
	}

	format, err := parseFormat(*formatStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	records, err := loadRecords(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading records: %v\n", err)
		os.Exit(1)
	}

	var history []match.MatchRecord
	if *historyPath != "" {
		history, err = loadHistory(*historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading history: %v\n", err)
			os.Exit(1)
		}
	}

	hasher, err := integrity.SelectHasher(cfg.Integrity.Algorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	service := verify.New(hasher, validate.New(cfg.EngineConfig()))

	reports := service.BatchReport(records, *participant, history)

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if *quiet {
		for _, r := range reports {
			fmt.Fprintln(w, r.Summary())
		}
	} else {
		generator := verify.NewReportGenerator(format).WithVerbose(*verbose)
		if err := generator.GenerateBatch(reports, w); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
			os.Exit(1)
		}
	}

	if *exitCode && anyFailed(reports) {
		os.Exit(1)
	}
}

// loadRecords reads every argument as a verified-record JSON file. A file
// holding a JSON array is treated as a batch.
func loadRecords(paths []string) ([]match.VerifiedMatchRecord, error) {
	var records []match.VerifiedMatchRecord
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		if isArray(data) {
			var batch []match.VerifiedMatchRecord
			if err := json.Unmarshal(data, &batch); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
			records = append(records, batch...)
			continue
		}

		v, err := match.DecodeVerifiedRecord(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		records = append(records, *v)
	}
	return records, nil
}

func loadHistory(path string) ([]match.MatchRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var history []match.MatchRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return history, nil
}

func isArray(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func anyFailed(reports []*verify.Report) bool {
	for _, r := range reports {
		if r.Error != "" {
			return true
		}
		if r.Reverify != nil && !r.Reverify.StillValid {
			return true
		}
	}
	return false
}

func parseFormat(s string) (verify.ReportFormat, error) {
	switch s {
	case "text":
		return verify.FormatText, nil
	case "json":
		return verify.FormatJSON, nil
	case "markdown", "md":
		return verify.FormatMarkdown, nil
	case "yaml", "yml":
		return verify.FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s (use text, json, markdown, or yaml)", s)
	}
}
