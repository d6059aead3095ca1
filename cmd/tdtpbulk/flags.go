package main

import (
	"flag"

	"github.com/ruslano69/tdtp-bulk/pkg/config"
)

// Flags holds all command-line flags
type Flags struct {
	// Commands
	Template *string // Write an xlsx template for the target table

	// Options
	Config *string
	File   *string
	Table  *string
	Sheet  *string
	Batch  *int
	DryRun *bool
	JSON   *bool

	// Misc
	CreateConfig *bool
	Version      *bool
	Help         *bool
}

// ParseFlags defines and parses all command-line flags
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("tdtpbulk", flag.ContinueOnError)
	f := &Flags{}

	f.Template = fs.String("template", "", "Write an xlsx template for the target table to this path")

	f.Config = fs.String("config", "config.yaml", "Configuration file")
	f.File = fs.String("file", "", "Source file (overrides source.path)")
	f.Table = fs.String("table", "", "Target table, schema.table (overrides load.table)")
	f.Sheet = fs.String("sheet", "", "Worksheet of an xlsx source (overrides source.sheet)")
	f.Batch = fs.Int("batch", 0, "Rows per batch (overrides load.batch_size)")
	f.DryRun = fs.Bool("dry-run", false, "Read and convert the file without loading it")
	f.JSON = fs.Bool("json", false, "Log as JSON instead of console output")

	f.CreateConfig = fs.Bool("create-config", false, "Create a sample config.yaml")
	f.Version = fs.Bool("version", false, "Show version information")
	f.Help = fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// applyOverrides copies flag values over the file configuration.
func applyOverrides(cfg *config.Config, f *Flags) {
	if *f.File != "" {
		cfg.Source.Path = *f.File
		// a different file may have a different format
		cfg.Source.Format = ""
	}
	if *f.Table != "" {
		cfg.Load.Table = *f.Table
	}
	if *f.Sheet != "" {
		cfg.Source.Sheet = *f.Sheet
	}
	if *f.Batch > 0 {
		cfg.Load.BatchSize = *f.Batch
	}
}
