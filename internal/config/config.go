package config

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/flate"

	"github.com/xenking/simzip"
)

// Config holds app configuration
type Config struct {
	OutputFile string `mapstructure:"output"`
	Comment    string `mapstructure:"comment"`

	// Dir is the logical directory the input files are placed under inside
	// the archive
	Dir string `mapstructure:"dir"`

	// Method is a compression method name as printed by simzip.Compression
	// (store, deflate, ...). Empty means store
	Method string `mapstructure:"method"`
	// Level is the deflate level, -2 (huffman only) to 9
	Level int `mapstructure:"level"`

	RejectDuplicates bool `mapstructure:"reject_duplicates"`

	// StdinName, if set, adds standard input as an entry with this name
	StdinName string `mapstructure:"stdin_name"`

	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}

// Compression returns the configured method.
func (c *Config) Compression() (simzip.Compression, error) {
	if c.Method == "" {
		return simzip.Store, nil
	}
	return simzip.ParseCompression(c.Method)
}

// Validate checks the settings that would otherwise only fail once the
// archive is being written.
func (c *Config) Validate() error {
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	if _, err := c.Compression(); err != nil {
		return err
	}
	if c.Level < flate.HuffmanOnly || c.Level > flate.BestCompression {
		return fmt.Errorf("deflate level %d out of range %d..%d", c.Level, flate.HuffmanOnly, flate.BestCompression)
	}
	return nil
}
