package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xenking/simzip"
	"github.com/xenking/simzip/internal/config"
	"github.com/xenking/simzip/internal/logging"
	"github.com/xenking/simzip/lzma"
)

// newRootCmd returns the simzip command with its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "simzip [flags] FILE...",
		Short: "Write files and standard input into a ZIP archive",
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			if err := v.Unmarshal(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger, closer, err := logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogOutputDir)
			if err != nil {
				return fmt.Errorf("could not set up logging: %w", err)
			}
			defer closer.Close()

			return run(cfg, args, cmd.InOrStdin(), logger)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	cmd.Flags().StringP("output", "o", "", "path of the archive to write (required)")
	cmd.Flags().String("stdin-name", "", "add standard input as an entry with this name")
	cmd.Flags().String("dir", "", "directory to place the input files under inside the archive")

	// archive settings
	cmd.Flags().StringP("comment", "c", "", "archive comment")
	cmd.Flags().StringP("method", "m", "store", "compression method (store, deflate, lzma)")
	cmd.Flags().IntP("level", "l", simzip.DefaultDeflateLevel, "deflate level (-2 huffman only, -1 default, 0-9)")
	cmd.Flags().Bool("reject-duplicates", false, "skip files whose name and directory are already in the archive")

	// other opts
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stderr and file)")

	v.BindPFlag("output", cmd.Flags().Lookup("output"))
	v.BindPFlag("stdin_name", cmd.Flags().Lookup("stdin-name"))
	v.BindPFlag("dir", cmd.Flags().Lookup("dir"))
	v.BindPFlag("comment", cmd.Flags().Lookup("comment"))
	v.BindPFlag("method", cmd.Flags().Lookup("method"))
	v.BindPFlag("level", cmd.Flags().Lookup("level"))
	v.BindPFlag("reject_duplicates", cmd.Flags().Lookup("reject-duplicates"))
	v.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))
	v.BindPFlag("log_output_dir", cmd.Flags().Lookup("log-output-dir"))

	return cmd
}

// initConfig reads in config file and environment variables if set
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "simzip"))
		}
		v.AddConfigPath("/etc/simzip")
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix("SIMZIP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", v.ConfigFileUsed())
	return nil
}

// run builds the archive described by cfg and stores it. A failed store
// removes the partial archive.
func run(cfg *config.Config, files []string, stdin io.Reader, logger *slog.Logger) error {
	a, err := buildArchive(cfg, files, stdin, logger)
	if err != nil {
		return err
	}

	logger.Info("writing archive", "output", a.Name, "entries", len(a.Entries()))
	if err := a.Store(); err != nil {
		if rerr := os.Remove(a.Name); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			logger.Warn("could not remove partial archive", "output", a.Name, "error", rerr)
		}
		return err
	}

	var total, compressed uint64
	for _, e := range a.Entries() {
		total += uint64(e.UncompressedSize())
		compressed += uint64(e.CompressedSize())
	}
	logger.Info("stored archive", "output", a.Name, "entries", len(a.Entries()), "size", total, "compressed", compressed)
	return nil
}

func buildArchive(cfg *config.Config, files []string, stdin io.Reader, logger *slog.Logger) (*simzip.Archive, error) {
	method, err := cfg.Compression()
	if err != nil {
		return nil, err
	}

	opts := []simzip.Option{
		simzip.WithComment(cfg.Comment),
		simzip.WithLogger(logger),
	}
	if cfg.RejectDuplicates {
		opts = append(opts, simzip.WithDuplicateRejection())
	}
	a := simzip.NewArchive(cfg.OutputFile, opts...)

	switch {
	case method == simzip.Deflate && cfg.Level != simzip.DefaultDeflateLevel:
		comp, err := simzip.NewDeflateCompressor(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("deflate level %d: %w", cfg.Level, err)
		}
		a.RegisterCompressor(simzip.Deflate, comp)
	case method == simzip.LZMA:
		comp, err := lzma.NewCompressor(lzma.DefaultDictCap)
		if err != nil {
			return nil, err
		}
		a.RegisterCompressor(simzip.LZMA, comp)
	}

	add := func(e *simzip.Entry) {
		e.Method = method
		if !a.Add(e) {
			logger.Warn("skipping duplicate entry", "name", e.FullName())
		}
	}

	for _, f := range files {
		add(simzip.EntryFromFile(f, cfg.Dir))
	}

	if cfg.StdinName != "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading standard input: %w", err)
		}
		add(simzip.NewEntry(cfg.StdinName, data))
	}

	if len(a.Entries()) == 0 {
		logger.Warn("no input, writing an empty archive")
	}
	return a, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
