package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CTAG07/linechain/pkg/markov"
	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// cliFlags holds the command line. Zero values mean "use the config file".
type cliFlags struct {
	Corpus         string `arg:"" optional:"" help:"corpus file, one line of text per output line"`
	Config         string `help:"JSON config file, created with defaults if missing" short:"c" optional:""`
	KeyLength      int    `help:"number of words per group (config default 2)" short:"k" optional:""`
	DropBlankLines bool   `help:"skip blank corpus lines instead of reproducing them" optional:""`
	SampleParts    bool   `help:"use the length of one random corpus line for every output line" optional:""`
	Concurrency    int    `help:"number of lines generated in parallel" optional:""`
	Seed           uint64 `help:"seed for reproducible output, 0 picks a random one" optional:""`
	LogLevel       string `help:"log level: debug, info, warn or error" optional:""`
	DB             string `name:"db" help:"SQLite database the model is saved to, named after the corpus file unless --save-model is given" optional:""`
	SaveModel      string `help:"save the chain under this model name, merging with an existing model" optional:""`
	Prune          int    `help:"after saving, drop model links seen at most this many times" optional:""`
	Export         string `help:"write the saved model as JSON to this file" optional:""`
	Stats          bool   `help:"log statistics of the saved model" optional:""`
	Version        bool   `help:"display version information" optional:""`
}

var cli cliFlags

func main() {
	kongCtx := kong.Parse(&cli,
		kong.Name("linechain"),
		kong.Description("Generate text that mimics a corpus line by line using a word-group Markov chain."))

	// Show version information and exit
	if cli.Version {
		fmt.Println("version....:", Version)
		fmt.Println("commit.....:", Commit)
		fmt.Println("date.......:", BuildDate)
		os.Exit(0)
	}
	if cli.Corpus == "" {
		kongCtx.FatalIfErrorf(errors.New("expected \"<corpus>\""))
	}

	// Log to stderr at info level until the config has been read.
	bootstrapLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	config, err := LoadConfig(cli.Config, bootstrapLogger)
	kongCtx.FatalIfErrorf(err)
	config.applyFlags(&cli)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	out := bufio.NewWriter(os.Stdout)
	err = run(ctx, &cli, config, logger, out)
	if flushErr := out.Flush(); err == nil {
		err = flushErr
	}
	stop()
	kongCtx.FatalIfErrorf(err)
}

// run builds the chain for the corpus file, optionally persists it, and writes
// one generated line per corpus line to out.
func run(ctx context.Context, flags *cliFlags, config *Config, logger *slog.Logger, out io.Writer) error {
	data, err := os.ReadFile(flags.Corpus)
	if err != nil {
		return err
	}
	logger.Info("Corpus loaded", "path", flags.Corpus, "size", humanize.Bytes(uint64(len(data))))

	tokenizer := markov.NewLineTokenizer(
		markov.WithSeparator(config.WordSeparator),
		markov.WithLineSeparator(config.LineSeparator),
	)
	corpus, err := tokenizer.Tokenize(string(data), config.KeyLength)
	if err != nil {
		return err
	}
	table, err := markov.BuildChain(corpus.Words(), config.KeyLength)
	if err != nil {
		return err
	}
	logger.Info("Chain built",
		"lines", humanize.Comma(int64(corpus.LineCount)),
		"blank_lines", humanize.Comma(int64(len(corpus.BlankLines()))),
		"groups", humanize.Comma(int64(table.Len())),
		"key_length", config.KeyLength,
	)

	if wantsPersist(flags, config) {
		if err = persist(ctx, flags, config, table, logger); err != nil {
			return err
		}
	}

	var chooser markov.Chooser
	if config.Seed != 0 {
		chooser = markov.NewSeededChooser(config.Seed)
	}
	gen := markov.NewGenerator(table, chooser)
	gen.SetLogger(logger)

	opts := []markov.GenerateOption{
		markov.WithBlankLines(!config.DropBlankLines),
		markov.WithSampledPartCount(config.SampleParts),
		markov.WithConcurrency(config.Concurrency),
	}
	return writeLines(ctx, gen, corpus, config.Concurrency, opts, out)
}

// wantsPersist reports whether any model flag or a database path asks for the
// chain to be saved.
func wantsPersist(flags *cliFlags, config *Config) bool {
	return flags.SaveModel != "" || flags.Export != "" || flags.Stats ||
		flags.Prune > 0 || config.DatabasePath != ""
}

// writeLines streams lines to out as they are generated, or collects them
// first when they are generated in parallel.
func writeLines(ctx context.Context, gen *markov.Generator, corpus *markov.Corpus, concurrency int, opts []markov.GenerateOption, out io.Writer) error {
	if concurrency > 1 {
		lines, err := gen.Generate(ctx, corpus, opts...)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err = fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := gen.GenerateStream(ctx, corpus, opts...)
	if err != nil {
		return err
	}
	for line := range stream {
		if _, err = fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return ctx.Err()
}
