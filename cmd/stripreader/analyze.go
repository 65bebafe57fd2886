package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/anime-shed/stripreader/internal/analyzer"
	"github.com/anime-shed/stripreader/internal/factory"
	"github.com/anime-shed/stripreader/internal/logger"
	"github.com/anime-shed/stripreader/internal/observer"
	"github.com/anime-shed/stripreader/internal/repository"
	"github.com/anime-shed/stripreader/internal/service"
	"github.com/anime-shed/stripreader/internal/storage"
	"github.com/anime-shed/stripreader/pkg/models"
	"github.com/anime-shed/stripreader/pkg/validation"
	"github.com/spf13/cobra"
)

// errAnalysisFailed makes the process exit with status 1 once every record
// has been printed
var errAnalysisFailed = errors.New("one or more images could not be analysed")

const stdinSource = "-"

type analyzeOptions struct {
	profile      string
	profileFile  string
	mode         string
	workingWidth int
	artifactDir  string
	locator      string
	workers      int
	logLevel     string
	fetchTimeout time.Duration
	maxBytes     int64
	maxPixels    int64
	allowHosts   []string
}

func newAnalyzeCommand() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [paths or URLs...]",
		Short: "Analyse strip photos and print one JSON record per image",
		Long: `Analyse strip photos and print one JSON record per image.

With no argument, or with "-", the image is read from stdin. Several
arguments are analysed concurrently and printed in argument order, each
record carrying its source. The exit status is 1 when any record is an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.profile, "profile", analyzer.ProfileStandard, "analysis profile name")
	f.StringVar(&opts.profileFile, "profile-file", "", "YAML file with additional or overridden profiles")
	f.StringVar(&opts.mode, "mode", "", "override the detection mode (edges or adaptive)")
	f.IntVar(&opts.workingWidth, "working-width", -1, "override the detection width in pixels (0 disables resizing)")
	f.StringVar(&opts.artifactDir, "artifact-dir", "", "write annotated images to this directory")
	f.StringVar(&opts.locator, "locator", analyzer.LocatorNative, "strip locator backend")
	f.IntVar(&opts.workers, "workers", runtime.NumCPU(), "number of images analysed concurrently")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	f.DurationVar(&opts.fetchTimeout, "fetch-timeout", 15*time.Second, "timeout for images fetched by URL")
	f.Int64Var(&opts.maxBytes, "max-bytes", 32<<20, "largest accepted image in bytes")
	f.Int64Var(&opts.maxPixels, "max-pixels", storage.DefaultMaxPixels, "largest accepted image in pixels (width x height)")
	f.StringSliceVar(&opts.allowHosts, "allow-host", nil, "only fetch URLs from these hosts; \"*.example.com\" admits subdomains")
	return cmd
}

func runAnalyze(ctx context.Context, stdin io.Reader, stdout io.Writer, args []string, opts *analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.SetLevel(opts.logLevel)

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{stdinSource}
	}
	if err := checkInputs(inputs); err != nil {
		return err
	}

	svc, events, err := buildService(opts)
	if err != nil {
		return err
	}
	defer events.Wait()

	req := service.AnalysisRequest{
		Profile:      opts.profile,
		Mode:         opts.mode,
		SaveArtifact: opts.artifactDir != "",
	}
	if opts.workingWidth >= 0 {
		width := opts.workingWidth
		req.WorkingWidth = &width
	}

	records := make([]models.ResultRecord, len(inputs))
	pool := analyzer.NewWorkerPool(opts.workers)
	pool.Start()
	for i, input := range inputs {
		job := func() {
			records[i] = analyzeInput(ctx, svc, stdin, input, req)
		}
		if !pool.Submit(job) {
			job()
		}
	}
	pool.Wait()
	pool.Close()

	enc := json.NewEncoder(stdout)
	failed := false
	for _, rec := range records {
		if len(inputs) == 1 {
			rec.Source = ""
		}
		if rec.IsError() {
			failed = true
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	if failed {
		return errAnalysisFailed
	}
	return nil
}

// checkInputs refuses reading stdin more than once
func checkInputs(inputs []string) error {
	seen := false
	for _, input := range inputs {
		if input != stdinSource {
			continue
		}
		if seen {
			return fmt.Errorf("stdin (%q) can only be given once", stdinSource)
		}
		seen = true
	}
	return nil
}

func analyzeInput(ctx context.Context, svc service.StripAnalysisService, stdin io.Reader, input string, req service.AnalysisRequest) models.ResultRecord {
	var rec models.ResultRecord
	switch {
	case input == stdinSource:
		req.Source = "stdin"
		rec, _ = svc.AnalyzeStream(ctx, stdin, req)
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		rec, _ = svc.AnalyzeURL(ctx, input, req)
	default:
		rec, _ = svc.AnalyzeFile(ctx, input, req)
	}
	return rec
}

func buildService(opts *analyzeOptions) (service.StripAnalysisService, *observer.EventPublisher, error) {
	profiles, err := analyzer.LoadProfiles(opts.profileFile)
	if err != nil {
		return nil, nil, err
	}
	if _, err := profiles.Get(opts.profile); err != nil {
		return nil, nil, err
	}

	components := factory.NewComponentFactory()
	locator, err := components.LocatorFactory.CreateLocator(opts.locator)
	if err != nil {
		return nil, nil, err
	}

	artifacts := storage.NewNopArtifactStore()
	if opts.artifactDir != "" {
		artifacts, err = storage.NewLocalArtifactStore(opts.artifactDir)
		if err != nil {
			return nil, nil, err
		}
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))

	limits := storage.Limits{MaxBytes: opts.maxBytes, MaxPixels: opts.maxPixels}
	fetcher := storage.NewHTTPImageFetcher(opts.fetchTimeout).WithLimits(limits)
	validator := validation.NewURLValidator(validation.URLPolicy{
		Schemes: validation.DefaultURLPolicy().Schemes,
		Hosts:   opts.allowHosts,
	})
	images := repository.NewImageRepository(fetcher, validator, limits)
	svc := service.NewStripAnalysisService(
		images,
		nil,
		artifacts,
		analyzer.NewStripAnalyzer(locator, nil),
		profiles,
		events,
		service.Options{DefaultProfile: opts.profile},
	)
	return svc, events, nil
}
