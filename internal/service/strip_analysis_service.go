package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/anime-shed/stripreader/internal/analyzer"
	apperrors "github.com/anime-shed/stripreader/internal/errors"
	"github.com/anime-shed/stripreader/internal/logger"
	"github.com/anime-shed/stripreader/internal/observer"
	"github.com/anime-shed/stripreader/internal/repository"
	"github.com/anime-shed/stripreader/internal/storage"
	"github.com/anime-shed/stripreader/internal/strategy"
	"github.com/anime-shed/stripreader/pkg/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Submission validation messages
const (
	MsgSubmissionIncomplete = "Date and image are required"
	MsgUnsupportedFormat    = "Invalid image format. Only JPEG and PNG are supported."
	MsgInvalidDate          = "Invalid date format. Use RFC3339 or YYYY-MM-DD."
	MsgTestNotFound         = "Test result not found"
)

var acceptedDateLayouts = []string{time.RFC3339, "2006-01-02"}

// AnalysisRequest selects the profile for one run and what to do with it
type AnalysisRequest struct {
	// Source names the image in records, logs and artifact names
	Source  string
	Profile string
	Mode    string
	// WorkingWidth overrides the profile's detection width when set
	WorkingWidth *int
	SaveArtifact bool
}

// StripAnalysisService reads test strips from the supported sources and
// keeps the submission history
type StripAnalysisService interface {
	AnalyzeBytes(ctx context.Context, data []byte, req AnalysisRequest) (models.ResultRecord, error)
	AnalyzeStream(ctx context.Context, r io.Reader, req AnalysisRequest) (models.ResultRecord, error)
	AnalyzeFile(ctx context.Context, path string, req AnalysisRequest) (models.ResultRecord, error)
	AnalyzeURL(ctx context.Context, imageURL string, req AnalysisRequest) (models.ResultRecord, error)

	SubmitTest(ctx context.Context, data []byte, sub models.TestSubmission) (*models.TestRecord, error)
	GetTest(ctx context.Context, id, userID string) (*models.TestRecord, error)
	ListTests(ctx context.Context, userID string) ([]*models.TestRecord, error)
	OpenTestImage(ctx context.Context, id, userID string) (io.ReadCloser, error)

	Profiles() analyzer.ProfileSet
}

// Options tune the service
type Options struct {
	DefaultProfile  string
	AnalysisTimeout time.Duration
}

type stripAnalysisService struct {
	images    repository.ImageRepository
	results   repository.TestResultRepository
	artifacts storage.ArtifactStore
	analyzer  analyzer.StripAnalyzer
	profiles  analyzer.ProfileSet
	events    observer.Subject
	opts      Options
}

// NewStripAnalysisService wires the service. results and events may be nil:
// without a result repository submissions are refused.
func NewStripAnalysisService(
	images repository.ImageRepository,
	results repository.TestResultRepository,
	artifacts storage.ArtifactStore,
	stripAnalyzer analyzer.StripAnalyzer,
	profiles analyzer.ProfileSet,
	events observer.Subject,
	opts Options,
) StripAnalysisService {
	if artifacts == nil {
		artifacts = storage.NewNopArtifactStore()
	}
	if stripAnalyzer == nil {
		stripAnalyzer = analyzer.NewStripAnalyzer(nil, nil)
	}
	if profiles == nil {
		profiles = analyzer.DefaultProfiles()
	}
	if opts.DefaultProfile == "" {
		opts.DefaultProfile = analyzer.ProfileStandard
	}
	return &stripAnalysisService{
		images:    images,
		results:   results,
		artifacts: artifacts,
		analyzer:  stripAnalyzer,
		profiles:  profiles,
		events:    events,
		opts:      opts,
	}
}

func (s *stripAnalysisService) AnalyzeBytes(ctx context.Context, data []byte, req AnalysisRequest) (models.ResultRecord, error) {
	return s.record(s.analyze(ctx, req, func() (image.Image, error) {
		return s.images.LoadBytes(data)
	}))
}

func (s *stripAnalysisService) AnalyzeStream(ctx context.Context, r io.Reader, req AnalysisRequest) (models.ResultRecord, error) {
	return s.record(s.analyze(ctx, req, func() (image.Image, error) {
		return s.images.LoadStream(r)
	}))
}

func (s *stripAnalysisService) AnalyzeFile(ctx context.Context, path string, req AnalysisRequest) (models.ResultRecord, error) {
	if req.Source == "" {
		req.Source = path
	}
	return s.record(s.analyze(ctx, req, func() (image.Image, error) {
		return s.images.LoadFile(path)
	}))
}

func (s *stripAnalysisService) AnalyzeURL(ctx context.Context, imageURL string, req AnalysisRequest) (models.ResultRecord, error) {
	if req.Source == "" {
		req.Source = imageURL
	}
	return s.record(s.analyze(ctx, req, func() (image.Image, error) {
		img, err := s.images.FetchImage(ctx, imageURL)
		if err != nil {
			if _, ok := apperrors.As(err); ok {
				return nil, err
			}
			return nil, apperrors.NewValidationError("invalid image URL", err)
		}
		return img, nil
	}))
}

// SubmitTest analyses an uploaded photo, stores its annotated artifact and
// records the result in the user's history
func (s *stripAnalysisService) SubmitTest(ctx context.Context, data []byte, sub models.TestSubmission) (*models.TestRecord, error) {
	if s.results == nil {
		return nil, apperrors.NewInternalError("test history is unavailable", repository.ErrRepositoryUnavailable)
	}
	if len(data) == 0 || strings.TrimSpace(sub.Date) == "" {
		return nil, apperrors.NewValidationError(MsgSubmissionIncomplete, nil)
	}
	if !supportedContentType(sub.ContentType) {
		return nil, apperrors.NewValidationError(MsgUnsupportedFormat, nil)
	}
	date, err := parseTestDate(sub.Date)
	if err != nil {
		return nil, apperrors.NewValidationError(MsgInvalidDate, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate test id", err)
	}
	// only the base name follows the id, so no upload can name another
	// test's artifact
	name := storage.SourceBase(sub.Filename)

	run, _, err := s.analyze(ctx, AnalysisRequest{
		Source:       id.String() + "_" + name,
		Profile:      sub.Profile,
		Mode:         sub.Mode,
		SaveArtifact: true,
	}, func() (image.Image, error) {
		return s.images.LoadBytes(data)
	})
	if err != nil {
		return nil, err
	}

	display := models.DisplayFor(run.record.Status)
	rec := &models.TestRecord{
		ID:       id.String(),
		UserID:   sub.UserID,
		Date:     date,
		Result:   run.record.Status,
		Message:  display.Message,
		Color:    display.Color,
		ImageRef: run.record.Artifact,
		Profile:  run.record.Profile,
	}
	if run.outcome.Decision.Result != analyzer.ResultInvalid {
		rec.Confidence = run.record.Confidence
	}
	if run.record.ControlIntensity != nil {
		rec.ControlIntensity = *run.record.ControlIntensity
	}
	if run.record.TestIntensity != nil {
		rec.TestIntensity = *run.record.TestIntensity
	}

	if err := s.results.Save(ctx, rec); err != nil {
		return nil, apperrors.NewInternalError("failed to save test result", err)
	}
	s.notify(ctx, observer.AnalysisEvent{
		EventType: observer.TestSaved,
		Source:    name,
		Profile:   rec.Profile,
		Result:    rec.Result,
		Success:   true,
		Metadata:  map[string]interface{}{"test_id": rec.ID, "user_id": rec.UserID},
	})
	return rec, nil
}

// GetTest returns one record. A non-empty userID must own it.
func (s *stripAnalysisService) GetTest(ctx context.Context, id, userID string) (*models.TestRecord, error) {
	if s.results == nil {
		return nil, apperrors.NewInternalError("test history is unavailable", repository.ErrRepositoryUnavailable)
	}
	rec, err := s.results.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTestResultNotFound) {
		return nil, apperrors.NewNotFoundError(MsgTestNotFound, err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load test result", err)
	}
	if userID != "" && rec.UserID != userID {
		return nil, apperrors.NewNotFoundError(MsgTestNotFound, nil)
	}
	return rec, nil
}

// ListTests returns the history newest first
func (s *stripAnalysisService) ListTests(ctx context.Context, userID string) ([]*models.TestRecord, error) {
	if s.results == nil {
		return nil, apperrors.NewInternalError("test history is unavailable", repository.ErrRepositoryUnavailable)
	}
	recs, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list test results", err)
	}
	return recs, nil
}

// OpenTestImage streams the annotated artifact of a stored test
func (s *stripAnalysisService) OpenTestImage(ctx context.Context, id, userID string) (io.ReadCloser, error) {
	rec, err := s.GetTest(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if rec.ImageRef == "" {
		return nil, apperrors.NewNotFoundError("Test image not found", nil)
	}
	return s.artifacts.Open(ctx, rec.ImageRef)
}

func (s *stripAnalysisService) Profiles() analyzer.ProfileSet {
	return s.profiles
}

type analysisRun struct {
	outcome *analyzer.Outcome
	record  models.ResultRecord
}

// record turns a run into its result record, keeping the source on failures
func (s *stripAnalysisService) record(run *analysisRun, source string, err error) (models.ResultRecord, error) {
	if err != nil {
		rec := analyzer.ErrorRecord(err)
		rec.Source = source
		return rec, err
	}
	return run.record, nil
}

func (s *stripAnalysisService) analyze(ctx context.Context, req AnalysisRequest, load func() (image.Image, error)) (*analysisRun, string, error) {
	fields := logrus.Fields{"source": req.Source, "profile": req.Profile}

	profile, err := s.resolveProfile(req)
	if err != nil {
		return nil, req.Source, err
	}
	if err := ctx.Err(); err != nil {
		return nil, req.Source, contextError(err)
	}

	img, err := load()
	if err != nil {
		s.notifyFailure(ctx, observer.ImageLoadFailed, req.Source, profile.Name, err)
		return nil, req.Source, err
	}
	s.notify(ctx, observer.AnalysisEvent{
		EventType: observer.ImageLoaded,
		Source:    req.Source,
		Profile:   profile.Name,
		Success:   true,
		Metadata:  map[string]interface{}{"width": img.Bounds().Dx(), "height": img.Bounds().Dy()},
	})
	if err := ctx.Err(); err != nil {
		return nil, req.Source, contextError(err)
	}

	s.notify(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, Source: req.Source, Profile: profile.Name})
	outcome, err := s.runAnalyzer(ctx, img, profile)
	if err != nil {
		s.notifyFailure(ctx, observer.AnalysisFailed, req.Source, profile.Name, err)
		return nil, req.Source, err
	}
	s.notify(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Source:         req.Source,
		Profile:        profile.Name,
		Result:         string(outcome.Decision.Result),
		ProcessingTime: outcome.Elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			"confidence":    outcome.Decision.Confidence,
			"control_ratio": outcome.ControlSignal.ColorRatio,
			"test_ratio":    outcome.TestSignal.ColorRatio,
		},
	})

	rec := analyzer.BuildRecord(outcome)
	rec.Source = req.Source
	if req.SaveArtifact {
		ref, err := s.saveArtifact(ctx, req.Source, img, outcome)
		if err != nil {
			logger.WithError(err).WithFields(fields).Error("Failed to store artifact")
			return nil, req.Source, apperrors.NewInternalError("failed to store artifact", err)
		}
		rec.Artifact = ref
	}
	return &analysisRun{outcome: outcome, record: rec}, req.Source, nil
}

func (s *stripAnalysisService) resolveProfile(req AnalysisRequest) (analyzer.Profile, error) {
	name := req.Profile
	if name == "" {
		name = s.opts.DefaultProfile
	}
	profile, err := s.profiles.Get(name)
	if err != nil {
		return analyzer.Profile{}, apperrors.NewValidationError(err.Error(), err)
	}
	if req.Mode != "" {
		profile = profile.WithMode(strategy.Mode(req.Mode))
	}
	if req.WorkingWidth != nil {
		profile = profile.WithWorkingWidth(*req.WorkingWidth)
	}
	return profile, nil
}

// runAnalyzer bounds the analysis by the context and AnalysisTimeout. The
// core itself is not interruptible, so a timed-out run finishes in the
// background and its result is dropped.
func (s *stripAnalysisService) runAnalyzer(ctx context.Context, img image.Image, profile analyzer.Profile) (*analyzer.Outcome, error) {
	if s.opts.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnalysisTimeout)
		defer cancel()
	}

	type result struct {
		outcome *analyzer.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		o, err := s.analyzer.Analyze(img, profile)
		done <- result{o, err}
	}()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	}
}

func (s *stripAnalysisService) saveArtifact(ctx context.Context, source string, img image.Image, outcome *analyzer.Outcome) (string, error) {
	if s.artifacts.Kind() == "none" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := analyzer.EncodeArtifact(&buf, analyzer.Annotate(img, outcome)); err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}
	return s.artifacts.Save(ctx, source, buf.Bytes())
}

func (s *stripAnalysisService) notify(ctx context.Context, event observer.AnalysisEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now()
	s.events.NotifyObservers(ctx, event)
}

func (s *stripAnalysisService) notifyFailure(ctx context.Context, eventType observer.EventType, source, profile string, err error) {
	rec := analyzer.ErrorRecord(err)
	event := observer.AnalysisEvent{
		EventType:    eventType,
		Source:       source,
		Profile:      profile,
		ErrorKind:    rec.Kind,
		ErrorMessage: rec.Error,
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Details != "" {
		event.Metadata = map[string]interface{}{"details": appErr.Details}
	}
	s.notify(ctx, event)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("analysis timed out", err)
	}
	return apperrors.NewTimeoutError("request cancelled", err)
}

func supportedContentType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}

func parseTestDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range acceptedDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
