package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisEvent represents an analysis event
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source,omitempty"`
	Profile        string                 `json:"profile,omitempty"`
	Result         string                 `json:"result,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorKind      string                 `json:"error_kind,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when analysis begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when a decision was reached
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when a stage rejected the image
	AnalysisFailed EventType = "analysis_failed"
	// ImageLoaded when the image was decoded
	ImageLoaded EventType = "image_loaded"
	// ImageLoadFailed when the image could not be read or decoded
	ImageLoadFailed EventType = "image_load_failed"
	// TestSaved when a test submission was persisted
	TestSaved EventType = "test_saved"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.Profile != "" {
		fields["profile"] = event.Profile
	}
	if event.Result != "" {
		fields["result"] = event.Result
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_kind"] = event.ErrorKind
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Strip analysis started")
	case AnalysisCompleted:
		entry.Info("Strip analysis completed")
	case AnalysisFailed:
		// rejected images are expected traffic
		entry.Warn("Strip analysis failed")
	case ImageLoaded:
		entry.Debug("Image loaded")
	case ImageLoadFailed:
		entry.Warn("Image load failed")
	case TestSaved:
		entry.Info("Test result saved")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from analysis events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	savedTests          int64
	totalProcessingTime time.Duration
	results             map[string]int64
	failures            map[string]int64
}

// Metrics is a point-in-time copy of the collected counters
type Metrics struct {
	TotalAnalyses       int64            `json:"total_analyses"`
	SuccessfulAnalyses  int64            `json:"successful_analyses"`
	FailedAnalyses      int64            `json:"failed_analyses"`
	SavedTests          int64            `json:"saved_tests"`
	AvgProcessingTimeMs float64          `json:"avg_processing_time_ms"`
	Results             map[string]int64 `json:"results"`
	Failures            map[string]int64 `json:"failures"`
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		results:  make(map[string]int64),
		failures: make(map[string]int64),
	}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
		o.results[event.Result]++
	case AnalysisFailed, ImageLoadFailed:
		o.failedAnalyses++
		o.failures[event.ErrorKind]++
	case TestSaved:
		o.savedTests++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := Metrics{
		TotalAnalyses:      o.totalAnalyses,
		SuccessfulAnalyses: o.successfulAnalyses,
		FailedAnalyses:     o.failedAnalyses,
		SavedTests:         o.savedTests,
		Results:            make(map[string]int64, len(o.results)),
		Failures:           make(map[string]int64, len(o.failures)),
	}
	if o.successfulAnalyses > 0 {
		avg := o.totalProcessingTime / time.Duration(o.successfulAnalyses)
		m.AvgProcessingTimeMs = float64(avg) / float64(time.Millisecond)
	}
	for k, v := range o.results {
		m.Results[k] = v
	}
	for k, v := range o.failures {
		m.Failures[k] = v
	}
	return m
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pending   sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		p.pending.Add(1)
		go func(obs Observer) {
			defer p.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every dispatched notification has been handled
func (p *EventPublisher) Wait() {
	p.pending.Wait()
}
