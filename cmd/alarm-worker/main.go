// Package main is the entrypoint for the alarm worker Lambda function.
//
// The worker consumes AlarmMessage envelopes that the webhook API enqueued on
// the alarm SQS queue and runs each through the notification pipeline.
//
// Cold start:
//  1. Load configuration (SSM-backed outside local).
//  2. Initialize the zap logger.
//  3. Wire the pipeline (OpenStack clients, mail transport, metrics).
//  4. Register the handler and call lambda.Start.
//
// Records of one batch are handled concurrently, bounded by
// WORKER_CONCURRENCY. Only transient alarm lookup failures are reported as
// batch item failures; everything else is acknowledged, including failed
// sends, which are never redelivered.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"golang.org/x/sync/errgroup"

	"safirnotify/internal/alarm"
	"safirnotify/internal/app"
	"safirnotify/internal/config"
	"safirnotify/internal/logging"
	"safirnotify/internal/types"
)

// EventHandler runs one alarm event. Implemented by *alarm.Handler.
type EventHandler interface {
	Handle(ctx context.Context, ev types.AlarmEvent) (alarm.Outcome, error)
}

// Worker holds the dependencies of the SQS Lambda handler.
type Worker struct {
	handler      EventHandler
	concurrency  int
	eventTimeout time.Duration
	logger       types.Logger
}

// Handle processes an SQS batch using partial batch responses.
func (w *Worker) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	failed := make([]bool, len(sqsEvent.Records))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(w.concurrency, 1))
	for i, record := range sqsEvent.Records {
		g.Go(func() error {
			if w.processRecord(gctx, record) {
				mu.Lock()
				failed[i] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	response := events.SQSEventResponse{}
	for i, record := range sqsEvent.Records {
		if failed[i] {
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}
	return response, nil
}

// processRecord handles one message and reports whether SQS should
// redeliver it.
func (w *Worker) processRecord(ctx context.Context, record events.SQSMessage) bool {
	var msg types.AlarmMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		w.logger.Error("failed to unmarshal alarm message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return false
	}
	if msg.Event.AlarmID == "" {
		w.logger.Error("alarm message without alarm_id", "message_id", record.MessageId)
		return false
	}

	traceID := msg.TraceID
	if traceID == "" {
		traceID = record.MessageId
	}
	ctx = types.WithTraceID(ctx, traceID)
	if w.eventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.eventTimeout)
		defer cancel()
	}

	_, err := w.handler.Handle(ctx, msg.Event)
	if err == nil {
		return false
	}
	if !shouldRedeliver(err) {
		return false
	}
	w.logger.Warn("alarm lookup failed, returning message to queue",
		"message_id", record.MessageId,
		"alarm_id", msg.Event.AlarmID,
		"trace_id", traceID,
	)
	return true
}

// shouldRedeliver is true only for alarm lookups that may succeed later. An
// unknown alarm stays unknown and a failed send is not retried.
func shouldRedeliver(err error) bool {
	if !errors.Is(err, alarm.ErrAlarmLookup) {
		return false
	}
	return !types.HasCode(err, types.ErrCodeNotFoundAlarm)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: cfg.IsLocal(),
		Service: cfg.Service + "-worker",
	})
	defer logging.Sync(logger)

	logger.Info("alarm worker initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"concurrency", cfg.Worker.Concurrency,
	)

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("wiring pipeline: %w", err)
	}

	worker := &Worker{
		handler:      components.Handler,
		concurrency:  cfg.Worker.Concurrency,
		eventTimeout: cfg.Worker.EventTimeout,
		logger:       logger,
	}

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/alarm-worker
	if cfg.IsLocal() {
		return runLocal(ctx, worker, os.Stdin, os.Stderr, logger)
	}

	lambda.Start(worker.Handle)
	return nil
}

func runLocal(ctx context.Context, worker *Worker, in io.Reader, out io.Writer, logger types.Logger) error {
	logger.Info("APP_ENV=local: reading SQS event from stdin")
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		return errors.New("no input received on stdin")
	}
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := worker.Handle(ctx, sqsEvent)
	if err != nil {
		return fmt.Errorf("handler execution failed: %w", err)
	}
	if len(response.BatchItemFailures) > 0 {
		logger.Warn("handler reported partial failures",
			"failed_count", len(response.BatchItemFailures),
		)
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(out, string(respJSON))
	}
	logger.Info("handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}
