package service

import (
	"context"
	"encoding/json"
	"time"

	"clinic-call-queue/internal/notify"

	"github.com/rs/zerolog"
)

// WorkerService polls the shared call log and publishes the whole log
// whenever the slot version moves. It never writes to the log.
type WorkerService struct {
	reader      CallLogReader
	publisher   notify.Publisher
	interval    time.Duration
	logger      zerolog.Logger
	lastVersion int64
	published   bool
}

func NewWorkerService(reader CallLogReader, publisher notify.Publisher, interval time.Duration, logger zerolog.Logger) *WorkerService {
	if interval <= 0 {
		interval = time.Second
	}
	return &WorkerService{
		reader:    reader,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With().Str("component", "display_worker").Logger(),
	}
}

// Start runs the polling loop until ctx is cancelled
func (w *WorkerService) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("display worker started")
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("display worker stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll publishes the log if it changed since the last publish.
// Errors are logged and the next tick tries again.
func (w *WorkerService) poll(ctx context.Context) bool {
	version, err := w.reader.Version(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to read call log version")
		return false
	}
	if w.published && version == w.lastVersion {
		return false
	}

	records, err := w.reader.ReadAll(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to read call log")
		return false
	}

	data, err := json.Marshal(records)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to encode call log")
		return false
	}

	event := notify.Event{
		Type:      "calls.updated",
		Topic:     notify.TopicCalls,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Error().Err(err).Msg("failed to publish call log")
		return false
	}

	w.lastVersion = version
	w.published = true
	w.logger.Debug().Int64("version", version).Int("calls", len(records)).Msg("call log published")
	return true
}
