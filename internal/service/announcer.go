package service

import (
	"context"
	"encoding/json"
	"fmt"

	"clinic-call-queue/internal/models"
	"clinic-call-queue/internal/notify"

	"github.com/rs/zerolog"
)

// Announcer is a notify.Publisher for the terminal display: it logs a line
// each time the head of the call log changes.
type Announcer struct {
	logger  zerolog.Logger
	current models.CallRecord
	showing bool
}

func NewAnnouncer(logger zerolog.Logger) *Announcer {
	return &Announcer{logger: logger.With().Str("component", "display").Logger()}
}

// Publish implements notify.Publisher
func (a *Announcer) Publish(_ context.Context, event notify.Event) error {
	var records []models.CallRecord
	if err := json.Unmarshal(event.Data, &records); err != nil {
		return fmt.Errorf("failed to decode call log event: %w", err)
	}

	if len(records) == 0 {
		if a.showing {
			a.logger.Info().Msg("no patients being called")
		}
		a.showing = false
		a.current = models.CallRecord{}
		return nil
	}

	head := records[0]
	if a.showing && head == a.current {
		return nil
	}

	a.current = head
	a.showing = true
	a.logger.Info().
		Str("patient", head.PatientName).
		Str("room", head.Room).
		Int("previous_calls", len(records)-1).
		Msg("now calling")
	return nil
}

// Current returns the record last announced
func (a *Announcer) Current() (models.CallRecord, bool) {
	return a.current, a.showing
}
