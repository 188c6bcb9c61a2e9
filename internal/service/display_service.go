package service

import (
	"context"

	"clinic-call-queue/internal/models"
)

// CallLogReader is the read side of the call log. The display only ever
// holds this interface, so it cannot mutate the log.
type CallLogReader interface {
	ReadAll(ctx context.Context) ([]models.CallRecord, error)
	Version(ctx context.Context) (int64, error)
}

// DisplayService serves the announcement display. Results are snapshots;
// the log may change between two calls.
type DisplayService struct {
	reader CallLogReader
}

func NewDisplayService(reader CallLogReader) *DisplayService {
	return &DisplayService{reader: reader}
}

// Calls returns the call log, most recent first, truncated to limit when limit > 0
func (s *DisplayService) Calls(ctx context.Context, limit int) ([]models.CallRecord, error) {
	records, err := s.reader.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Current returns the call being announced, if any
func (s *DisplayService) Current(ctx context.Context) (models.CallRecord, bool, error) {
	records, err := s.reader.ReadAll(ctx)
	if err != nil {
		return models.CallRecord{}, false, err
	}
	if len(records) == 0 {
		return models.CallRecord{}, false, nil
	}
	return records[0], true, nil
}
