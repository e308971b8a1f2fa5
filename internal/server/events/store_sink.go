package events

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/auditlog"
)

// StoreSink appends every event to the audit log.
type StoreSink struct {
	repo auditlog.Repository
}

func NewStoreSink(repo auditlog.Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Publish(ctx context.Context, batch Batch) error {
	for _, ev := range batch.Events {
		env, err := Encode(ev)
		if err != nil {
			return err
		}
		rec := models.AuditRecord{Kind: env.Kind, Payload: env.Payload, OccurredAt: batch.OccurredAt}
		if err := s.repo.Append(ctx, rec); err != nil {
			return fmt.Errorf("error appending %s to audit log: %w", env.Kind, err)
		}
	}
	return nil
}
