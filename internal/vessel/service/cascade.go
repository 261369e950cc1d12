package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"marina/internal/audit"
	cargomodels "marina/internal/cargo/models"
	"marina/internal/entity"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/sentinel"
)

// repairCarriers clears the carrier of every load whose carrier is vesselID.
// Each repair re-reads its load and writes only if the carrier still names
// the vessel.
func (s *Service) repairCarriers(ctx context.Context, subject, vesselID string) error {
	page, err := s.store.Query(ctx, entity.Query{
		Kind:   entity.KindLoad,
		Filter: &entity.Filter{Field: cargomodels.FieldCarrier, Value: vesselID},
	})
	if err != nil {
		return fmt.Errorf("find loads carried by %s: %w", vesselID, err)
	}

	var g errgroup.Group
	g.SetLimit(s.repairConcurrency)
	for _, e := range page.Entities {
		g.Go(func() error {
			err := s.clearCarrier(ctx, subject, e.ID, vesselID)
			if s.metrics != nil {
				s.metrics.IncrementCarrierRepair(err)
			}
			return err
		})
	}
	return g.Wait()
}

func (s *Service) clearCarrier(ctx context.Context, subject string, loadID int64, vesselID string) error {
	current, err := s.store.Get(ctx, entity.KindLoad, loadID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read load %d: %w", loadID, err)
	}
	load := cargomodels.FromEntity(current)
	if !load.CarriedBy(vesselID) {
		return nil
	}
	load.Carrier = nil
	if err := s.store.Update(ctx, entity.KindLoad, loadID, load.Props()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// deleted since the read; nothing left to clear
			return nil
		}
		return fmt.Errorf("clear carrier of load %d: %w", loadID, err)
	}
	if s.auditPublisher != nil {
		event := audit.Event{
			Action:    audit.ActionCarrierRepaired,
			Subject:   subject,
			Kind:      string(entity.KindLoad),
			EntityID:  load.ID,
			RelatedID: vesselID,
		}
		if err := s.auditPublisher.Emit(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event.Action), "error", err)
		}
	}
	return nil
}

func (s *Service) fetchLoad(ctx context.Context, loadID, notFound string) (int64, cargomodels.Cargo, error) {
	id, err := entity.ParseID(loadID)
	if err != nil {
		return 0, cargomodels.Cargo{}, dErrors.New(dErrors.CodeNotFound, notFound)
	}
	e, err := s.store.Get(ctx, entity.KindLoad, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, cargomodels.Cargo{}, dErrors.New(dErrors.CodeNotFound, notFound)
		}
		return 0, cargomodels.Cargo{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cargo")
	}
	return id, cargomodels.FromEntity(e), nil
}
