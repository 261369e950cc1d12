package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	cargomodels "marina/internal/cargo/models"
	"marina/internal/entity"
	"marina/internal/platform/logger"
	"marina/internal/vessel/models"
	"marina/internal/vessel/service/mocks"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Lister,AuditPublisher

// propsMatcher matches entity.Props by a predicate.
type propsMatcher struct {
	desc string
	fn   func(entity.Props) bool
}

func (m propsMatcher) Matches(x any) bool {
	p, ok := x.(entity.Props)
	return ok && m.fn(p)
}

func (m propsMatcher) String() string { return m.desc }

func carrierIs(id any) gomock.Matcher {
	return propsMatcher{
		desc: fmt.Sprintf("carrier == %v", id),
		fn:   func(p entity.Props) bool { return p[cargomodels.FieldCarrier] == id },
	}
}

func manifestIs(ids ...string) gomock.Matcher {
	return propsMatcher{
		desc: fmt.Sprintf("loads == %v", ids),
		fn:   func(p entity.Props) bool { return assert.ObjectsAreEqual(ids, p.Strings(models.FieldLoads)) },
	}
}

func boatEntity(id int64, owner string, loads ...string) entity.Entity {
	v := models.Vessel{Owner: owner, Name: "Sea Witch", Type: "Sloop", Length: 30, Loads: append([]string{}, loads...)}
	return entity.Entity{Kind: entity.KindBoat, ID: id, Props: v.Props()}
}

func loadEntity(id int64, carrier *string) entity.Entity {
	c := cargomodels.Cargo{Volume: 1, Item: "Rope", CreationDate: "2024-01-01", Carrier: carrier}
	return entity.Entity{Kind: entity.KindLoad, ID: id, Props: c.Props()}
}

func strPtr(s string) *string { return &s }

func TestAssignWritesLoadBeforeVessel(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice), nil),
		store.EXPECT().Get(gomock.Any(), entity.KindLoad, int64(2)).Return(loadEntity(2, nil), nil),
		store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(2), carrierIs("1")).Return(nil),
		store.EXPECT().Update(gomock.Any(), entity.KindBoat, int64(1), manifestIs("2")).Return(nil),
	)

	svc := New(store, nil, WithLogger(logger.Discard()))
	require.NoError(t, svc.AssignLoad(ctx, alice, "1", "2"))
}

func TestAssignStopsWhenLoadWriteFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice), nil)
	store.EXPECT().Get(gomock.Any(), entity.KindLoad, int64(2)).Return(loadEntity(2, nil), nil)
	store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(2), gomock.Any()).Return(errors.New("store down"))
	// No vessel write may follow.

	svc := New(store, nil, WithLogger(logger.Discard()))
	err := svc.AssignLoad(context.Background(), alice, "1", "2")
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestAssignReportsPartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice), nil),
		store.EXPECT().Get(gomock.Any(), entity.KindLoad, int64(2)).Return(loadEntity(2, nil), nil),
		store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(2), carrierIs("1")).Return(nil),
		store.EXPECT().Update(gomock.Any(), entity.KindBoat, int64(1), gomock.Any()).Return(errors.New("timeout")),
	)

	svc := New(store, nil, WithLogger(logger.Discard()))
	err := svc.AssignLoad(context.Background(), alice, "1", "2")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestAssignAlreadyCarriedWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice, "2"), nil)
	store.EXPECT().Get(gomock.Any(), entity.KindLoad, int64(2)).Return(loadEntity(2, strPtr("1")), nil)

	svc := New(store, nil, WithLogger(logger.Discard()))
	require.NoError(t, svc.AssignLoad(context.Background(), alice, "1", "2"))
}

func TestUnassignWritesLoadBeforeVessel(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice, "2", "3"), nil),
		store.EXPECT().Get(gomock.Any(), entity.KindLoad, int64(2)).Return(loadEntity(2, strPtr("1")), nil),
		store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(2), carrierIs(nil)).Return(nil),
		store.EXPECT().Update(gomock.Any(), entity.KindBoat, int64(1), manifestIs("3")).Return(nil),
	)

	svc := New(store, nil, WithLogger(logger.Discard()))
	require.NoError(t, svc.UnassignLoad(context.Background(), alice, "1", "2"))
}

func TestDeleteFinishesAllRepairsBeforeReportingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	carried := []entity.Entity{loadEntity(10, strPtr("1")), loadEntity(11, strPtr("1")), loadEntity(12, strPtr("1"))}

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice, "10", "11"), nil),
		store.EXPECT().Delete(gomock.Any(), entity.KindBoat, int64(1)).Return(nil),
		store.EXPECT().Query(gomock.Any(), entity.Query{
			Kind:   entity.KindLoad,
			Filter: &entity.Filter{Field: cargomodels.FieldCarrier, Value: "1"},
		}).Return(entity.Page{Entities: carried}, nil),
	)
	for _, e := range carried {
		store.EXPECT().Get(gomock.Any(), entity.KindLoad, e.ID).Return(e, nil)
	}
	store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(10), carrierIs(nil)).Return(nil)
	store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(11), carrierIs(nil)).Return(errors.New("write failed"))
	store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(12), carrierIs(nil)).Return(nil)

	svc := New(store, nil, WithLogger(logger.Discard()), WithRepairConcurrency(3))
	err := svc.Delete(context.Background(), alice, "1")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
	assert.ErrorContains(t, err, "write failed")
}

func TestDeleteTreatsLoadDeletedMidRepairAsRepaired(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	load := loadEntity(10, strPtr("1"))

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), entity.KindBoat, int64(1)).Return(boatEntity(1, alice, "10"), nil),
		store.EXPECT().Delete(gomock.Any(), entity.KindBoat, int64(1)).Return(nil),
		store.EXPECT().Query(gomock.Any(), gomock.Any()).Return(entity.Page{Entities: []entity.Entity{load}}, nil),
		store.EXPECT().Get(gomock.Any(), entity.KindLoad, int64(10)).Return(load, nil),
		store.EXPECT().Update(gomock.Any(), entity.KindLoad, int64(10), carrierIs(nil)).
			Return(fmt.Errorf("Load 10: %w", sentinel.ErrNotFound)),
	)

	svc := New(store, nil, WithLogger(logger.Discard()))
	require.NoError(t, svc.Delete(context.Background(), alice, "1"))
}
