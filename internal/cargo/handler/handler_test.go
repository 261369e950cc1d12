package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marina/internal/access"
	"marina/internal/audit"
	"marina/internal/cargo/service"
	"marina/internal/entity"
	"marina/internal/identity"
	"marina/internal/listing"
	"marina/internal/platform/logger"
	vesselmodels "marina/internal/vessel/models"
	dErrors "marina/pkg/domain-errors"
	"marina/pkg/platform/httputil"
	"marina/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *entity.Memory) {
	t.Helper()
	store := entity.NewMemory()
	svc := service.New(store, listing.New(store), service.WithLogger(logger.Discard()))
	r := chi.NewRouter()
	New(svc, nil, httputil.NewLinks(""), logger.Discard()).Register(r)
	return r, store
}

func createLoad(t *testing.T, r http.Handler) Response {
	t.Helper()
	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/loads",
		map[string]any{"volume": 12, "item": "LEGO Blocks", "creation_date": "10/18/2021"}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[Response](t, rr)
}

func TestLoadLifecycle(t *testing.T) {
	r, store := newRouter(t)

	testutil.Given(t, "a new load", func(t *testing.T) {
		load := createLoad(t, r)

		testutil.Then(t, "it is unassigned and links to itself", func(t *testing.T) {
			assert.Nil(t, load.Carrier)
			assert.Equal(t, "http://example.com/loads/"+load.ID, load.Self)
			assert.Equal(t, "10/18/2021", load.CreationDate)
		})

		testutil.When(t, "it is put on a boat", func(t *testing.T) {
			v := vesselmodels.Vessel{Owner: "someone", Name: "Hauler", Type: "Barge", Length: 90, Loads: []string{load.ID}}
			vid, err := store.Create(context.Background(), entity.KindBoat, v.Props())
			require.NoError(t, err)
			boatID := entity.FormatID(vid)

			lid, err := entity.ParseID(load.ID)
			require.NoError(t, err)
			e, err := store.Get(context.Background(), entity.KindLoad, lid)
			require.NoError(t, err)
			e.Props["carrier"] = boatID
			require.NoError(t, store.Update(context.Background(), entity.KindLoad, lid, e.Props))

			testutil.Then(t, "the carrier is expanded", func(t *testing.T) {
				rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/loads/"+load.ID, nil))
				testutil.AssertStatus(t, rr, http.StatusOK)
				got := testutil.UnmarshalResponse[Response](t, rr)
				require.NotNil(t, got.Carrier)
				assert.Equal(t, httputil.Ref{ID: boatID, Self: "http://example.com/boats/" + boatID}, *got.Carrier)
			})

			testutil.And(t, "a full update keeps the carrier", func(t *testing.T) {
				rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPut, "/loads/"+load.ID,
					map[string]any{"volume": 1, "item": "Bricks", "creation_date": "01/01/2022"}))
				testutil.AssertStatus(t, rr, http.StatusOK)
				got := testutil.UnmarshalResponse[Response](t, rr)
				assert.Equal(t, "Bricks", got.Item)
				require.NotNil(t, got.Carrier)
				assert.Equal(t, boatID, got.Carrier.ID)
			})

			testutil.And(t, "deleting it strips the manifest", func(t *testing.T) {
				rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodDelete, "/loads/"+load.ID))
				testutil.AssertStatus(t, rr, http.StatusNoContent)

				boat, err := store.Get(context.Background(), entity.KindBoat, vid)
				require.NoError(t, err)
				assert.Empty(t, vesselmodels.FromEntity(boat).Loads)
			})
		})
	})
}

func TestLoadValidation(t *testing.T) {
	r, store := newRouter(t)

	cases := []struct {
		name   string
		method string
		body   any
	}{
		{"missing field", http.MethodPost, map[string]any{"volume": 1, "item": "x"}},
		{"carrier is not writable", http.MethodPost, map[string]any{"volume": 1, "item": "x", "carrier": "5"}},
		{"volume must be a number", http.MethodPost, map[string]any{"volume": "big", "item": "x", "creation_date": "d"}},
		{"null item", http.MethodPost, map[string]any{"volume": 1, "item": nil, "creation_date": "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, tc.method, "/loads", tc.body))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest), httputil.MsgAttributeMismatch)
		})
	}

	n, err := store.Count(context.Background(), entity.KindLoad, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	t.Run("patch with carrier rejected", func(t *testing.T) {
		load := createLoad(t, r)
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPatch, "/loads/"+load.ID, map[string]any{"carrier": "1"}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestLoadStatuses(t *testing.T) {
	r, _ := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/loads/123456", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound), "No load with this load_id exists")

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/loads", `{}`, "application/xml")
	testutil.AssertStatus(t, testutil.DoRequest(r, req), http.StatusUnsupportedMediaType)

	req = testutil.NewRequest(t, http.MethodGet, "/loads")
	req.Header.Set("Accept", "image/png")
	testutil.AssertStatus(t, testutil.DoRequest(r, req), http.StatusNotAcceptable)

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodDelete, "/loads"))
	testutil.AssertStatus(t, rr, http.StatusMethodNotAllowed)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestLoadListPages(t *testing.T) {
	r, _ := newRouter(t)
	for range 6 {
		createLoad(t, r)
	}

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/loads", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	page := testutil.UnmarshalResponse[httputil.ListResponse[Response]](t, rr)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 6, page.Total)
	require.NotEmpty(t, page.Next)
	assert.Contains(t, page.Next, "http://example.com/loads?cursor=")
}

func TestLoadMutationsRecordOptionalSubject(t *testing.T) {
	log := logger.Discard()
	store := entity.NewMemory()
	sink := audit.NewMemorySink()
	svc := service.New(store, listing.New(store),
		service.WithLogger(log),
		service.WithAuditPublisher(audit.NewPublisher(sink)),
	)
	verifier := identity.NewLocalVerifier("cargo-test", "marina", "marina")
	r := chi.NewRouter()
	New(svc, access.NewGate(verifier, log), httputil.NewLinks(""), log).Register(r)

	token, err := verifier.Mint("dockmaster", time.Hour)
	require.NoError(t, err)
	body := map[string]any{"volume": 3, "item": "Crates", "creation_date": "2024-05-01"}

	signed := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/loads", body), token)
	testutil.AssertStatus(t, testutil.DoRequest(r, signed), http.StatusCreated)

	anonymous := testutil.NewJSONRequest(t, http.MethodPost, "/loads", body)
	testutil.AssertStatus(t, testutil.DoRequest(r, anonymous), http.StatusCreated)

	forged := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/loads", body), "not-a-jwt")
	testutil.AssertStatus(t, testutil.DoRequest(r, forged), http.StatusCreated)

	events := sink.List()
	require.Len(t, events, 3)
	assert.Equal(t, "dockmaster", events[0].Subject)
	assert.Empty(t, events[1].Subject)
	assert.Empty(t, events[2].Subject)
}
