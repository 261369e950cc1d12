package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"marina/pkg/platform/sentinel"
)

// datastoreIndexed are the only properties queries filter on. Everything else
// is stored unindexed, so free text is not bound by the 1500-byte limit on
// indexed strings.
var datastoreIndexed = map[string]bool{
	"owner":   true,
	"carrier": true,
	"user_id": true,
}

// DatastoreStore keeps entities in Google Cloud Datastore, one Datastore kind
// per entity kind, with Datastore-allocated numeric ids.
type DatastoreStore struct {
	client *datastore.Client
}

// NewDatastore wraps an existing client.
func NewDatastore(client *datastore.Client) *DatastoreStore {
	return &DatastoreStore{client: client}
}

// OpenDatastore dials Datastore for projectID using application default
// credentials (or DATASTORE_EMULATOR_HOST when set).
func OpenDatastore(ctx context.Context, projectID string) (*DatastoreStore, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return NewDatastore(client), nil
}

// Close releases the underlying client.
func (s *DatastoreStore) Close() error {
	return s.client.Close()
}

func (s *DatastoreStore) Create(ctx context.Context, kind Kind, props Props) (int64, error) {
	pl := toPropertyList(props)
	key, err := s.client.Put(ctx, datastore.IncompleteKey(string(kind), nil), &pl)
	if err != nil {
		return 0, fmt.Errorf("datastore put %s: %w", kind, err)
	}
	return key.ID, nil
}

func (s *DatastoreStore) Get(ctx context.Context, kind Kind, id int64) (Entity, error) {
	var pl datastore.PropertyList
	if err := s.client.Get(ctx, datastore.IDKey(string(kind), id, nil), &pl); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return Entity{}, fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
		}
		return Entity{}, fmt.Errorf("datastore get %s %d: %w", kind, id, err)
	}
	return Entity{Kind: kind, ID: id, Props: fromPropertyList(pl)}, nil
}

// Update replaces the record's content. It is an update mutation, not a put,
// so a record deleted in the meantime stays deleted and ErrNotFound is
// returned.
func (s *DatastoreStore) Update(ctx context.Context, kind Kind, id int64, props Props) error {
	pl := toPropertyList(props)
	key := datastore.IDKey(string(kind), id, nil)
	if _, err := s.client.Mutate(ctx, datastore.NewUpdate(key, &pl)); err != nil {
		return updateError(kind, id, err)
	}
	return nil
}

func updateError(kind Kind, id int64, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %d: %w", kind, id, sentinel.ErrNotFound)
	}
	return fmt.Errorf("datastore update %s %d: %w", kind, id, err)
}

func (s *DatastoreStore) Delete(ctx context.Context, kind Kind, id int64) error {
	if err := s.client.Delete(ctx, datastore.IDKey(string(kind), id, nil)); err != nil {
		return fmt.Errorf("datastore delete %s %d: %w", kind, id, err)
	}
	return nil
}

// Query overfetches by one to learn whether another page exists; the cursor
// returned points just after the last entity of this page.
func (s *DatastoreStore) Query(ctx context.Context, q Query) (Page, error) {
	dq := datastore.NewQuery(string(q.Kind))
	if q.Filter != nil {
		dq = dq.FilterField(q.Filter.Field, "=", q.Filter.Value)
	}
	if q.Cursor != "" {
		c, err := datastore.DecodeCursor(q.Cursor)
		if err != nil {
			return Page{}, fmt.Errorf("decode cursor: %w", sentinel.ErrInvalidCursor)
		}
		dq = dq.Start(c)
	}
	if q.Limit > 0 {
		dq = dq.Limit(q.Limit + 1)
	}

	page := Page{Entities: []Entity{}}
	it := s.client.Run(ctx, dq)
	var last datastore.Cursor
	for {
		var pl datastore.PropertyList
		key, err := it.Next(&pl)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return Page{}, fmt.Errorf("datastore query %s: %w", q.Kind, err)
		}
		if q.Limit > 0 && len(page.Entities) == q.Limit {
			page.Next = last.String()
			break
		}
		page.Entities = append(page.Entities, Entity{Kind: q.Kind, ID: key.ID, Props: fromPropertyList(pl)})
		if last, err = it.Cursor(); err != nil {
			return Page{}, fmt.Errorf("datastore cursor %s: %w", q.Kind, err)
		}
	}
	return page, nil
}

// Count runs a keys-only query with the same filter.
func (s *DatastoreStore) Count(ctx context.Context, kind Kind, filter *Filter) (int, error) {
	dq := datastore.NewQuery(string(kind)).KeysOnly()
	if filter != nil {
		dq = dq.FilterField(filter.Field, "=", filter.Value)
	}
	n, err := s.client.Count(ctx, dq)
	if err != nil {
		return 0, fmt.Errorf("datastore count %s: %w", kind, err)
	}
	return n, nil
}

func toPropertyList(props Props) datastore.PropertyList {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	pl := make(datastore.PropertyList, 0, len(props))
	for _, name := range names {
		v := props[name]
		if list, ok := v.([]string); ok {
			items := make([]any, len(list))
			for i, s := range list {
				items[i] = s
			}
			v = items
		}
		pl = append(pl, datastore.Property{Name: name, Value: v, NoIndex: !datastoreIndexed[name]})
	}
	return pl
}

func fromPropertyList(pl datastore.PropertyList) Props {
	props := make(Props, len(pl))
	for _, p := range pl {
		switch v := p.Value.(type) {
		case int64:
			props[p.Name] = float64(v)
		default:
			props[p.Name] = v
		}
	}
	return normalize(props)
}
