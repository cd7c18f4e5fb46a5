package docstore

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Firestore backs the Store interface with Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (s *Firestore) Get(ctx context.Context, path string, out any) (bool, error) {
	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", path, err)
	}
	if err := snap.DataTo(out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func (s *Firestore) Set(ctx context.Context, path string, value any) error {
	if _, err := s.client.Doc(path).Set(ctx, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) Update(ctx context.Context, path string, fields map[string]any) error {
	if _, err := s.client.Doc(path).Update(ctx, toUpdates(fields)); err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) Delete(ctx context.Context, path string) error {
	if _, err := s.client.Doc(path).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Batch applies all ops atomically. Firestore transactions give the
// all-or-nothing guarantee the sync engine needs for profile writes.
func (s *Firestore) Batch(ctx context.Context, ops []WriteOp) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, op := range ops {
			ref := s.client.Doc(op.Path)
			switch {
			case op.Delete:
				if err := tx.Delete(ref); err != nil {
					return err
				}
			case op.Fields != nil:
				if err := tx.Update(ref, toUpdates(op.Fields)); err != nil {
					return err
				}
			default:
				if err := tx.Set(ref, op.Value); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}
	return nil
}

func (s *Firestore) Query(ctx context.Context, q Query) ([]Doc, error) {
	iter := s.buildQuery(q).Documents(ctx)
	defer iter.Stop()

	var docs []Doc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query on %s failed: %w", q.Collection, err)
		}
		docs = append(docs, snapshotDoc(snap))
	}
	return docs, nil
}

// Subscribe opens a snapshot listener that re-delivers the full result set on
// every remote change. The returned stop function tears the listener down.
func (s *Firestore) Subscribe(ctx context.Context, q Query, onChange func(docs []Doc)) (func(), error) {
	snaps := s.buildQuery(q).Snapshots(ctx)
	go func() {
		for {
			qs, err := snaps.Next()
			if err != nil {
				if err != iterator.Done {
					log.Printf("docstore: listener on %s stopped: %v", q.Collection, err)
				}
				return
			}
			var docs []Doc
			for {
				snap, err := qs.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("docstore: listener on %s read failed: %v", q.Collection, err)
					return
				}
				docs = append(docs, snapshotDoc(snap))
			}
			onChange(docs)
		}
	}()
	return snaps.Stop, nil
}

func (s *Firestore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(&firestoreTx{client: s.client, tx: tx})
	})
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(path string, out any) (bool, error) {
	snap, err := t.tx.Get(t.client.Doc(path))
	if err != nil {
		if snap != nil && !snap.Exists() {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", path, err)
	}
	if err := snap.DataTo(out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func (t *firestoreTx) Docs(q Query) ([]Doc, error) {
	iter := t.tx.Documents(buildQueryOn(t.client, q))
	defer iter.Stop()

	var docs []Doc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tx query on %s failed: %w", q.Collection, err)
		}
		docs = append(docs, snapshotDoc(snap))
	}
	return docs, nil
}

func (t *firestoreTx) Set(path string, value any) error {
	return t.tx.Set(t.client.Doc(path), value)
}

func (t *firestoreTx) Update(path string, fields map[string]any) error {
	return t.tx.Update(t.client.Doc(path), toUpdates(fields))
}

func (t *firestoreTx) Delete(path string) error {
	return t.tx.Delete(t.client.Doc(path))
}

func (s *Firestore) buildQuery(q Query) firestore.Query {
	return buildQueryOn(s.client, q)
}

func buildQueryOn(client *firestore.Client, q Query) firestore.Query {
	fq := client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

func snapshotDoc(snap *firestore.DocumentSnapshot) Doc {
	return Doc{ID: snap.Ref.ID, decode: snap.DataTo}
}

// toUpdates maps the adapter's sentinel values onto Firestore's native field
// transforms.
func toUpdates(fields map[string]any) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		switch sv := v.(type) {
		case arrayUnionValue:
			updates = append(updates, firestore.Update{Path: k, Value: firestore.ArrayUnion(sv.Values...)})
		case incrementValue:
			updates = append(updates, firestore.Update{Path: k, Value: firestore.Increment(sv.N)})
		case serverTimestampValue:
			updates = append(updates, firestore.Update{Path: k, Value: firestore.ServerTimestamp})
		default:
			updates = append(updates, firestore.Update{Path: k, Value: v})
		}
	}
	return updates
}
