// Package artifacts persists trained model bundles in an embedded bolt database.
package artifacts

import (
	"bytes"
	"context"
	"encoding/gob"
	errs "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"

	"github.com/vanshika/txflag/internal/features"
	"github.com/vanshika/txflag/internal/model"
)

// ErrNotFound is returned when no bundle matches the request.
var ErrNotFound = errs.New("artifacts: bundle not found")

var (
	bundlesBucket = []byte("bundles")
	metaBucket    = []byte("meta")
	latestKey     = []byte("latest")
)

const (
	dirPerm     = 0o750
	filePerm    = 0o600
	openTimeout = 5 * time.Second
)

// Bundle is everything needed to score a transaction later.
type Bundle struct {
	ID           string
	CreatedAt    time.Time
	FeatureNames []string
	Features     features.Config
	Scaler       model.StandardScaler
	Forest       model.RandomForest
	Report       model.Report
	Importances  []model.FeatureImportance
	TrainRows    int
	TestRows     int
}

// Store wraps the bolt database holding bundles.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store at path. A read-only store shares the
// file lock with other readers.
func Open(path string, readOnly bool) (*Store, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return nil, errors.Wrap(err, "create artifact dir")
		}
	}
	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout, ReadOnly: readOnly})
	if err != nil {
		return nil, errors.Wrapf(err, "open artifact store %s", path)
	}
	s := &Store{db: db}
	if readOnly {
		return s, nil
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bundlesBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create buckets")
	}
	return s, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores b under a fresh id, marks it latest and returns the id.
func (s *Store) Save(ctx context.Context, b Bundle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", errors.Wrap(err, "generate bundle id")
	}
	b.ID = id
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return "", errors.Wrap(err, "encode bundle")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bundlesBucket).Put([]byte(id), buf.Bytes()); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(latestKey, []byte(id))
	})
	if err != nil {
		return "", errors.Wrapf(err, "save bundle %s", id)
	}
	return id, nil
}

// Get loads the bundle stored under id.
func (s *Store) Get(ctx context.Context, id string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bundlesBucket)
		if bucket == nil {
			return ErrNotFound
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var b Bundle
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&b); err != nil {
		return nil, errors.Wrapf(err, "decode bundle %s", id)
	}
	return &b, nil
}

// Latest loads the most recently saved bundle.
func (s *Store) Latest(ctx context.Context) (*Bundle, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(metaBucket)
		if bucket == nil {
			return ErrNotFound
		}
		v := bucket.Get(latestKey)
		if v == nil {
			return ErrNotFound
		}
		id = string(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// IDs lists stored bundle ids in key order.
func (s *Store) IDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bundlesBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}
