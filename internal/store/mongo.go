package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JonMunkholm/insightdesk/internal/workbook"
)

// Collection names match the layout of existing deployments so their data
// can be served unchanged.
const (
	datasetsCollection = "datasets"
	rowsCollection     = "datarows"
)

// Mongo stores datasets and rows as two collections related by the row's
// dataset field.
type Mongo struct {
	client   *mongo.Client
	datasets *mongo.Collection
	rows     *mongo.Collection
	useTx    bool
	inTx     bool
}

type datasetDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Size      int64              `bson:"size"`
	FilePath  string             `bson:"filePath,omitempty"`
	MimeType  string             `bson:"mimeType"`
	Metadata  Metadata           `bson:"metadata"`
	Version   int                `bson:"version"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type rowDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Dataset  primitive.ObjectID `bson:"dataset"`
	Position int                `bson:"position"`
	Data     bson.M             `bson:"data"`
}

// NewMongo uses database db of an already connected client. When useTx is
// set, WithTx runs inside a session transaction, which needs a replica set.
func NewMongo(ctx context.Context, client *mongo.Client, db string, useTx bool) (*Mongo, error) {
	database := client.Database(db)
	m := &Mongo{
		client:   client,
		datasets: database.Collection(datasetsCollection),
		rows:     database.Collection(rowsCollection),
		useTx:    useTx,
	}

	_, err := m.rows.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "dataset", Value: 1}, {Key: "position", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create row index: %w", err)
	}
	_, err = m.datasets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create dataset index: %w", err)
	}
	return m, nil
}

func (m *Mongo) CreateDataset(ctx context.Context, d Dataset) (Dataset, error) {
	doc := datasetDoc{
		ID:        primitive.NewObjectID(),
		Name:      d.Name,
		Size:      d.Size,
		FilePath:  d.FilePath,
		MimeType:  d.MimeType,
		Metadata:  d.Metadata,
		Version:   1,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	doc.Metadata.Columns = nonNil(doc.Metadata.Columns)

	if _, err := m.datasets.InsertOne(ctx, doc); err != nil {
		return Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return doc.toDataset(), nil
}

func (m *Mongo) GetDataset(ctx context.Context, id string) (Dataset, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Dataset{}, ErrNotFound
	}

	var doc datasetDoc
	err = m.datasets.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Dataset{}, ErrNotFound
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return doc.toDataset(), nil
}

func (m *Mongo) ListDatasets(ctx context.Context) ([]Dataset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.datasets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	var docs []datasetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	out := make([]Dataset, len(docs))
	for i, doc := range docs {
		out[i] = doc.toDataset()
	}
	return out, nil
}

func (m *Mongo) UpdateDatasetSchema(ctx context.Context, id string, columns []string, totalRows, expectedVersion int) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrNotFound
	}

	filter := bson.M{"_id": oid}
	if expectedVersion != 0 {
		filter["version"] = expectedVersion
	}
	update := bson.M{
		"$set": bson.M{
			"metadata.columns":   nonNil(columns),
			"metadata.totalRows": totalRows,
		},
		"$inc": bson.M{"version": 1},
	}

	var doc datasetDoc
	err = m.datasets.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := m.GetDataset(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, ErrVersionMismatch
	}
	if err != nil {
		return 0, fmt.Errorf("update dataset schema: %w", err)
	}
	return doc.Version, nil
}

func (m *Mongo) DeleteDataset(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.datasets.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) InsertRows(ctx context.Context, datasetID string, offset int, rows []workbook.Row) error {
	oid, err := primitive.ObjectIDFromHex(datasetID)
	if err != nil {
		return ErrNotFound
	}
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, len(rows))
	for i, r := range rows {
		docs[i] = rowDoc{Dataset: oid, Position: offset + i, Data: toBSON(r)}
	}
	if _, err := m.rows.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	return nil
}

func (m *Mongo) FetchRows(ctx context.Context, datasetID string, skip, limit int) ([]workbook.Row, error) {
	oid, err := primitive.ObjectIDFromHex(datasetID)
	if err != nil {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		return []workbook.Row{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(max(skip, 0))).
		SetLimit(int64(limit))
	cur, err := m.rows.Find(ctx, bson.M{"dataset": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}

	var docs []rowDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}

	out := make([]workbook.Row, len(docs))
	for i, doc := range docs {
		out[i] = fromBSON(doc.Data)
	}
	return out, nil
}

func (m *Mongo) DeleteRows(ctx context.Context, datasetID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(datasetID)
	if err != nil {
		return 0, ErrNotFound
	}
	res, err := m.rows.DeleteMany(ctx, bson.M{"dataset": oid})
	if err != nil {
		return 0, fmt.Errorf("delete rows: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) CountRows(ctx context.Context, datasetID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(datasetID)
	if err != nil {
		return 0, ErrNotFound
	}
	n, err := m.rows.CountDocuments(ctx, bson.M{"dataset": oid})
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// WithTx uses a session transaction when enabled. Without one, fn runs
// directly and the caller's write ordering is the only guarantee.
func (m *Mongo) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	if !m.useTx || m.inTx {
		return fn(ctx, m)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	inner := *m
	inner.inTx = true

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &inner)
	})
	return err
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (d datasetDoc) toDataset() Dataset {
	out := Dataset{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Size:      d.Size,
		FilePath:  d.FilePath,
		MimeType:  d.MimeType,
		Metadata:  d.Metadata,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
	}
	out.Metadata.Columns = nonNil(out.Metadata.Columns)
	return out
}

func toBSON(r workbook.Row) bson.M {
	out := make(bson.M, len(r))
	for k, v := range r {
		out[k] = v.Any()
	}
	return out
}

func fromBSON(doc bson.M) workbook.Row {
	out := make(workbook.Row, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case primitive.DateTime:
			out[k] = workbook.Text(t.Time().UTC().Format(time.RFC3339))
		case primitive.Decimal128:
			out[k] = workbook.Text(t.String())
		default:
			out[k] = workbook.FromAny(v)
		}
	}
	return out
}
