package mongostore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// Collection names in the vstudent database.
const (
	CollUsers         = "users"
	CollStudents      = "students"
	CollCourses       = "courses"
	CollTags          = "tags"
	CollTimeTables    = "weekly_time_tables"
	CollSchedules     = "schedules"
	CollConversations = "conversations"
)

// Store is the persistence gateway: one client shared for the process
// lifetime, closed from main on shutdown. It implements every storage port
// in domain plus the raw passthrough executor.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB. The first caller pays connection latency;
// the client is reused afterwards.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if dbName == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close tears the shared client down.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection returns a handle to a named collection.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// CollectionNames lists the database's collections.
func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, upstream("mongo CollectionNames", err)
	}
	return names, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
}

// objectIDFromHex parses a caller-supplied identifier, wrapping
// ErrInvalidArgument on malformed input so the HTTP layer maps it to 400.
func objectIDFromHex(id, field string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s %q: %w", field, id, domain.ErrInvalidArgument)
	}
	return oid, nil
}

// SerializeDocument converts a raw stored document into a transport-safe
// form: opaque binary identifiers become hex strings, native timestamps
// become RFC3339 strings. The conversion is shallow (top-level fields plus
// one level into arrays) and idempotent.
func SerializeDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case primitive.ObjectID:
			out[k] = val.Hex()
		case primitive.DateTime:
			out[k] = val.Time().UTC().Format(time.RFC3339)
		case time.Time:
			out[k] = val.UTC().Format(time.RFC3339)
		case []any:
			items := make([]any, len(val))
			for i, item := range val {
				items[i] = serializeValue(item)
			}
			out[k] = items
		case primitive.A:
			items := make([]any, len(val))
			for i, item := range val {
				items[i] = serializeValue(item)
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

func serializeValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// ExecuteRaw runs a passthrough query verbatim against a named collection.
// Insert operations read the document(s) from the Filter field; that is the
// wire contract the model's function catalog was written against.
func (s *Store) ExecuteRaw(ctx context.Context, q domain.RawQuery) (any, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("collection name is required: %w", domain.ErrInvalidArgument)
	}
	coll := s.Collection(q.Collection)

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	switch strings.ToLower(q.Operation) {
	case "find":
		filter := q.Filter
		if filter == nil {
			filter = bson.M{}
		}
		opts := options.Find().SetLimit(limit)
		if q.Sort != nil {
			opts.SetSort(q.Sort)
		}
		cur, err := coll.Find(ctx, filter, opts)
		if err != nil {
			return nil, upstream("mongo raw find", err)
		}
		return decodeAndSerialize(ctx, cur)

	case "aggregate":
		if q.Pipeline == nil {
			return nil, fmt.Errorf("pipeline is required for aggregate operation: %w", domain.ErrInvalidArgument)
		}
		cur, err := coll.Aggregate(ctx, q.Pipeline)
		if err != nil {
			return nil, upstream("mongo raw aggregate", err)
		}
		return decodeAndSerialize(ctx, cur)

	case "insertone":
		if q.Filter == nil {
			return nil, fmt.Errorf("document to insert is required: %w", domain.ErrInvalidArgument)
		}
		res, err := coll.InsertOne(ctx, q.Filter)
		if err != nil {
			return nil, upstream("mongo raw insertOne", err)
		}
		return SerializeDocument(bson.M{"insertedId": res.InsertedID}), nil

	case "insertmany":
		docs, ok := q.Filter.([]any)
		if !ok {
			return nil, fmt.Errorf("array of documents is required for insertMany: %w", domain.ErrInvalidArgument)
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return nil, upstream("mongo raw insertMany", err)
		}
		return SerializeDocument(bson.M{"insertedIds": res.InsertedIDs}), nil

	case "updateone", "updatemany":
		if q.Update == nil {
			return nil, fmt.Errorf("update document is required for update operation: %w", domain.ErrInvalidArgument)
		}
		filter := q.Filter
		if filter == nil {
			filter = bson.M{}
		}
		var (
			res *mongo.UpdateResult
			err error
		)
		if strings.ToLower(q.Operation) == "updateone" {
			res, err = coll.UpdateOne(ctx, filter, q.Update)
		} else {
			res, err = coll.UpdateMany(ctx, filter, q.Update)
		}
		if err != nil {
			return nil, upstream("mongo raw update", err)
		}
		return SerializeDocument(bson.M{
			"matchedCount":  res.MatchedCount,
			"modifiedCount": res.ModifiedCount,
			"upsertedId":    res.UpsertedID,
		}), nil

	case "deleteone", "deletemany":
		filter := q.Filter
		if filter == nil {
			filter = bson.M{}
		}
		var (
			res *mongo.DeleteResult
			err error
		)
		if strings.ToLower(q.Operation) == "deleteone" {
			res, err = coll.DeleteOne(ctx, filter)
		} else {
			res, err = coll.DeleteMany(ctx, filter)
		}
		if err != nil {
			return nil, upstream("mongo raw delete", err)
		}
		return map[string]any{"deletedCount": res.DeletedCount}, nil

	default:
		return nil, fmt.Errorf(
			"invalid operation %q, supported: find, aggregate, insertOne, insertMany, updateOne, updateMany, deleteOne, deleteMany: %w",
			q.Operation, domain.ErrInvalidArgument)
	}
}

func decodeAndSerialize(ctx context.Context, cur *mongo.Cursor) ([]map[string]any, error) {
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo decode", err)
	}

	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, SerializeDocument(doc))
	}
	return out, nil
}
