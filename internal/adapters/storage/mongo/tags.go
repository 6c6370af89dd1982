package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type tagDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Title     string             `bson:"title"`
	Color     string             `bson:"color,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *tagDoc) toDomain() *domain.Tag {
	return &domain.Tag{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Title:     d.Title,
		Color:     d.Color,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	cur, err := s.Collection(CollTags).Find(ctx, bson.M{})
	if err != nil {
		return nil, upstream("mongo ListTags", err)
	}
	defer cur.Close(ctx)

	var docs []tagDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListTags decode", err)
	}

	out := make([]*domain.Tag, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return nil, err
	}

	var doc tagDoc
	err = s.Collection(CollTags).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, upstream("mongo GetTag", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	doc := tagDoc{
		UserID:    t.UserID,
		Title:     t.Title,
		Color:     t.Color,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}

	res, err := s.Collection(CollTags).InsertOne(ctx, doc)
	if err != nil {
		return upstream("mongo CreateTag", err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *Store) UpdateTag(ctx context.Context, id string, fields map[string]any) (*domain.Tag, error) {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	var doc tagDoc
	err = s.Collection(CollTags).FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("mongo UpdateTag", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return err
	}

	res, err := s.Collection(CollTags).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return upstream("mongo DeleteTag", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
