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

type courseDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Name        string             `bson:"name"`
	Short       string             `bson:"short,omitempty"`
	Code        string             `bson:"code,omitempty"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *courseDoc) toDomain() *domain.Course {
	return &domain.Course{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Name:        d.Name,
		Short:       d.Short,
		Code:        d.Code,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (s *Store) ListCourses(ctx context.Context) ([]*domain.Course, error) {
	cur, err := s.Collection(CollCourses).Find(ctx, bson.M{})
	if err != nil {
		return nil, upstream("mongo ListCourses", err)
	}
	defer cur.Close(ctx)

	var docs []courseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListCourses decode", err)
	}

	out := make([]*domain.Course, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return nil, err
	}

	var doc courseDoc
	err = s.Collection(CollCourses).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, upstream("mongo GetCourse", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) CreateCourse(ctx context.Context, c *domain.Course) error {
	doc := courseDoc{
		UserID:      c.UserID,
		Name:        c.Name,
		Short:       c.Short,
		Code:        c.Code,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}

	res, err := s.Collection(CollCourses).InsertOne(ctx, doc)
	if err != nil {
		return upstream("mongo CreateCourse", err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *Store) UpdateCourse(ctx context.Context, id string, fields map[string]any) (*domain.Course, error) {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	var doc courseDoc
	err = s.Collection(CollCourses).FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("mongo UpdateCourse", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return err
	}

	res, err := s.Collection(CollCourses).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return upstream("mongo DeleteCourse", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
