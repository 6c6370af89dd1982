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

// tagId stays a string: in enum tag mode it is one of the fixed tag names,
// in collection mode the hex id of a tags document. Storing the string in
// both modes keeps documents valid across a mode switch.
type scheduleDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	CourseID    primitive.ObjectID `bson:"courseId"`
	Date        time.Time          `bson:"date"`
	TagID       string             `bson:"tagId"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type scheduleJoinedDoc struct {
	scheduleDoc `bson:",inline"`
	Course      *courseDoc `bson:"course,omitempty"`
	Tag         *tagDoc    `bson:"tag,omitempty"`
}

func (d *scheduleDoc) toDomain() *domain.Schedule {
	return &domain.Schedule{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		CourseID:    d.CourseID.Hex(),
		Date:        d.Date,
		TagID:       d.TagID,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func scheduleFilterToBSON(f domain.ScheduleFilter) (bson.M, error) {
	filter := bson.M{}

	if f.CourseID != "" {
		oid, err := objectIDFromHex(f.CourseID, "courseId")
		if err != nil {
			return nil, err
		}
		filter["courseId"] = oid
	}
	if f.TagID != "" {
		filter["tagId"] = f.TagID
	}
	if f.Date != nil {
		filter["date"] = *f.Date
	}
	if f.StartDate != nil || f.EndDate != nil {
		rng := bson.M{}
		if f.StartDate != nil {
			rng["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			rng["$lte"] = *f.EndDate
		}
		filter["date"] = rng
	}
	if f.Before != nil {
		filter["date"] = bson.M{"$lt": *f.Before}
	}

	return filter, nil
}

func (s *Store) ListSchedules(ctx context.Context, f domain.ScheduleFilter) ([]*domain.Schedule, error) {
	filter, err := scheduleFilterToBSON(f)
	if err != nil {
		return nil, err
	}

	cur, err := s.Collection(CollSchedules).Find(
		ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, upstream("mongo ListSchedules", err)
	}
	defer cur.Close(ctx)

	var docs []scheduleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListSchedules decode", err)
	}

	out := make([]*domain.Schedule, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// ListSchedulesJoined resolves course and tag for every schedule. The tag
// lookup matches on the stringified tag _id so it works in both tag modes;
// dangling references keep the row with nil join targets.
func (s *Store) ListSchedulesJoined(ctx context.Context) ([]*domain.ScheduleJoined, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         CollCourses,
			"localField":   "courseId",
			"foreignField": "_id",
			"as":           "course",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$course",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": CollTags,
			"let":  bson.M{"tid": "$tagId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{
					"$eq": bson.A{bson.M{"$toString": "$_id"}, "$$tid"},
				}}},
			},
			"as": "tag",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$tag",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}}}},
	}

	cur, err := s.Collection(CollSchedules).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, upstream("mongo ListSchedulesJoined", err)
	}
	defer cur.Close(ctx)

	var docs []scheduleJoinedDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListSchedulesJoined decode", err)
	}

	out := make([]*domain.ScheduleJoined, 0, len(docs))
	for i := range docs {
		joined := &domain.ScheduleJoined{Schedule: *docs[i].toDomain()}
		if docs[i].Course != nil {
			joined.Course = docs[i].Course.toDomain()
		}
		if docs[i].Tag != nil {
			joined.Tag = docs[i].Tag.toDomain()
		}
		out = append(out, joined)
	}
	return out, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return nil, err
	}

	var doc scheduleDoc
	err = s.Collection(CollSchedules).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, upstream("mongo GetSchedule", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) CreateSchedule(ctx context.Context, sch *domain.Schedule) error {
	courseID, err := objectIDFromHex(sch.CourseID, "courseId")
	if err != nil {
		return err
	}

	doc := scheduleDoc{
		UserID:      sch.UserID,
		CourseID:    courseID,
		Date:        sch.Date,
		TagID:       sch.TagID,
		Description: sch.Description,
		CreatedAt:   sch.CreatedAt,
		UpdatedAt:   sch.UpdatedAt,
	}

	res, err := s.Collection(CollSchedules).InsertOne(ctx, doc)
	if err != nil {
		return upstream("mongo CreateSchedule", err)
	}
	sch.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *Store) UpdateSchedule(ctx context.Context, id string, fields map[string]any) (*domain.Schedule, error) {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for k, v := range fields {
		if k == "courseId" {
			if hex, ok := v.(string); ok {
				courseID, err := objectIDFromHex(hex, "courseId")
				if err != nil {
					return nil, err
				}
				set[k] = courseID
				continue
			}
		}
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	var doc scheduleDoc
	err = s.Collection(CollSchedules).FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("mongo UpdateSchedule", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return err
	}

	res, err := s.Collection(CollSchedules).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return upstream("mongo DeleteSchedule", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
