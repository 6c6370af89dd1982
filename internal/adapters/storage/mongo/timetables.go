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

type timeTableDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	CourseID  primitive.ObjectID `bson:"courseId"`
	Day       string             `bson:"day"`
	StartTime string             `bson:"startTime"`
	EndTime   string             `bson:"endTime"`
	Location  string             `bson:"location,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type timeTableJoinedDoc struct {
	timeTableDoc `bson:",inline"`
	Course       *courseDoc `bson:"course,omitempty"`
}

func (d *timeTableDoc) toDomain() *domain.TimeTableEntry {
	return &domain.TimeTableEntry{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		CourseID:  d.CourseID.Hex(),
		Day:       d.Day,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Location:  d.Location,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (s *Store) ListTimeTables(ctx context.Context) ([]*domain.TimeTableEntry, error) {
	cur, err := s.Collection(CollTimeTables).Find(ctx, bson.M{})
	if err != nil {
		return nil, upstream("mongo ListTimeTables", err)
	}
	defer cur.Close(ctx)

	var docs []timeTableDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListTimeTables decode", err)
	}

	out := make([]*domain.TimeTableEntry, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// ListTimeTablesJoined resolves each entry's course. A dangling courseId
// keeps the row with a nil course.
func (s *Store) ListTimeTablesJoined(ctx context.Context) ([]*domain.TimeTableJoined, error) {
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
	}

	cur, err := s.Collection(CollTimeTables).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, upstream("mongo ListTimeTablesJoined", err)
	}
	defer cur.Close(ctx)

	var docs []timeTableJoinedDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListTimeTablesJoined decode", err)
	}

	out := make([]*domain.TimeTableJoined, 0, len(docs))
	for i := range docs {
		joined := &domain.TimeTableJoined{TimeTableEntry: *docs[i].toDomain()}
		if docs[i].Course != nil {
			joined.Course = docs[i].Course.toDomain()
		}
		out = append(out, joined)
	}
	return out, nil
}

func (s *Store) ListTimeTablesByCourse(ctx context.Context, courseID string) ([]*domain.TimeTableEntry, error) {
	oid, err := objectIDFromHex(courseID, "courseId")
	if err != nil {
		return nil, err
	}

	cur, err := s.Collection(CollTimeTables).Find(
		ctx,
		bson.M{"courseId": oid},
		options.Find().SetSort(bson.D{{Key: "day", Value: 1}, {Key: "startTime", Value: 1}}),
	)
	if err != nil {
		return nil, upstream("mongo ListTimeTablesByCourse", err)
	}
	defer cur.Close(ctx)

	var docs []timeTableDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListTimeTablesByCourse decode", err)
	}

	out := make([]*domain.TimeTableEntry, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) CreateTimeTable(ctx context.Context, e *domain.TimeTableEntry) error {
	courseID, err := objectIDFromHex(e.CourseID, "courseId")
	if err != nil {
		return err
	}

	doc := timeTableDoc{
		UserID:    e.UserID,
		CourseID:  courseID,
		Day:       e.Day,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Location:  e.Location,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}

	res, err := s.Collection(CollTimeTables).InsertOne(ctx, doc)
	if err != nil {
		return upstream("mongo CreateTimeTable", err)
	}
	e.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *Store) UpdateTimeTable(ctx context.Context, id string, fields map[string]any) (*domain.TimeTableEntry, error) {
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

	var doc timeTableDoc
	err = s.Collection(CollTimeTables).FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("timetable entry %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("mongo UpdateTimeTable", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteTimeTable(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id, "id")
	if err != nil {
		return err
	}

	res, err := s.Collection(CollTimeTables).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return upstream("mongo DeleteTimeTable", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("timetable entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
