package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type functionCallDoc struct {
	Name string         `bson:"name"`
	Args map[string]any `bson:"args"`
}

type functionResultDoc struct {
	Output string `bson:"output"`
	Error  string `bson:"error,omitempty"`
}

type functionResponseDoc struct {
	Name     string            `bson:"name"`
	Response functionResultDoc `bson:"response"`
}

type partDoc struct {
	Text             string               `bson:"text,omitempty"`
	FunctionCall     *functionCallDoc     `bson:"functionCall,omitempty"`
	FunctionResponse *functionResponseDoc `bson:"functionResponse,omitempty"`
}

type messageDoc struct {
	Role  string    `bson:"role"`
	Parts []partDoc `bson:"parts"`
}

type conversationDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ConversationID string             `bson:"conversationId"`
	UserID         string             `bson:"userId"`
	StudentID      string             `bson:"studentId,omitempty"`
	Messages       []messageDoc       `bson:"messages"`
	Summary        string             `bson:"summary"`
	Completed      bool               `bson:"completed"`
	Status         string             `bson:"status,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func messagesToDocs(msgs []domain.Message) []messageDoc {
	out := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		doc := messageDoc{Role: string(m.Role)}
		for _, p := range m.Parts {
			part := partDoc{Text: p.Text}
			if p.FunctionCall != nil {
				part.FunctionCall = &functionCallDoc{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args}
			}
			if p.FunctionResponse != nil {
				part.FunctionResponse = &functionResponseDoc{
					Name: p.FunctionResponse.Name,
					Response: functionResultDoc{
						Output: p.FunctionResponse.Response.Output,
						Error:  p.FunctionResponse.Response.Error,
					},
				}
			}
			doc.Parts = append(doc.Parts, part)
		}
		out = append(out, doc)
	}
	return out
}

func messagesToDomain(docs []messageDoc) []domain.Message {
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		msg := domain.Message{Role: domain.Role(d.Role)}
		for _, p := range d.Parts {
			part := domain.Part{Text: p.Text}
			if p.FunctionCall != nil {
				part.FunctionCall = &domain.FunctionCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args}
			}
			if p.FunctionResponse != nil {
				part.FunctionResponse = &domain.FunctionResponse{
					Name: p.FunctionResponse.Name,
					Response: domain.FunctionResult{
						Output: p.FunctionResponse.Response.Output,
						Error:  p.FunctionResponse.Response.Error,
					},
				}
			}
			msg.Parts = append(msg.Parts, part)
		}
		out = append(out, msg)
	}
	return out
}

func (d *conversationDoc) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:             d.ID.Hex(),
		ConversationID: d.ConversationID,
		UserID:         d.UserID,
		StudentID:      d.StudentID,
		Messages:       messagesToDomain(d.Messages),
		Summary:        d.Summary,
		Completed:      d.Completed,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (s *Store) SaveConversation(ctx context.Context, conversationID string, messages []domain.Message, completed bool) error {
	now := time.Now().UTC()

	_, err := s.Collection(CollConversations).UpdateOne(
		ctx,
		bson.M{"conversationId": conversationID},
		bson.M{
			"$set": bson.M{
				"messages":  messagesToDocs(messages),
				"completed": completed,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{
				"userId":    domain.SystemUserID,
				"studentId": domain.SystemStudentID,
				"createdAt": now,
				"summary":   "",
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return upstream("mongo SaveConversation", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var doc conversationDoc
	err := s.Collection(CollConversations).FindOne(ctx, bson.M{"conversationId": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, upstream("mongo GetConversation", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) IncompleteConversation(ctx context.Context) (*domain.Conversation, error) {
	var doc conversationDoc
	err := s.Collection(CollConversations).FindOne(
		ctx,
		bson.M{
			"userId":    domain.SystemUserID,
			"completed": false,
			"status":    bson.M{"$ne": domain.StatusIgnored},
		},
		options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, upstream("mongo IncompleteConversation", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListConversations(ctx context.Context, completed bool, limit int) ([]*domain.Conversation, error) {
	filter := bson.M{
		"userId":    domain.SystemUserID,
		"completed": completed,
		"status":    bson.M{"$ne": domain.StatusIgnored},
	}
	return s.findConversations(ctx, filter, limit)
}

func (s *Store) ListInteractions(ctx context.Context, fromOthers bool, limit int) ([]*domain.Conversation, error) {
	filter := bson.M{"completed": true}
	if fromOthers {
		filter["userId"] = bson.M{"$ne": domain.SystemUserID}
	} else {
		filter["userId"] = domain.SystemUserID
	}
	return s.findConversations(ctx, filter, limit)
}

func (s *Store) findConversations(ctx context.Context, filter bson.M, limit int) ([]*domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.Collection(CollConversations).Find(ctx, filter, opts)
	if err != nil {
		return nil, upstream("mongo ListConversations", err)
	}
	defer cur.Close(ctx)

	var docs []conversationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, upstream("mongo ListConversations decode", err)
	}

	out := make([]*domain.Conversation, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) IgnoreOpenConversations(ctx context.Context) (int64, error) {
	res, err := s.Collection(CollConversations).UpdateMany(
		ctx,
		bson.M{
			"userId":    domain.SystemUserID,
			"completed": false,
			"status":    bson.M{"$ne": domain.StatusIgnored},
		},
		bson.M{"$set": bson.M{
			"status":    domain.StatusIgnored,
			"updatedAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, upstream("mongo IgnoreOpenConversations", err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) InsertConversation(ctx context.Context, conv *domain.Conversation) error {
	doc := conversationDoc{
		ConversationID: conv.ConversationID,
		UserID:         conv.UserID,
		StudentID:      conv.StudentID,
		Messages:       messagesToDocs(conv.Messages),
		Summary:        conv.Summary,
		Completed:      conv.Completed,
		Status:         conv.Status,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}

	res, err := s.Collection(CollConversations).InsertOne(ctx, doc)
	if err != nil {
		return upstream("mongo InsertConversation", err)
	}
	conv.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}
