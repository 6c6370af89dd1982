package memory

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// Memory stores mint the same hex ObjectIDs as the mongo backend so the
// malformed-id contract behaves identically across backends.
func newID() string {
	return primitive.NewObjectID().Hex()
}

func validateID(id, field string) (string, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", field, id, domain.ErrInvalidArgument)
	}
	return id, nil
}
