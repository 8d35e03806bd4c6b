package mongo

import (
	"context"
	"fmt"
	"time"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	Avatar         string    `bson:"avatar"`
	Role           string    `bson:"role"`
	HashedPassword string    `bson:"hashedPassword"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// SaveUser creates or updates a user
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	if existing, err := s.GetUserByEmail(ctx, user.Email); err == nil && existing.ID != user.ID {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "User already exists: "+user.Email, nil)
	}

	doc := UserDocument{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Avatar:         user.Avatar,
		Role:           user.Role,
		HashedPassword: user.HashedPassword,
		CreatedAt:      user.CreatedAt,
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": user.ID}
	update := bson.M{"$set": doc}

	_, err := s.Users.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var doc UserDocument

	err := s.Users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}

	return doc.toModel(), nil
}

// GetUserByEmail retrieves a user by email address
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc UserDocument

	err := s.Users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %v", err)
	}

	return doc.toModel(), nil
}

func (doc *UserDocument) toModel() *models.User {
	return &models.User{
		ID:             doc.ID,
		Name:           doc.Name,
		Email:          doc.Email,
		Avatar:         doc.Avatar,
		Role:           doc.Role,
		HashedPassword: doc.HashedPassword,
		CreatedAt:      doc.CreatedAt,
	}
}
