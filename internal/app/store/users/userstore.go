package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tutorhub/internal/app/system/normalize"
	"github.com/dalemusser/tutorhub/internal/app/system/paging"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"tutor"|"user"`)
)

// summaryProjection selects the public fields of a user.
var summaryProjection = bson.M{"_id": 1, "full_name": 1, "email": 1, "role": 1}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing fields. When u.Role is empty
// the role is assigned: the very first account becomes admin, everyone
// after that is a plain user.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)

	if u.Role == "" {
		n, err := s.c.CountDocuments(ctx, bson.M{}, options.Count().SetLimit(1))
		if err != nil {
			return models.User{}, err
		}
		if n == 0 {
			u.Role = models.RoleAdmin
		} else {
			u.Role = models.RoleUser
		}
	}
	u.Role = normalize.Role(u.Role)
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// SetRole changes a user's role and returns the user as it was before.
// Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) (*models.User, error) {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return nil, errBadRole
	}
	var before models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// Summaries returns the public summaries of the given users keyed by id.
// Unknown ids are simply absent from the map.
func (s *Store) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(summaryProjection),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var us models.UserSummary
		if err := cur.Decode(&us); err != nil {
			return nil, err
		}
		out[us.ID] = us
	}
	return out, cur.Err()
}

// Emails returns the email addresses of the given users, in no particular order.
func (s *Store) Emails(ctx context.Context, ids []primitive.ObjectID) ([]string, error) {
	sums, err := s.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sums))
	for _, us := range sums {
		if us.Email != "" {
			out = append(out, us.Email)
		}
	}
	return out, nil
}

// CountAdmins returns how many users hold the admin role.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": models.RoleAdmin})
}

// ListFilter narrows List. Search is a prefix match on the folded name or
// the email.
type ListFilter struct {
	Role   string
	Search string
}

// List returns one page of user summaries ordered by name, plus the total
// match count.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.UserSummary, int64, error) {
	filter := bson.M{}
	if role := normalize.Role(f.Role); models.IsValidRole(role) {
		filter["role"] = role
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		fold := text.Fold(q)
		email := strings.ToLower(q)
		filter["$or"] = []bson.M{
			{"full_name_ci": bson.M{"$gte": fold, "$lt": fold + "\uffff"}},
			{"email": bson.M{"$gte": email, "$lt": email + "\uffff"}},
		}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := s.c.Find(ctx, filter, options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit)))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := make([]models.UserSummary, 0, p.Limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
