// internal/app/store/materials/materialstore.go
package materialstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/tutorhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateTitle is returned when the unique (subject, title_ci) index
// rejects a write for an active material.
var ErrDuplicateTitle = errors.New("a material with this title already exists for this subject")

// ValidationError is a field-level rejection, either from Create/Update's
// own checks or from the collection's $jsonSchema validator.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// TitleKey is the title_ci value for title: trimmed and lowercased.
// Accents are kept, so "Café" and "Cafe" are different titles.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("materials")}
}

// Create inserts a new Material. It assigns ID and TitleCI, defaults Status to
// active, zeroes Metrics, empties LikedBy, and stamps timestamps. Callers are
// expected to have normalized Subject and Tags already.
func (s *Store) Create(ctx context.Context, m models.Material) (models.Material, error) {
	now := time.Now().UTC()

	m.ID = primitive.NewObjectID()
	m.TitleCI = TitleKey(m.Title)
	if m.Status == "" {
		m.Status = models.MaterialStatusActive
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	m.Metrics = models.MaterialMetrics{}
	m.LikedBy = []primitive.ObjectID{}
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := validate(m); err != nil {
		return models.Material{}, err
	}

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Material{}, mapWriteErr(err)
	}
	return m, nil
}

func validate(m models.Material) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(m.Title)); n < models.MaterialTitleMin || n > models.MaterialTitleMax {
		return invalid("Title must be between %d and %d characters", models.MaterialTitleMin, models.MaterialTitleMax)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(m.Description)); n < models.MaterialDescriptionMin || n > models.MaterialDescriptionMax {
		return invalid("Description must be between %d and %d characters", models.MaterialDescriptionMin, models.MaterialDescriptionMax)
	}
	if m.Subject == "" || utf8.RuneCountInString(m.Subject) > models.MaterialSubjectMax {
		return invalid("Subject is required and must be at most %d characters", models.MaterialSubjectMax)
	}
	if utf8.RuneCountInString(m.Grade) > models.MaterialGradeMax {
		return invalid("Grade must be at most %d characters", models.MaterialGradeMax)
	}
	if err := validateTags(m.Tags); err != nil {
		return err
	}
	if !urlutil.IsValidAbsHTTPURL(m.FileURL) {
		return invalid("File URL must be a valid http(s) URL")
	}
	if m.UploadedBy.IsZero() {
		return invalid("Uploader is required")
	}
	if !models.IsValidMaterialStatus(m.Status) {
		return invalid("Status must be one of: %s", strings.Join(models.MaterialStatuses, ", "))
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > models.MaterialTagsMax {
		return invalid("A material can have at most %d tags", models.MaterialTagsMax)
	}
	for _, t := range tags {
		if t == "" || utf8.RuneCountInString(t) > models.MaterialTagMax {
			return invalid("Each tag must be between 1 and %d characters", models.MaterialTagMax)
		}
	}
	return nil
}

func mapWriteErr(err error) error {
	if wafflemongo.IsDup(err) {
		return ErrDuplicateTitle
	}
	if isDocValidationErr(err) {
		return invalid("Material failed schema validation")
	}
	return err
}

// isDocValidationErr reports Mongo's DocumentValidationFailure (code 121).
func isDocValidationErr(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 121 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == 121
}

// TitleExists reports whether an active material in subject already has
// title, compared case-insensitively. The title is escaped so it is always
// matched literally. exclude (if non-nil) is skipped, for updates.
func (s *Store) TitleExists(ctx context.Context, title, subject string, exclude *primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"subject": subject,
		"status":  models.MaterialStatusActive,
		"title": primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(title) + "$",
			Options: "i",
		},
	}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListQuery selects a page of materials. Zero-valued fields are not filtered on.
type ListQuery struct {
	Subject    string
	Grade      string
	Keyword    string
	Status     string
	UploadedBy *primitive.ObjectID
	Sort       string
	Skip       int64
	Limit      int64
}

// Sort keys accepted by ListQuery.Sort. Anything else sorts by SortLatest.
const (
	SortLatest  = "latest"
	SortOldest  = "oldest"
	SortSubject = "subject"
	SortTitle   = "title"
	SortPopular = "popular"
	SortViews   = "views"
)

func sortSpec(key string) bson.D {
	switch key {
	case SortOldest:
		return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	case SortSubject:
		return bson.D{{Key: "subject", Value: 1}, {Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}}
	case SortTitle:
		return bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}}
	case SortPopular:
		return bson.D{{Key: "metrics.likes", Value: -1}, {Key: "_id", Value: -1}}
	case SortViews:
		return bson.D{{Key: "metrics.views", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func (q ListQuery) filter() bson.M {
	f := bson.M{}
	if q.Subject != "" {
		f["subject"] = q.Subject
	}
	if q.Grade != "" {
		f["grade"] = q.Grade
	}
	if q.UploadedBy != nil {
		f["uploaded_by"] = *q.UploadedBy
	}
	if models.IsValidMaterialStatus(q.Status) {
		f["status"] = q.Status
	}
	if q.Keyword != "" {
		f["$text"] = bson.M{"$search": q.Keyword}
	}
	return f
}

// List returns one page of materials and the total matching count. The count
// and the page query run concurrently against the same filter. LikedBy is
// never loaded.
func (s *Store) List(ctx context.Context, q ListQuery) ([]models.Material, int64, error) {
	filter := q.filter()

	var (
		total int64
		out   = []models.Material{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.c.CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("count materials: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		opts := options.Find().
			SetProjection(bson.M{"liked_by": 0}).
			SetSort(sortSpec(q.Sort)).
			SetSkip(q.Skip)
		if q.Limit > 0 {
			opts.SetLimit(q.Limit)
		}
		cur, err := s.c.Find(gctx, filter, opts)
		if err != nil {
			return fmt.Errorf("find materials: %w", err)
		}
		defer cur.Close(gctx)
		if err := cur.All(gctx, &out); err != nil {
			return fmt.Errorf("decode materials: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID returns a material by its ID, including LikedBy.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Material, error) {
	var m models.Material
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return models.Material{}, err
	}
	return m, nil
}

// GetAndIncrementViews bumps metrics.views and returns the updated material
// in one atomic operation. Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) GetAndIncrementViews(ctx context.Context, id primitive.ObjectID) (models.Material, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"liked_by": 0})

	var m models.Material
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"metrics.views": 1}},
		opts,
	).Decode(&m)
	if err != nil {
		return models.Material{}, err
	}
	return m, nil
}

// IncrementViews adds one to metrics.views.
func (s *Store) IncrementViews(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.increment(ctx, id, "metrics.views")
}

// IncrementDownloads adds one to metrics.downloads.
func (s *Store) IncrementDownloads(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.increment(ctx, id, "metrics.downloads")
}

// increment is only reached with a field name chosen by the exported methods.
func (s *Store) increment(ctx context.Context, id primitive.ObjectID, field string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: 1}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Update is the set of client-writable fields. Nil pointers are left
// unchanged. UploadedBy, Metrics, and LikedBy are not representable here.
type Update struct {
	Title       *string
	Description *string
	Subject     *string
	Grade       *string
	Tags        *[]string
	Status      *string
	FileURL     *string
	FileID      *string
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Subject == nil && u.Grade == nil &&
		u.Tags == nil && u.Status == nil && u.FileURL == nil && u.FileID == nil
}

// Update applies u with $set and returns the material after the update.
// Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Material, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if n := utf8.RuneCountInString(title); n < models.MaterialTitleMin || n > models.MaterialTitleMax {
			return models.Material{}, invalid("Title must be between %d and %d characters", models.MaterialTitleMin, models.MaterialTitleMax)
		}
		set["title"] = title
		set["title_ci"] = TitleKey(title)
	}
	if u.Description != nil {
		if n := utf8.RuneCountInString(strings.TrimSpace(*u.Description)); n < models.MaterialDescriptionMin || n > models.MaterialDescriptionMax {
			return models.Material{}, invalid("Description must be between %d and %d characters", models.MaterialDescriptionMin, models.MaterialDescriptionMax)
		}
		set["description"] = strings.TrimSpace(*u.Description)
	}
	if u.Subject != nil {
		if *u.Subject == "" || utf8.RuneCountInString(*u.Subject) > models.MaterialSubjectMax {
			return models.Material{}, invalid("Subject is required and must be at most %d characters", models.MaterialSubjectMax)
		}
		set["subject"] = *u.Subject
	}
	if u.Grade != nil {
		if utf8.RuneCountInString(*u.Grade) > models.MaterialGradeMax {
			return models.Material{}, invalid("Grade must be at most %d characters", models.MaterialGradeMax)
		}
		set["grade"] = *u.Grade
	}
	if u.Tags != nil {
		if err := validateTags(*u.Tags); err != nil {
			return models.Material{}, err
		}
		tags := *u.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}
	if u.Status != nil {
		if !models.IsValidMaterialStatus(*u.Status) {
			return models.Material{}, invalid("Status must be one of: %s", strings.Join(models.MaterialStatuses, ", "))
		}
		set["status"] = *u.Status
	}
	if u.FileURL != nil {
		if !urlutil.IsValidAbsHTTPURL(*u.FileURL) {
			return models.Material{}, invalid("File URL must be a valid http(s) URL")
		}
		set["file_url"] = *u.FileURL
	}
	if u.FileID != nil {
		set["file_id"] = *u.FileID
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"liked_by": 0})

	var m models.Material
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Material{}, err
		}
		return models.Material{}, mapWriteErr(err)
	}
	return m, nil
}

// Delete removes a material and returns the removed document.
// Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Material, error) {
	var m models.Material
	opts := options.FindOneAndDelete().SetProjection(bson.M{"liked_by": 0})
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}, opts).Decode(&m); err != nil {
		return models.Material{}, err
	}
	return m, nil
}

// IsLikedBy reports whether userID is in the material's liked_by set.
// Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) IsLikedBy(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	var doc struct {
		LikedBy []primitive.ObjectID `bson:"liked_by"`
	}
	opts := options.FindOne().SetProjection(bson.M{"liked_by": 1})
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return false, err
	}
	for _, u := range doc.LikedBy {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

// Like adds userID to liked_by and increments likes, in one update guarded
// by userID not already being a member. matched is false when the guard
// failed or the material does not exist.
func (s *Store) Like(ctx context.Context, id, userID primitive.ObjectID) (likes int64, matched bool, err error) {
	return s.toggle(ctx,
		bson.M{"_id": id, "liked_by": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"liked_by": userID},
			"$inc":      bson.M{"metrics.likes": 1},
		},
	)
}

// Unlike removes userID from liked_by and decrements likes, in one update
// guarded by userID being a member.
func (s *Store) Unlike(ctx context.Context, id, userID primitive.ObjectID) (likes int64, matched bool, err error) {
	return s.toggle(ctx,
		bson.M{"_id": id, "liked_by": userID},
		bson.M{
			"$pull": bson.M{"liked_by": userID},
			"$inc":  bson.M{"metrics.likes": -1},
		},
	)
}

func (s *Store) toggle(ctx context.Context, filter, update bson.M) (int64, bool, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"metrics.likes": 1})

	var doc struct {
		Metrics models.MaterialMetrics `bson:"metrics"`
	}
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return doc.Metrics.Likes, true, nil
}
