// Package materialsvc is the single authority for mutating study materials
// and their linked storage objects. It keeps the record and the object from
// diverging in a client-visible way and enforces ownership.
package materialsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	materialstore "github.com/dalemusser/tutorhub/internal/app/store/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/auditlog"
	"github.com/dalemusser/tutorhub/internal/app/system/normalize"
	"github.com/dalemusser/tutorhub/internal/app/system/paging"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaterialStore is the persistence the service needs.
// *materialstore.Store satisfies it.
type MaterialStore interface {
	Create(ctx context.Context, m models.Material) (models.Material, error)
	TitleExists(ctx context.Context, title, subject string, exclude *primitive.ObjectID) (bool, error)
	List(ctx context.Context, q materialstore.ListQuery) ([]models.Material, int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Material, error)
	GetAndIncrementViews(ctx context.Context, id primitive.ObjectID) (models.Material, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncrementDownloads(ctx context.Context, id primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, u materialstore.Update) (models.Material, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Material, error)
	IsLikedBy(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	Like(ctx context.Context, id, userID primitive.ObjectID) (int64, bool, error)
	Unlike(ctx context.Context, id, userID primitive.ObjectID) (int64, bool, error)
}

// UserDirectory resolves uploader summaries. *userstore.Store satisfies it.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

var _ MaterialStore = (*materialstore.Store)(nil)

// Service implements the material lifecycle.
type Service struct {
	store   MaterialStore
	users   UserDirectory
	storage storage.Gateway
	audit   *auditlog.Logger
	log     *zap.Logger
}

// New builds a Service. audit may be nil.
func New(store MaterialStore, users UserDirectory, gw storage.Gateway, audit *auditlog.Logger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, users: users, storage: gw, audit: audit, log: log}
}

// Requester is the authenticated caller of a mutating operation.
type Requester struct {
	ID   primitive.ObjectID
	Role string
}

func (r Requester) canModify(m models.Material) bool {
	return r.Role == models.RoleAdmin || (!r.ID.IsZero() && r.ID == m.UploadedBy)
}

// View is a material as returned to clients.
type View struct {
	models.Material
	Uploader     *models.UserSummary `json:"uploader"`
	UploaderName string              `json:"uploader_name"`
}

const unknownUploader = "Unknown"

/*─────────────────────────────────────────────────────────────────────────────*
| Create                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// CreateInput is validated request metadata plus the already-uploaded file.
type CreateInput struct {
	Title       string
	Description string
	Subject     string
	Grade       string
	Tags        []string
	Status      string
	File        storage.Object
}

// Create persists a new material for an object that is already in storage.
// On every failure path the object is removed (best effort) so no failed
// create leaves an orphan behind.
func (s *Service) Create(ctx context.Context, in CreateInput, uploaderID primitive.ObjectID) (View, error) {
	m := models.Material{
		Title:       normalize.Title(in.Title),
		Description: normalize.Title(in.Description),
		Subject:     normalize.Subject(in.Subject),
		Grade:       normalize.Title(in.Grade),
		Tags:        normalize.Tags(in.Tags...),
		Status:      normalize.Status(in.Status),
		FileURL:     in.File.URL,
		FileID:      in.File.ID,
		UploadedBy:  uploaderID,
	}

	exists, err := s.store.TitleExists(ctx, m.Title, m.Subject, nil)
	if err != nil {
		s.discard(ctx, in.File.ID, "duplicate check failed")
		return View{}, fmt.Errorf("check duplicate title: %w", err)
	}
	if exists {
		s.discard(ctx, in.File.ID, "duplicate title")
		return View{}, duplicateTitle(m.Title, m.Subject)
	}

	created, err := s.store.Create(ctx, m)
	if err != nil {
		s.discard(ctx, in.File.ID, "insert failed")
		return View{}, s.mapStoreErr(err, m.Title, m.Subject)
	}

	s.audit.MaterialCreated(ctx, uploaderID, created.ID, created.Title)
	return s.view(ctx, created), nil
}

// Discard removes an uploaded object that will not be attached to any
// material, e.g. when request validation fails after the upload.
func (s *Service) Discard(ctx context.Context, obj storage.Object, reason string) {
	s.discard(ctx, obj.ID, reason)
}

func (s *Service) discard(ctx context.Context, fileID, reason string) {
	if fileID == "" {
		return
	}
	if err := s.storage.Delete(ctx, fileID); err != nil {
		s.log.Warn("failed to remove uploaded object",
			zap.String("file_id", fileID),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

func duplicateTitle(title, subject string) error {
	return apierr.BadRequest(fmt.Sprintf("A material titled %q already exists for subject %q", title, subject))
}

func (s *Service) mapStoreErr(err error, title, subject string) error {
	var ve *materialstore.ValidationError
	switch {
	case errors.Is(err, materialstore.ErrDuplicateTitle):
		return duplicateTitle(title, subject)
	case errors.As(err, &ve):
		return apierr.BadRequest(ve.Message)
	default:
		return err
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Read                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ListParams are the raw list filters from the request.
type ListParams struct {
	Subject    string
	Grade      string
	Keyword    string
	Status     string
	UploadedBy *primitive.ObjectID
	Sort       string
	Page       int
	Limit      int
}

// ListResult is one page of materials.
type ListResult struct {
	Materials   []View `json:"materials"`
	TotalCount  int64  `json:"total_count"`
	TotalPages  int64  `json:"total_pages"`
	CurrentPage int    `json:"current_page"`
	Limit       int    `json:"limit"`
}

// List returns a filtered, sorted page. Unknown status values and sort keys
// are ignored rather than rejected.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	pg := paging.Clamp(p.Page, p.Limit)
	q := materialstore.ListQuery{
		Subject:    normalize.Subject(p.Subject),
		Grade:      normalize.Title(p.Grade),
		Keyword:    normalize.Title(p.Keyword),
		Status:     normalize.Status(p.Status),
		UploadedBy: p.UploadedBy,
		Sort:       normalize.QueryParam(p.Sort),
		Skip:       pg.Skip(),
		Limit:      int64(pg.Limit),
	}

	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list materials: %w", err)
	}

	return ListResult{
		Materials:   s.views(ctx, items),
		TotalCount:  total,
		TotalPages:  paging.TotalPages(total, pg.Limit),
		CurrentPage: pg.Page,
		Limit:       pg.Limit,
	}, nil
}

// Get returns a material and counts the fetch as a view, atomically.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (View, error) {
	m, err := s.store.GetAndIncrementViews(ctx, id)
	if err != nil {
		return View{}, s.notFoundOr(err, id)
	}
	return s.view(ctx, m), nil
}

func notFound(id primitive.ObjectID) error {
	return apierr.NotFound("No study material found with id: " + id.Hex())
}

func (s *Service) notFoundOr(err error, id primitive.ObjectID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(id)
	}
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Update / Delete                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// Patch is the client-writable part of a material. NewFile, when set, is a
// replacement object already uploaded to storage.
type Patch struct {
	Title       *string
	Description *string
	Subject     *string
	Grade       *string
	Tags        []string
	TagsSet     bool
	Status      *string
	NewFile     *storage.Object
}

// Update applies p on behalf of req. Only the uploader or an admin may
// update. When a new file is supplied, the previous object is deleted after
// the record points at the new one; if the update fails the new object is
// deleted instead.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, p Patch, req Requester) (View, error) {
	discardNew := func(reason string) {
		if p.NewFile != nil {
			s.discard(ctx, p.NewFile.ID, reason)
		}
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		discardNew("material lookup failed")
		return View{}, s.notFoundOr(err, id)
	}
	if !req.canModify(current) {
		discardNew("not authorized")
		return View{}, apierr.Unauthorized("You are not authorized to update this material")
	}

	var u materialstore.Update
	if p.Title != nil {
		t := normalize.Title(*p.Title)
		u.Title = &t
	}
	if p.Description != nil {
		d := normalize.Title(*p.Description)
		u.Description = &d
	}
	if p.Subject != nil {
		sub := normalize.Subject(*p.Subject)
		u.Subject = &sub
	}
	if p.Grade != nil {
		g := normalize.Title(*p.Grade)
		u.Grade = &g
	}
	if p.TagsSet {
		tags := normalize.Tags(p.Tags...)
		u.Tags = &tags
	}
	if p.Status != nil {
		st := normalize.Status(*p.Status)
		u.Status = &st
	}
	if p.NewFile != nil {
		u.FileURL = &p.NewFile.URL
		u.FileID = &p.NewFile.ID
	}

	if u.IsEmpty() {
		return s.view(ctx, current), nil
	}

	// Re-run the duplicate guard when the (title, subject) pair changes.
	if u.Title != nil || u.Subject != nil {
		title, subject := current.Title, current.Subject
		if u.Title != nil {
			title = *u.Title
		}
		if u.Subject != nil {
			subject = *u.Subject
		}
		exists, err := s.store.TitleExists(ctx, title, subject, &current.ID)
		if err != nil {
			discardNew("duplicate check failed")
			return View{}, fmt.Errorf("check duplicate title: %w", err)
		}
		if exists {
			discardNew("duplicate title")
			return View{}, duplicateTitle(title, subject)
		}
	}

	updated, err := s.store.Update(ctx, id, u)
	if err != nil {
		discardNew("update failed")
		title, subject := current.Title, current.Subject
		if u.Title != nil {
			title = *u.Title
		}
		if u.Subject != nil {
			subject = *u.Subject
		}
		return View{}, s.notFoundOr(s.mapStoreErr(err, title, subject), id)
	}

	if p.NewFile != nil {
		s.removeOld(ctx, current)
	}

	s.audit.MaterialUpdated(ctx, req.ID, updated.ID, updated.Title)
	return s.view(ctx, updated), nil
}

// removeOld deletes the object a material currently points at. Failure is
// logged; the metadata update goes ahead regardless.
func (s *Service) removeOld(ctx context.Context, m models.Material) {
	fileID := m.FileID
	if fileID == "" {
		if id, ok := s.storage.IDFromURL(m.FileURL); ok {
			fileID = id
		}
	}
	if fileID == "" {
		return
	}
	if err := s.storage.Delete(ctx, fileID); err != nil {
		s.log.Warn("failed to delete storage object",
			zap.String("material_id", m.ID.Hex()),
			zap.String("file_path", fileID),
			zap.Error(err))
	}
}

// Delete removes a material. The storage object goes first so a surviving
// record never points at a deleted object; a storage failure is logged and
// the record is removed anyway.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID, req Requester) (models.Material, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Material{}, s.notFoundOr(err, id)
	}
	if !req.canModify(current) {
		return models.Material{}, apierr.Unauthorized("You are not authorized to delete this material")
	}

	s.removeOld(ctx, current)

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return models.Material{}, s.notFoundOr(err, id)
	}

	s.audit.MaterialDeleted(ctx, req.ID, deleted.ID, deleted.Title)
	return deleted, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Engagement                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Metric is an engagement counter that clients may bump.
type Metric int

const (
	MetricViews Metric = iota + 1
	MetricDownloads
)

func (m Metric) String() string {
	switch m {
	case MetricViews:
		return "views"
	case MetricDownloads:
		return "downloads"
	default:
		return "unknown"
	}
}

// ParseMetric maps request text to a Metric. Anything outside
// {views, downloads} is a BadRequest.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "views":
		return MetricViews, nil
	case "downloads":
		return MetricDownloads, nil
	default:
		return 0, apierr.BadRequest("Invalid metric field: " + s)
	}
}

// IncrementMetric adds one to the chosen counter.
func (s *Service) IncrementMetric(ctx context.Context, id primitive.ObjectID, metric Metric) error {
	var (
		matched bool
		err     error
	)
	switch metric {
	case MetricViews:
		matched, err = s.store.IncrementViews(ctx, id)
	case MetricDownloads:
		matched, err = s.store.IncrementDownloads(ctx, id)
	default:
		return apierr.BadRequest("Invalid metric field: " + metric.String())
	}
	if err != nil {
		return fmt.Errorf("increment %s: %w", metric, err)
	}
	if !matched {
		return notFound(id)
	}
	return nil
}

// DownloadURLExpiry bounds presigned download links.
const DownloadURLExpiry = 15 * time.Minute

// Download counts a download and returns where to fetch the file. Gateways
// that can presign hand out a time-limited link; otherwise the public URL
// is returned.
func (s *Service) Download(ctx context.Context, id primitive.ObjectID) (string, error) {
	if err := s.IncrementMetric(ctx, id, MetricDownloads); err != nil {
		return "", err
	}
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", s.notFoundOr(err, id)
	}

	p, ok := s.storage.(storage.Presigner)
	if !ok || m.FileID == "" {
		return m.FileURL, nil
	}
	u, err := p.PresignedURL(ctx, m.FileID, DownloadURLExpiry)
	if err != nil {
		s.log.Warn("presign failed; returning public URL",
			zap.String("material_id", id.Hex()), zap.Error(err))
		return m.FileURL, nil
	}
	return u, nil
}

// LikeResult is the outcome of a toggle.
type LikeResult struct {
	Message string `json:"message"`
	Likes   int64  `json:"likes"`
	Liked   bool   `json:"liked"`
}

// ToggleLike flips userID's like on a material. Each branch is a single
// conditional update guarded by membership, so likes always equals the
// size of liked_by. If a concurrent toggle moved membership between the
// read and the write, the opposite branch is tried once.
func (s *Service) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (LikeResult, error) {
	liked, err := s.store.IsLikedBy(ctx, id, userID)
	if err != nil {
		return LikeResult{}, s.notFoundOr(err, id)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if liked {
			likes, ok, err := s.store.Unlike(ctx, id, userID)
			if err != nil {
				return LikeResult{}, fmt.Errorf("unlike material: %w", err)
			}
			if ok {
				return LikeResult{Message: "Material unliked", Likes: likes, Liked: false}, nil
			}
		} else {
			likes, ok, err := s.store.Like(ctx, id, userID)
			if err != nil {
				return LikeResult{}, fmt.Errorf("like material: %w", err)
			}
			if ok {
				return LikeResult{Message: "Material liked", Likes: likes, Liked: true}, nil
			}
		}
		liked = !liked
	}

	// Neither guard matched: the material is gone, or membership keeps flipping.
	if _, err := s.store.IsLikedBy(ctx, id, userID); err != nil {
		return LikeResult{}, s.notFoundOr(err, id)
	}
	return LikeResult{}, fmt.Errorf("toggle like on %s: concurrent modification", id.Hex())
}

/*─────────────────────────────────────────────────────────────────────────────*
| Views                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) view(ctx context.Context, m models.Material) View {
	return s.views(ctx, []models.Material{m})[0]
}

// views attaches uploader summaries. A directory failure degrades to
// "Unknown" uploaders rather than failing the read.
func (s *Service) views(ctx context.Context, items []models.Material) []View {
	out := make([]View, len(items))
	if len(items) == 0 {
		return out
	}

	seen := make(map[primitive.ObjectID]struct{}, len(items))
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, m := range items {
		if _, ok := seen[m.UploadedBy]; !ok {
			seen[m.UploadedBy] = struct{}{}
			ids = append(ids, m.UploadedBy)
		}
	}

	sums, err := s.users.Summaries(ctx, ids)
	if err != nil {
		s.log.Warn("failed to load uploader summaries", zap.Error(err))
	}

	for i, m := range items {
		m.LikedBy = nil
		v := View{Material: m, UploaderName: unknownUploader}
		if us, ok := sums[m.UploadedBy]; ok {
			us := us
			v.Uploader = &us
			v.UploaderName = us.FullName
		}
		out[i] = v
	}
	return out
}
