package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	resourcesVersionKey = "resources:version"
	uploadTimeout       = 30 * time.Second
)

type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type ImageUploader interface {
	Upload(ctx context.Context, images []string) ([]string, error)
}

type ResourcePage struct {
	Resources []*models.Resource `json:"resources"`
	Total     int64              `json:"total"`
}

type ResourceService struct {
	repo     models.ResourceRepo
	cache    Cache
	uploader ImageUploader
	cacheTTL time.Duration
	logger   *zap.Logger
	timeout  time.Duration
}

// NewResourceService accepts a nil cache or uploader; listing then always hits
// the database and photos are stored as given.
func NewResourceService(repo models.ResourceRepo, cache Cache, uploader ImageUploader, cacheTTL time.Duration, logger *zap.Logger) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{
		repo:     repo,
		cache:    cache,
		uploader: uploader,
		cacheTTL: cacheTTL,
		logger:   logger,
		timeout:  defaultTimeout,
	}
}

func (rs *ResourceService) CreateResource(ctx context.Context, p *helpers.Principal, resource *models.Resource) (*models.Resource, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	resource.Name = strings.TrimSpace(resource.Name)
	if err := models.Validate.Struct(resource); err != nil {
		return nil, apperror.Validation("invalid resource data provided: %v", err)
	}

	if len(resource.Photos) > 0 {
		urls, err := rs.upload(ctx, resource.Photos)
		if err != nil {
			return nil, err
		}
		resource.Photos = urls
	}

	now := time.Now().UTC()
	resource.ID = primitive.NewObjectID()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	ctx, cancel := withTimeout(ctx, rs.timeout)
	defer cancel()

	created, err := rs.repo.CreateResource(ctx, resource)
	if err != nil {
		return nil, storeError("resource", err)
	}
	rs.invalidate(ctx)
	return created, nil
}

func (rs *ResourceService) upload(ctx context.Context, images []string) ([]string, error) {
	if rs.uploader == nil {
		return images, nil
	}

	type result struct {
		urls []string
		err  error
	}
	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		urls, err := rs.uploader.Upload(uploadCtx, images)
		done <- result{urls, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, apperror.Unavailable("failed to upload images", r.err)
		}
		rs.logger.Info("uploaded resource photos", zap.Int("count", len(r.urls)))
		return r.urls, nil
	case <-uploadCtx.Done():
		return nil, apperror.Unavailable("image upload timeout", uploadCtx.Err())
	}
}

func (rs *ResourceService) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	resourceID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid resource id")
	}

	ctx, cancel := withTimeout(ctx, rs.timeout)
	defer cancel()

	resource, err := rs.repo.GetResourceByID(ctx, resourceID)
	if err != nil {
		return nil, storeError("resource", err)
	}
	return resource, nil
}

func (rs *ResourceService) ListResources(ctx context.Context, filter models.ResourceFilter) (*ResourcePage, error) {
	if filter.Offset < 0 || filter.Limit <= 0 {
		return nil, apperror.Validation("invalid offset or limit")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.Validation("invalid resource type")
	}
	filter.Query = strings.TrimSpace(filter.Query)

	ctx, cancel := withTimeout(ctx, rs.timeout)
	defer cancel()

	key := rs.listKey(ctx, filter)
	if key != "" {
		var page ResourcePage
		if err := rs.cache.Get(ctx, key, &page); err == nil {
			return &page, nil
		}
	}

	resources, total, err := rs.repo.ListResources(ctx, filter)
	if err != nil {
		return nil, storeError("resources", err)
	}
	page := &ResourcePage{Resources: resources, Total: total}

	if key != "" {
		if err := rs.cache.Set(ctx, key, page, rs.cacheTTL); err != nil {
			rs.logger.Warn("failed to cache resource list", zap.Error(err))
		}
	}
	return page, nil
}

// listKey embeds the current namespace version, so bumping the version on a
// write orphans every cached page at once.
func (rs *ResourceService) listKey(ctx context.Context, filter models.ResourceFilter) string {
	if rs.cache == nil {
		return ""
	}
	var version int64
	if err := rs.cache.Get(ctx, resourcesVersionKey, &version); err != nil {
		version = 0
	}
	return fmt.Sprintf("resources:v%d:%s:%s:%d:%d", version, filter.Type, strings.ToLower(filter.Query), filter.Offset, filter.Limit)
}

func (rs *ResourceService) invalidate(ctx context.Context) {
	if rs.cache == nil {
		return
	}
	if _, err := rs.cache.Incr(ctx, resourcesVersionKey); err != nil {
		rs.logger.Warn("failed to invalidate resource cache", zap.Error(err))
	}
}

func (rs *ResourceService) UpdateResource(ctx context.Context, p *helpers.Principal, id string, update *models.ResourceUpdate) (*models.Resource, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	resourceID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid resource id")
	}
	if err := models.Validate.Struct(update); err != nil {
		return nil, apperror.Validation("invalid update data: %v", err)
	}
	if len(update.Photos) > 0 {
		urls, err := rs.upload(ctx, update.Photos)
		if err != nil {
			return nil, err
		}
		update.Photos = urls
	}

	ctx, cancel := withTimeout(ctx, rs.timeout)
	defer cancel()

	updated, err := rs.repo.UpdateResource(ctx, resourceID, update)
	if err != nil {
		return nil, storeError("resource", err)
	}
	rs.invalidate(ctx)
	return updated, nil
}

func (rs *ResourceService) DeleteResource(ctx context.Context, p *helpers.Principal, id string) error {
	if !p.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	resourceID, err := helpers.ParseObjectID(id)
	if err != nil {
		return apperror.Validation("invalid resource id")
	}

	ctx, cancel := withTimeout(ctx, rs.timeout)
	defer cancel()

	if err := rs.repo.DeleteResource(ctx, resourceID); err != nil {
		return storeError("resource", err)
	}
	rs.invalidate(ctx)
	return nil
}
