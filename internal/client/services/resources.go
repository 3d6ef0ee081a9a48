package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/tillapos/internal/client/client"
	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/client/session"
	"github.com/dmitrijs2005/tillapos/internal/netx"
)

const (
	PathMe            = "/users/me"
	PathMyBusiness    = "/businesses/me"
	PathBusinessTypes = "/business-types/options"
	PathCategories    = "/categories"
	PathDevices       = "/session/devices"

	cacheUser          = "user"
	cacheBusiness      = "business"
	cacheBusinessTypes = "business-types"
	cacheCategories    = "categories"
)

type UserService interface {
	Me(ctx context.Context) (models.User, error)
}

type BusinessService interface {
	Mine(ctx context.Context) (models.Business, error)
}

type BusinessTypeService interface {
	Options(ctx context.Context) ([]models.BusinessTypeOption, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id string) (models.Category, error)
	Create(ctx context.Context, name string, image *models.FileData) (models.Category, error)
	// Update changes only what is given: an empty name or nil image is left
	// untouched.
	Update(ctx context.Context, id, name string, image *models.FileData) (models.Category, error)
}

type DeviceService interface {
	List(ctx context.Context) (models.Devices, error)
}

// resources implements the read and write services over one client. Cached
// results live in cache, which the session purges on invalidation. Image URLs
// are rewritten to the origin of baseURL.
type resources struct {
	client  client.Client
	cache   session.Cache
	baseURL string
}

func newResources(c client.Client, cache session.Cache, baseURL string) *resources {
	return &resources{client: c, cache: cache, baseURL: baseURL}
}

func NewUserService(c client.Client, cache session.Cache, baseURL string) UserService {
	return newResources(c, cache, baseURL)
}

func NewBusinessService(c client.Client, cache session.Cache, baseURL string) BusinessService {
	return newResources(c, cache, baseURL)
}

func NewBusinessTypeService(c client.Client, cache session.Cache) BusinessTypeService {
	return newResources(c, cache, "")
}

func NewCategoryService(c client.Client, cache session.Cache, baseURL string) CategoryService {
	return &categories{newResources(c, cache, baseURL)}
}

func NewDeviceService(c client.Client) DeviceService {
	return &devices{newResources(c, nil, "")}
}

func (s *resources) get(ctx context.Context, path string, out any) error {
	if err := s.client.Do(ctx, client.NewRequest(http.MethodGet, path), out); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

func (s *resources) Me(ctx context.Context) (models.User, error) {
	return session.Cached(s.cache, cacheUser, func() (models.User, error) {
		var u models.User
		if err := s.get(ctx, PathMe, &u); err != nil {
			return u, err
		}
		if u.Business != nil {
			u.Business.Image = client.FormatURL(u.Business.Image, s.baseURL)
		}
		return u, nil
	})
}

func (s *resources) Mine(ctx context.Context) (models.Business, error) {
	return session.Cached(s.cache, cacheBusiness, func() (models.Business, error) {
		var b models.Business
		if err := s.get(ctx, PathMyBusiness, &b); err != nil {
			return b, err
		}
		b.Image = client.FormatURL(b.Image, s.baseURL)
		return b, nil
	})
}

func (s *resources) Options(ctx context.Context) ([]models.BusinessTypeOption, error) {
	return session.Cached(s.cache, cacheBusinessTypes, func() ([]models.BusinessTypeOption, error) {
		var opts []models.BusinessTypeOption
		err := s.get(ctx, PathBusinessTypes, &opts)
		return opts, err
	})
}

type categories struct {
	*resources
}

func (s *categories) List(ctx context.Context) ([]models.Category, error) {
	return session.Cached(s.cache, cacheCategories, func() ([]models.Category, error) {
		var list []models.Category
		if err := s.get(ctx, PathCategories, &list); err != nil {
			return nil, err
		}
		for i := range list {
			s.format(&list[i])
		}
		return list, nil
	})
}

func (s *categories) Get(ctx context.Context, id string) (models.Category, error) {
	return session.Cached(s.cache, cacheCategories+"/"+id, func() (models.Category, error) {
		var c models.Category
		if err := s.get(ctx, categoryPath(id), &c); err != nil {
			return c, err
		}
		s.format(&c)
		return c, nil
	})
}

func (s *categories) Create(ctx context.Context, name string, image *models.FileData) (models.Category, error) {
	return s.write(ctx, http.MethodPost, PathCategories, []netx.Field{{Name: "name", Value: name}}, image)
}

func (s *categories) Update(ctx context.Context, id, name string, image *models.FileData) (models.Category, error) {
	var fields []netx.Field
	if name != "" {
		fields = append(fields, netx.Field{Name: "name", Value: name})
	}
	return s.write(ctx, http.MethodPut, categoryPath(id), fields, image)
}

func (s *categories) write(ctx context.Context, method, path string, fields []netx.Field, image *models.FileData) (models.Category, error) {
	var c models.Category

	r, err := client.NewMultipartRequest(method, path, fields, imagePart(image))
	if err != nil {
		return c, err
	}
	if err := s.client.Do(ctx, r, &c); err != nil {
		return c, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if s.cache != nil {
		s.cache.Forget(cacheCategories)
	}
	s.format(&c)
	return c, nil
}

func (s *categories) format(c *models.Category) {
	c.Image = client.FormatURL(c.Image, s.baseURL)
	if c.Business != nil {
		c.Business.Image = client.FormatURL(c.Business.Image, s.baseURL)
	}
}

func categoryPath(id string) string {
	return PathCategories + "/" + url.PathEscape(id)
}

type devices struct {
	*resources
}

func (s *devices) List(ctx context.Context) (models.Devices, error) {
	var d models.Devices
	err := s.get(ctx, PathDevices, &d)
	return d, err
}
