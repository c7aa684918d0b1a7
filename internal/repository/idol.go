package repository

import (
	"context"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/repository"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

var (
	groupByName = builder.MustDerive[models.Group]("FindFirstByGroupName")
	idolByGroup = builder.MustDerive[models.Idol]("FindByGroup_GroupName")
	idolAgeDesc = builder.MustDerive[models.Idol]("FindAllByOrderByAgeDesc")
)

// GroupRepository stores idol groups.
type GroupRepository struct {
	*repository.Repository[models.Group, int64]
}

// NewGroupRepository creates a GroupRepository.
func NewGroupRepository(s *session.Session) *GroupRepository {
	return &GroupRepository{repository.MustNew[models.Group, int64](s)}
}

// FindByGroupName returns the first group with this name, or nil.
func (r *GroupRepository) FindByGroupName(ctx context.Context, name string) (*models.Group, error) {
	groups, err := groupByName.All(ctx, r.DB(), name)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return &groups[0], nil
}

// IdolRepository stores idols.
type IdolRepository struct {
	*repository.Repository[models.Idol, int64]
}

// NewIdolRepository creates an IdolRepository.
func NewIdolRepository(s *session.Session) *IdolRepository {
	return &IdolRepository{repository.MustNew[models.Idol, int64](s)}
}

// FindAllByPaging returns one page of idols in the order p requests.
func (r *IdolRepository) FindAllByPaging(ctx context.Context, p builder.Pageable) (*builder.Page[models.Idol], error) {
	return r.FindAllPaged(ctx, p)
}

// FindAllOrderByAgeDesc returns every idol, oldest first.
func (r *IdolRepository) FindAllOrderByAgeDesc(ctx context.Context) ([]models.Idol, error) {
	return idolAgeDesc.All(ctx, r.DB())
}

// FindPage returns page pageNo (0-based) of size idols, oldest first.
func (r *IdolRepository) FindPage(ctx context.Context, pageNo, size int) (*builder.Page[models.Idol], error) {
	return r.FindAllPaged(ctx, builder.PageRequest(pageNo, size, builder.DescBy("Age")))
}

// FindByGroupName returns one page of the idols of a group. Without sort
// keys in p the page is ordered by idol name.
func (r *IdolRepository) FindByGroupName(ctx context.Context, groupName string, p builder.Pageable) (*builder.Page[models.Idol], error) {
	if len(p.Sort) == 0 {
		p.Sort = builder.By(builder.AscBy("IdolName"))
	}
	return idolByGroup.Page(ctx, r.DB(), p, groupName)
}

// CountAll returns the number of idols.
func (r *IdolRepository) CountAll(ctx context.Context) (int64, error) {
	return r.Count(ctx)
}
