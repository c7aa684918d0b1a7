// Package repository holds the entity repositories: the generic CRUD
// surface plus the finders each entity needs.
package repository

import (
	"context"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/repository"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

var (
	studentByName              = builder.MustDerive[models.Student]("FindByName")
	studentByCityAndMajor      = builder.MustDerive[models.Student]("FindByCityAndMajor")
	studentByNameAndCity       = builder.MustDerive[models.Student]("FindByNameAndCity")
	studentByMajorContaining   = builder.MustDerive[models.Student]("FindByMajorContaining")
	studentByMajorStarting     = builder.MustDerive[models.Student]("FindByMajorStartingWith")
	studentByMajorEnding       = builder.MustDerive[models.Student]("FindByMajorEndingWith")
	studentByNameContaining    = builder.MustDerive[models.Student]("FindByNameContaining")
	studentByNameOrCityNamed   = builder.MustParseNative("SELECT * FROM tbl_student WHERE stu_name = :snm OR city = :city")
	studentByNameOrCityPos     = builder.MustParseNative("SELECT * FROM tbl_student WHERE stu_name = ?1 OR city = ?2")
	studentByCity              = builder.MustParseNative("SELECT * FROM tbl_student WHERE city = ?1")
	studentSearchByName        = builder.MustParseNative("SELECT * FROM tbl_student WHERE stu_name LIKE %?1%")
	studentDeleteByNameAndCity = builder.MustParseNative("DELETE FROM tbl_student WHERE stu_name = ?1 AND city = ?2")
)

// StudentRepository stores students.
type StudentRepository struct {
	*repository.Repository[models.Student, string]
}

// NewStudentRepository creates a StudentRepository.
func NewStudentRepository(s *session.Session) *StudentRepository {
	return &StudentRepository{repository.MustNew[models.Student, string](s)}
}

// FindByName returns students with exactly this name.
func (r *StudentRepository) FindByName(ctx context.Context, name string) ([]models.Student, error) {
	return studentByName.All(ctx, r.DB(), name)
}

// FindByCityAndMajor returns students matching both city and major.
func (r *StudentRepository) FindByCityAndMajor(ctx context.Context, city, major string) ([]models.Student, error) {
	return studentByCityAndMajor.All(ctx, r.DB(), city, major)
}

// FindByMajorContaining matches majors containing major.
func (r *StudentRepository) FindByMajorContaining(ctx context.Context, major string) ([]models.Student, error) {
	return studentByMajorContaining.All(ctx, r.DB(), major)
}

// FindByMajorStartingWith matches majors with the prefix major.
func (r *StudentRepository) FindByMajorStartingWith(ctx context.Context, major string) ([]models.Student, error) {
	return studentByMajorStarting.All(ctx, r.DB(), major)
}

// FindByMajorEndingWith matches majors with the suffix major.
func (r *StudentRepository) FindByMajorEndingWith(ctx context.Context, major string) ([]models.Student, error) {
	return studentByMajorEnding.All(ctx, r.DB(), major)
}

// GetStudentByNameOrCity runs a native query with named parameters.
func (r *StudentRepository) GetStudentByNameOrCity(ctx context.Context, name, city string) ([]models.Student, error) {
	return builder.NativeStmt[models.Student](r.DB(), studentByNameOrCityNamed).
		Bind("snm", name).
		Bind("city", city).
		All(ctx)
}

// GetStudentByNameOrCity2 is GetStudentByNameOrCity with positional
// parameters.
func (r *StudentRepository) GetStudentByNameOrCity2(ctx context.Context, name, city string) ([]models.Student, error) {
	return builder.NativeStmt[models.Student](r.DB(), studentByNameOrCityPos).
		Args(name, city).
		All(ctx)
}

// GetByCityWithJPQL returns the single student in city, or nil. More than
// one match is runtime.ErrNonUniqueResult.
func (r *StudentRepository) GetByCityWithJPQL(ctx context.Context, city string) (*models.Student, error) {
	return builder.NativeStmt[models.Student](r.DB(), studentByCity).Args(city).One(ctx)
}

// SearchByNameWithJPQL returns students whose name contains name.
func (r *StudentRepository) SearchByNameWithJPQL(ctx context.Context, name string) ([]models.Student, error) {
	return builder.NativeStmt[models.Student](r.DB(), studentSearchByName).Args(name).All(ctx)
}

// DeleteByNameAndCityWithJPQL deletes matching students in a transaction
// and returns how many were removed. Deleted students are detached from the
// session.
func (r *StudentRepository) DeleteByNameAndCityWithJPQL(ctx context.Context, name, city string) (int64, error) {
	var deleted int64
	err := r.Session().Transaction(ctx, func(tx *session.Session) error {
		victims, err := studentByNameAndCity.All(ctx, tx.DB(), name, city)
		if err != nil {
			return err
		}
		deleted, err = builder.NativeStmt[models.Student](tx.DB(), studentDeleteByNameAndCity).
			Args(name, city).
			Exec(ctx)
		if err != nil {
			return err
		}
		for i := range victims {
			if err := session.Detach(tx, &victims[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return deleted, err
}

// FindByNameContaining returns one page of students whose name contains
// name.
func (r *StudentRepository) FindByNameContaining(ctx context.Context, name string, p builder.Pageable) (*builder.Page[models.Student], error) {
	return studentByNameContaining.Page(ctx, r.DB(), p, name)
}
