package repositories

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const usersTable = "users"

var userStruct = database.NewStruct(new(models.User))

// UserRepository handles database operations for users
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DB, logger ectologger.Logger) *UserRepository {
	return &UserRepository{
		Repository: NewRepository(db, logger),
	}
}

// ListWithTimeTacID retrieves the tenant's users that carry a TimeTac
// mapping. The TimeTac syncs build their user lookup from this list.
func (r *UserRepository) ListWithTimeTacID(ctx context.Context) ([]models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.ListWithTimeTacID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := userStruct.SelectFrom(usersTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNotNull("timetac_id"),
	)
	sb.OrderBy("name")

	query, args := sb.Build()
	var users []models.User
	err = r.DB().SelectContext(ctx, &users, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list users with timetac mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list users with timetac mapping")
	}

	return users, nil
}
