package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fastkeeper/internal/dbx"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/fasts"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Fasts(db dbx.DBTX) fasts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
