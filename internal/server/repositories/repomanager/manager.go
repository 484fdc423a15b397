package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/balances"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/posts"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/socialaccounts"
)

// RepositoryManager vends repositories bound to a DBTX so services can use
// the same repositories inside and outside transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Balances(db dbx.DBTX) balances.Repository
	Posts(db dbx.DBTX) posts.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Preferences(db dbx.DBTX) preferences.Repository
	SocialAccounts(db dbx.DBTX) socialaccounts.Repository
}
