package repomanager

import (
	"context"
	"database/sql"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/dbx"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/comments"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/posts"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/users"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/votes"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// several of them inside one dbx.WithTx transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Comments(db dbx.DBTX) comments.Repository
	Votes(db dbx.DBTX) votes.Repository
}
