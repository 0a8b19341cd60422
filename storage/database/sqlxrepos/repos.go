// Package sqlxrepos implements the core repositories on Postgres via sqlx
// with squirrel-built queries.
package sqlxrepos

import (
	"regexp"

	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/shida/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ordering fields must be bare column names; squirrel's OrderBy takes raw SQL
var orderingFieldRx = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func applyOrdering(q sq.SelectBuilder, ordering []core.DBOrdering, fallback string) sq.SelectBuilder {
	applied := false
	for _, ord := range ordering {
		if !orderingFieldRx.MatchString(ord.Field) {
			continue
		}
		q = q.OrderBy(ord.String())
		applied = true
	}
	if !applied {
		q = q.OrderBy(fallback)
	}
	return q
}
