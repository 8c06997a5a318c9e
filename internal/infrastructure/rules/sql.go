package rules

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

const defaultRulesTable = "gazette_filters"

// SQLSource reads filter rows from a table shared with the ledger database.
type SQLSource struct {
	db          *sql.DB
	builder     sq.StatementBuilderType
	table       string
	publication string
}

var _ ports.RuleSetSource = (*SQLSource)(nil)

func NewSQLSource(db *sql.DB, placeholder sq.PlaceholderFormat, table, publication string) *SQLSource {
	if table == "" {
		table = defaultRulesTable
	}
	return &SQLSource{
		db:          db,
		builder:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		table:       table,
		publication: publication,
	}
}

func (s *SQLSource) Load(ctx context.Context) ([]domain.RuleSet, error) {
	q := s.builder.
		Select("filter_number", "nome", "casa", "channel", "description",
			"column_name", "positive_filter", "negative_filter").
		From(s.table).
		OrderBy("filter_number")
	if s.publication != "" {
		q = q.Where(sq.Eq{"casa": s.publication})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			number                                   string
			name, casa, channel, desc, col, pos, neg sql.NullString
		)
		if err := rows.Scan(&number, &name, &casa, &channel, &desc, &col, &pos, &neg); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		result = append(result, Row{
			FilterNumber:   number,
			Name:           name.String,
			Publication:    casa.String,
			Channel:        channel.String,
			Description:    desc.String,
			ColumnName:     col.String,
			PositiveFilter: pos.String,
			NegativeFilter: neg.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return Group(result)
}
