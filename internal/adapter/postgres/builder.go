package postgres

import "github.com/Masterminds/squirrel"

// Builder returns a statement builder using $n placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
