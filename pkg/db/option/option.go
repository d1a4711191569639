package option

import "gorm.io/gorm"

// QueryOption narrows or shapes a gorm query built by the generic store.
type QueryOption func(*gorm.DB) *gorm.DB

func Apply(stmt *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			stmt = opt(stmt)
		}
	}
	return stmt
}

func WithLimit(n int) QueryOption {
	return func(stmt *gorm.DB) *gorm.DB {
		if n <= 0 {
			return stmt
		}
		return stmt.Limit(n)
	}
}

func WithOffset(n int) QueryOption {
	return func(stmt *gorm.DB) *gorm.DB {
		if n <= 0 {
			return stmt
		}
		return stmt.Offset(n)
	}
}

func WithOrder(expr string) QueryOption {
	return func(stmt *gorm.DB) *gorm.DB {
		if expr == "" {
			return stmt
		}
		return stmt.Order(expr)
	}
}

// WithIn adds a column IN (...) clause.
func WithIn(column string, values any) QueryOption {
	return func(stmt *gorm.DB) *gorm.DB {
		return stmt.Where(column+" IN ?", values)
	}
}
