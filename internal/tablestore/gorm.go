package tablestore

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// GormStore serves the table API from a SQL database through gorm.
type GormStore struct {
	db     *gorm.DB
	tables map[string]reflect.Type
}

// NewGormStore returns a store over db serving one table per model. Each model
// is a pointer to a struct whose TableName names the table.
func NewGormStore(db *gorm.DB, tables ...schema.Tabler) *GormStore {
	s := &GormStore{db: db, tables: make(map[string]reflect.Type, len(tables))}
	for _, t := range tables {
		s.tables[t.TableName()] = reflect.TypeOf(t).Elem()
	}
	return s
}

// Backend names the SQL dialect behind the store.
func (s *GormStore) Backend() string {
	return s.db.Dialector.Name()
}

func (s *GormStore) model(table string) (any, error) {
	typ, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return reflect.New(typ).Interface(), nil
}

func eqClause(f Filter) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value}
}

// Select loads rows of table into dest.
func (s *GormStore) Select(ctx context.Context, table string, q Query, dest any) error {
	if _, err := s.model(table); err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Table(table)
	if q.Filter != nil {
		tx = tx.Where(eqClause(*q.Filter))
	}
	if q.Order != nil {
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: q.Order.Column},
			Desc:   q.Order.Descending,
		})
	}

	if !q.Single {
		return tx.Find(dest).Error
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.Elem().Kind() != reflect.Struct {
		return errors.New("tablestore: single select needs a pointer to a struct")
	}

	// Two rows are enough to tell "one" from "several".
	rows := reflect.New(reflect.SliceOf(dv.Elem().Type()))
	if err := tx.Limit(2).Find(rows.Interface()).Error; err != nil {
		return err
	}
	if n := rows.Elem().Len(); n != 1 {
		return notSingle(table, n)
	}
	dv.Elem().Set(rows.Elem().Index(0))
	return nil
}

// Insert creates rows in table from field maps. Each row is copied into the
// table's model so gorm can fill database defaults back in. Columns the model
// does not know are rejected.
func (s *GormStore) Insert(ctx context.Context, table string, rows ...Row) error {
	model, err := s.model(table)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(model); err != nil {
		return err
	}

	typ := reflect.TypeOf(model).Elem()
	batch := reflect.New(reflect.SliceOf(reflect.PointerTo(typ)))
	for _, r := range rows {
		rec := reflect.New(typ)
		for col, v := range r {
			field := stmt.Schema.LookUpField(col)
			if field == nil {
				return fmt.Errorf("tablestore: %s has no column %q", table, col)
			}
			if err := field.Set(ctx, rec.Elem(), v); err != nil {
				return fmt.Errorf("tablestore: set %s.%s: %w", table, col, err)
			}
		}
		batch.Elem().Set(reflect.Append(batch.Elem(), rec))
	}
	return s.db.WithContext(ctx).Create(batch.Interface()).Error
}

// Update applies changes to every row of table matching f.
func (s *GormStore) Update(ctx context.Context, table string, changes Row, f Filter) error {
	model, err := s.model(table)
	if err != nil {
		return err
	}
	if err := validFilter(f); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(model).Where(eqClause(f)).Updates(map[string]interface{}(changes)).Error
}

// Delete removes every row of table matching f.
func (s *GormStore) Delete(ctx context.Context, table string, f Filter) error {
	model, err := s.model(table)
	if err != nil {
		return err
	}
	if err := validFilter(f); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where(eqClause(f)).Delete(model).Error
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
