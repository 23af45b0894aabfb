package catalog

import (
	"context"
	"errors"

	"ChunkVault/internal/errs"
	"ChunkVault/model"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// Gorm keeps records in the object_record table.
type Gorm struct {
	db *gorm.DB
}

// NewGorm builds a Catalog on an open gorm connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *Gorm) Put(ctx context.Context, record *model.ObjectRecord) error {
	err := g.db.WithContext(ctx).Create(record).Error
	if isDuplicateKey(err) {
		return errs.DuplicateName("put", record.Name)
	}
	return err
}

func (g *Gorm) GetByName(ctx context.Context, name string) (*model.ObjectRecord, error) {
	var record model.ObjectRecord
	err := g.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("get by name", name)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (g *Gorm) ListAll(ctx context.Context) ([]model.ObjectRecord, error) {
	records := make([]model.ObjectRecord, 0)
	if err := g.db.WithContext(ctx).
		Order("created_at asc").
		Order("name asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Delete locks the row, removes it and returns it in one transaction so a
// concurrent delete of the same name sees NotFound.
func (g *Gorm) Delete(ctx context.Context, name string) (*model.ObjectRecord, error) {
	var record model.ObjectRecord
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(&record).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", record.ID).Delete(&model.ObjectRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("delete", name)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
