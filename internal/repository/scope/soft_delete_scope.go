package scope

import "gorm.io/gorm"

// ExcludeSoftDelete is needed on raw Table() queries, where GORM does not
// add the deleted_at filter itself.
func ExcludeSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}
