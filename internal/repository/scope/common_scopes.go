package scope

import "gorm.io/gorm"

// OrderBySimilarityDesc expects a "similarity" column in the select list.
func OrderBySimilarityDesc(db *gorm.DB) *gorm.DB {
	return db.Order("similarity DESC")
}
