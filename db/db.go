package db

import (
	"server/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var Instance *gorm.DB

func Init() {
	var err error
	var db *gorm.DB
	if config.MYSQL_DSN != "" {
		db, err = gorm.Open(mysql.Open(config.MYSQL_DSN), &gorm.Config{
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		})
	} else if config.SQLITE_FILE != "" {
		db, err = gorm.Open(sqlite.Open(config.SQLITE_FILE), &gorm.Config{})
	} else {
		panic("either MYSQL_DSN or SQLITE_FILE must be configured")
	}
	if err != nil || db == nil {
		panic(err)
	}
	Instance = db
}

// InitTest points Instance at an in-memory SQLite database. Used by tests only.
func InitTest(name string) {
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil || db == nil {
		panic(err)
	}
	Instance = db
}
