package models

import (
	"server/db"
)

func Init() {
	if err := db.Instance.AutoMigrate(&Asset{}); err != nil {
		panic(err)
	}
}
