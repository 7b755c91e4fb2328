package models

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/msumarli/rolodex/server/logger"
	"github.com/msumarli/rolodex/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "rolodex.db"

var logg = logger.New(false)
var db *gorm.DB

// AutoMigrate opens the sqlite database & migrates the schema.
func AutoMigrate(passPhrase string, dbRootDir string) error {
	err := openDB(passPhrase, dbRootDir)
	if err != nil {
		return err
	}

	return db.AutoMigrate(&User{}, &Contact{}, &Address{})
}

// InitializeTestDb points the models package at a fresh in-memory
// database. Each call wipes all rows, so tests can seed from scratch.
func InitializeTestDb() {
	if db == nil {
		var err error
		db, err = gorm.Open(sqliteEncrypt.Open("file::memory:?cache=shared"), gormConfig())
		if err != nil {
			logg.Panic(err)
		}

		if err = db.AutoMigrate(&User{}, &Contact{}, &Address{}); err != nil {
			logg.Panic(err)
		}
	}

	for _, table := range []string{"addresses", "contacts", "users"} {
		db.Exec(fmt.Sprintf("DELETE FROM %v", table))
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func openDB(passPhrase string, dbRootDir string) error {
	var err error
	var dbDSNVal string

	dbDSNVal, err = dbDSN(passPhrase, dbRootDir)
	if err != nil {
		return errors.Wrap(err, "failed to set sqlite DSN")
	}

	db, err = gorm.Open(sqliteEncrypt.Open(dbDSNVal), gormConfig())
	if err != nil {
		return errors.Wrap(err, "failed to connect database")
	}

	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

func dbDSN(passPhrase string, dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	dbFilePath := filepath.Join(dbDir, DB_NAME)
	dbName := fmt.Sprintf("file:%v", dbFilePath)

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbName,
		passPhrase,
	), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
