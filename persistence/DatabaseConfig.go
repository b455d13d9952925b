package persistence

import (
	"errors"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv DATABASE_DRIVER=mysql DATABASE_ARGS=root:root@(127.0.0.1:3306)/procflow?charset=utf8mb4&parseTime=True&loc=Local
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "mysql"
	}
	args := os.ExpandEnv(os.Getenv("DATABASE_ARGS"))
	if args == "" {
		return nil, errors.New("environment variable DATABASE_ARGS is not set")
	}
	return &DatabaseConfig{DriverType: driver, DriverArgs: args}, nil
}

// PrepareMysqlDatabase create the database of the dsn when absent.
// The dsn is expected in the form user:pass@(host:port)/database?args.
func PrepareMysqlDatabase(driverArgs string) error {
	idx := strings.Index(driverArgs, "/")
	if idx < 0 {
		return errors.New("invalid mysql driver args: " + driverArgs)
	}
	databaseAndArgs := driverArgs[idx+1:]
	databaseName := databaseAndArgs
	if argsIdx := strings.Index(databaseAndArgs, "?"); argsIdx >= 0 {
		databaseName = databaseAndArgs[0:argsIdx]
	}
	if databaseName == "" {
		return errors.New("database name not found in driver args")
	}

	db, err := gorm.Open("mysql", driverArgs[0:idx+1])
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` CHARACTER SET utf8mb4").Error
}

// IsDuplicateEntryError detect mysql unique constraint violation (error 1062)
func IsDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
