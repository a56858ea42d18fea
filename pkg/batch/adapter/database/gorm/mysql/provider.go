// Package mysql registers the MySQL GORM dialector.
package mysql

import (
	"fmt"

	drivermysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm"
)

// Type is the configuration type handled by this package.
const Type = "mysql"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the DSN with go-sql-driver's Config so special
// characters in the password are escaped. multiStatements is required by the
// migration driver.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dc := drivermysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.MultiStatements = true
	return dc.FormatDSN()
}
