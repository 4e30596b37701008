package sink

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DriverMySQL is the database/sql driver name registered by the MySQL
// driver import.
const DriverMySQL = "mysql"

// defaultMySQLPort is used when a target omits the port.
const defaultMySQLPort = 3306

// MySQLConfig holds the per-target connection options for a MySQL store.
// These map to one entry of the targets section of config.yaml.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders the options as a go-sql-driver data source name.
//
// Timestamps are bound as pre-formatted local calendar strings, so the
// connection location is set to local time for consistency with any
// server-side DATETIME handling.
func (c MySQLConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	mc.User = c.User
	mc.Passwd = c.Password
	mc.DBName = c.Database
	mc.Loc = time.Local

	return mc.FormatDSN()
}
