package jobs

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// dialect captures the handful of places the SQLite and MySQL backends differ.
type dialect struct {
	name        string
	schema      string
	isDuplicate func(error) bool
	isBusy      func(error) bool
}

const (
	sqliteBusyCode             = 5
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067

	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlockFound   = 1213
)

var sqliteDialect = dialect{
	name:   "sqlite",
	schema: sqliteSchemaSQL,
	isDuplicate: func(err error) bool {
		var coder interface{ Code() int }
		if errors.As(err, &coder) {
			switch coder.Code() {
			case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
				return true
			}
		}
		return err != nil && containsAny(err.Error(), "UNIQUE constraint failed", "PRIMARY KEY constraint failed")
	},
	isBusy: func(err error) bool {
		if err == nil {
			return false
		}
		var coder interface{ Code() int }
		if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
			return true
		}
		return containsAny(err.Error(), "SQLITE_BUSY", "database is locked")
	},
}

var mysqlDialect = dialect{
	name:   "mysql",
	schema: mysqlSchemaSQL,
	isDuplicate: func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
	},
	isBusy: func(err error) bool {
		var myErr *mysql.MySQLError
		if !errors.As(err, &myErr) {
			return false
		}
		return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlDeadlockFound
	},
}
