package repositories

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pedido-service/models"
)

// MySQL server error numbers that mean the statement broke a constraint.
var mysqlConstraintErrors = map[uint16]bool{
	1048: true, // column cannot be null
	1062: true, // duplicate entry
	1216: true, // cannot add child row (legacy)
	1217: true, // cannot delete parent row (legacy)
	1451: true, // row is referenced by a foreign key
	1452: true, // foreign key target missing
	3819: true, // check constraint violated
}

// classify maps a driver error onto the store error taxonomy. It returns nil
// when the error fits neither kind.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && mysqlConstraintErrors[myErr.Number] {
		return models.ErrStoreConstraint
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return models.ErrStoreConstraint
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return models.ErrTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.ErrTransport
	}
	return nil
}
