package common

import (
	"database/sql"
	"database/sql/driver"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	idNode *snowflake.Node
	idMu   sync.Mutex
)

// SetNodeID configures the snowflake node used by UUIDint64.
func SetNodeID(id int64) error {
	node, err := snowflake.NewNode(id)
	if err != nil {
		return err
	}
	idMu.Lock()
	idNode = node
	idMu.Unlock()
	return nil
}

// UUIDint64 returns a time-ordered unique int64 used as primary key for every table.
func UUIDint64() int64 {
	idMu.Lock()
	if idNode == nil {
		idNode, _ = snowflake.NewNode(1)
	}
	node := idNode
	idMu.Unlock()
	return node.Generate().Int64()
}

// UUID returns a random RFC 4122 identifier.
func UUID() string {
	return uuid.NewString()
}

// NullID is an optional reference to a snowflake id. It is stored as a
// nullable BIGINT and encoded in JSON as a quoted id or null.
type NullID struct {
	Int64 int64
	Valid bool
}

// NewNullID returns a set NullID.
func NewNullID(id int64) NullID {
	return NullID{Int64: id, Valid: true}
}

// Is reports whether n is set to id.
func (n NullID) Is(id int64) bool {
	return n.Valid && n.Int64 == id
}

func (n NullID) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(`"` + strconv.FormatInt(n.Int64, 10) + `"`), nil
}

// UnmarshalJSON accepts null, "", a quoted id or a bare number.
func (n *NullID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = NullID{}
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" || s == "null" {
		*n = NullID{}
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = NewNullID(v)
	return nil
}

func (n *NullID) Scan(value interface{}) error {
	var v sql.NullInt64
	if err := v.Scan(value); err != nil {
		return err
	}
	n.Int64, n.Valid = v.Int64, v.Valid
	return nil
}

func (n NullID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Int64, nil
}
