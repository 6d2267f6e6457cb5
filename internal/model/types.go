package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringList 以逗号分隔持久化的字符串列表
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	return strings.Join(l, ","), nil
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case string:
		if v == "" {
			*l = nil
		} else {
			*l = strings.Split(v, ",")
		}
	case []byte:
		return l.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	return nil
}
