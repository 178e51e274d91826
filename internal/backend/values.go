package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"

	"github.com/vovakirdan/ircgate/internal/core"
)

// The backend is loose about types: ids arrive as numbers or strings,
// flags as booleans, numbers or "0"/"1".

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v interface{}) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return int64(f)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && s != "0" && s != "false"
	case nil:
		return false
	default:
		return asInt(t) != 0
	}
}

// UserFromContainer builds a user from a backend user object.
func UserFromContainer(c *gabs.Container) *core.User {
	if c == nil || c.Data() == nil {
		return nil
	}
	return &core.User{
		ID:          asInt(c.Path("id").Data()),
		Name:        asString(c.Path("nick").Data()),
		Gender:      core.ParseGender(asString(c.Path("sex").Data())),
		Anonymous:   asBool(c.Path("anonym").Data()),
		IdleSeconds: int(asInt(c.Path("idle").Data())),
		IsRoomAdmin: asBool(c.Path("admin").Data()),
		Karma:       int(asInt(c.Path("karma").Data())),
	}
}
