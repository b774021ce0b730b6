package reactive

import "fmt"

// reservedKeys are the names of store operations. They cannot be used as
// property keys so that stores stay interchangeable with clients that
// address operations and properties through one namespace.
var reservedKeys = map[string]struct{}{
	"computed": {},
	"watch":    {},
	"bind":     {},
	"autoBind": {},
	"get":      {},
	"set":      {},
	"update":   {},
	"reset":    {},
}

// ReservedKeys returns the operation names that cannot be written.
func ReservedKeys() []string {
	return []string{"computed", "watch", "bind", "autoBind", "get", "set", "update", "reset"}
}

func isReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// checkKey validates a key before any write.
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if isReserved(key) {
		return fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	return nil
}
