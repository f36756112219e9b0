package frontcache

import "fmt"

// OpError carries the operation name and logical key of a failed backend
// call. It never escapes the public read/write surface (those degrade to
// safe defaults); it appears in logs and in SelfTest results.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("frontcache: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("frontcache: %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
