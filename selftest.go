package frontcache

import (
	"bytes"
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/frontcache/internal/wire"
)

// SelfTest validates the backend round trip end-to-end without touching any
// entity's data: a uuid-keyed probe is written, read back, compared,
// deleted, and verified absent. It bypasses the codec on purpose - the
// point is the backend and framing, not V's serialization.
func (c *cache[V]) SelfTest(ctx context.Context) error {
	if !c.enabled {
		return errors.New("frontcache: self-test: cache disabled")
	}

	key := "selftest:" + uuid.NewString()
	k := c.storageKey(key)
	want := []byte("probe:" + key)
	framed := wire.EncodeValue(byte(TierShort), want)

	// exec wraps failures in *OpError with the step name, so the caller
	// sees which leg of the cycle broke.
	step := func(op string, fn func(context.Context) error) error {
		return c.exec(ctx, "selftest_"+op, key, fn)
	}

	if err := step("set", func(ctx context.Context) error {
		ok, err := c.provider.Set(ctx, k, framed, c.ttl[TierShort])
		if err == nil && !ok {
			return errors.New("write rejected")
		}
		return err
	}); err != nil {
		return err
	}

	if err := step("get", func(ctx context.Context) error {
		raw, ok, err := c.provider.Get(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("probe entry missing after write")
		}
		_, payload, err := wire.DecodeValue(raw)
		if err != nil {
			return err
		}
		if !bytes.Equal(payload, want) {
			return errors.New("probe value mismatch")
		}
		return nil
	}); err != nil {
		return err
	}

	if err := step("delete", func(ctx context.Context) error {
		_, err := c.provider.Del(ctx, k)
		return err
	}); err != nil {
		return err
	}

	if err := step("verify_absence", func(ctx context.Context) error {
		ok, err := c.provider.Exists(ctx, k)
		if err != nil {
			return err
		}
		if ok {
			return errors.New("probe entry still present after delete")
		}
		return nil
	}); err != nil {
		return err
	}

	c.log.Info("self-test passed", Fields{"namespace": c.ns})
	return nil
}
