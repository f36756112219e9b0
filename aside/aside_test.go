package aside

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/frontcache/keys"
	"github.com/unkn0wn-root/frontcache/provider/memory"
)

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Org   string `json:"org"`
}

var userDesc = Descriptor[user]{
	EntityType: "user",
	ID:         func(u user) string { return u.ID },
	Fields: func(u user) map[string]string {
		return map[string]string{"email": u.Email}
	},
}

const testNS = "app:test"

func newBinding(t *testing.T) (*Binding[user], *memory.Provider) {
	t.Helper()
	mem := memory.New(memory.Config{})
	b, err := New[user](userDesc, Config{
		Provider:  mem,
		Namespace: testNS,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b, mem
}

// waitStored blocks until the async population worker has written the
// logical key, or fails the test.
func waitStored(t *testing.T, mem *memory.Provider, logicalKey string) {
	t.Helper()
	require.Eventually(t, func() bool {
		ok, err := mem.Exists(context.Background(), testNS+":"+logicalKey)
		return err == nil && ok
	}, 2*time.Second, 5*time.Millisecond, "key %q never populated", logicalKey)
}

func loadUser(u user, calls *int) Loader[user] {
	return func(context.Context) (user, bool, error) {
		*calls++
		return u, true, nil
	}
}

func noLoad(t *testing.T) Loader[user] {
	return func(context.Context) (user, bool, error) {
		t.Fatal("loader called on what should be a cache hit")
		return user{}, false, nil
	}
}

func TestFindByIDPopulatesAllLookupKeys(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	john := user{ID: "1", Email: "john@test.com", Org: "acme"}
	calls := 0

	got, found, err := b.FindByID(ctx, "1", loadUser(john, &calls))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, john, got)
	assert.Equal(t, 1, calls)

	waitStored(t, mem, keys.ByID("user", "1"))
	waitStored(t, mem, keys.ByField("user", "email", "john@test.com"))

	// both lookup paths now hit without touching the store of record
	got, found, err = b.FindByID(ctx, "1", noLoad(t))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, john, got)

	got, found, err = b.FindByField(ctx, "email", "john@test.com", noLoad(t))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, john, got)
}

func TestFindByFieldMissPopulatesIDKey(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	john := user{ID: "1", Email: "john@test.com"}
	calls := 0

	_, found, err := b.FindByField(ctx, "email", "john@test.com", loadUser(john, &calls))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, calls)

	waitStored(t, mem, keys.ByID("user", "1"))
}

func TestFindByIDNotFound(t *testing.T) {
	b, _ := newBinding(t)

	_, found, err := b.FindByID(context.Background(), "missing", func(context.Context) (user, bool, error) {
		return user{}, false, nil
	})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindListCachesExactVariant(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	all := []user{{ID: "1"}, {ID: "2"}}
	calls := 0
	load := func(context.Context) ([]user, error) {
		calls++
		return all, nil
	}

	got, err := b.FindList(ctx, nil, nil, load)
	require.NoError(t, err)
	assert.Equal(t, all, got)
	require.Equal(t, 1, calls)

	waitStored(t, mem, keys.List("user", nil, nil))

	got, err = b.FindList(ctx, nil, nil, load)
	require.NoError(t, err)
	assert.Equal(t, all, got)
	assert.Equal(t, 1, calls, "second identical list read must come from cache")

	// a different page is a different variant and loads again
	_, err = b.FindList(ctx, &keys.Page{Page: 2, Limit: 10}, nil, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFindCount(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		return 42, nil
	}

	n, err := b.FindCount(ctx, map[string]string{"org": "acme"}, load)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	waitStored(t, mem, keys.Count("user", map[string]string{"org": "acme"}))

	n, err = b.FindCount(ctx, map[string]string{"org": "acme"}, load)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, 1, calls)
}

func TestOnUpdatedInvalidatesOldAndNewFieldKeys(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	old := user{ID: "1", Email: "john@test.com", Org: "acme"}
	calls := 0

	_, _, err := b.FindByID(ctx, "1", loadUser(old, &calls))
	require.NoError(t, err)
	waitStored(t, mem, keys.ByID("user", "1"))
	waitStored(t, mem, keys.ByField("user", "email", "john@test.com"))

	// simulate an entry cached under the address john is moving to
	updated := user{ID: "1", Email: "j@test.com", Org: "acme"}
	_, _, err = b.FindByField(ctx, "email", "j@test.com", loadUser(updated, &calls))
	require.NoError(t, err)
	waitStored(t, mem, keys.ByField("user", "email", "j@test.com"))

	_, err = b.FindList(ctx, nil, nil, func(context.Context) ([]user, error) {
		return []user{old}, nil
	})
	require.NoError(t, err)
	waitStored(t, mem, keys.List("user", nil, nil))

	b.OnUpdated(ctx, old, updated)

	for _, k := range []string{
		keys.ByID("user", "1"),
		keys.ByField("user", "email", "john@test.com"),
		keys.ByField("user", "email", "j@test.com"),
		keys.List("user", nil, nil),
	} {
		ok, err := mem.Exists(ctx, testNS+":"+k)
		require.NoError(t, err)
		assert.False(t, ok, "key %q must be gone after update", k)
	}
}

func TestOnUpdatedUnchangedFieldKeptOutOfInvalidation(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	jane := user{ID: "2", Email: "jane@test.com"}
	calls := 0
	_, _, err := b.FindByID(ctx, "2", loadUser(jane, &calls))
	require.NoError(t, err)
	waitStored(t, mem, keys.ByField("user", "email", "jane@test.com"))

	// another entity updates a non-email attribute; jane's keys survive
	old := user{ID: "1", Email: "john@test.com", Org: "acme"}
	updated := user{ID: "1", Email: "john@test.com", Org: "globex"}
	b.OnUpdated(ctx, old, updated)

	ok, err := mem.Exists(ctx, testNS+":"+keys.ByField("user", "email", "jane@test.com"))
	require.NoError(t, err)
	assert.True(t, ok, "unrelated entity keys must not be invalidated")
}

func TestOnDeletedRemovesEntityAndCollections(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	john := user{ID: "1", Email: "john@test.com"}
	calls := 0
	_, _, err := b.FindByID(ctx, "1", loadUser(john, &calls))
	require.NoError(t, err)
	waitStored(t, mem, keys.ByID("user", "1"))

	listCalls := 0
	_, err = b.FindList(ctx, nil, nil, func(context.Context) ([]user, error) {
		listCalls++
		return []user{john}, nil
	})
	require.NoError(t, err)
	waitStored(t, mem, keys.List("user", nil, nil))

	countCalls := 0
	_, err = b.FindCount(ctx, nil, func(context.Context) (int64, error) {
		countCalls++
		return 1, nil
	})
	require.NoError(t, err)
	waitStored(t, mem, keys.Count("user", nil))

	b.OnDeleted(ctx, john)

	assert.Equal(t, 0, mem.Len(), "delete must clear entity, list and count keys")

	_, found, err := b.FindByID(ctx, "1", func(context.Context) (user, bool, error) {
		return user{}, false, nil
	})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = b.FindList(ctx, nil, nil, func(context.Context) ([]user, error) {
		listCalls++
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, listCalls, "list read after delete must go to the store of record")
}

func TestOnCreatedInvalidatesCollections(t *testing.T) {
	b, mem := newBinding(t)
	ctx := context.Background()

	listCalls := 0
	_, err := b.FindList(ctx, nil, nil, func(context.Context) ([]user, error) {
		listCalls++
		return nil, nil
	})
	require.NoError(t, err)
	waitStored(t, mem, keys.List("user", nil, nil))

	b.OnCreated(ctx, user{ID: "9", Email: "new@test.com"})

	_, err = b.FindList(ctx, nil, nil, func(context.Context) ([]user, error) {
		listCalls++
		return []user{{ID: "9"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, listCalls)
}

func TestPassThroughWithoutBackend(t *testing.T) {
	b, err := New[user](userDesc, Config{Namespace: testNS})
	require.NoError(t, err)
	defer b.Close(context.Background())

	ctx := context.Background()
	john := user{ID: "1", Email: "john@test.com"}

	calls := 0
	for i := 0; i < 2; i++ {
		got, found, err := b.FindByID(ctx, "1", loadUser(john, &calls))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, john, got)
	}
	assert.Equal(t, 2, calls, "every read must reach the loader without a backend")

	assert.False(t, b.Ready())

	// write notifications are harmless no-ops
	b.OnCreated(ctx, john)
	b.OnUpdated(ctx, john, john)
	b.OnDeleted(ctx, john)
}

func TestNewRejectsIncompleteDescriptor(t *testing.T) {
	_, err := New[user](Descriptor[user]{}, Config{})
	assert.Error(t, err)

	_, err = New[user](Descriptor[user]{EntityType: "user"}, Config{})
	assert.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	b, _ := newBinding(t)
	require.NoError(t, b.Close(context.Background()))
	require.NoError(t, b.Close(context.Background()))
}
